package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Balances struct {
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	RebateReceivable decimal.Decimal `json:"rebate_receivable"`
}

type Result struct {
	AdAccountID snowflake.ID `json:"ad_account_id"`
	Drifted     bool         `json:"drifted"`
	Before      Balances     `json:"before"`
	After       Balances     `json:"after"`
	Projection  Projection   `json:"projection"`
}

type Summary struct {
	Scanned   int `json:"scanned"`
	Corrected int `json:"corrected"`
	Failed    int `json:"failed"`
}

type Service interface {
	// ReconcileAccount takes the account lock and rewrites drifted balances.
	ReconcileAccount(ctx context.Context, accountID snowflake.ID) (Result, error)
	// Reconcile does the same inside tx for callers that already hold the account lock.
	Reconcile(ctx context.Context, tx *gorm.DB, accountID snowflake.ID) (Result, error)
	// ReconcileAll walks every account in id order, batchSize at a time.
	ReconcileAll(ctx context.Context, batchSize int) (Summary, error)
}

var (
	ErrInvalidAccount = errors.New("invalid_account")
	ErrNotFound       = errors.New("ad_account_not_found")
)
