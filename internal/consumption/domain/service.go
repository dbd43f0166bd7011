package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	rebatedomain "github.com/smallbiznis/adledger/internal/rebate/domain"
)

type CreateConsumptionRequest struct {
	AdAccountID snowflake.ID    `json:"ad_account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Date        time.Time       `json:"date"`
	Note        string          `json:"note"`
}

type CreateConsumptionResult struct {
	Consumption    AdConsumption               `json:"consumption"`
	Writeoff       rebatedomain.WriteoffResult `json:"writeoff"`
	CurrentBalance decimal.Decimal             `json:"current_balance"`
}

type Service interface {
	Create(ctx context.Context, req CreateConsumptionRequest) (CreateConsumptionResult, error)
	GetByID(ctx context.Context, id snowflake.ID) (AdConsumption, error)
	// ListUnsettled returns the account's unsettled consumptions of month, oldest first.
	ListUnsettled(ctx context.Context, accountID snowflake.ID, month string) ([]AdConsumption, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidAccount   = errors.New("invalid_ad_account")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrInvalidMonth     = errors.New("invalid_month")
	ErrCurrencyMismatch = errors.New("currency_mismatch")
	ErrAccountNotFound  = errors.New("ad_account_not_found")
	ErrNotFound         = errors.New("consumption_not_found")
)
