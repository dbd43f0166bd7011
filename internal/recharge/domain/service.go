package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	rebatedomain "github.com/smallbiznis/adledger/internal/rebate/domain"
)

type CreateRechargeRequest struct {
	AdAccountID   snowflake.ID    `json:"ad_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Date          time.Time       `json:"date"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Note          string          `json:"note"`
}

type CreateRechargeResult struct {
	Recharge         AdRecharge                     `json:"recharge"`
	Receivable       *rebatedomain.RebateReceivable `json:"receivable,omitempty"`
	CurrentBalance   decimal.Decimal                `json:"current_balance"`
	RebateReceivable decimal.Decimal                `json:"rebate_receivable"`
}

type UpdatePaymentStatusRequest struct {
	ID     snowflake.ID  `json:"id"`
	Status PaymentStatus `json:"status"`
}

type Service interface {
	Create(ctx context.Context, req CreateRechargeRequest) (CreateRechargeResult, error)
	GetByID(ctx context.Context, id snowflake.ID) (AdRecharge, error)
	UpdatePaymentStatus(ctx context.Context, req UpdatePaymentStatusRequest) (AdRecharge, error)
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidAccount       = errors.New("invalid_ad_account")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrCurrencyMismatch     = errors.New("currency_mismatch")
	ErrInvalidPaymentStatus = errors.New("invalid_payment_status")
	ErrInvalidTransition    = errors.New("invalid_payment_status_transition")
	ErrStatusConflict       = errors.New("payment_status_conflict")
	ErrAccountNotFound      = errors.New("ad_account_not_found")
	ErrNotFound             = errors.New("recharge_not_found")
)
