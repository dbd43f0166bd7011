package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccrualInput describes a confirmed recharge that may create a receivable.
type AccrualInput struct {
	RechargeID   snowflake.ID
	AdAccountID  snowflake.ID
	Currency     string
	RebateAmount decimal.Decimal
	RebateRate   decimal.Decimal
	OccurredAt   time.Time
}

// WriteoffInput describes a confirmed consumption walked against open receivables.
type WriteoffInput struct {
	ConsumptionID snowflake.ID
	AdAccountID   snowflake.ID
	Currency      string
	Amount        decimal.Decimal
	RebateRate    decimal.Decimal
	OccurredAt    time.Time
}

type AppliedWriteoff struct {
	ReceivableID     snowflake.ID     `json:"receivable_id"`
	Amount           decimal.Decimal  `json:"amount"`
	RemainingBalance decimal.Decimal  `json:"remaining_balance"`
	Status           ReceivableStatus `json:"status"`
}

type WriteoffResult struct {
	Applied []AppliedWriteoff `json:"applied"`
	Total   decimal.Decimal   `json:"total"`
	// Unallocated is the part of the consumption no receivable absorbed.
	Unallocated decimal.Decimal `json:"unallocated"`
}

type Service interface {
	// Accrue creates the receivable for a recharge inside tx. It returns nil when the
	// recharge carries no rebate.
	Accrue(ctx context.Context, tx *gorm.DB, in AccrualInput) (*RebateReceivable, error)
	// WriteOff walks open receivables oldest first inside tx.
	WriteOff(ctx context.Context, tx *gorm.DB, in WriteoffInput) (WriteoffResult, error)
	// Void closes the receivable of a cancelled recharge inside tx. It returns nil when
	// the recharge never accrued a receivable.
	Void(ctx context.Context, tx *gorm.DB, rechargeID snowflake.ID) (*RebateReceivable, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]RebateReceivable, error)
}

var (
	ErrInvalidRecharge    = errors.New("invalid_recharge")
	ErrInvalidConsumption = errors.New("invalid_consumption")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidRate        = errors.New("invalid_rebate_rate")
	ErrStatusRegression   = errors.New("receivable_status_regression")
)
