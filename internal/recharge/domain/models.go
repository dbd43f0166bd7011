package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the payment status may move to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusPaid || next == PaymentStatusCancelled
	case PaymentStatusPaid:
		return next == PaymentStatusCancelled
	default:
		return false
	}
}

// AdRecharge is principal paid to the platform through the agency.
// It is immutable after creation except for PaymentStatus.
type AdRecharge struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	AdAccountID   snowflake.ID    `gorm:"not null;index:idx_ad_recharges_account_month,priority:1" json:"ad_account_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Currency      string          `gorm:"type:text;not null" json:"currency"`
	RebateAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"rebate_amount"`
	RebateRate    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"rebate_rate"`
	Date          time.Time       `gorm:"not null" json:"date"`
	Month         string          `gorm:"type:text;not null;index:idx_ad_recharges_account_month,priority:2" json:"month"`
	PaymentStatus PaymentStatus   `gorm:"type:text;not null" json:"payment_status"`
	Note          string          `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

func (AdRecharge) TableName() string { return "ad_recharges" }
