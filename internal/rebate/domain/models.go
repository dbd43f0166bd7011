package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ReceivableStatus string

const (
	ReceivableStatusPendingWriteoff ReceivableStatus = "pending_writeoff"
	ReceivableStatusInWriteoff      ReceivableStatus = "in_writeoff"
	ReceivableStatusSettled         ReceivableStatus = "settled"
	// ReceivableStatusVoided closes the receivable of a cancelled recharge.
	ReceivableStatusVoided ReceivableStatus = "voided"
)

func (s ReceivableStatus) rank() int {
	switch s {
	case ReceivableStatusPendingWriteoff:
		return 0
	case ReceivableStatusInWriteoff:
		return 1
	case ReceivableStatusSettled:
		return 2
	case ReceivableStatusVoided:
		return 3
	default:
		return -1
	}
}

// Closed reports whether the receivable can no longer absorb write-offs.
func (s ReceivableStatus) Closed() bool {
	return s == ReceivableStatusSettled || s == ReceivableStatusVoided
}

// CanTransitionTo reports whether moving to next keeps the status monotonic.
func (s ReceivableStatus) CanTransitionTo(next ReceivableStatus) bool {
	return next.rank() >= s.rank() && next.rank() >= 0
}

const WriteoffReasonRechargeCancelled = "recharge_cancelled"

// WriteoffRecord is one entry of a receivable's append-only write-off log.
// Records without a consumption carry a Reason.
type WriteoffRecord struct {
	ConsumptionID         snowflake.ID    `json:"consumption_id,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	RemainingBalanceAfter decimal.Decimal `json:"remaining_balance_after"`
	Reason                string          `json:"reason,omitempty"`
	Timestamp             time.Time       `json:"timestamp"`
}

// RebateReceivable is the rebate an agency owes for one recharge.
type RebateReceivable struct {
	ID              snowflake.ID                        `gorm:"primaryKey" json:"id"`
	RechargeID      snowflake.ID                        `gorm:"not null;uniqueIndex:ux_rebate_receivables_recharge" json:"recharge_id"`
	AdAccountID     snowflake.ID                        `gorm:"not null;index:idx_rebate_receivables_fifo,priority:1" json:"ad_account_id"`
	Currency        string                              `gorm:"type:text;not null;index:idx_rebate_receivables_fifo,priority:2" json:"currency"`
	RebateRate      decimal.Decimal                     `gorm:"type:decimal(18,4);not null" json:"rebate_rate"`
	OriginalAmount  decimal.Decimal                     `gorm:"type:decimal(18,4);not null" json:"original_amount"`
	CurrentBalance  decimal.Decimal                     `gorm:"type:decimal(18,4);not null" json:"current_balance"`
	Status          ReceivableStatus                    `gorm:"type:text;not null" json:"status"`
	WriteoffRecords datatypes.JSONSlice[WriteoffRecord] `gorm:"not null" json:"writeoff_records"`
	AccruedAt       time.Time                           `gorm:"not null" json:"accrued_at"`
	CreatedAt       time.Time                           `gorm:"not null;index:idx_rebate_receivables_fifo,priority:3" json:"created_at"`
	UpdatedAt       time.Time                           `gorm:"not null" json:"updated_at"`
}

func (RebateReceivable) TableName() string { return "rebate_receivables" }
