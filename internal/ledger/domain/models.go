package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// EntryType is the bookkeeping direction of an external ledger entry.
type EntryType string

const (
	EntryTypeIncome  EntryType = "income"
	EntryTypeExpense EntryType = "expense"
)

type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusConfirmed EntryStatus = "confirmed"
)

const (
	// CategoryRebatePending is emitted when a consumption carries an estimated rebate.
	CategoryRebatePending = "ad_rebate_pending"
	// CategoryRebateSettled is emitted per consumption when its rebate is settled.
	CategoryRebateSettled = "ad_rebate_settled"
)

// LedgerEntry is an append-only bookkeeping record shared with other domains.
// A (category, related_id) pair is written at most once.
type LedgerEntry struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	Type        EntryType       `gorm:"type:text;not null" json:"type"`
	Category    string          `gorm:"type:text;not null;uniqueIndex:ux_ledger_entries_category_related,priority:1" json:"category"`
	RelatedID   snowflake.ID    `gorm:"not null;uniqueIndex:ux_ledger_entries_category_related,priority:2" json:"related_id"`
	AdAccountID snowflake.ID    `gorm:"not null;index:idx_ledger_entries_account_status,priority:1" json:"ad_account_id"`
	Status      EntryStatus     `gorm:"type:text;not null;index:idx_ledger_entries_account_status,priority:2" json:"status"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Currency    string          `gorm:"type:text;not null" json:"currency"`
	OccurredAt  time.Time       `gorm:"not null" json:"occurred_at"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }
