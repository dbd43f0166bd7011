package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AdConsumption is spend burned by the platform. IsSettled is terminal once true.
type AdConsumption struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	AdAccountID     snowflake.ID    `gorm:"not null;index:idx_ad_consumptions_account_month,priority:1" json:"ad_account_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Currency        string          `gorm:"type:text;not null" json:"currency"`
	EstimatedRebate decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"estimated_rebate"`
	RebateRate      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"rebate_rate"`
	Date            time.Time       `gorm:"not null" json:"date"`
	Month           string          `gorm:"type:text;not null;index:idx_ad_consumptions_account_month,priority:2" json:"month"`
	DueDate         time.Time       `gorm:"not null" json:"due_date"`
	RebateDueDate   time.Time       `gorm:"not null" json:"rebate_due_date"`
	IsSettled       bool            `gorm:"not null;default:false" json:"is_settled"`
	SettledAt       *time.Time      `json:"settled_at,omitempty"`
	Note            string          `gorm:"type:text" json:"note,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

func (AdConsumption) TableName() string { return "ad_consumptions" }
