package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AdAccount is an advertising account funded through an agency.
// CurrentBalance and RebateReceivable are projections of the account history and are
// rewritten by the reconciler when they drift.
type AdAccount struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	AgencyID          snowflake.ID    `gorm:"not null;index" json:"agency_id"`
	Name              string          `gorm:"type:text;not null" json:"name"`
	ExternalAccountID string          `gorm:"type:text" json:"external_account_id,omitempty"`
	Currency          string          `gorm:"type:text;not null" json:"currency"`
	CurrentBalance    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"current_balance"`
	RebateReceivable  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"rebate_receivable"`
	CreditLimit       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"credit_limit"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

func (AdAccount) TableName() string { return "ad_accounts" }

// AdAccountView is an account joined with its agency at read time.
type AdAccountView struct {
	AdAccount
	AgencyName     string `json:"agency_name"`
	AgencyPlatform string `json:"agency_platform"`
}
