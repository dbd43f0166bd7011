package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BillCategory string

const (
	BillCategoryPayable    BillCategory = "payable"
	BillCategoryReceivable BillCategory = "receivable"
)

type BillType string

const (
	BillTypeAdvertising       BillType = "advertising"
	BillTypeAdvertisingRebate BillType = "advertising_rebate"
)

type BillStatus string

const (
	BillStatusDraft     BillStatus = "draft"
	BillStatusPending   BillStatus = "pending"
	BillStatusApproved  BillStatus = "approved"
	BillStatusPaid      BillStatus = "paid"
	BillStatusCancelled BillStatus = "cancelled"
)

// MonthlyBill aggregates an account's recharges or rebates for one month.
// At most one draft exists per (month, type, agency, account, currency).
type MonthlyBill struct {
	ID             snowflake.ID                      `gorm:"primaryKey" json:"id"`
	BillNumber     string                            `gorm:"type:text;not null;uniqueIndex:ux_monthly_bills_number" json:"bill_number"`
	Month          string                            `gorm:"type:text;not null;index:idx_monthly_bills_draft_key,priority:1" json:"month"`
	Category       BillCategory                      `gorm:"type:text;not null" json:"bill_category"`
	Type           BillType                          `gorm:"type:text;not null;index:idx_monthly_bills_draft_key,priority:2" json:"bill_type"`
	AgencyID       snowflake.ID                      `gorm:"not null;index:idx_monthly_bills_draft_key,priority:3" json:"agency_id"`
	AdAccountID    snowflake.ID                      `gorm:"not null;index:idx_monthly_bills_draft_key,priority:4" json:"ad_account_id"`
	Currency       string                            `gorm:"type:text;not null;index:idx_monthly_bills_draft_key,priority:5" json:"currency"`
	TotalAmount    decimal.Decimal                   `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	RebateAmount   decimal.Decimal                   `gorm:"type:decimal(18,4);not null" json:"rebate_amount"`
	NetAmount      decimal.Decimal                   `gorm:"type:decimal(18,4);not null" json:"net_amount"`
	RechargeIDs    datatypes.JSONSlice[snowflake.ID] `gorm:"not null" json:"recharge_ids"`
	ConsumptionIDs datatypes.JSONSlice[snowflake.ID] `gorm:"not null" json:"consumption_ids"`
	Status         BillStatus                        `gorm:"type:text;not null;index:idx_monthly_bills_draft_key,priority:6" json:"status"`
	CreatedAt      time.Time                         `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time                         `gorm:"not null" json:"updated_at"`
}

func (MonthlyBill) TableName() string { return "monthly_bills" }

// NetAmount applies the bill-type rule: a rebate receivable is worth its rebate, any
// other bill is owed in full.
func NetAmount(category BillCategory, billType BillType, total, rebate decimal.Decimal) decimal.Decimal {
	if category == BillCategoryReceivable && billType == BillTypeAdvertisingRebate {
		return rebate
	}
	return total
}

// NumberPrefix returns the bill number prefix of a bill type.
func NumberPrefix(billType BillType) string {
	if billType == BillTypeAdvertisingRebate {
		return "REB"
	}
	return "ADV"
}
