package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Platform string

const (
	PlatformFacebook Platform = "FB"
	PlatformGoogle   Platform = "Google"
	PlatformTikTok   Platform = "TikTok"
	PlatformOther    Platform = "Other"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformFacebook, PlatformGoogle, PlatformTikTok, PlatformOther:
		return true
	default:
		return false
	}
}

type RebatePeriod string

const (
	RebatePeriodMonthly   RebatePeriod = "monthly"
	RebatePeriodQuarterly RebatePeriod = "quarterly"
)

func (p RebatePeriod) Valid() bool {
	return p == RebatePeriodMonthly || p == RebatePeriodQuarterly
}

// RebateConfig is the agency's rebate schedule.
type RebateConfig struct {
	Rate   decimal.Decimal `json:"rate"`
	Period RebatePeriod    `json:"period"`
}

// Agency is an advertising agency that recharges ad accounts on a platform.
type Agency struct {
	ID                 snowflake.ID    `gorm:"primaryKey" json:"id"`
	Code               string          `gorm:"type:text;not null;uniqueIndex:ux_agencies_code" json:"code"`
	Name               string          `gorm:"type:text;not null" json:"name"`
	Platform           Platform        `gorm:"type:text;not null" json:"platform"`
	RebateRate         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"rebate_rate"`
	RebatePeriod       RebatePeriod    `gorm:"type:text;not null" json:"rebate_period"`
	SettlementCurrency string          `gorm:"type:text;not null" json:"settlement_currency"`
	CreditTerm         string          `gorm:"type:text" json:"credit_term,omitempty"`
	CreatedAt          time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null" json:"updated_at"`
}

func (Agency) TableName() string { return "agencies" }

func (a Agency) RebateConfig() RebateConfig {
	return RebateConfig{Rate: a.RebateRate, Period: a.RebatePeriod}
}

// DueDates derives consumption due dates from the agency credit term.
func (a Agency) DueDates(consumedAt time.Time) DueDates {
	return ComputeDueDates(a.CreditTerm, a.RebatePeriod, consumedAt)
}
