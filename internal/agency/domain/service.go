package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
)

type CreateAgencyRequest struct {
	Name               string          `json:"name"`
	Platform           Platform        `json:"platform"`
	RebateRate         decimal.Decimal `json:"rebate_rate"`
	RebatePeriod       RebatePeriod    `json:"rebate_period"`
	SettlementCurrency string          `json:"settlement_currency"`
	CreditTerm         string          `json:"credit_term"`
}

// UpdateAgencyRequest carries a partial edit; nil fields are left untouched.
type UpdateAgencyRequest struct {
	ID                 snowflake.ID     `json:"-"`
	Name               *string          `json:"name"`
	Platform           *Platform        `json:"platform"`
	RebateRate         *decimal.Decimal `json:"rebate_rate"`
	RebatePeriod       *RebatePeriod    `json:"rebate_period"`
	SettlementCurrency *string          `json:"settlement_currency"`
	CreditTerm         *string          `json:"credit_term"`
}

type ListAgencyRequest struct {
	PageToken string
	PageSize  int32
	Platform  Platform
}

type ListAgencyResponse struct {
	pagination.PageInfo
	Agencies []Agency `json:"agencies"`
}

type Service interface {
	Create(context.Context, CreateAgencyRequest) (Agency, error)
	Update(context.Context, UpdateAgencyRequest) (Agency, error)
	GetByID(context.Context, snowflake.ID) (Agency, error)
	List(context.Context, ListAgencyRequest) (ListAgencyResponse, error)
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidPlatform   = errors.New("invalid_platform")
	ErrInvalidRebateRate = errors.New("invalid_rebate_rate")
	ErrInvalidPeriod     = errors.New("invalid_rebate_period")
	ErrInvalidCurrency   = errors.New("invalid_currency")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("agency_not_found")
)
