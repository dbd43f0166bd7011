package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
)

type CreateAdAccountRequest struct {
	AgencyID          snowflake.ID    `json:"agency_id"`
	Name              string          `json:"name"`
	ExternalAccountID string          `json:"external_account_id"`
	Currency          string          `json:"currency"`
	CreditLimit       decimal.Decimal `json:"credit_limit"`
}

type ListAdAccountRequest struct {
	PageToken string
	PageSize  int32
	AgencyID  snowflake.ID
}

type ListAdAccountResponse struct {
	pagination.PageInfo
	AdAccounts []AdAccountView `json:"ad_accounts"`
}

type Service interface {
	Create(context.Context, CreateAdAccountRequest) (AdAccountView, error)
	GetByID(context.Context, snowflake.ID) (AdAccountView, error)
	List(context.Context, ListAdAccountRequest) (ListAdAccountResponse, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidAgency      = errors.New("invalid_agency")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrInvalidCreditLimit = errors.New("invalid_credit_limit")
	ErrNotFound           = errors.New("ad_account_not_found")
)
