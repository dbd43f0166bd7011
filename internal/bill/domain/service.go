package domain

import (
	"context"
	"errors"
	"io"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
	"gorm.io/gorm"
)

// UpsertDraftRequest adds deltas to the draft identified by the five-tuple key.
type UpsertDraftRequest struct {
	Month          string
	Category       BillCategory
	Type           BillType
	AgencyID       snowflake.ID
	AdAccountID    snowflake.ID
	Currency       string
	AmountDelta    decimal.Decimal
	RebateDelta    decimal.Decimal
	RechargeIDs    []snowflake.ID
	ConsumptionIDs []snowflake.ID
}

// RetractRechargeRequest removes one recharge from the draft identified by the key.
type RetractRechargeRequest struct {
	Month       string
	Category    BillCategory
	Type        BillType
	AgencyID    snowflake.ID
	AdAccountID snowflake.ID
	Currency    string
	RechargeID  snowflake.ID
	AmountDelta decimal.Decimal
	RebateDelta decimal.Decimal
}

type UpsertOutcome string

const (
	UpsertOutcomeCreated UpsertOutcome = "created"
	UpsertOutcomeMerged  UpsertOutcome = "merged"
	// UpsertOutcomeReplayed means every linked id was already on the draft.
	UpsertOutcomeReplayed UpsertOutcome = "replayed"
	// UpsertOutcomeRetracted means a cancelled recharge was taken off the draft.
	UpsertOutcomeRetracted UpsertOutcome = "retracted"
)

type ListBillRequest struct {
	PageToken   string
	PageSize    int32
	Month       string
	Category    BillCategory
	Status      BillStatus
	AgencyID    snowflake.ID
	AdAccountID snowflake.ID
}

type ListBillFilter struct {
	Month       string
	Category    BillCategory
	Status      BillStatus
	AgencyID    snowflake.ID
	AdAccountID snowflake.ID
}

type ListBillResponse struct {
	pagination.PageInfo
	Bills []MonthlyBill `json:"bills"`
}

type Service interface {
	UpsertDraft(ctx context.Context, tx *gorm.DB, req UpsertDraftRequest) (MonthlyBill, UpsertOutcome, error)
	// RetractRecharge subtracts a cancelled recharge from its draft inside tx. It fails with
	// ErrBillNotDraft when no draft carries the recharge any more.
	RetractRecharge(ctx context.Context, tx *gorm.DB, req RetractRechargeRequest) (MonthlyBill, error)
	GetByID(ctx context.Context, id snowflake.ID) (MonthlyBill, error)
	List(ctx context.Context, req ListBillRequest) (ListBillResponse, error)
	RenderStatement(ctx context.Context, id snowflake.ID) (io.Reader, error)
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidMonth    = errors.New("invalid_month")
	ErrInvalidCategory = errors.New("invalid_bill_category")
	ErrInvalidType     = errors.New("invalid_bill_type")
	ErrInvalidKey      = errors.New("invalid_bill_key")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrDraftConflict   = errors.New("draft_bill_conflict")
	ErrBillNotDraft    = errors.New("bill_not_draft")
	ErrNotFound        = errors.New("bill_not_found")
	ErrRendererMissing = errors.New("statement_renderer_unavailable")
)
