package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type SettleRequest struct {
	AdAccountID    snowflake.ID   `json:"ad_account_id"`
	Month          string         `json:"month"`
	ConsumptionIDs []snowflake.ID `json:"consumption_ids"`
}

type SettleResult struct {
	Batch SettlementBatch `json:"batch"`
	// Replayed is true when the batch had already been applied by an earlier call.
	Replayed bool `json:"replayed"`
}

type RecoverySummary struct {
	Scanned    int `json:"scanned"`
	Recovered  int `json:"recovered"`
	Superseded int `json:"superseded"`
	Failed     int `json:"failed"`
}

type Service interface {
	Settle(ctx context.Context, req SettleRequest) (SettleResult, error)
	// SettleMonth settles every unsettled consumption of the account in month.
	SettleMonth(ctx context.Context, accountID snowflake.ID, month string) (SettleResult, error)
	// RecoverStaged applies batches left staged for longer than olderThan.
	RecoverStaged(ctx context.Context, olderThan time.Duration, limit int) (RecoverySummary, error)
}

var (
	ErrInvalidAccount      = errors.New("invalid_ad_account")
	ErrInvalidMonth        = errors.New("invalid_month")
	ErrEmptySelection      = errors.New("empty_consumption_selection")
	ErrConsumptionNotFound = errors.New("consumption_not_found")
	ErrAccountMismatch     = errors.New("consumption_account_mismatch")
	ErrMonthMismatch       = errors.New("consumption_month_mismatch")
	ErrAlreadySettled      = errors.New("consumption_already_settled")
	ErrSettlementConflict  = errors.New("settlement_conflict")
	ErrAccountNotFound     = errors.New("ad_account_not_found")
	ErrNothingToSettle     = errors.New("nothing_to_settle")
	ErrBatchPending        = errors.New("settlement_batch_pending")
)
