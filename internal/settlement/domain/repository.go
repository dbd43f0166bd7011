package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, batch *SettlementBatch) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SettlementBatch, error)
	FindByDedupeKey(ctx context.Context, db *gorm.DB, key string) (*SettlementBatch, error)
	// MarkApplied moves a staged batch to applied and reports whether it did.
	MarkApplied(ctx context.Context, db *gorm.DB, id snowflake.ID, appliedAt time.Time) (bool, error)
	// MarkSuperseded closes a staged batch without applying it and reports whether it did.
	MarkSuperseded(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	// ListStagedByAccount returns every staged batch of the account, oldest first.
	ListStagedByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]SettlementBatch, error)
	// ListStaged returns staged batches created before cutoff, oldest first.
	ListStaged(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]SettlementBatch, error)
}
