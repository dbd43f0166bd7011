package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, consumption *AdConsumption) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AdConsumption, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]AdConsumption, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]AdConsumption, error)
	ListUnsettled(ctx context.Context, db *gorm.DB, accountID snowflake.ID, month string) ([]AdConsumption, error)
	// MarkSettled flips unsettled rows and returns how many changed.
	MarkSettled(ctx context.Context, db *gorm.DB, ids []snowflake.ID, settledAt time.Time) (int64, error)
}
