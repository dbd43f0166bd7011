package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, recharge *AdRecharge) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AdRecharge, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]AdRecharge, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]AdRecharge, error)
	UpdatePaymentStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to PaymentStatus, updatedAt time.Time) (bool, error)
}
