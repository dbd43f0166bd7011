package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, receivable *RebateReceivable) error
	FindByRechargeID(ctx context.Context, db *gorm.DB, rechargeID snowflake.ID) (*RebateReceivable, error)
	// ListOpen returns receivables with a positive balance that are neither closed nor
	// tied to a cancelled recharge, ordered by creation time then id.
	ListOpen(ctx context.Context, db *gorm.DB, accountID snowflake.ID, currency string) ([]*RebateReceivable, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]RebateReceivable, error)
	SaveWriteoff(ctx context.Context, db *gorm.DB, receivable *RebateReceivable) error
}
