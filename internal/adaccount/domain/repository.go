package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *AdAccount) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AdAccount, error)
	FindViewByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AdAccountView, error)
	List(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, page pagination.Pagination) ([]*AdAccountView, error)
	// ListIDsAfter returns up to limit account ids greater than afterID in ascending order.
	ListIDsAfter(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]snowflake.ID, error)
	UpdateBalances(ctx context.Context, db *gorm.DB, id snowflake.ID, currentBalance, rebateReceivable decimal.Decimal, updatedAt time.Time) error
}
