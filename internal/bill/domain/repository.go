package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type DraftKey struct {
	Month       string
	Type        BillType
	AgencyID    snowflake.ID
	AdAccountID snowflake.ID
	Currency    string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bill *MonthlyBill) error
	FindDraft(ctx context.Context, db *gorm.DB, key DraftKey) (*MonthlyBill, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MonthlyBill, error)
	List(ctx context.Context, db *gorm.DB, filter ListBillFilter, page pagination.Pagination) ([]*MonthlyBill, error)
	SaveDraft(ctx context.Context, db *gorm.DB, bill *MonthlyBill) error
}
