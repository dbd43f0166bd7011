package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/internal/adaccount/domain"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
	"gorm.io/gorm"
)

const viewColumns = `ad_accounts.id, ad_accounts.agency_id, ad_accounts.name, ad_accounts.external_account_id,
	ad_accounts.currency, ad_accounts.current_balance, ad_accounts.rebate_receivable, ad_accounts.credit_limit,
	ad_accounts.created_at, ad_accounts.updated_at,
	COALESCE(agencies.name, '') AS agency_name, COALESCE(agencies.platform, '') AS agency_platform`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.AdAccount) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AdAccount, error) {
	var account domain.AdAccount
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) FindViewByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AdAccountView, error) {
	var view domain.AdAccountView
	err := db.WithContext(ctx).
		Table("ad_accounts").
		Select(viewColumns).
		Joins("LEFT JOIN agencies ON agencies.id = ad_accounts.agency_id").
		Where("ad_accounts.id = ?", id).
		Limit(1).
		Scan(&view).Error
	if err != nil {
		return nil, err
	}
	if view.ID == 0 {
		return nil, nil
	}
	return &view, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, agencyID snowflake.ID, page pagination.Pagination) ([]*domain.AdAccountView, error) {
	var views []*domain.AdAccountView
	stmt := db.WithContext(ctx).
		Table("ad_accounts").
		Select(viewColumns).
		Joins("LEFT JOIN agencies ON agencies.id = ad_accounts.agency_id")
	if agencyID != 0 {
		stmt = stmt.Where("ad_accounts.agency_id = ?", agencyID)
	}
	size := page.PageSize
	if size <= 0 {
		size = 50
	}
	if page.PageToken != "" {
		if cursor, err := pagination.DecodeCursor(page.PageToken); err == nil && cursor.ID != "" {
			stmt = stmt.Where("ad_accounts.id < ?", cursor.ID)
		}
	}
	err := stmt.
		Order("ad_accounts.created_at desc, ad_accounts.id desc").
		Limit(size + 1).
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

func (r *repo) ListIDsAfter(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.AdAccount{}).
		Where("id > ?", afterID).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) UpdateBalances(ctx context.Context, db *gorm.DB, id snowflake.ID, currentBalance, rebateReceivable decimal.Decimal, updatedAt time.Time) error {
	result := db.WithContext(ctx).
		Model(&domain.AdAccount{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_balance":   currentBalance,
			"rebate_receivable": rebateReceivable,
			"updated_at":        updatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
