package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/internal/bill/domain"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *domain.MonthlyBill) error {
	return db.WithContext(ctx).Create(bill).Error
}

func (r *repo) FindDraft(ctx context.Context, db *gorm.DB, key domain.DraftKey) (*domain.MonthlyBill, error) {
	var bill domain.MonthlyBill
	err := db.WithContext(ctx).
		Where("month = ? AND type = ? AND agency_id = ? AND ad_account_id = ? AND currency = ? AND status = ?",
			key.Month, key.Type, key.AgencyID, key.AdAccountID, key.Currency, domain.BillStatusDraft).
		Order("id asc").
		Limit(1).
		Find(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MonthlyBill, error) {
	var bill domain.MonthlyBill
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListBillFilter, page pagination.Pagination) ([]*domain.MonthlyBill, error) {
	var bills []*domain.MonthlyBill
	stmt := db.WithContext(ctx).Model(&domain.MonthlyBill{})
	if filter.Month != "" {
		stmt = stmt.Where("month = ?", filter.Month)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.AgencyID != 0 {
		stmt = stmt.Where("agency_id = ?", filter.AgencyID)
	}
	if filter.AdAccountID != 0 {
		stmt = stmt.Where("ad_account_id = ?", filter.AdAccountID)
	}
	stmt = pagination.ApplyCursor(stmt, page)
	if err := stmt.Order("created_at desc, id desc").Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) SaveDraft(ctx context.Context, db *gorm.DB, bill *domain.MonthlyBill) error {
	result := db.WithContext(ctx).
		Model(bill).
		Where("status = ?", domain.BillStatusDraft).
		Select("total_amount", "rebate_amount", "net_amount", "recharge_ids", "consumption_ids", "updated_at").
		Updates(bill)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrDraftConflict
	}
	return nil
}
