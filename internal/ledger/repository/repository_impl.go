package repository

import (
	"context"

	"github.com/smallbiznis/adledger/internal/ledger/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIgnore(ctx context.Context, db *gorm.DB, entry *domain.LedgerEntry) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "category"}, {Name: "related_id"}},
			DoNothing: true,
		}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListEntriesFilter) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	stmt := db.WithContext(ctx).Model(&domain.LedgerEntry{})
	if filter.AdAccountID != 0 {
		stmt = stmt.Where("ad_account_id = ?", filter.AdAccountID)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if err := stmt.Order("occurred_at asc, id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
