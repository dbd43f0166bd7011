package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/internal/settlement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, batch *domain.SettlementBatch) error {
	return db.WithContext(ctx).Create(batch).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SettlementBatch, error) {
	var batch domain.SettlementBatch
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&batch).Error
	if err != nil {
		return nil, err
	}
	if batch.ID == 0 {
		return nil, nil
	}
	return &batch, nil
}

func (r *repo) FindByDedupeKey(ctx context.Context, db *gorm.DB, key string) (*domain.SettlementBatch, error) {
	var batch domain.SettlementBatch
	err := db.WithContext(ctx).
		Where("dedupe_key = ?", key).
		Limit(1).
		Find(&batch).Error
	if err != nil {
		return nil, err
	}
	if batch.ID == 0 {
		return nil, nil
	}
	return &batch, nil
}

func (r *repo) MarkApplied(ctx context.Context, db *gorm.DB, id snowflake.ID, appliedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.SettlementBatch{}).
		Where("id = ? AND status = ?", id, domain.BatchStatusStaged).
		Updates(map[string]any{
			"status":     domain.BatchStatusApplied,
			"applied_at": appliedAt,
			"updated_at": appliedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkSuperseded(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.SettlementBatch{}).
		Where("id = ? AND status = ?", id, domain.BatchStatusStaged).
		Updates(map[string]any{
			"status":     domain.BatchStatusSuperseded,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListStagedByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.SettlementBatch, error) {
	var batches []domain.SettlementBatch
	err := db.WithContext(ctx).
		Where("ad_account_id = ? AND status = ?", accountID, domain.BatchStatusStaged).
		Order("created_at asc, id asc").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *repo) ListStaged(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.SettlementBatch, error) {
	var batches []domain.SettlementBatch
	stmt := db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.BatchStatusStaged, cutoff).
		Order("created_at asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}
