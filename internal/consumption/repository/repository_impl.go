package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/internal/consumption/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, consumption *domain.AdConsumption) error {
	return db.WithContext(ctx).Create(consumption).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AdConsumption, error) {
	var consumption domain.AdConsumption
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&consumption).Error
	if err != nil {
		return nil, err
	}
	if consumption.ID == 0 {
		return nil, nil
	}
	return &consumption, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.AdConsumption, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var consumptions []domain.AdConsumption
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("date asc, id asc").
		Find(&consumptions).Error
	if err != nil {
		return nil, err
	}
	return consumptions, nil
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.AdConsumption, error) {
	var consumptions []domain.AdConsumption
	err := db.WithContext(ctx).
		Where("ad_account_id = ?", accountID).
		Order("created_at asc, id asc").
		Find(&consumptions).Error
	if err != nil {
		return nil, err
	}
	return consumptions, nil
}

func (r *repo) ListUnsettled(ctx context.Context, db *gorm.DB, accountID snowflake.ID, month string) ([]domain.AdConsumption, error) {
	var consumptions []domain.AdConsumption
	err := db.WithContext(ctx).
		Where("ad_account_id = ? AND month = ? AND is_settled = ?", accountID, month, false).
		Order("date asc, id asc").
		Find(&consumptions).Error
	if err != nil {
		return nil, err
	}
	return consumptions, nil
}

func (r *repo) MarkSettled(ctx context.Context, db *gorm.DB, ids []snowflake.ID, settledAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).
		Model(&domain.AdConsumption{}).
		Where("id IN ? AND is_settled = ?", ids, false).
		Updates(map[string]any{
			"is_settled": true,
			"settled_at": settledAt,
			"updated_at": settledAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
