package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/internal/recharge/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, recharge *domain.AdRecharge) error {
	return db.WithContext(ctx).Create(recharge).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AdRecharge, error) {
	var recharge domain.AdRecharge
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&recharge).Error
	if err != nil {
		return nil, err
	}
	if recharge.ID == 0 {
		return nil, nil
	}
	return &recharge, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.AdRecharge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recharges []domain.AdRecharge
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("date asc, id asc").
		Find(&recharges).Error
	if err != nil {
		return nil, err
	}
	return recharges, nil
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.AdRecharge, error) {
	var recharges []domain.AdRecharge
	err := db.WithContext(ctx).
		Where("ad_account_id = ?", accountID).
		Order("created_at asc, id asc").
		Find(&recharges).Error
	if err != nil {
		return nil, err
	}
	return recharges, nil
}

func (r *repo) UpdatePaymentStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.PaymentStatus, updatedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.AdRecharge{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(map[string]any{
			"payment_status": to,
			"updated_at":     updatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
