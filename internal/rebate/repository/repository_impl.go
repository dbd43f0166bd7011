package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/internal/rebate/domain"
	rechargedomain "github.com/smallbiznis/adledger/internal/recharge/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, receivable *domain.RebateReceivable) error {
	return db.WithContext(ctx).Create(receivable).Error
}

func (r *repo) FindByRechargeID(ctx context.Context, db *gorm.DB, rechargeID snowflake.ID) (*domain.RebateReceivable, error) {
	var receivable domain.RebateReceivable
	err := db.WithContext(ctx).
		Where("recharge_id = ?", rechargeID).
		Limit(1).
		Find(&receivable).Error
	if err != nil {
		return nil, err
	}
	if receivable.ID == 0 {
		return nil, nil
	}
	return &receivable, nil
}

func (r *repo) ListOpen(ctx context.Context, db *gorm.DB, accountID snowflake.ID, currency string) ([]*domain.RebateReceivable, error) {
	var receivables []*domain.RebateReceivable
	err := db.WithContext(ctx).
		Where("ad_account_id = ? AND currency = ?", accountID, currency).
		Where("status NOT IN ? AND current_balance > 0",
			[]domain.ReceivableStatus{domain.ReceivableStatusSettled, domain.ReceivableStatusVoided}).
		Where("recharge_id NOT IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Model(&rechargedomain.AdRecharge{}).
				Select("id").
				Where("payment_status = ?", rechargedomain.PaymentStatusCancelled)).
		Order("created_at asc, id asc").
		Find(&receivables).Error
	if err != nil {
		return nil, err
	}
	return receivables, nil
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.RebateReceivable, error) {
	var receivables []domain.RebateReceivable
	err := db.WithContext(ctx).
		Where("ad_account_id = ?", accountID).
		Order("created_at asc, id asc").
		Find(&receivables).Error
	if err != nil {
		return nil, err
	}
	return receivables, nil
}

func (r *repo) SaveWriteoff(ctx context.Context, db *gorm.DB, receivable *domain.RebateReceivable) error {
	return db.WithContext(ctx).
		Model(receivable).
		Select("current_balance", "status", "writeoff_records", "updated_at").
		Updates(receivable).Error
}
