package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/internal/agency/domain"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, agency *domain.Agency) error {
	return db.WithContext(ctx).Create(agency).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, agency *domain.Agency) error {
	return db.WithContext(ctx).
		Model(agency).
		Select("name", "platform", "rebate_rate", "rebate_period", "settlement_currency", "credit_term", "updated_at").
		Updates(agency).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Agency, error) {
	var agency domain.Agency
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&agency).Error
	if err != nil {
		return nil, err
	}
	if agency.ID == 0 {
		return nil, nil
	}
	return &agency, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Agency, error) {
	var agency domain.Agency
	err := db.WithContext(ctx).
		Where("code = ?", code).
		Limit(1).
		Find(&agency).Error
	if err != nil {
		return nil, err
	}
	if agency.ID == 0 {
		return nil, nil
	}
	return &agency, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, platform domain.Platform, page pagination.Pagination) ([]*domain.Agency, error) {
	var agencies []*domain.Agency
	stmt := db.WithContext(ctx).Model(&domain.Agency{})
	if platform != "" {
		stmt = stmt.Where("platform = ?", platform)
	}
	stmt = pagination.ApplyCursor(stmt, page)
	if err := stmt.Order("created_at desc, id desc").Find(&agencies).Error; err != nil {
		return nil, err
	}
	return agencies, nil
}
