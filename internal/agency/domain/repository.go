package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, agency *Agency) error
	Update(ctx context.Context, db *gorm.DB, agency *Agency) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Agency, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Agency, error)
	List(ctx context.Context, db *gorm.DB, platform Platform, page pagination.Pagination) ([]*Agency, error)
}
