package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	InsertIgnore(ctx context.Context, db *gorm.DB, entry *LedgerEntry) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListEntriesFilter) ([]LedgerEntry, error)
}
