package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AppendEntryRequest struct {
	Type        EntryType
	Category    string
	Amount      decimal.Decimal
	Currency    string
	RelatedID   snowflake.ID
	AdAccountID snowflake.ID
	Status      EntryStatus
	OccurredAt  time.Time
}

type ListEntriesFilter struct {
	AdAccountID snowflake.ID
	Category    string
	Status      EntryStatus
}

type Service interface {
	// Append writes the entry inside tx. It reports false when an entry with the same
	// category and related id already exists.
	Append(ctx context.Context, tx *gorm.DB, req AppendEntryRequest) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListEntriesFilter) ([]LedgerEntry, error)
}

var (
	ErrInvalidType      = errors.New("invalid_entry_type")
	ErrInvalidCategory  = errors.New("invalid_category")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrInvalidRelatedID = errors.New("invalid_related_id")
	ErrInvalidStatus    = errors.New("invalid_entry_status")
)
