package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/internal/clock"
	ledgerdomain "github.com/smallbiznis/adledger/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  ledgerdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  ledgerdomain.Repository
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, tx *gorm.DB, req ledgerdomain.AppendEntryRequest) (bool, error) {
	entryType, err := normalizeType(req.Type)
	if err != nil {
		return false, err
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return false, ledgerdomain.ErrInvalidCategory
	}
	if !req.Amount.IsPositive() {
		return false, ledgerdomain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return false, ledgerdomain.ErrInvalidCurrency
	}
	if req.RelatedID == 0 {
		return false, ledgerdomain.ErrInvalidRelatedID
	}
	status, err := normalizeStatus(req.Status)
	if err != nil {
		return false, err
	}

	now := s.clock.Now()
	occurredAt := req.OccurredAt.UTC()
	if req.OccurredAt.IsZero() {
		occurredAt = now
	}

	if tx == nil {
		tx = s.db
	}
	entry := ledgerdomain.LedgerEntry{
		ID:          s.genID.Generate(),
		Type:        entryType,
		Category:    category,
		RelatedID:   req.RelatedID,
		AdAccountID: req.AdAccountID,
		Status:      status,
		Amount:      req.Amount,
		Currency:    currency,
		OccurredAt:  occurredAt,
		CreatedAt:   now,
	}
	inserted, err := s.repo.InsertIgnore(ctx, tx, &entry)
	if err != nil {
		return false, err
	}
	if !inserted {
		s.log.Debug("ledger entry already recorded",
			zap.String("category", category),
			zap.String("related_id", req.RelatedID.String()),
		)
	}
	return inserted, nil
}

func (s *Service) List(ctx context.Context, db *gorm.DB, filter ledgerdomain.ListEntriesFilter) ([]ledgerdomain.LedgerEntry, error) {
	if db == nil {
		db = s.db
	}
	return s.repo.List(ctx, db, filter)
}

func normalizeType(entryType ledgerdomain.EntryType) (ledgerdomain.EntryType, error) {
	switch ledgerdomain.EntryType(strings.ToLower(strings.TrimSpace(string(entryType)))) {
	case ledgerdomain.EntryTypeIncome:
		return ledgerdomain.EntryTypeIncome, nil
	case ledgerdomain.EntryTypeExpense:
		return ledgerdomain.EntryTypeExpense, nil
	default:
		return "", ledgerdomain.ErrInvalidType
	}
}

func normalizeStatus(status ledgerdomain.EntryStatus) (ledgerdomain.EntryStatus, error) {
	switch ledgerdomain.EntryStatus(strings.ToLower(strings.TrimSpace(string(status)))) {
	case "", ledgerdomain.EntryStatusPending:
		return ledgerdomain.EntryStatusPending, nil
	case ledgerdomain.EntryStatusConfirmed:
		return ledgerdomain.EntryStatusConfirmed, nil
	default:
		return "", ledgerdomain.ErrInvalidStatus
	}
}
