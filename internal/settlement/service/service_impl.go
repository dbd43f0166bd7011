package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/internal/accountlock"
	adaccountdomain "github.com/smallbiznis/adledger/internal/adaccount/domain"
	billdomain "github.com/smallbiznis/adledger/internal/bill/domain"
	"github.com/smallbiznis/adledger/internal/clock"
	consumptiondomain "github.com/smallbiznis/adledger/internal/consumption/domain"
	ledgerdomain "github.com/smallbiznis/adledger/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/adledger/internal/observability/metrics"
	"github.com/smallbiznis/adledger/internal/settlement/domain"
	"github.com/smallbiznis/adledger/pkg/db"
	"github.com/smallbiznis/adledger/pkg/money"
	"github.com/smallbiznis/adledger/pkg/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultRecoveryLimit = 100

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Locker          accountlock.Locker
	Repo            domain.Repository
	AccountRepo     adaccountdomain.Repository
	ConsumptionRepo consumptiondomain.Repository
	LedgerSvc       ledgerdomain.Service
	BillSvc         billdomain.Service
	ObsMetrics      *obsmetrics.LedgerMetrics `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	locker          accountlock.Locker
	repo            domain.Repository
	accountRepo     adaccountdomain.Repository
	consumptionRepo consumptiondomain.Repository
	ledgerSvc       ledgerdomain.Service
	billSvc         billdomain.Service
	obsMetrics      *obsmetrics.LedgerMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("settlement.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		locker:          p.Locker,
		repo:            p.Repo,
		accountRepo:     p.AccountRepo,
		consumptionRepo: p.ConsumptionRepo,
		ledgerSvc:       p.LedgerSvc,
		billSvc:         p.BillSvc,
		obsMetrics:      p.ObsMetrics,
	}
}

func (s *Service) Settle(ctx context.Context, req domain.SettleRequest) (domain.SettleResult, error) {
	if req.AdAccountID == 0 {
		return domain.SettleResult{}, domain.ErrInvalidAccount
	}
	month := strings.TrimSpace(req.Month)
	if !period.Valid(month) {
		return domain.SettleResult{}, domain.ErrInvalidMonth
	}
	ids := uniqueIDs(req.ConsumptionIDs)
	if len(ids) == 0 {
		return domain.SettleResult{}, domain.ErrEmptySelection
	}
	key := domain.DedupeKey(req.AdAccountID, month, ids)

	unlock, err := s.lock(ctx, req.AdAccountID)
	if err != nil {
		return domain.SettleResult{}, err
	}
	defer unlock()

	existing, err := s.repo.FindByDedupeKey(ctx, s.db, key)
	if err != nil {
		return domain.SettleResult{}, err
	}
	if existing != nil {
		switch existing.Status {
		case domain.BatchStatusApplied:
			s.obsMetrics.IncSettlement(obsmetrics.SettlementResultReplayed)
			return domain.SettleResult{Batch: *existing, Replayed: true}, nil
		case domain.BatchStatusStaged:
			return s.applyAndRecord(ctx, existing, obsmetrics.SettlementResultRecovered)
		}
	}

	consumptions, err := s.consumptionRepo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return domain.SettleResult{}, err
	}
	if err := validateSelection(req.AdAccountID, month, ids, consumptions); err != nil {
		return domain.SettleResult{}, err
	}
	if existing != nil {
		// A superseded batch owns the dedupe key; its selection cannot be staged again.
		return domain.SettleResult{}, domain.ErrSettlementConflict
	}
	if err := s.checkPending(ctx, req.AdAccountID, ids); err != nil {
		return domain.SettleResult{}, err
	}

	total := decimal.Zero
	for _, consumption := range consumptions {
		total = total.Add(consumption.EstimatedRebate)
	}

	now := s.clock.Now()
	batch := &domain.SettlementBatch{
		ID:             s.genID.Generate(),
		DedupeKey:      key,
		AdAccountID:    req.AdAccountID,
		Month:          month,
		Currency:       consumptions[0].Currency,
		ConsumptionIDs: datatypes.NewJSONSlice(ids),
		TotalRebate:    money.Round(total),
		Status:         domain.BatchStatusStaged,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, s.db, batch); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.SettleResult{}, err
		}
		batch, err = s.repo.FindByDedupeKey(ctx, s.db, key)
		if err != nil {
			return domain.SettleResult{}, err
		}
		if batch == nil {
			return domain.SettleResult{}, domain.ErrSettlementConflict
		}
	}

	return s.applyAndRecord(ctx, batch, obsmetrics.SettlementResultApplied)
}

func (s *Service) SettleMonth(ctx context.Context, accountID snowflake.ID, month string) (domain.SettleResult, error) {
	if accountID == 0 {
		return domain.SettleResult{}, domain.ErrInvalidAccount
	}
	month = strings.TrimSpace(month)
	if !period.Valid(month) {
		return domain.SettleResult{}, domain.ErrInvalidMonth
	}

	consumptions, err := s.consumptionRepo.ListUnsettled(ctx, s.db, accountID, month)
	if err != nil {
		return domain.SettleResult{}, err
	}
	if len(consumptions) == 0 {
		return domain.SettleResult{}, domain.ErrNothingToSettle
	}
	ids := make([]snowflake.ID, 0, len(consumptions))
	for _, consumption := range consumptions {
		ids = append(ids, consumption.ID)
	}
	return s.Settle(ctx, domain.SettleRequest{AdAccountID: accountID, Month: month, ConsumptionIDs: ids})
}

func (s *Service) RecoverStaged(ctx context.Context, olderThan time.Duration, limit int) (domain.RecoverySummary, error) {
	if limit <= 0 {
		limit = defaultRecoveryLimit
	}
	cutoff := s.clock.Now().Add(-olderThan)
	batches, err := s.repo.ListStaged(ctx, s.db, cutoff, limit)
	if err != nil {
		return domain.RecoverySummary{}, err
	}

	var (
		summary domain.RecoverySummary
		errs    []error
	)
	for i := range batches {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++
		outcome, err := s.recoverBatch(ctx, &batches[i])
		if err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("recover settlement batch %s: %w", batches[i].ID, err))
			s.log.Warn("settlement recovery failed",
				zap.String("batch_id", batches[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		switch outcome {
		case recoveryApplied:
			summary.Recovered++
		case recoverySuperseded:
			summary.Superseded++
		}
	}
	return summary, errors.Join(errs...)
}

// checkPending rejects a selection that shares consumptions with a batch still staged.
// The caller holds the account lock.
func (s *Service) checkPending(ctx context.Context, accountID snowflake.ID, ids []snowflake.ID) error {
	staged, err := s.repo.ListStagedByAccount(ctx, s.db, accountID)
	if err != nil {
		return err
	}
	for _, batch := range staged {
		if batch.Overlaps(ids) {
			s.log.Warn("settlement overlaps a staged batch",
				zap.String("ad_account_id", accountID.String()),
				zap.String("staged_batch_id", batch.ID.String()),
			)
			return domain.ErrBatchPending
		}
	}
	return nil
}

type recoveryOutcome int

const (
	recoveryApplied recoveryOutcome = iota
	recoverySkipped
	recoverySuperseded
)

func (s *Service) recoverBatch(ctx context.Context, batch *domain.SettlementBatch) (recoveryOutcome, error) {
	unlock, err := s.lock(ctx, batch.AdAccountID)
	if err != nil {
		return recoverySkipped, err
	}
	defer unlock()

	current, err := s.repo.FindByID(ctx, s.db, batch.ID)
	if err != nil {
		return recoverySkipped, err
	}
	if current == nil || current.Status != domain.BatchStatusStaged {
		return recoverySkipped, nil
	}
	_, err = s.applyAndRecord(ctx, current, obsmetrics.SettlementResultRecovered)
	if !errors.Is(err, domain.ErrSettlementConflict) {
		if err != nil {
			return recoverySkipped, err
		}
		return recoveryApplied, nil
	}

	// Some of its consumptions were settled by another batch; retrying can never succeed.
	ok, err := s.repo.MarkSuperseded(ctx, s.db, current.ID, s.clock.Now())
	if err != nil {
		return recoverySkipped, err
	}
	if !ok {
		return recoverySkipped, nil
	}
	s.obsMetrics.IncSettlement(obsmetrics.SettlementResultSuperseded)
	s.log.Warn("settlement batch superseded",
		zap.String("batch_id", current.ID.String()),
		zap.String("ad_account_id", current.AdAccountID.String()),
		zap.Int("consumptions", len(current.ConsumptionIDs)),
	)
	return recoverySuperseded, nil
}

func (s *Service) applyAndRecord(ctx context.Context, batch *domain.SettlementBatch, result string) (domain.SettleResult, error) {
	applied, err := s.apply(ctx, batch)
	if err != nil {
		return domain.SettleResult{}, err
	}
	if !applied {
		result = obsmetrics.SettlementResultReplayed
	}
	s.obsMetrics.IncSettlement(result)

	stored, err := s.repo.FindByID(ctx, s.db, batch.ID)
	if err != nil {
		return domain.SettleResult{}, err
	}
	if stored == nil {
		return domain.SettleResult{}, domain.ErrSettlementConflict
	}
	return domain.SettleResult{Batch: *stored, Replayed: !applied}, nil
}

// apply credits a staged batch in one transaction. It reports false when the batch had
// already been applied.
func (s *Service) apply(ctx context.Context, batch *domain.SettlementBatch) (bool, error) {
	now := s.clock.Now()
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.MarkApplied(ctx, tx, batch.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		ids := []snowflake.ID(batch.ConsumptionIDs)
		settled, err := s.consumptionRepo.MarkSettled(ctx, tx, ids, now)
		if err != nil {
			return err
		}
		if settled != int64(len(ids)) {
			return domain.ErrSettlementConflict
		}

		account, err := s.accountRepo.FindByID(ctx, tx, batch.AdAccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrAccountNotFound
		}
		balance := account.CurrentBalance.Add(batch.TotalRebate)
		receivable := money.FloorZero(account.RebateReceivable.Sub(batch.TotalRebate))
		if err := s.accountRepo.UpdateBalances(ctx, tx, account.ID, balance, receivable, now); err != nil {
			return err
		}

		consumptions, err := s.consumptionRepo.FindByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, consumption := range consumptions {
			if !consumption.EstimatedRebate.IsPositive() {
				continue
			}
			if _, err := s.ledgerSvc.Append(ctx, tx, ledgerdomain.AppendEntryRequest{
				Type:        ledgerdomain.EntryTypeIncome,
				Category:    ledgerdomain.CategoryRebateSettled,
				Amount:      consumption.EstimatedRebate,
				Currency:    consumption.Currency,
				RelatedID:   consumption.ID,
				AdAccountID: consumption.AdAccountID,
				Status:      ledgerdomain.EntryStatusConfirmed,
				OccurredAt:  now,
			}); err != nil {
				return err
			}
		}

		if batch.TotalRebate.IsPositive() {
			if _, _, err := s.billSvc.UpsertDraft(ctx, tx, billdomain.UpsertDraftRequest{
				Month:          batch.Month,
				Category:       billdomain.BillCategoryReceivable,
				Type:           billdomain.BillTypeAdvertisingRebate,
				AgencyID:       account.AgencyID,
				AdAccountID:    account.ID,
				Currency:       batch.Currency,
				AmountDelta:    decimal.Zero,
				RebateDelta:    batch.TotalRebate,
				ConsumptionIDs: ids,
			}); err != nil {
				return err
			}
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if applied {
		s.log.Info("settlement batch applied",
			zap.String("batch_id", batch.ID.String()),
			zap.String("ad_account_id", batch.AdAccountID.String()),
			zap.String("month", batch.Month),
			zap.Int("consumptions", len(batch.ConsumptionIDs)),
			zap.String("total_rebate", batch.TotalRebate.String()),
		)
	}
	return applied, nil
}

func (s *Service) lock(ctx context.Context, accountID snowflake.ID) (accountlock.Unlock, error) {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, accountID)
	s.obsMetrics.ObserveLockWait(time.Since(start))
	return unlock, err
}

func validateSelection(accountID snowflake.ID, month string, ids []snowflake.ID, consumptions []consumptiondomain.AdConsumption) error {
	if len(consumptions) != len(ids) {
		return domain.ErrConsumptionNotFound
	}
	for _, consumption := range consumptions {
		if consumption.AdAccountID != accountID {
			return domain.ErrAccountMismatch
		}
		if consumption.Month != month {
			return domain.ErrMonthMismatch
		}
		if consumption.IsSettled {
			return domain.ErrAlreadySettled
		}
	}
	return nil
}

func uniqueIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
