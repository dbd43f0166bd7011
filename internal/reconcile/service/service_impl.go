package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/internal/accountlock"
	adaccountdomain "github.com/smallbiznis/adledger/internal/adaccount/domain"
	"github.com/smallbiznis/adledger/internal/clock"
	"github.com/smallbiznis/adledger/internal/config"
	consumptiondomain "github.com/smallbiznis/adledger/internal/consumption/domain"
	ledgerdomain "github.com/smallbiznis/adledger/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/adledger/internal/observability/metrics"
	rechargedomain "github.com/smallbiznis/adledger/internal/recharge/domain"
	"github.com/smallbiznis/adledger/internal/reconcile/domain"
	"github.com/smallbiznis/adledger/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultBatchSize = 100

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	Locker          accountlock.Locker
	AccountRepo     adaccountdomain.Repository
	RechargeRepo    rechargedomain.Repository
	ConsumptionRepo consumptiondomain.Repository
	LedgerSvc       ledgerdomain.Service
	Policy          *config.LedgerPolicyHolder `optional:"true"`
	ObsMetrics      *obsmetrics.LedgerMetrics  `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	clock           clock.Clock
	locker          accountlock.Locker
	accountRepo     adaccountdomain.Repository
	rechargeRepo    rechargedomain.Repository
	consumptionRepo consumptiondomain.Repository
	ledgerSvc       ledgerdomain.Service
	policy          *config.LedgerPolicyHolder
	obsMetrics      *obsmetrics.LedgerMetrics
}

func New(p Params) domain.Service {
	policy := p.Policy
	if policy == nil {
		policy = config.NewStaticLedgerPolicyHolder(config.LedgerPolicy{})
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("reconcile.service"),
		clock:           p.Clock,
		locker:          p.Locker,
		accountRepo:     p.AccountRepo,
		rechargeRepo:    p.RechargeRepo,
		consumptionRepo: p.ConsumptionRepo,
		ledgerSvc:       p.LedgerSvc,
		policy:          policy,
		obsMetrics:      p.ObsMetrics,
	}
}

func (s *Service) ReconcileAccount(ctx context.Context, accountID snowflake.ID) (domain.Result, error) {
	if accountID == 0 {
		return domain.Result{}, domain.ErrInvalidAccount
	}

	start := time.Now()
	unlock, err := s.locker.Lock(ctx, accountID)
	s.obsMetrics.ObserveLockWait(time.Since(start))
	if err != nil {
		return domain.Result{}, err
	}
	defer unlock()

	var result domain.Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.Reconcile(ctx, tx, accountID)
		return err
	})
	return result, err
}

func (s *Service) Reconcile(ctx context.Context, tx *gorm.DB, accountID snowflake.ID) (domain.Result, error) {
	if accountID == 0 {
		return domain.Result{}, domain.ErrInvalidAccount
	}
	if tx == nil {
		tx = s.db
	}

	account, err := s.accountRepo.FindByID(ctx, tx, accountID)
	if err != nil {
		return domain.Result{}, err
	}
	if account == nil {
		return domain.Result{}, domain.ErrNotFound
	}

	history, err := s.loadHistory(ctx, tx, accountID)
	if err != nil {
		return domain.Result{}, err
	}
	projection := domain.Project(accountID, history)

	before := domain.Balances{
		CurrentBalance:   account.CurrentBalance,
		RebateReceivable: account.RebateReceivable,
	}
	result := domain.Result{
		AdAccountID: accountID,
		Before:      before,
		After:       before,
		Projection:  projection,
	}

	epsilon := s.policy.Get().BalanceEpsilon
	if !money.Drifted(account.CurrentBalance, projection.CurrentBalance, epsilon) &&
		!money.Drifted(account.RebateReceivable, projection.RebateReceivable, epsilon) {
		return result, nil
	}

	after := domain.Balances{
		CurrentBalance:   money.Round(projection.CurrentBalance),
		RebateReceivable: money.Round(projection.RebateReceivable),
	}
	if err := s.accountRepo.UpdateBalances(ctx, tx, accountID, after.CurrentBalance, after.RebateReceivable, s.clock.Now()); err != nil {
		return domain.Result{}, err
	}

	result.Drifted = true
	result.After = after
	s.obsMetrics.IncDriftCorrection()
	s.log.Info("account balance drift corrected",
		zap.String("ad_account_id", accountID.String()),
		zap.String("balance_before", before.CurrentBalance.String()),
		zap.String("balance_after", after.CurrentBalance.String()),
		zap.String("receivable_before", before.RebateReceivable.String()),
		zap.String("receivable_after", after.RebateReceivable.String()),
	)
	return result, nil
}

func (s *Service) ReconcileAll(ctx context.Context, batchSize int) (domain.Summary, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var (
		summary domain.Summary
		errs    []error
		afterID snowflake.ID
	)
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		ids, err := s.accountRepo.ListIDsAfter(ctx, s.db, afterID, batchSize)
		if err != nil {
			return summary, err
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			summary.Scanned++
			result, err := s.ReconcileAccount(ctx, id)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return summary, err
				}
				summary.Failed++
				errs = append(errs, fmt.Errorf("reconcile account %s: %w", id, err))
				s.log.Warn("reconcile account failed", zap.String("ad_account_id", id.String()), zap.Error(err))
				continue
			}
			if result.Drifted {
				summary.Corrected++
			}
		}
		afterID = ids[len(ids)-1]
		if len(ids) < batchSize {
			break
		}
	}

	return summary, errors.Join(errs...)
}

func (s *Service) loadHistory(ctx context.Context, tx *gorm.DB, accountID snowflake.ID) (domain.History, error) {
	recharges, err := s.rechargeRepo.ListByAccount(ctx, tx, accountID)
	if err != nil {
		return domain.History{}, err
	}
	consumptions, err := s.consumptionRepo.ListByAccount(ctx, tx, accountID)
	if err != nil {
		return domain.History{}, err
	}
	entries, err := s.ledgerSvc.List(ctx, tx, ledgerdomain.ListEntriesFilter{
		AdAccountID: accountID,
		Category:    ledgerdomain.CategoryRebateSettled,
		Status:      ledgerdomain.EntryStatusConfirmed,
	})
	if err != nil {
		return domain.History{}, err
	}
	return domain.History{
		Recharges:     recharges,
		Consumptions:  consumptions,
		LedgerEntries: entries,
	}, nil
}
