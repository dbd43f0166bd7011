package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/internal/accountlock"
	adaccountdomain "github.com/smallbiznis/adledger/internal/adaccount/domain"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	"github.com/smallbiznis/adledger/internal/clock"
	"github.com/smallbiznis/adledger/internal/consumption/domain"
	ledgerdomain "github.com/smallbiznis/adledger/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/adledger/internal/observability/metrics"
	rebatedomain "github.com/smallbiznis/adledger/internal/rebate/domain"
	"github.com/smallbiznis/adledger/pkg/money"
	"github.com/smallbiznis/adledger/pkg/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Locker      accountlock.Locker
	Repo        domain.Repository
	AccountRepo adaccountdomain.Repository
	AgencyRepo  agencydomain.Repository
	RebateSvc   rebatedomain.Service
	LedgerSvc   ledgerdomain.Service
	ObsMetrics  *obsmetrics.LedgerMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	locker      accountlock.Locker
	repo        domain.Repository
	accountRepo adaccountdomain.Repository
	agencyRepo  agencydomain.Repository
	rebateSvc   rebatedomain.Service
	ledgerSvc   ledgerdomain.Service
	obsMetrics  *obsmetrics.LedgerMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("consumption.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		locker:      p.Locker,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
		agencyRepo:  p.AgencyRepo,
		rebateSvc:   p.RebateSvc,
		ledgerSvc:   p.LedgerSvc,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateConsumptionRequest) (domain.CreateConsumptionResult, error) {
	if req.AdAccountID == 0 {
		return domain.CreateConsumptionResult{}, domain.ErrInvalidAccount
	}
	if !req.Amount.IsPositive() {
		return domain.CreateConsumptionResult{}, domain.ErrInvalidAmount
	}

	account, err := s.accountRepo.FindByID(ctx, s.db, req.AdAccountID)
	if err != nil {
		return domain.CreateConsumptionResult{}, err
	}
	if account == nil {
		return domain.CreateConsumptionResult{}, domain.ErrAccountNotFound
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = account.Currency
	}
	if len(currency) != 3 {
		return domain.CreateConsumptionResult{}, domain.ErrInvalidCurrency
	}
	if currency != account.Currency {
		return domain.CreateConsumptionResult{}, domain.ErrCurrencyMismatch
	}

	now := s.clock.Now()
	date := req.Date.UTC()
	if req.Date.IsZero() {
		date = now
	}

	start := time.Now()
	unlock, err := s.locker.Lock(ctx, account.ID)
	s.obsMetrics.ObserveLockWait(time.Since(start))
	if err != nil {
		return domain.CreateConsumptionResult{}, err
	}
	defer unlock()

	agency := s.resolveAgency(ctx, account)
	dueDates := agency.DueDates(date)
	consumption := domain.AdConsumption{
		ID:              s.genID.Generate(),
		AdAccountID:     account.ID,
		Amount:          money.Round(req.Amount),
		Currency:        currency,
		EstimatedRebate: money.Percent(req.Amount, agency.RebateRate),
		RebateRate:      agency.RebateRate,
		Date:            date,
		Month:           period.Month(date),
		DueDate:         dueDates.DueDate,
		RebateDueDate:   dueDates.RebateDueDate,
		Note:            strings.TrimSpace(req.Note),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var result domain.CreateConsumptionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &consumption); err != nil {
			return err
		}

		writeoff, err := s.rebateSvc.WriteOff(ctx, tx, rebatedomain.WriteoffInput{
			ConsumptionID: consumption.ID,
			AdAccountID:   consumption.AdAccountID,
			Currency:      consumption.Currency,
			Amount:        consumption.Amount,
			RebateRate:    consumption.RebateRate,
			OccurredAt:    consumption.Date,
		})
		if err != nil {
			return err
		}

		current, err := s.accountRepo.FindByID(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrAccountNotFound
		}
		balance := money.FloorZero(current.CurrentBalance.Sub(consumption.Amount))
		if err := s.accountRepo.UpdateBalances(ctx, tx, current.ID, balance, current.RebateReceivable, now); err != nil {
			return err
		}

		if consumption.EstimatedRebate.IsPositive() {
			if _, err := s.ledgerSvc.Append(ctx, tx, ledgerdomain.AppendEntryRequest{
				Type:        ledgerdomain.EntryTypeIncome,
				Category:    ledgerdomain.CategoryRebatePending,
				Amount:      consumption.EstimatedRebate,
				Currency:    consumption.Currency,
				RelatedID:   consumption.ID,
				AdAccountID: consumption.AdAccountID,
				Status:      ledgerdomain.EntryStatusPending,
				OccurredAt:  consumption.Date,
			}); err != nil {
				return err
			}
		}

		result = domain.CreateConsumptionResult{
			Consumption:    consumption,
			Writeoff:       writeoff,
			CurrentBalance: balance,
		}
		return nil
	})
	if err != nil {
		return domain.CreateConsumptionResult{}, err
	}

	s.obsMetrics.IncConsumption(consumption.Currency)
	s.log.Info("consumption recorded",
		zap.String("consumption_id", consumption.ID.String()),
		zap.String("ad_account_id", consumption.AdAccountID.String()),
		zap.String("amount", consumption.Amount.String()),
		zap.String("rebate_written_off", result.Writeoff.Total.String()),
	)
	return result, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.AdConsumption, error) {
	if id == 0 {
		return domain.AdConsumption{}, domain.ErrInvalidID
	}
	consumption, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.AdConsumption{}, err
	}
	if consumption == nil {
		return domain.AdConsumption{}, domain.ErrNotFound
	}
	return *consumption, nil
}

func (s *Service) ListUnsettled(ctx context.Context, accountID snowflake.ID, month string) ([]domain.AdConsumption, error) {
	if accountID == 0 {
		return nil, domain.ErrInvalidAccount
	}
	month = strings.TrimSpace(month)
	if !period.Valid(month) {
		return nil, domain.ErrInvalidMonth
	}
	return s.repo.ListUnsettled(ctx, s.db, accountID, month)
}

// resolveAgency falls back to a zero-rate monthly agency when the lookup fails.
func (s *Service) resolveAgency(ctx context.Context, account *adaccountdomain.AdAccount) agencydomain.Agency {
	agency, err := s.agencyRepo.FindByID(ctx, s.db, account.AgencyID)
	if err != nil || agency == nil {
		s.log.Warn("agency lookup failed, recording consumption without rebate",
			zap.String("ad_account_id", account.ID.String()),
			zap.String("agency_id", account.AgencyID.String()),
			zap.Error(err),
		)
		return agencydomain.Agency{
			ID:           account.AgencyID,
			RebateRate:   decimal.Zero,
			RebatePeriod: agencydomain.RebatePeriodMonthly,
		}
	}
	return *agency
}
