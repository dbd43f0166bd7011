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
	billdomain "github.com/smallbiznis/adledger/internal/bill/domain"
	"github.com/smallbiznis/adledger/internal/clock"
	obsmetrics "github.com/smallbiznis/adledger/internal/observability/metrics"
	rebatedomain "github.com/smallbiznis/adledger/internal/rebate/domain"
	"github.com/smallbiznis/adledger/internal/recharge/domain"
	reconciledomain "github.com/smallbiznis/adledger/internal/reconcile/domain"
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
	BillSvc     billdomain.Service
	Reconciler  reconciledomain.Service
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
	billSvc     billdomain.Service
	reconciler  reconciledomain.Service
	obsMetrics  *obsmetrics.LedgerMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("recharge.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		locker:      p.Locker,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
		agencyRepo:  p.AgencyRepo,
		rebateSvc:   p.RebateSvc,
		billSvc:     p.BillSvc,
		reconciler:  p.Reconciler,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRechargeRequest) (domain.CreateRechargeResult, error) {
	if req.AdAccountID == 0 {
		return domain.CreateRechargeResult{}, domain.ErrInvalidAccount
	}
	if !req.Amount.IsPositive() {
		return domain.CreateRechargeResult{}, domain.ErrInvalidAmount
	}
	status := req.PaymentStatus
	if status == "" {
		status = domain.PaymentStatusPaid
	}
	if !status.Valid() || status == domain.PaymentStatusCancelled {
		return domain.CreateRechargeResult{}, domain.ErrInvalidPaymentStatus
	}

	account, err := s.accountRepo.FindByID(ctx, s.db, req.AdAccountID)
	if err != nil {
		return domain.CreateRechargeResult{}, err
	}
	if account == nil {
		return domain.CreateRechargeResult{}, domain.ErrAccountNotFound
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = account.Currency
	}
	if len(currency) != 3 {
		return domain.CreateRechargeResult{}, domain.ErrInvalidCurrency
	}
	if currency != account.Currency {
		return domain.CreateRechargeResult{}, domain.ErrCurrencyMismatch
	}

	now := s.clock.Now()
	date := req.Date.UTC()
	if req.Date.IsZero() {
		date = now
	}

	unlock, err := s.lock(ctx, account.ID)
	if err != nil {
		return domain.CreateRechargeResult{}, err
	}
	defer unlock()

	rate := s.resolveRate(ctx, account)
	recharge := domain.AdRecharge{
		ID:            s.genID.Generate(),
		AdAccountID:   account.ID,
		Amount:        money.Round(req.Amount),
		Currency:      currency,
		RebateAmount:  money.Percent(req.Amount, rate),
		RebateRate:    rate,
		Date:          date,
		Month:         period.Month(date),
		PaymentStatus: status,
		Note:          strings.TrimSpace(req.Note),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var result domain.CreateRechargeResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &recharge); err != nil {
			return err
		}

		receivable, err := s.rebateSvc.Accrue(ctx, tx, rebatedomain.AccrualInput{
			RechargeID:   recharge.ID,
			AdAccountID:  recharge.AdAccountID,
			Currency:     recharge.Currency,
			RebateAmount: recharge.RebateAmount,
			RebateRate:   recharge.RebateRate,
			OccurredAt:   recharge.Date,
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
		balance := current.CurrentBalance.Add(recharge.Amount)
		receivableTotal := current.RebateReceivable.Add(recharge.RebateAmount)
		if err := s.accountRepo.UpdateBalances(ctx, tx, current.ID, balance, receivableTotal, now); err != nil {
			return err
		}

		if _, _, err := s.billSvc.UpsertDraft(ctx, tx, billdomain.UpsertDraftRequest{
			Month:       recharge.Month,
			Category:    billdomain.BillCategoryPayable,
			Type:        billdomain.BillTypeAdvertising,
			AgencyID:    current.AgencyID,
			AdAccountID: current.ID,
			Currency:    recharge.Currency,
			AmountDelta: recharge.Amount,
			RebateDelta: recharge.RebateAmount,
			RechargeIDs: []snowflake.ID{recharge.ID},
		}); err != nil {
			return err
		}
		if recharge.RebateAmount.IsPositive() {
			if _, _, err := s.billSvc.UpsertDraft(ctx, tx, billdomain.UpsertDraftRequest{
				Month:       recharge.Month,
				Category:    billdomain.BillCategoryReceivable,
				Type:        billdomain.BillTypeAdvertisingRebate,
				AgencyID:    current.AgencyID,
				AdAccountID: current.ID,
				Currency:    recharge.Currency,
				AmountDelta: decimal.Zero,
				RebateDelta: recharge.RebateAmount,
				RechargeIDs: []snowflake.ID{recharge.ID},
			}); err != nil {
				return err
			}
		}

		result = domain.CreateRechargeResult{
			Recharge:         recharge,
			Receivable:       receivable,
			CurrentBalance:   balance,
			RebateReceivable: receivableTotal,
		}
		return nil
	})
	if err != nil {
		return domain.CreateRechargeResult{}, err
	}

	s.obsMetrics.IncRecharge(recharge.Currency)
	s.log.Info("recharge recorded",
		zap.String("recharge_id", recharge.ID.String()),
		zap.String("ad_account_id", recharge.AdAccountID.String()),
		zap.String("amount", recharge.Amount.String()),
		zap.String("rebate_amount", recharge.RebateAmount.String()),
	)
	return result, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.AdRecharge, error) {
	if id == 0 {
		return domain.AdRecharge{}, domain.ErrInvalidID
	}
	recharge, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.AdRecharge{}, err
	}
	if recharge == nil {
		return domain.AdRecharge{}, domain.ErrNotFound
	}
	return *recharge, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, req domain.UpdatePaymentStatusRequest) (domain.AdRecharge, error) {
	if req.ID == 0 {
		return domain.AdRecharge{}, domain.ErrInvalidID
	}
	if !req.Status.Valid() {
		return domain.AdRecharge{}, domain.ErrInvalidPaymentStatus
	}

	recharge, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return domain.AdRecharge{}, err
	}
	if recharge.PaymentStatus == req.Status {
		return recharge, nil
	}
	if !recharge.PaymentStatus.CanTransitionTo(req.Status) {
		return domain.AdRecharge{}, domain.ErrInvalidTransition
	}

	unlock, err := s.lock(ctx, recharge.AdAccountID)
	if err != nil {
		return domain.AdRecharge{}, err
	}
	defer unlock()

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.UpdatePaymentStatus(ctx, tx, recharge.ID, recharge.PaymentStatus, req.Status, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrStatusConflict
		}
		if req.Status == domain.PaymentStatusCancelled {
			if err := s.reverse(ctx, tx, recharge); err != nil {
				return err
			}
		}
		_, err = s.reconciler.Reconcile(ctx, tx, recharge.AdAccountID)
		return err
	})
	if err != nil {
		return domain.AdRecharge{}, err
	}

	s.log.Info("recharge payment status changed",
		zap.String("recharge_id", recharge.ID.String()),
		zap.String("from", string(recharge.PaymentStatus)),
		zap.String("to", string(req.Status)),
	)
	recharge.PaymentStatus = req.Status
	recharge.UpdatedAt = now
	return recharge, nil
}

// reverse takes a cancelled recharge back out of the receivable ledger and its draft bills.
func (s *Service) reverse(ctx context.Context, tx *gorm.DB, recharge domain.AdRecharge) error {
	account, err := s.accountRepo.FindByID(ctx, tx, recharge.AdAccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrAccountNotFound
	}

	if _, err := s.rebateSvc.Void(ctx, tx, recharge.ID); err != nil {
		return err
	}

	if _, err := s.billSvc.RetractRecharge(ctx, tx, billdomain.RetractRechargeRequest{
		Month:       recharge.Month,
		Category:    billdomain.BillCategoryPayable,
		Type:        billdomain.BillTypeAdvertising,
		AgencyID:    account.AgencyID,
		AdAccountID: account.ID,
		Currency:    recharge.Currency,
		RechargeID:  recharge.ID,
		AmountDelta: recharge.Amount,
		RebateDelta: recharge.RebateAmount,
	}); err != nil {
		return err
	}
	if recharge.RebateAmount.IsPositive() {
		if _, err := s.billSvc.RetractRecharge(ctx, tx, billdomain.RetractRechargeRequest{
			Month:       recharge.Month,
			Category:    billdomain.BillCategoryReceivable,
			Type:        billdomain.BillTypeAdvertisingRebate,
			AgencyID:    account.AgencyID,
			AdAccountID: account.ID,
			Currency:    recharge.Currency,
			RechargeID:  recharge.ID,
			AmountDelta: decimal.Zero,
			RebateDelta: recharge.RebateAmount,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) lock(ctx context.Context, accountID snowflake.ID) (accountlock.Unlock, error) {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, accountID)
	s.obsMetrics.ObserveLockWait(time.Since(start))
	return unlock, err
}

// resolveRate returns the agency rebate rate, or zero when the agency cannot be read.
func (s *Service) resolveRate(ctx context.Context, account *adaccountdomain.AdAccount) decimal.Decimal {
	agency, err := s.agencyRepo.FindByID(ctx, s.db, account.AgencyID)
	if err != nil || agency == nil {
		s.log.Warn("agency lookup failed, recording recharge without rebate",
			zap.String("ad_account_id", account.ID.String()),
			zap.String("agency_id", account.AgencyID.String()),
			zap.Error(err),
		)
		return decimal.Zero
	}
	return agency.RebateRate
}
