package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/internal/clock"
	"github.com/smallbiznis/adledger/internal/config"
	obsmetrics "github.com/smallbiznis/adledger/internal/observability/metrics"
	"github.com/smallbiznis/adledger/internal/rebate/domain"
	"github.com/smallbiznis/adledger/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Policy     *config.LedgerPolicyHolder `optional:"true"`
	ObsMetrics *obsmetrics.LedgerMetrics  `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	policy     *config.LedgerPolicyHolder
	obsMetrics *obsmetrics.LedgerMetrics
}

func New(p Params) domain.Service {
	policy := p.Policy
	if policy == nil {
		policy = config.NewStaticLedgerPolicyHolder(config.LedgerPolicy{})
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("rebate.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		policy:     policy,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Accrue(ctx context.Context, tx *gorm.DB, in domain.AccrualInput) (*domain.RebateReceivable, error) {
	if in.RechargeID == 0 || in.AdAccountID == 0 {
		return nil, domain.ErrInvalidRecharge
	}
	if in.RebateAmount.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	if !money.ValidRate(in.RebateRate) {
		return nil, domain.ErrInvalidRate
	}
	if !in.RebateAmount.IsPositive() {
		return nil, nil
	}
	if tx == nil {
		tx = s.db
	}

	existing, err := s.repo.FindByRechargeID(ctx, tx, in.RechargeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.clock.Now()
	accruedAt := in.OccurredAt.UTC()
	if in.OccurredAt.IsZero() {
		accruedAt = now
	}
	receivable := &domain.RebateReceivable{
		ID:              s.genID.Generate(),
		RechargeID:      in.RechargeID,
		AdAccountID:     in.AdAccountID,
		Currency:        strings.ToUpper(strings.TrimSpace(in.Currency)),
		RebateRate:      in.RebateRate,
		OriginalAmount:  in.RebateAmount,
		CurrentBalance:  in.RebateAmount,
		Status:          domain.ReceivableStatusPendingWriteoff,
		WriteoffRecords: datatypes.NewJSONSlice([]domain.WriteoffRecord{}),
		AccruedAt:       accruedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, tx, receivable); err != nil {
		return nil, err
	}

	s.log.Debug("rebate receivable accrued",
		zap.String("receivable_id", receivable.ID.String()),
		zap.String("recharge_id", in.RechargeID.String()),
		zap.String("amount", in.RebateAmount.String()),
	)
	return receivable, nil
}

func (s *Service) WriteOff(ctx context.Context, tx *gorm.DB, in domain.WriteoffInput) (domain.WriteoffResult, error) {
	result := domain.WriteoffResult{Total: decimal.Zero, Unallocated: in.Amount}
	if in.ConsumptionID == 0 || in.AdAccountID == 0 {
		return result, domain.ErrInvalidConsumption
	}
	if !in.Amount.IsPositive() {
		return result, domain.ErrInvalidAmount
	}
	if !money.ValidRate(in.RebateRate) {
		return result, domain.ErrInvalidRate
	}
	if tx == nil {
		tx = s.db
	}

	policy := s.policy.Get().WriteoffRatePolicy
	if policy == config.WriteoffRatePolicyConsumption && in.RebateRate.IsZero() {
		return result, nil
	}

	receivables, err := s.repo.ListOpen(ctx, tx, in.AdAccountID, strings.ToUpper(strings.TrimSpace(in.Currency)))
	if err != nil {
		return result, err
	}

	now := s.clock.Now()
	occurredAt := in.OccurredAt.UTC()
	if in.OccurredAt.IsZero() {
		occurredAt = now
	}

	remaining := in.Amount
	for _, receivable := range receivables {
		if !remaining.IsPositive() {
			break
		}
		if receivable.Status.Closed() {
			continue
		}

		rate := in.RebateRate
		if policy == config.WriteoffRatePolicyReceivable {
			rate = receivable.RebateRate
		}
		if !rate.IsPositive() {
			continue
		}

		// candidate = remaining × rate / (100 + rate)
		candidate := money.Round(remaining.Mul(rate).Div(money.Hundred.Add(rate)))
		writeoff := money.Min(candidate, receivable.CurrentBalance)
		if !writeoff.IsPositive() {
			continue
		}

		balance := receivable.CurrentBalance.Sub(writeoff)
		status := domain.ReceivableStatusInWriteoff
		if balance.LessThanOrEqual(money.Epsilon) {
			status = domain.ReceivableStatusSettled
		}
		if !receivable.Status.CanTransitionTo(status) {
			return result, domain.ErrStatusRegression
		}

		receivable.CurrentBalance = balance
		receivable.Status = status
		receivable.WriteoffRecords = append(receivable.WriteoffRecords, domain.WriteoffRecord{
			ConsumptionID:         in.ConsumptionID,
			Amount:                writeoff,
			RemainingBalanceAfter: balance,
			Timestamp:             occurredAt,
		})
		receivable.UpdatedAt = now
		if err := s.repo.SaveWriteoff(ctx, tx, receivable); err != nil {
			return result, err
		}

		result.Applied = append(result.Applied, domain.AppliedWriteoff{
			ReceivableID:     receivable.ID,
			Amount:           writeoff,
			RemainingBalance: balance,
			Status:           status,
		})
		result.Total = result.Total.Add(writeoff)

		// Convert the rebate written off back into the consumption it accounts for.
		remaining = remaining.Sub(writeoff.Mul(money.Hundred.Add(rate)).Div(rate))

		outcome := obsmetrics.WriteoffOutcomePartial
		if status == domain.ReceivableStatusSettled {
			outcome = obsmetrics.WriteoffOutcomeSettled
		}
		s.obsMetrics.IncWriteoff(outcome)
	}
	result.Unallocated = money.FloorZero(remaining)

	if len(result.Applied) > 0 {
		s.log.Debug("rebate written off",
			zap.String("consumption_id", in.ConsumptionID.String()),
			zap.String("total", result.Total.String()),
			zap.Int("receivables", len(result.Applied)),
			zap.String("policy", policy),
		)
	}
	return result, nil
}

func (s *Service) Void(ctx context.Context, tx *gorm.DB, rechargeID snowflake.ID) (*domain.RebateReceivable, error) {
	if rechargeID == 0 {
		return nil, domain.ErrInvalidRecharge
	}
	if tx == nil {
		tx = s.db
	}

	receivable, err := s.repo.FindByRechargeID(ctx, tx, rechargeID)
	if err != nil {
		return nil, err
	}
	if receivable == nil || receivable.Status == domain.ReceivableStatusVoided {
		return receivable, nil
	}
	if !receivable.Status.CanTransitionTo(domain.ReceivableStatusVoided) {
		return nil, domain.ErrStatusRegression
	}

	now := s.clock.Now()
	voided := receivable.CurrentBalance
	receivable.CurrentBalance = decimal.Zero
	receivable.Status = domain.ReceivableStatusVoided
	receivable.WriteoffRecords = append(receivable.WriteoffRecords, domain.WriteoffRecord{
		Amount:                voided,
		RemainingBalanceAfter: decimal.Zero,
		Reason:                domain.WriteoffReasonRechargeCancelled,
		Timestamp:             now,
	})
	receivable.UpdatedAt = now
	if err := s.repo.SaveWriteoff(ctx, tx, receivable); err != nil {
		return nil, err
	}

	s.log.Info("rebate receivable voided",
		zap.String("receivable_id", receivable.ID.String()),
		zap.String("recharge_id", rechargeID.String()),
		zap.String("voided", voided.String()),
	)
	return receivable, nil
}

func (s *Service) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.RebateReceivable, error) {
	if db == nil {
		db = s.db
	}
	return s.repo.ListByAccount(ctx, db, accountID)
}
