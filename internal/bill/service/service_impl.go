package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	adaccountdomain "github.com/smallbiznis/adledger/internal/adaccount/domain"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	"github.com/smallbiznis/adledger/internal/bill/domain"
	"github.com/smallbiznis/adledger/internal/clock"
	consumptiondomain "github.com/smallbiznis/adledger/internal/consumption/domain"
	obsmetrics "github.com/smallbiznis/adledger/internal/observability/metrics"
	"github.com/smallbiznis/adledger/internal/providers/pdf"
	rechargedomain "github.com/smallbiznis/adledger/internal/recharge/domain"
	"github.com/smallbiznis/adledger/pkg/db"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
	"github.com/smallbiznis/adledger/pkg/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            domain.Repository
	AgencyRepo      agencydomain.Repository
	AccountRepo     adaccountdomain.Repository
	RechargeRepo    rechargedomain.Repository
	ConsumptionRepo consumptiondomain.Repository
	PDF             pdf.Provider              `optional:"true"`
	ObsMetrics      *obsmetrics.LedgerMetrics `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            domain.Repository
	agencyRepo      agencydomain.Repository
	accountRepo     adaccountdomain.Repository
	rechargeRepo    rechargedomain.Repository
	consumptionRepo consumptiondomain.Repository
	pdf             pdf.Provider
	obsMetrics      *obsmetrics.LedgerMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("bill.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		agencyRepo:      p.AgencyRepo,
		accountRepo:     p.AccountRepo,
		rechargeRepo:    p.RechargeRepo,
		consumptionRepo: p.ConsumptionRepo,
		pdf:             p.PDF,
		obsMetrics:      p.ObsMetrics,
	}
}

func (s *Service) UpsertDraft(ctx context.Context, tx *gorm.DB, req domain.UpsertDraftRequest) (domain.MonthlyBill, domain.UpsertOutcome, error) {
	key, err := validateUpsert(req)
	if err != nil {
		return domain.MonthlyBill{}, "", err
	}
	if tx == nil {
		tx = s.db
	}

	existing, err := s.repo.FindDraft(ctx, tx, key)
	if err != nil {
		return domain.MonthlyBill{}, "", err
	}

	now := s.clock.Now()
	if existing == nil {
		bill, err := s.createDraft(ctx, tx, key, req, now)
		if err != nil {
			return domain.MonthlyBill{}, "", err
		}
		s.obsMetrics.IncBillUpsert(string(req.Type), string(domain.UpsertOutcomeCreated))
		return bill, domain.UpsertOutcomeCreated, nil
	}

	newRecharges := missingIDs(existing.RechargeIDs, req.RechargeIDs)
	newConsumptions := missingIDs(existing.ConsumptionIDs, req.ConsumptionIDs)
	linked := len(req.RechargeIDs) + len(req.ConsumptionIDs)
	if linked > 0 && len(newRecharges) == 0 && len(newConsumptions) == 0 {
		s.log.Debug("draft bill upsert replayed",
			zap.String("bill_id", existing.ID.String()),
			zap.String("month", key.Month),
			zap.String("bill_type", string(key.Type)),
		)
		s.obsMetrics.IncBillUpsert(string(req.Type), string(domain.UpsertOutcomeReplayed))
		return *existing, domain.UpsertOutcomeReplayed, nil
	}

	existing.TotalAmount = existing.TotalAmount.Add(req.AmountDelta)
	existing.RebateAmount = existing.RebateAmount.Add(req.RebateDelta)
	existing.NetAmount = domain.NetAmount(existing.Category, existing.Type, existing.TotalAmount, existing.RebateAmount)
	existing.RechargeIDs = append(existing.RechargeIDs, newRecharges...)
	existing.ConsumptionIDs = append(existing.ConsumptionIDs, newConsumptions...)
	existing.UpdatedAt = now
	if err := s.repo.SaveDraft(ctx, tx, existing); err != nil {
		return domain.MonthlyBill{}, "", err
	}

	s.obsMetrics.IncBillUpsert(string(req.Type), string(domain.UpsertOutcomeMerged))
	return *existing, domain.UpsertOutcomeMerged, nil
}

func (s *Service) RetractRecharge(ctx context.Context, tx *gorm.DB, req domain.RetractRechargeRequest) (domain.MonthlyBill, error) {
	if req.RechargeID == 0 {
		return domain.MonthlyBill{}, domain.ErrInvalidKey
	}
	key, err := validateUpsert(domain.UpsertDraftRequest{
		Month:       req.Month,
		Category:    req.Category,
		Type:        req.Type,
		AgencyID:    req.AgencyID,
		AdAccountID: req.AdAccountID,
		Currency:    req.Currency,
	})
	if err != nil {
		return domain.MonthlyBill{}, err
	}
	if tx == nil {
		tx = s.db
	}

	existing, err := s.repo.FindDraft(ctx, tx, key)
	if err != nil {
		return domain.MonthlyBill{}, err
	}
	if existing == nil || !containsID(existing.RechargeIDs, req.RechargeID) {
		return domain.MonthlyBill{}, domain.ErrBillNotDraft
	}

	remaining := make([]snowflake.ID, 0, len(existing.RechargeIDs))
	for _, id := range existing.RechargeIDs {
		if id != req.RechargeID {
			remaining = append(remaining, id)
		}
	}
	existing.TotalAmount = existing.TotalAmount.Sub(req.AmountDelta)
	existing.RebateAmount = existing.RebateAmount.Sub(req.RebateDelta)
	existing.NetAmount = domain.NetAmount(existing.Category, existing.Type, existing.TotalAmount, existing.RebateAmount)
	existing.RechargeIDs = datatypes.NewJSONSlice(remaining)
	existing.UpdatedAt = s.clock.Now()
	if err := s.repo.SaveDraft(ctx, tx, existing); err != nil {
		return domain.MonthlyBill{}, err
	}

	s.obsMetrics.IncBillUpsert(string(req.Type), string(domain.UpsertOutcomeRetracted))
	s.log.Info("recharge retracted from draft bill",
		zap.String("bill_id", existing.ID.String()),
		zap.String("recharge_id", req.RechargeID.String()),
		zap.String("month", key.Month),
		zap.String("bill_type", string(key.Type)),
	)
	return *existing, nil
}

func (s *Service) createDraft(ctx context.Context, tx *gorm.DB, key domain.DraftKey, req domain.UpsertDraftRequest, now time.Time) (domain.MonthlyBill, error) {
	id := s.genID.Generate()
	bill := domain.MonthlyBill{
		ID:             id,
		BillNumber:     fmt.Sprintf("%s-%s-%s", domain.NumberPrefix(key.Type), period.Compact(key.Month), id.String()),
		Month:          key.Month,
		Category:       req.Category,
		Type:           key.Type,
		AgencyID:       key.AgencyID,
		AdAccountID:    key.AdAccountID,
		Currency:       key.Currency,
		TotalAmount:    req.AmountDelta,
		RebateAmount:   req.RebateDelta,
		NetAmount:      domain.NetAmount(req.Category, key.Type, req.AmountDelta, req.RebateDelta),
		RechargeIDs:    datatypes.NewJSONSlice(uniqueIDs(req.RechargeIDs)),
		ConsumptionIDs: datatypes.NewJSONSlice(uniqueIDs(req.ConsumptionIDs)),
		Status:         domain.BillStatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, tx, &bill); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.MonthlyBill{}, domain.ErrDraftConflict
		}
		return domain.MonthlyBill{}, err
	}

	s.log.Info("draft bill created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("bill_number", bill.BillNumber),
		zap.String("month", bill.Month),
		zap.String("bill_type", string(bill.Type)),
	)
	return bill, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.MonthlyBill, error) {
	if id == 0 {
		return domain.MonthlyBill{}, domain.ErrInvalidID
	}
	bill, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.MonthlyBill{}, err
	}
	if bill == nil {
		return domain.MonthlyBill{}, domain.ErrNotFound
	}
	return *bill, nil
}

func (s *Service) List(ctx context.Context, req domain.ListBillRequest) (domain.ListBillResponse, error) {
	month := strings.TrimSpace(req.Month)
	if month != "" && !period.Valid(month) {
		return domain.ListBillResponse{}, domain.ErrInvalidMonth
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListBillFilter{
		Month:       month,
		Category:    req.Category,
		Status:      req.Status,
		AgencyID:    req.AgencyID,
		AdAccountID: req.AdAccountID,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListBillResponse{}, err
	}

	items, pageInfo := pagination.Paginate(items, pageSize, func(bill *domain.MonthlyBill) pagination.Cursor {
		return pagination.Cursor{ID: bill.ID.String(), CreatedAt: bill.CreatedAt.Format(time.RFC3339)}
	})

	bills := make([]domain.MonthlyBill, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		bills = append(bills, *item)
	}
	return domain.ListBillResponse{PageInfo: pageInfo, Bills: bills}, nil
}

func (s *Service) RenderStatement(ctx context.Context, id snowflake.ID) (io.Reader, error) {
	if s.pdf == nil {
		return nil, domain.ErrRendererMissing
	}
	bill, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data := pdf.StatementData{
		BillNumber:   bill.BillNumber,
		Month:        bill.Month,
		Category:     string(bill.Category),
		BillType:     string(bill.Type),
		Status:       string(bill.Status),
		Currency:     bill.Currency,
		TotalAmount:  formatAmount(bill.TotalAmount),
		RebateAmount: formatAmount(bill.RebateAmount),
		NetAmount:    formatAmount(bill.NetAmount),
	}

	agency, err := s.agencyRepo.FindByID(ctx, s.db, bill.AgencyID)
	if err != nil {
		return nil, err
	}
	if agency != nil {
		data.AgencyName = agency.Name
	}
	account, err := s.accountRepo.FindByID(ctx, s.db, bill.AdAccountID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		data.AccountName = account.Name
	}

	recharges, err := s.rechargeRepo.FindByIDs(ctx, s.db, bill.RechargeIDs)
	if err != nil {
		return nil, err
	}
	for _, recharge := range recharges {
		amount := recharge.Amount
		if bill.Type == domain.BillTypeAdvertisingRebate {
			amount = recharge.RebateAmount
		}
		data.Lines = append(data.Lines, pdf.StatementLine{
			Kind:      "recharge",
			Reference: recharge.ID.String(),
			Date:      recharge.Date.Format("2006-01-02"),
			Amount:    formatAmount(amount),
		})
	}

	consumptions, err := s.consumptionRepo.FindByIDs(ctx, s.db, bill.ConsumptionIDs)
	if err != nil {
		return nil, err
	}
	for _, consumption := range consumptions {
		data.Lines = append(data.Lines, pdf.StatementLine{
			Kind:      "settled rebate",
			Reference: consumption.ID.String(),
			Date:      consumption.Date.Format("2006-01-02"),
			Amount:    formatAmount(consumption.EstimatedRebate),
		})
	}

	return s.pdf.GenerateBillStatement(ctx, data)
}

func validateUpsert(req domain.UpsertDraftRequest) (domain.DraftKey, error) {
	month := strings.TrimSpace(req.Month)
	if !period.Valid(month) {
		return domain.DraftKey{}, domain.ErrInvalidMonth
	}
	switch req.Category {
	case domain.BillCategoryPayable, domain.BillCategoryReceivable:
	default:
		return domain.DraftKey{}, domain.ErrInvalidCategory
	}
	switch req.Type {
	case domain.BillTypeAdvertising, domain.BillTypeAdvertisingRebate:
	default:
		return domain.DraftKey{}, domain.ErrInvalidType
	}
	if req.AgencyID == 0 || req.AdAccountID == 0 {
		return domain.DraftKey{}, domain.ErrInvalidKey
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return domain.DraftKey{}, domain.ErrInvalidCurrency
	}
	return domain.DraftKey{
		Month:       month,
		Type:        req.Type,
		AgencyID:    req.AgencyID,
		AdAccountID: req.AdAccountID,
		Currency:    currency,
	}, nil
}

func missingIDs(existing []snowflake.ID, incoming []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	var missing []snowflake.ID
	for _, id := range incoming {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	return missing
}

func containsID(ids []snowflake.ID, id snowflake.ID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func uniqueIDs(ids []snowflake.ID) []snowflake.ID {
	out := missingIDs(nil, ids)
	if out == nil {
		return []snowflake.ID{}
	}
	return out
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
