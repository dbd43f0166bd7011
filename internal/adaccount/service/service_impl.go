package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/internal/adaccount/domain"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	"github.com/smallbiznis/adledger/internal/clock"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	AgencyRepo agencydomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	agencyRepo agencydomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("adaccount.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		agencyRepo: p.AgencyRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAdAccountRequest) (domain.AdAccountView, error) {
	if req.AgencyID == 0 {
		return domain.AdAccountView{}, domain.ErrInvalidAgency
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.AdAccountView{}, domain.ErrInvalidName
	}
	if req.CreditLimit.IsNegative() {
		return domain.AdAccountView{}, domain.ErrInvalidCreditLimit
	}

	agency, err := s.agencyRepo.FindByID(ctx, s.db, req.AgencyID)
	if err != nil {
		return domain.AdAccountView{}, err
	}
	if agency == nil {
		return domain.AdAccountView{}, domain.ErrInvalidAgency
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = agency.SettlementCurrency
	}
	if len(currency) != 3 {
		return domain.AdAccountView{}, domain.ErrInvalidCurrency
	}

	now := s.clock.Now()
	account := domain.AdAccount{
		ID:                s.genID.Generate(),
		AgencyID:          agency.ID,
		Name:              name,
		ExternalAccountID: strings.TrimSpace(req.ExternalAccountID),
		Currency:          currency,
		CurrentBalance:    decimal.Zero,
		RebateReceivable:  decimal.Zero,
		CreditLimit:       req.CreditLimit,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, &account); err != nil {
		return domain.AdAccountView{}, err
	}

	s.log.Info("ad account created",
		zap.String("ad_account_id", account.ID.String()),
		zap.String("agency_id", agency.ID.String()),
		zap.String("currency", currency),
	)

	return domain.AdAccountView{
		AdAccount:      account,
		AgencyName:     agency.Name,
		AgencyPlatform: string(agency.Platform),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.AdAccountView, error) {
	if id == 0 {
		return domain.AdAccountView{}, domain.ErrInvalidID
	}
	view, err := s.repo.FindViewByID(ctx, s.db, id)
	if err != nil {
		return domain.AdAccountView{}, err
	}
	if view == nil {
		return domain.AdAccountView{}, domain.ErrNotFound
	}
	return *view, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAdAccountRequest) (domain.ListAdAccountResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, req.AgencyID, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListAdAccountResponse{}, err
	}

	items, pageInfo := pagination.Paginate(items, pageSize, func(view *domain.AdAccountView) pagination.Cursor {
		return pagination.Cursor{ID: view.ID.String(), CreatedAt: view.CreatedAt.Format(time.RFC3339)}
	})

	accounts := make([]domain.AdAccountView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		accounts = append(accounts, *item)
	}
	return domain.ListAdAccountResponse{PageInfo: pageInfo, AdAccounts: accounts}, nil
}
