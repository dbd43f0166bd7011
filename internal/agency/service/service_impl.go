package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/adledger/internal/agency/domain"
	"github.com/smallbiznis/adledger/internal/clock"
	"github.com/smallbiznis/adledger/pkg/db/pagination"
	"github.com/smallbiznis/adledger/pkg/money"
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
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("agency.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAgencyRequest) (domain.Agency, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Agency{}, domain.ErrInvalidName
	}
	platform := req.Platform
	if platform == "" {
		platform = domain.PlatformOther
	}
	if !platform.Valid() {
		return domain.Agency{}, domain.ErrInvalidPlatform
	}
	if !money.ValidRate(req.RebateRate) {
		return domain.Agency{}, domain.ErrInvalidRebateRate
	}
	period := req.RebatePeriod
	if period == "" {
		period = domain.RebatePeriodMonthly
	}
	if !period.Valid() {
		return domain.Agency{}, domain.ErrInvalidPeriod
	}
	currency, err := normalizeCurrency(req.SettlementCurrency)
	if err != nil {
		return domain.Agency{}, err
	}

	now := s.clock.Now()
	agency := domain.Agency{
		ID:                 s.genID.Generate(),
		Name:               name,
		Platform:           platform,
		RebateRate:         req.RebateRate,
		RebatePeriod:       period,
		SettlementCurrency: currency,
		CreditTerm:         strings.TrimSpace(req.CreditTerm),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.uniqueCode(ctx, tx, name, agency.ID)
		if err != nil {
			return err
		}
		agency.Code = code
		return s.repo.Insert(ctx, tx, &agency)
	})
	if err != nil {
		return domain.Agency{}, err
	}

	s.log.Info("agency created",
		zap.String("agency_id", agency.ID.String()),
		zap.String("code", agency.Code),
		zap.String("rebate_rate", agency.RebateRate.String()),
	)
	return agency, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateAgencyRequest) (domain.Agency, error) {
	if req.ID == 0 {
		return domain.Agency{}, domain.ErrInvalidID
	}

	var updated domain.Agency
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agency, err := s.repo.FindByID(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if agency == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			agency.Name = name
		}
		if req.Platform != nil {
			if !req.Platform.Valid() {
				return domain.ErrInvalidPlatform
			}
			agency.Platform = *req.Platform
		}
		if req.RebateRate != nil {
			if !money.ValidRate(*req.RebateRate) {
				return domain.ErrInvalidRebateRate
			}
			agency.RebateRate = *req.RebateRate
		}
		if req.RebatePeriod != nil {
			if !req.RebatePeriod.Valid() {
				return domain.ErrInvalidPeriod
			}
			agency.RebatePeriod = *req.RebatePeriod
		}
		if req.SettlementCurrency != nil {
			currency, err := normalizeCurrency(*req.SettlementCurrency)
			if err != nil {
				return err
			}
			agency.SettlementCurrency = currency
		}
		if req.CreditTerm != nil {
			agency.CreditTerm = strings.TrimSpace(*req.CreditTerm)
		}
		agency.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, agency); err != nil {
			return err
		}
		updated = *agency
		return nil
	})
	if err != nil {
		return domain.Agency{}, err
	}

	s.log.Info("agency updated", zap.String("agency_id", updated.ID.String()))
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Agency, error) {
	if id == 0 {
		return domain.Agency{}, domain.ErrInvalidID
	}
	agency, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Agency{}, err
	}
	if agency == nil {
		return domain.Agency{}, domain.ErrNotFound
	}
	return *agency, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAgencyRequest) (domain.ListAgencyResponse, error) {
	if req.Platform != "" && !req.Platform.Valid() {
		return domain.ListAgencyResponse{}, domain.ErrInvalidPlatform
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, req.Platform, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListAgencyResponse{}, err
	}

	items, pageInfo := pagination.Paginate(items, pageSize, func(agency *domain.Agency) pagination.Cursor {
		return pagination.Cursor{ID: agency.ID.String(), CreatedAt: agency.CreatedAt.Format(time.RFC3339)}
	})

	agencies := make([]domain.Agency, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		agencies = append(agencies, *item)
	}
	return domain.ListAgencyResponse{PageInfo: pageInfo, Agencies: agencies}, nil
}

func (s *Service) uniqueCode(ctx context.Context, tx *gorm.DB, name string, id snowflake.ID) (string, error) {
	code := slug.Make(name)
	if code == "" {
		code = "agency"
	}
	existing, err := s.repo.FindByCode(ctx, tx, code)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return code, nil
	}
	return code + "-" + strings.ToLower(id.Base36()), nil
}

func normalizeCurrency(value string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(value))
	if len(currency) != 3 {
		return "", domain.ErrInvalidCurrency
	}
	return currency, nil
}

