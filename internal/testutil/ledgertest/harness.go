// Package ledgertest wires the ledger services against an in-memory database.
package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/internal/accountlock"
	adaccountdomain "github.com/smallbiznis/adledger/internal/adaccount/domain"
	adaccountrepository "github.com/smallbiznis/adledger/internal/adaccount/repository"
	adaccountservice "github.com/smallbiznis/adledger/internal/adaccount/service"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	agencyrepository "github.com/smallbiznis/adledger/internal/agency/repository"
	agencyservice "github.com/smallbiznis/adledger/internal/agency/service"
	billdomain "github.com/smallbiznis/adledger/internal/bill/domain"
	billrepository "github.com/smallbiznis/adledger/internal/bill/repository"
	billservice "github.com/smallbiznis/adledger/internal/bill/service"
	"github.com/smallbiznis/adledger/internal/clock"
	"github.com/smallbiznis/adledger/internal/config"
	consumptiondomain "github.com/smallbiznis/adledger/internal/consumption/domain"
	consumptionrepository "github.com/smallbiznis/adledger/internal/consumption/repository"
	consumptionservice "github.com/smallbiznis/adledger/internal/consumption/service"
	ledgerdomain "github.com/smallbiznis/adledger/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/adledger/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/adledger/internal/ledger/service"
	"github.com/smallbiznis/adledger/internal/migration"
	obsmetrics "github.com/smallbiznis/adledger/internal/observability/metrics"
	"github.com/smallbiznis/adledger/internal/providers/pdf"
	rebatedomain "github.com/smallbiznis/adledger/internal/rebate/domain"
	rebaterepository "github.com/smallbiznis/adledger/internal/rebate/repository"
	rebateservice "github.com/smallbiznis/adledger/internal/rebate/service"
	rechargedomain "github.com/smallbiznis/adledger/internal/recharge/domain"
	rechargerepository "github.com/smallbiznis/adledger/internal/recharge/repository"
	rechargeservice "github.com/smallbiznis/adledger/internal/recharge/service"
	reconciledomain "github.com/smallbiznis/adledger/internal/reconcile/domain"
	reconcileservice "github.com/smallbiznis/adledger/internal/reconcile/service"
	settlementdomain "github.com/smallbiznis/adledger/internal/settlement/domain"
	settlementrepository "github.com/smallbiznis/adledger/internal/settlement/repository"
	settlementservice "github.com/smallbiznis/adledger/internal/settlement/service"
	"github.com/smallbiznis/adledger/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Harness struct {
	DB       *gorm.DB
	Node     *snowflake.Node
	Clock    *clock.FakeClock
	Locker   *accountlock.Local
	Registry *prometheus.Registry
	Metrics  *obsmetrics.LedgerMetrics

	AgencyRepo      agencydomain.Repository
	AccountRepo     adaccountdomain.Repository
	RechargeRepo    rechargedomain.Repository
	ConsumptionRepo consumptiondomain.Repository
	SettlementRepo  settlementdomain.Repository

	Agencies     agencydomain.Service
	Accounts     adaccountdomain.Service
	Rebates      rebatedomain.Service
	Ledger       ledgerdomain.Service
	Bills        billdomain.Service
	Reconciler   reconciledomain.Service
	Recharges    rechargedomain.Service
	Consumptions consumptiondomain.Service
	Settlements  settlementdomain.Service
}

type Option func(*options)

type options struct {
	policy   config.LedgerPolicy
	start    time.Time
	renderer pdf.Provider
}

// WithPolicy overrides the ledger policy.
func WithPolicy(policy config.LedgerPolicy) Option {
	return func(o *options) { o.policy = policy }
}

// WithRenderer swaps the statement renderer; the default renders nothing.
func WithRenderer(renderer pdf.Provider) Option {
	return func(o *options) { o.renderer = renderer }
}

// WithStart sets the fake clock's initial time.
func WithStart(start time.Time) Option {
	return func(o *options) { o.start = start }
}

func New(t *testing.T, opts ...Option) *Harness {
	t.Helper()

	o := options{
		start:    time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC),
		renderer: &pdf.NoOpProvider{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	db := testutil.OpenDB(t, migration.Models()...)
	node := testutil.Node(t)
	fc := clock.NewFakeClock(o.start)
	log := zap.NewNop()
	locker := accountlock.NewLocal()
	registry := prometheus.NewRegistry()
	metrics := obsmetrics.NewLedgerMetrics(registry, obsmetrics.Config{ServiceName: "adledger-test", Environment: "test"})
	policy := config.NewStaticLedgerPolicyHolder(o.policy)

	h := &Harness{
		DB:              db,
		Node:            node,
		Clock:           fc,
		Locker:          locker,
		Registry:        registry,
		Metrics:         metrics,
		AgencyRepo:      agencyrepository.Provide(),
		AccountRepo:     adaccountrepository.Provide(),
		RechargeRepo:    rechargerepository.Provide(),
		ConsumptionRepo: consumptionrepository.Provide(),
		SettlementRepo:  settlementrepository.Provide(),
	}

	h.Agencies = agencyservice.New(agencyservice.Params{
		DB: db, Log: log, GenID: node, Clock: fc, Repo: h.AgencyRepo,
	})
	h.Accounts = adaccountservice.New(adaccountservice.Params{
		DB: db, Log: log, GenID: node, Clock: fc, Repo: h.AccountRepo, AgencyRepo: h.AgencyRepo,
	})
	h.Rebates = rebateservice.New(rebateservice.Params{
		DB: db, Log: log, GenID: node, Clock: fc, Repo: rebaterepository.Provide(), Policy: policy, ObsMetrics: metrics,
	})
	h.Ledger = ledgerservice.NewService(ledgerservice.Params{
		DB: db, Log: log, GenID: node, Clock: fc, Repo: ledgerrepository.Provide(),
	})
	h.Bills = billservice.New(billservice.Params{
		DB:              db,
		Log:             log,
		GenID:           node,
		Clock:           fc,
		Repo:            billrepository.Provide(),
		AgencyRepo:      h.AgencyRepo,
		AccountRepo:     h.AccountRepo,
		RechargeRepo:    h.RechargeRepo,
		ConsumptionRepo: h.ConsumptionRepo,
		PDF:             o.renderer,
		ObsMetrics:      metrics,
	})
	h.Reconciler = reconcileservice.New(reconcileservice.Params{
		DB:              db,
		Log:             log,
		Clock:           fc,
		Locker:          locker,
		AccountRepo:     h.AccountRepo,
		RechargeRepo:    h.RechargeRepo,
		ConsumptionRepo: h.ConsumptionRepo,
		LedgerSvc:       h.Ledger,
		Policy:          policy,
		ObsMetrics:      metrics,
	})
	h.Recharges = rechargeservice.New(rechargeservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fc,
		Locker:      locker,
		Repo:        h.RechargeRepo,
		AccountRepo: h.AccountRepo,
		AgencyRepo:  h.AgencyRepo,
		RebateSvc:   h.Rebates,
		BillSvc:     h.Bills,
		Reconciler:  h.Reconciler,
		ObsMetrics:  metrics,
	})
	h.Consumptions = consumptionservice.New(consumptionservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fc,
		Locker:      locker,
		Repo:        h.ConsumptionRepo,
		AccountRepo: h.AccountRepo,
		AgencyRepo:  h.AgencyRepo,
		RebateSvc:   h.Rebates,
		LedgerSvc:   h.Ledger,
		ObsMetrics:  metrics,
	})
	h.Settlements = settlementservice.New(settlementservice.Params{
		DB:              db,
		Log:             log,
		GenID:           node,
		Clock:           fc,
		Locker:          locker,
		Repo:            h.SettlementRepo,
		AccountRepo:     h.AccountRepo,
		ConsumptionRepo: h.ConsumptionRepo,
		LedgerSvc:       h.Ledger,
		BillSvc:         h.Bills,
		ObsMetrics:      metrics,
	})
	return h
}

// Seed creates an agency with rate and period plus one USD account under it.
func (h *Harness) Seed(t *testing.T, rate string, period agencydomain.RebatePeriod, creditTerm string) (agencydomain.Agency, adaccountdomain.AdAccountView) {
	t.Helper()
	ctx := context.Background()

	agency, err := h.Agencies.Create(ctx, agencydomain.CreateAgencyRequest{
		Name:               "Agency " + h.Node.Generate().String(),
		Platform:           agencydomain.PlatformFacebook,
		RebateRate:         decimal.RequireFromString(rate),
		RebatePeriod:       period,
		SettlementCurrency: "USD",
		CreditTerm:         creditTerm,
	})
	require.NoError(t, err)

	account, err := h.Accounts.Create(ctx, adaccountdomain.CreateAdAccountRequest{
		AgencyID: agency.ID,
		Name:     "Account " + h.Node.Generate().String(),
	})
	require.NoError(t, err)
	return agency, account
}

// Recharge records a paid recharge and advances the clock by a minute.
func (h *Harness) Recharge(t *testing.T, accountID snowflake.ID, amount string) rechargedomain.CreateRechargeResult {
	t.Helper()
	h.Clock.Advance(time.Minute)
	result, err := h.Recharges.Create(context.Background(), rechargedomain.CreateRechargeRequest{
		AdAccountID: accountID,
		Amount:      decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return result
}

// Consume records a consumption and advances the clock by a minute.
func (h *Harness) Consume(t *testing.T, accountID snowflake.ID, amount string) consumptiondomain.CreateConsumptionResult {
	t.Helper()
	h.Clock.Advance(time.Minute)
	result, err := h.Consumptions.Create(context.Background(), consumptiondomain.CreateConsumptionRequest{
		AdAccountID: accountID,
		Amount:      decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return result
}

// Account reloads the persisted account row.
func (h *Harness) Account(t *testing.T, accountID snowflake.ID) adaccountdomain.AdAccount {
	t.Helper()
	account, err := h.AccountRepo.FindByID(context.Background(), h.DB, accountID)
	require.NoError(t, err)
	require.NotNil(t, account)
	return *account
}
