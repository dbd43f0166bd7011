package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	adaccountdomain "github.com/smallbiznis/adledger/internal/adaccount/domain"
	adaccountrepository "github.com/smallbiznis/adledger/internal/adaccount/repository"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	agencyrepository "github.com/smallbiznis/adledger/internal/agency/repository"
	"github.com/smallbiznis/adledger/internal/bill/domain"
	"github.com/smallbiznis/adledger/internal/bill/repository"
	"github.com/smallbiznis/adledger/internal/clock"
	consumptiondomain "github.com/smallbiznis/adledger/internal/consumption/domain"
	consumptionrepository "github.com/smallbiznis/adledger/internal/consumption/repository"
	"github.com/smallbiznis/adledger/internal/providers/pdf"
	rechargedomain "github.com/smallbiznis/adledger/internal/recharge/domain"
	rechargerepository "github.com/smallbiznis/adledger/internal/recharge/repository"
	"github.com/smallbiznis/adledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockPDF struct {
	mock.Mock
}

func (m *mockPDF) GenerateBillStatement(ctx context.Context, data pdf.StatementData) (io.Reader, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.Reader), args.Error(1)
}

func newTestService(t *testing.T, renderer pdf.Provider) (*gorm.DB, *snowflake.Node, domain.Service) {
	t.Helper()
	db := testutil.OpenDB(t,
		&domain.MonthlyBill{},
		&agencydomain.Agency{},
		&adaccountdomain.AdAccount{},
		&rechargedomain.AdRecharge{},
		&consumptiondomain.AdConsumption{},
	)
	node := testutil.Node(t)
	svc := New(Params{
		DB:              db,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           clock.NewFakeClock(time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)),
		Repo:            repository.Provide(),
		AgencyRepo:      agencyrepository.Provide(),
		AccountRepo:     adaccountrepository.Provide(),
		RechargeRepo:    rechargerepository.Provide(),
		ConsumptionRepo: consumptionrepository.Provide(),
		PDF:             renderer,
	})
	return db, node, svc
}

func payable(rechargeID snowflake.ID, amount, rebate int64) domain.UpsertDraftRequest {
	return domain.UpsertDraftRequest{
		Month:       "2024-03",
		Category:    domain.BillCategoryPayable,
		Type:        domain.BillTypeAdvertising,
		AgencyID:    1,
		AdAccountID: 2,
		Currency:    "USD",
		AmountDelta: decimal.NewFromInt(amount),
		RebateDelta: decimal.NewFromInt(rebate),
		RechargeIDs: []snowflake.ID{rechargeID},
	}
}

func TestUpsertDraftMergesSameKey(t *testing.T) {
	db, _, svc := newTestService(t, nil)
	ctx := context.Background()

	first, outcome, err := svc.UpsertDraft(ctx, db, payable(100, 1000, 100))
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertOutcomeCreated, outcome)
	assert.Equal(t, "ADV-202403-"+first.ID.String(), first.BillNumber)

	merged, outcome, err := svc.UpsertDraft(ctx, db, payable(101, 500, 50))
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertOutcomeMerged, outcome)
	assert.Equal(t, first.ID, merged.ID)

	got, err := svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(1500)), got.TotalAmount.String())
	assert.True(t, got.RebateAmount.Equal(decimal.NewFromInt(150)), got.RebateAmount.String())
	assert.True(t, got.NetAmount.Equal(decimal.NewFromInt(1500)), got.NetAmount.String())
	assert.Equal(t, []snowflake.ID{100, 101}, []snowflake.ID(got.RechargeIDs))

	var count int64
	require.NoError(t, db.Model(&domain.MonthlyBill{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertDraftReplayIsNoop(t *testing.T) {
	db, _, svc := newTestService(t, nil)
	ctx := context.Background()

	first, _, err := svc.UpsertDraft(ctx, db, payable(100, 1000, 100))
	require.NoError(t, err)

	_, outcome, err := svc.UpsertDraft(ctx, db, payable(100, 1000, 100))
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertOutcomeReplayed, outcome)

	got, err := svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(1000)), got.TotalAmount.String())
	assert.Len(t, got.RechargeIDs, 1)
}

func TestUpsertDraftReceivableNetIsRebate(t *testing.T) {
	db, _, svc := newTestService(t, nil)

	bill, _, err := svc.UpsertDraft(context.Background(), db, domain.UpsertDraftRequest{
		Month:          "2024-03",
		Category:       domain.BillCategoryReceivable,
		Type:           domain.BillTypeAdvertisingRebate,
		AgencyID:       1,
		AdAccountID:    2,
		Currency:       "usd",
		AmountDelta:    decimal.Zero,
		RebateDelta:    decimal.NewFromInt(50),
		ConsumptionIDs: []snowflake.ID{7, 8},
	})
	require.NoError(t, err)
	assert.True(t, bill.NetAmount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "USD", bill.Currency)
	assert.Equal(t, "REB-202403-"+bill.ID.String(), bill.BillNumber)
}

func TestUpsertDraftSeparatesKeysAndSkipsNonDraft(t *testing.T) {
	db, _, svc := newTestService(t, nil)
	ctx := context.Background()

	first, _, err := svc.UpsertDraft(ctx, db, payable(100, 1000, 0))
	require.NoError(t, err)

	other := payable(101, 200, 0)
	other.Currency = "EUR"
	eur, outcome, err := svc.UpsertDraft(ctx, db, other)
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertOutcomeCreated, outcome)
	assert.NotEqual(t, first.ID, eur.ID)

	require.NoError(t, db.Model(&domain.MonthlyBill{}).Where("id = ?", first.ID).Update("status", domain.BillStatusPending).Error)

	next, outcome, err := svc.UpsertDraft(ctx, db, payable(102, 300, 0))
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertOutcomeCreated, outcome)
	assert.NotEqual(t, first.ID, next.ID)
}

func TestUpsertDraftValidation(t *testing.T) {
	db, _, svc := newTestService(t, nil)
	ctx := context.Background()

	req := payable(1, 1, 0)
	req.Month = "2024-3"
	_, _, err := svc.UpsertDraft(ctx, db, req)
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)

	req = payable(1, 1, 0)
	req.Type = "media"
	_, _, err = svc.UpsertDraft(ctx, db, req)
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	req = payable(1, 1, 0)
	req.AgencyID = 0
	_, _, err = svc.UpsertDraft(ctx, db, req)
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestListBillsFilters(t *testing.T) {
	db, _, svc := newTestService(t, nil)
	ctx := context.Background()

	_, _, err := svc.UpsertDraft(ctx, db, payable(1, 100, 0))
	require.NoError(t, err)
	april := payable(2, 100, 0)
	april.Month = "2024-04"
	_, _, err = svc.UpsertDraft(ctx, db, april)
	require.NoError(t, err)

	resp, err := svc.List(ctx, domain.ListBillRequest{Month: "2024-04"})
	require.NoError(t, err)
	require.Len(t, resp.Bills, 1)
	assert.Equal(t, "2024-04", resp.Bills[0].Month)

	_, err = svc.List(ctx, domain.ListBillRequest{Month: "April"})
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)
}

func TestRenderStatement(t *testing.T) {
	renderer := &mockPDF{}
	db, node, svc := newTestService(t, renderer)
	ctx := context.Background()

	now := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	agency := agencydomain.Agency{ID: node.Generate(), Code: "a", Name: "Blue Ocean", Platform: agencydomain.PlatformGoogle, RebatePeriod: agencydomain.RebatePeriodMonthly, SettlementCurrency: "USD", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(&agency).Error)
	account := adaccountdomain.AdAccount{ID: node.Generate(), AgencyID: agency.ID, Name: "Main", Currency: "USD", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(&account).Error)
	recharge := rechargedomain.AdRecharge{
		ID: node.Generate(), AdAccountID: account.ID, Amount: decimal.NewFromInt(1000), Currency: "USD",
		RebateAmount: decimal.NewFromInt(100), RebateRate: decimal.NewFromInt(10), Date: now, Month: "2024-03",
		PaymentStatus: rechargedomain.PaymentStatusPaid, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&recharge).Error)

	req := payable(recharge.ID, 1000, 100)
	req.AgencyID = agency.ID
	req.AdAccountID = account.ID
	bill, _, err := svc.UpsertDraft(ctx, db, req)
	require.NoError(t, err)

	renderer.On("GenerateBillStatement", mock.Anything, mock.MatchedBy(func(data pdf.StatementData) bool {
		return data.BillNumber == bill.BillNumber &&
			data.AgencyName == "Blue Ocean" &&
			data.AccountName == "Main" &&
			data.NetAmount == "1000.00" &&
			len(data.Lines) == 1 &&
			data.Lines[0].Amount == "1000.00"
	})).Return(nil, nil).Once()

	_, err = svc.RenderStatement(ctx, bill.ID)
	require.NoError(t, err)
	renderer.AssertExpectations(t)
}

func TestRenderStatementWithoutRenderer(t *testing.T) {
	_, _, svc := newTestService(t, nil)
	_, err := svc.RenderStatement(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrRendererMissing)
}
