package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/internal/agency/domain"
	"github.com/smallbiznis/adledger/internal/agency/repository"
	"github.com/smallbiznis/adledger/internal/clock"
	"github.com/smallbiznis/adledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	db := testutil.OpenDB(t, &domain.Agency{})
	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.Node(t),
		Clock: clock.NewFakeClock(time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateAgencyDefaultsAndSlug(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	agency, err := svc.Create(ctx, domain.CreateAgencyRequest{
		Name:               "Blue Ocean Media",
		Platform:           domain.PlatformGoogle,
		RebateRate:         decimal.NewFromInt(10),
		SettlementCurrency: "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "blue-ocean-media", agency.Code)
	assert.Equal(t, "USD", agency.SettlementCurrency)
	assert.Equal(t, domain.RebatePeriodMonthly, agency.RebatePeriod)
	assert.True(t, agency.RebateConfig().Rate.Equal(decimal.NewFromInt(10)))

	second, err := svc.Create(ctx, domain.CreateAgencyRequest{
		Name:               "Blue Ocean Media",
		RebateRate:         decimal.Zero,
		SettlementCurrency: "USD",
	})
	require.NoError(t, err)
	assert.NotEqual(t, agency.Code, second.Code)
	assert.Equal(t, domain.PlatformOther, second.Platform)
}

func TestCreateAgencyValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateAgencyRequest{Name: " ", SettlementCurrency: "USD"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateAgencyRequest{Name: "A", RebateRate: decimal.NewFromInt(101), SettlementCurrency: "USD"})
	assert.ErrorIs(t, err, domain.ErrInvalidRebateRate)

	_, err = svc.Create(ctx, domain.CreateAgencyRequest{Name: "A", RebateRate: decimal.NewFromInt(-1), SettlementCurrency: "USD"})
	assert.ErrorIs(t, err, domain.ErrInvalidRebateRate)

	_, err = svc.Create(ctx, domain.CreateAgencyRequest{Name: "A", Platform: "Bing", SettlementCurrency: "USD"})
	assert.ErrorIs(t, err, domain.ErrInvalidPlatform)

	_, err = svc.Create(ctx, domain.CreateAgencyRequest{Name: "A", SettlementCurrency: "dollars"})
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)
}

func TestUpdateAgencyPartial(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	agency, err := svc.Create(ctx, domain.CreateAgencyRequest{
		Name:               "North Star",
		Platform:           domain.PlatformTikTok,
		RebateRate:         decimal.NewFromInt(5),
		SettlementCurrency: "USD",
		CreditTerm:         "day 15",
	})
	require.NoError(t, err)

	name := "North Star Digital"
	rate := decimal.RequireFromString("7.5")
	period := domain.RebatePeriodQuarterly
	updated, err := svc.Update(ctx, domain.UpdateAgencyRequest{
		ID:           agency.ID,
		Name:         &name,
		RebateRate:   &rate,
		RebatePeriod: &period,
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, agency.Code, updated.Code)
	assert.Equal(t, domain.PlatformTikTok, updated.Platform)
	assert.Equal(t, "day 15", updated.CreditTerm)

	got, err := svc.GetByID(ctx, agency.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.True(t, got.RebateRate.Equal(rate), got.RebateRate.String())
	assert.Equal(t, domain.RebatePeriodQuarterly, got.RebatePeriod)

	bad := decimal.NewFromInt(200)
	_, err = svc.Update(ctx, domain.UpdateAgencyRequest{ID: agency.ID, RebateRate: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidRebateRate)

	_, err = svc.Update(ctx, domain.UpdateAgencyRequest{ID: agency.ID + 1, Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAgenciesPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		_, err := svc.Create(ctx, domain.CreateAgencyRequest{Name: name, SettlementCurrency: "USD"})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, domain.ListAgencyRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Agencies, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "Charlie", first.Agencies[0].Name)

	second, err := svc.List(ctx, domain.ListAgencyRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Agencies, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "Alpha", second.Agencies[0].Name)
}
