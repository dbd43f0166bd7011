package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	"github.com/smallbiznis/adledger/internal/consumption/domain"
	ledgerdomain "github.com/smallbiznis/adledger/internal/ledger/domain"
	rebatedomain "github.com/smallbiznis/adledger/internal/rebate/domain"
	"github.com/smallbiznis/adledger/internal/testutil/ledgertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateConsumptionWritesOffRebate(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "Net 15")
	h.Recharge(t, account.ID, "1000")

	result := h.Consume(t, account.ID, "909.09")
	assert.Equal(t, "90.91", result.CurrentBalance.String())
	assert.Equal(t, "90.909", result.Consumption.EstimatedRebate.String())
	assert.Equal(t, "2024-03", result.Consumption.Month)
	assert.False(t, result.Consumption.IsSettled)

	require.Len(t, result.Writeoff.Applied, 1)
	assert.Equal(t, "82.6445", result.Writeoff.Applied[0].Amount.String())
	assert.Equal(t, "17.3555", result.Writeoff.Applied[0].RemainingBalance.String())
	assert.Equal(t, rebatedomain.ReceivableStatusInWriteoff, result.Writeoff.Applied[0].Status)

	stored := h.Account(t, account.ID)
	assert.Equal(t, "90.91", stored.CurrentBalance.String())
	assert.Equal(t, "100", stored.RebateReceivable.String(), "write-off leaves the account receivable alone")

	entries, err := h.Ledger.List(context.Background(), nil, ledgerdomain.ListEntriesFilter{AdAccountID: account.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledgerdomain.CategoryRebatePending, entries[0].Category)
	assert.Equal(t, ledgerdomain.EntryStatusPending, entries[0].Status)
	assert.Equal(t, ledgerdomain.EntryTypeIncome, entries[0].Type)
	assert.Equal(t, result.Consumption.ID, entries[0].RelatedID)
	assert.Equal(t, "90.909", entries[0].Amount.String())

	assert.True(t, time.Date(2024, time.April, 15, 0, 0, 0, 0, time.UTC).Equal(result.Consumption.DueDate))
	assert.True(t, result.Consumption.DueDate.Equal(result.Consumption.RebateDueDate))
}

func TestCreateConsumptionQuarterlyDueDates(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "8", agencydomain.RebatePeriodQuarterly, "settle on the 20th")

	result, err := h.Consumptions.Create(context.Background(), domain.CreateConsumptionRequest{
		AdAccountID: account.ID,
		Amount:      decimal.NewFromInt(100),
		Date:        time.Date(2024, time.February, 5, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-02", result.Consumption.Month)
	assert.True(t, time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC).Equal(result.Consumption.DueDate))
	assert.True(t, time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC).Equal(result.Consumption.RebateDueDate))
}

func TestCreateConsumptionClampsBalanceAtZero(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "0", agencydomain.RebatePeriodMonthly, "")
	h.Recharge(t, account.ID, "100")

	result := h.Consume(t, account.ID, "250")
	assert.True(t, result.CurrentBalance.IsZero())
	assert.Empty(t, result.Writeoff.Applied)
	assert.True(t, h.Account(t, account.ID).CurrentBalance.IsZero())

	entries, err := h.Ledger.List(context.Background(), nil, ledgerdomain.ListEntriesFilter{AdAccountID: account.ID})
	require.NoError(t, err)
	assert.Empty(t, entries, "zero-rate consumptions carry no pending rebate")
}

func TestCreateConsumptionValidation(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	_, err := h.Consumptions.Create(ctx, domain.CreateConsumptionRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidAccount)
	_, err = h.Consumptions.Create(ctx, domain.CreateConsumptionRequest{AdAccountID: account.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = h.Consumptions.Create(ctx, domain.CreateConsumptionRequest{AdAccountID: h.Node.Generate(), Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = h.Consumptions.Create(ctx, domain.CreateConsumptionRequest{AdAccountID: account.ID, Amount: decimal.NewFromInt(1), Currency: "IDR"})
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)

	_, err = h.Consumptions.GetByID(ctx, h.Node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListUnsettled(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	first := h.Consume(t, account.ID, "100")
	second := h.Consume(t, account.ID, "200")
	_, err := h.Consumptions.Create(ctx, domain.CreateConsumptionRequest{
		AdAccountID: account.ID,
		Amount:      decimal.NewFromInt(50),
		Date:        time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	items, err := h.Consumptions.ListUnsettled(ctx, account.ID, "2024-03")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.Consumption.ID, items[0].ID)
	assert.Equal(t, second.Consumption.ID, items[1].ID)

	got, err := h.Consumptions.GetByID(ctx, second.Consumption.ID)
	require.NoError(t, err)
	assert.Equal(t, "200", got.Amount.String())

	_, err = h.Consumptions.ListUnsettled(ctx, account.ID, "March")
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)
}
