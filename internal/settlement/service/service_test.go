package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	billdomain "github.com/smallbiznis/adledger/internal/bill/domain"
	consumptiondomain "github.com/smallbiznis/adledger/internal/consumption/domain"
	ledgerdomain "github.com/smallbiznis/adledger/internal/ledger/domain"
	"github.com/smallbiznis/adledger/internal/settlement/domain"
	"github.com/smallbiznis/adledger/internal/testutil/ledgertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func settledEntries(t *testing.T, h *ledgertest.Harness, accountID snowflake.ID) []ledgerdomain.LedgerEntry {
	t.Helper()
	entries, err := h.Ledger.List(context.Background(), nil, ledgerdomain.ListEntriesFilter{
		AdAccountID: accountID,
		Category:    ledgerdomain.CategoryRebateSettled,
	})
	require.NoError(t, err)
	return entries
}

func TestSettleCreditsRebateOnce(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	h.Recharge(t, account.ID, "1000")
	first := h.Consume(t, account.ID, "200")
	second := h.Consume(t, account.ID, "300")
	assert.Equal(t, "500", h.Account(t, account.ID).CurrentBalance.String())

	req := domain.SettleRequest{
		AdAccountID:    account.ID,
		Month:          "2024-03",
		ConsumptionIDs: []snowflake.ID{first.Consumption.ID, second.Consumption.ID},
	}
	result, err := h.Settlements.Settle(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, domain.BatchStatusApplied, result.Batch.Status)
	assert.Equal(t, "50", result.Batch.TotalRebate.String())
	assert.NotNil(t, result.Batch.AppliedAt)

	stored := h.Account(t, account.ID)
	assert.Equal(t, "550", stored.CurrentBalance.String())
	assert.Equal(t, "50", stored.RebateReceivable.String())

	for _, id := range req.ConsumptionIDs {
		consumption, err := h.Consumptions.GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, consumption.IsSettled)
		assert.NotNil(t, consumption.SettledAt)
	}

	entries := settledEntries(t, h, account.ID)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, ledgerdomain.EntryStatusConfirmed, entry.Status)
	}

	retry, err := h.Settlements.Settle(ctx, domain.SettleRequest{
		AdAccountID:    account.ID,
		Month:          "2024-03",
		ConsumptionIDs: []snowflake.ID{second.Consumption.ID, first.Consumption.ID},
	})
	require.NoError(t, err)
	assert.True(t, retry.Replayed)
	assert.Equal(t, result.Batch.ID, retry.Batch.ID)
	assert.Equal(t, "550", h.Account(t, account.ID).CurrentBalance.String())
	assert.Len(t, settledEntries(t, h, account.ID), 2)

	bills, err := h.Bills.List(ctx, billdomain.ListBillRequest{Category: billdomain.BillCategoryReceivable})
	require.NoError(t, err)
	require.Len(t, bills.Bills, 1)
	assert.Equal(t, "150", bills.Bills[0].RebateAmount.String())
	assert.Len(t, bills.Bills[0].ConsumptionIDs, 2)

	reconciled, err := h.Reconciler.ReconcileAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, reconciled.Drifted)
}

func TestSettleIsAllOrNothing(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	_, other := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	h.Recharge(t, account.ID, "1000")
	a := h.Consume(t, account.ID, "200")
	b := h.Consume(t, account.ID, "300")
	foreign := h.Consume(t, other.ID, "100")
	april, err := h.Consumptions.Create(ctx, consumptiondomain.CreateConsumptionRequest{
		AdAccountID: account.ID,
		Amount:      decimal.NewFromInt(100),
		Date:        time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = h.Settlements.Settle(ctx, domain.SettleRequest{
		AdAccountID: account.ID, Month: "2024-03", ConsumptionIDs: []snowflake.ID{a.Consumption.ID},
	})
	require.NoError(t, err)
	before := h.Account(t, account.ID)

	cases := []struct {
		name string
		req  domain.SettleRequest
		err  error
	}{
		{"empty", domain.SettleRequest{AdAccountID: account.ID, Month: "2024-03"}, domain.ErrEmptySelection},
		{"bad month", domain.SettleRequest{AdAccountID: account.ID, Month: "03/2024", ConsumptionIDs: []snowflake.ID{b.Consumption.ID}}, domain.ErrInvalidMonth},
		{"already settled", domain.SettleRequest{AdAccountID: account.ID, Month: "2024-03", ConsumptionIDs: []snowflake.ID{b.Consumption.ID, a.Consumption.ID}}, domain.ErrAlreadySettled},
		{"other account", domain.SettleRequest{AdAccountID: account.ID, Month: "2024-03", ConsumptionIDs: []snowflake.ID{b.Consumption.ID, foreign.Consumption.ID}}, domain.ErrAccountMismatch},
		{"other month", domain.SettleRequest{AdAccountID: account.ID, Month: "2024-03", ConsumptionIDs: []snowflake.ID{b.Consumption.ID, april.Consumption.ID}}, domain.ErrMonthMismatch},
		{"unknown", domain.SettleRequest{AdAccountID: account.ID, Month: "2024-03", ConsumptionIDs: []snowflake.ID{b.Consumption.ID, h.Node.Generate()}}, domain.ErrConsumptionNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Settlements.Settle(ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	after := h.Account(t, account.ID)
	assert.True(t, before.CurrentBalance.Equal(after.CurrentBalance))
	assert.True(t, before.RebateReceivable.Equal(after.RebateReceivable))

	untouched, err := h.Consumptions.GetByID(ctx, b.Consumption.ID)
	require.NoError(t, err)
	assert.False(t, untouched.IsSettled)
	assert.Len(t, settledEntries(t, h, account.ID), 1)
}

func TestSettleMonth(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	h.Recharge(t, account.ID, "1000")
	h.Consume(t, account.ID, "100")
	h.Consume(t, account.ID, "150")

	result, err := h.Settlements.SettleMonth(ctx, account.ID, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "25", result.Batch.TotalRebate.String())
	assert.Len(t, result.Batch.ConsumptionIDs, 2)
	assert.Equal(t, "775", h.Account(t, account.ID).CurrentBalance.String())

	_, err = h.Settlements.SettleMonth(ctx, account.ID, "2024-03")
	assert.ErrorIs(t, err, domain.ErrNothingToSettle)
}

// stageBatch stores a batch as if its caller stopped before applying it.
func stageBatch(t *testing.T, h *ledgertest.Harness, accountID snowflake.ID, ids []snowflake.ID, total int64) *domain.SettlementBatch {
	t.Helper()
	staged := &domain.SettlementBatch{
		ID:             h.Node.Generate(),
		DedupeKey:      domain.DedupeKey(accountID, "2024-03", ids),
		AdAccountID:    accountID,
		Month:          "2024-03",
		Currency:       "USD",
		ConsumptionIDs: datatypes.NewJSONSlice(ids),
		TotalRebate:    decimal.NewFromInt(total),
		Status:         domain.BatchStatusStaged,
		CreatedAt:      h.Clock.Now(),
		UpdatedAt:      h.Clock.Now(),
	}
	require.NoError(t, h.SettlementRepo.Insert(context.Background(), h.DB, staged))
	return staged
}

func TestSettleRejectsSelectionOverlappingStagedBatch(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	h.Recharge(t, account.ID, "1000")
	c1 := h.Consume(t, account.ID, "100").Consumption.ID
	c2 := h.Consume(t, account.ID, "200").Consumption.ID
	staged := stageBatch(t, h, account.ID, []snowflake.ID{c1, c2}, 30)

	_, err := h.Settlements.Settle(ctx, domain.SettleRequest{AdAccountID: account.ID, Month: "2024-03", ConsumptionIDs: []snowflake.ID{c1}})
	assert.ErrorIs(t, err, domain.ErrBatchPending)
	_, err = h.Settlements.SettleMonth(ctx, account.ID, "2024-03")
	assert.ErrorIs(t, err, domain.ErrBatchPending)
	assert.Equal(t, "700", h.Account(t, account.ID).CurrentBalance.String())

	result, err := h.Settlements.Settle(ctx, domain.SettleRequest{AdAccountID: account.ID, Month: "2024-03", ConsumptionIDs: []snowflake.ID{c2, c1}})
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, staged.ID, result.Batch.ID)
	assert.Equal(t, domain.BatchStatusApplied, result.Batch.Status)
	assert.Equal(t, "730", h.Account(t, account.ID).CurrentBalance.String())

	h.Clock.Advance(10 * time.Minute)
	summary, err := h.Settlements.RecoverStaged(ctx, 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Zero(t, summary.Scanned)
}

func TestRecoverStagedSupersedesBatchSettledElsewhere(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	h.Recharge(t, account.ID, "1000")
	c1 := h.Consume(t, account.ID, "100").Consumption.ID
	c2 := h.Consume(t, account.ID, "200").Consumption.ID
	staged := stageBatch(t, h, account.ID, []snowflake.ID{c1, c2}, 30)

	settled, err := h.ConsumptionRepo.MarkSettled(ctx, h.DB, []snowflake.ID{c1}, h.Clock.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, settled)

	h.Clock.Advance(10 * time.Minute)
	for run := 0; run < 2; run++ {
		summary, err := h.Settlements.RecoverStaged(ctx, 5*time.Minute, 10)
		require.NoError(t, err)
		if run == 0 {
			assert.Equal(t, domain.RecoverySummary{Scanned: 1, Superseded: 1}, summary)
		} else {
			assert.Zero(t, summary.Scanned)
		}
	}

	batch, err := h.SettlementRepo.FindByID(ctx, h.DB, staged.ID)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, domain.BatchStatusSuperseded, batch.Status)
	assert.Equal(t, "700", h.Account(t, account.ID).CurrentBalance.String())

	_, err = h.Settlements.Settle(ctx, domain.SettleRequest{AdAccountID: account.ID, Month: "2024-03", ConsumptionIDs: []snowflake.ID{c1, c2}})
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)

	result, err := h.Settlements.Settle(ctx, domain.SettleRequest{AdAccountID: account.ID, Month: "2024-03", ConsumptionIDs: []snowflake.ID{c2}})
	require.NoError(t, err)
	assert.Equal(t, "20", result.Batch.TotalRebate.String())
	assert.Equal(t, "720", h.Account(t, account.ID).CurrentBalance.String())
}

func TestRecoverStagedAppliesAbandonedBatch(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	h.Recharge(t, account.ID, "1000")
	consumed := h.Consume(t, account.ID, "400")
	ids := []snowflake.ID{consumed.Consumption.ID}

	staged := &domain.SettlementBatch{
		ID:             h.Node.Generate(),
		DedupeKey:      domain.DedupeKey(account.ID, "2024-03", ids),
		AdAccountID:    account.ID,
		Month:          "2024-03",
		Currency:       "USD",
		ConsumptionIDs: datatypes.NewJSONSlice(ids),
		TotalRebate:    decimal.NewFromInt(40),
		Status:         domain.BatchStatusStaged,
		CreatedAt:      h.Clock.Now(),
		UpdatedAt:      h.Clock.Now(),
	}
	require.NoError(t, h.SettlementRepo.Insert(ctx, h.DB, staged))

	summary, err := h.Settlements.RecoverStaged(ctx, 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Scanned, "fresh batches are left to their caller")

	h.Clock.Advance(10 * time.Minute)
	summary, err = h.Settlements.RecoverStaged(ctx, 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Recovered)

	stored := h.Account(t, account.ID)
	assert.Equal(t, "640", stored.CurrentBalance.String())
	assert.Equal(t, "60", stored.RebateReceivable.String())

	batch, err := h.SettlementRepo.FindByID(ctx, h.DB, staged.ID)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, domain.BatchStatusApplied, batch.Status)

	summary, err = h.Settlements.RecoverStaged(ctx, 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Scanned)

	retry, err := h.Settlements.Settle(ctx, domain.SettleRequest{AdAccountID: account.ID, Month: "2024-03", ConsumptionIDs: ids})
	require.NoError(t, err)
	assert.True(t, retry.Replayed)
	assert.Equal(t, "640", h.Account(t, account.ID).CurrentBalance.String())
}

func TestDedupeKeyIgnoresOrder(t *testing.T) {
	a := domain.DedupeKey(1, "2024-03", []snowflake.ID{3, 1, 2})
	b := domain.DedupeKey(1, "2024-03", []snowflake.ID{1, 2, 3})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, domain.DedupeKey(1, "2024-04", []snowflake.ID{1, 2, 3}))
	assert.NotEqual(t, a, domain.DedupeKey(2, "2024-03", []snowflake.ID{1, 2, 3}))
}
