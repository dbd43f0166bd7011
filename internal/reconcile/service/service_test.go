package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	"github.com/smallbiznis/adledger/internal/reconcile/domain"
	"github.com/smallbiznis/adledger/internal/testutil/ledgertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileAccountCorrectsDrift(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	h.Recharge(t, account.ID, "1000")
	h.Consume(t, account.ID, "909.09")

	require.NoError(t, h.AccountRepo.UpdateBalances(ctx, h.DB, account.ID,
		decimal.RequireFromString("75"), decimal.RequireFromString("130"), h.Clock.Now()))

	result, err := h.Reconciler.ReconcileAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, result.Drifted)
	assert.Equal(t, "75", result.Before.CurrentBalance.String())
	assert.Equal(t, "90.91", result.After.CurrentBalance.String())
	assert.Equal(t, "100", result.After.RebateReceivable.String())

	stored := h.Account(t, account.ID)
	assert.Equal(t, "90.91", stored.CurrentBalance.String())
	assert.Equal(t, "100", stored.RebateReceivable.String())

	again, err := h.Reconciler.ReconcileAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, again.Drifted)
}

func TestReconcileAccountToleratesEpsilon(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	h.Recharge(t, account.ID, "1000")
	require.NoError(t, h.AccountRepo.UpdateBalances(ctx, h.DB, account.ID,
		decimal.RequireFromString("1000.005"), decimal.RequireFromString("100"), h.Clock.Now()))

	result, err := h.Reconciler.ReconcileAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, result.Drifted)
	assert.Equal(t, "1000.005", h.Account(t, account.ID).CurrentBalance.String())
}

func TestReconcileAccountErrors(t *testing.T) {
	h := ledgertest.New(t)
	ctx := context.Background()

	_, err := h.Reconciler.ReconcileAccount(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAccount)
	_, err = h.Reconciler.ReconcileAccount(ctx, h.Node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReconcileAllWalksEveryAccount(t *testing.T) {
	h := ledgertest.New(t)
	ctx := context.Background()

	var drifted int
	for i := 0; i < 5; i++ {
		_, account := h.Seed(t, "5", agencydomain.RebatePeriodMonthly, "")
		h.Recharge(t, account.ID, "200")
		if i%2 == 0 {
			require.NoError(t, h.AccountRepo.UpdateBalances(ctx, h.DB, account.ID,
				decimal.Zero, decimal.Zero, h.Clock.Now()))
			drifted++
		}
	}

	summary, err := h.Reconciler.ReconcileAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Scanned)
	assert.Equal(t, drifted, summary.Corrected)
	assert.Zero(t, summary.Failed)

	summary, err = h.Reconciler.ReconcileAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Scanned)
	assert.Zero(t, summary.Corrected)
}
