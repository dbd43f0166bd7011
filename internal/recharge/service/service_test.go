package service_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	adaccountdomain "github.com/smallbiznis/adledger/internal/adaccount/domain"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	billdomain "github.com/smallbiznis/adledger/internal/bill/domain"
	rebatedomain "github.com/smallbiznis/adledger/internal/rebate/domain"
	"github.com/smallbiznis/adledger/internal/recharge/domain"
	"github.com/smallbiznis/adledger/internal/testutil/ledgertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func billsOf(t *testing.T, h *ledgertest.Harness, category billdomain.BillCategory) []billdomain.MonthlyBill {
	t.Helper()
	resp, err := h.Bills.List(context.Background(), billdomain.ListBillRequest{Category: category, PageSize: 50})
	require.NoError(t, err)
	return resp.Bills
}

func TestCreateRechargeAccruesRebateAndBills(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")

	result := h.Recharge(t, account.ID, "1000")
	assert.Equal(t, "100", result.Recharge.RebateAmount.String())
	assert.Equal(t, "10", result.Recharge.RebateRate.String())
	assert.Equal(t, "2024-03", result.Recharge.Month)
	assert.Equal(t, domain.PaymentStatusPaid, result.Recharge.PaymentStatus)
	require.NotNil(t, result.Receivable)
	assert.Equal(t, rebatedomain.ReceivableStatusPendingWriteoff, result.Receivable.Status)
	assert.Equal(t, "1000", result.CurrentBalance.String())
	assert.Equal(t, "100", result.RebateReceivable.String())

	stored := h.Account(t, account.ID)
	assert.Equal(t, "1000", stored.CurrentBalance.String())
	assert.Equal(t, "100", stored.RebateReceivable.String())

	payables := billsOf(t, h, billdomain.BillCategoryPayable)
	require.Len(t, payables, 1)
	assert.Equal(t, billdomain.BillTypeAdvertising, payables[0].Type)
	assert.Equal(t, "1000", payables[0].TotalAmount.String())
	assert.Equal(t, "100", payables[0].RebateAmount.String())
	assert.Equal(t, "1000", payables[0].NetAmount.String())

	receivables := billsOf(t, h, billdomain.BillCategoryReceivable)
	require.Len(t, receivables, 1)
	assert.Equal(t, billdomain.BillTypeAdvertisingRebate, receivables[0].Type)
	assert.Equal(t, "100", receivables[0].NetAmount.String())

	second := h.Recharge(t, account.ID, "500")
	assert.Equal(t, "1500", second.CurrentBalance.String())
	assert.Equal(t, "150", second.RebateReceivable.String())

	payables = billsOf(t, h, billdomain.BillCategoryPayable)
	require.Len(t, payables, 1)
	assert.Equal(t, "1500", payables[0].TotalAmount.String())
	assert.Len(t, payables[0].RechargeIDs, 2)
}

func TestCreateRechargeWithoutAgencyHasNoRebate(t *testing.T) {
	h := ledgertest.New(t)
	ctx := context.Background()

	orphan := &adaccountdomain.AdAccount{
		ID:               h.Node.Generate(),
		AgencyID:         h.Node.Generate(),
		Name:             "orphan",
		Currency:         "USD",
		CurrentBalance:   decimal.Zero,
		RebateReceivable: decimal.Zero,
		CreditLimit:      decimal.Zero,
		CreatedAt:        h.Clock.Now(),
		UpdatedAt:        h.Clock.Now(),
	}
	require.NoError(t, h.AccountRepo.Insert(ctx, h.DB, orphan))

	result := h.Recharge(t, orphan.ID, "300")
	assert.True(t, result.Recharge.RebateAmount.IsZero())
	assert.Nil(t, result.Receivable)
	assert.Equal(t, "300", h.Account(t, orphan.ID).CurrentBalance.String())

	assert.Len(t, billsOf(t, h, billdomain.BillCategoryPayable), 1)
	assert.Empty(t, billsOf(t, h, billdomain.BillCategoryReceivable))
}

func TestCreateRechargeValidation(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateRechargeRequest
		err  error
	}{
		{"missing account", domain.CreateRechargeRequest{Amount: decimal.NewFromInt(1)}, domain.ErrInvalidAccount},
		{"zero amount", domain.CreateRechargeRequest{AdAccountID: account.ID}, domain.ErrInvalidAmount},
		{"negative amount", domain.CreateRechargeRequest{AdAccountID: account.ID, Amount: decimal.NewFromInt(-5)}, domain.ErrInvalidAmount},
		{"unknown account", domain.CreateRechargeRequest{AdAccountID: h.Node.Generate(), Amount: decimal.NewFromInt(1)}, domain.ErrAccountNotFound},
		{"currency mismatch", domain.CreateRechargeRequest{AdAccountID: account.ID, Amount: decimal.NewFromInt(1), Currency: "EUR"}, domain.ErrCurrencyMismatch},
		{"bad currency", domain.CreateRechargeRequest{AdAccountID: account.ID, Amount: decimal.NewFromInt(1), Currency: "US"}, domain.ErrInvalidCurrency},
		{"created cancelled", domain.CreateRechargeRequest{AdAccountID: account.ID, Amount: decimal.NewFromInt(1), PaymentStatus: domain.PaymentStatusCancelled}, domain.ErrInvalidPaymentStatus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Recharges.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	stored := h.Account(t, account.ID)
	assert.True(t, stored.CurrentBalance.IsZero())
}

func TestUpdatePaymentStatusCancelReconcilesAccount(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	h.Recharge(t, account.ID, "1000")
	cancelled := h.Recharge(t, account.ID, "500")
	assert.Equal(t, "1500", h.Account(t, account.ID).CurrentBalance.String())

	updated, err := h.Recharges.UpdatePaymentStatus(ctx, domain.UpdatePaymentStatusRequest{
		ID:     cancelled.Recharge.ID,
		Status: domain.PaymentStatusCancelled,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCancelled, updated.PaymentStatus)

	stored := h.Account(t, account.ID)
	assert.Equal(t, "1000", stored.CurrentBalance.String())
	assert.Equal(t, "100", stored.RebateReceivable.String())

	_, err = h.Recharges.UpdatePaymentStatus(ctx, domain.UpdatePaymentStatusRequest{
		ID:     cancelled.Recharge.ID,
		Status: domain.PaymentStatusPaid,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdatePaymentStatusPendingToPaid(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "5", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	created, err := h.Recharges.Create(ctx, domain.CreateRechargeRequest{
		AdAccountID:   account.ID,
		Amount:        decimal.NewFromInt(200),
		PaymentStatus: domain.PaymentStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, created.Recharge.PaymentStatus)

	updated, err := h.Recharges.UpdatePaymentStatus(ctx, domain.UpdatePaymentStatusRequest{
		ID:     created.Recharge.ID,
		Status: domain.PaymentStatusPaid,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, updated.PaymentStatus)

	got, err := h.Recharges.GetByID(ctx, created.Recharge.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, "200", h.Account(t, account.ID).CurrentBalance.String())

	_, err = h.Recharges.UpdatePaymentStatus(ctx, domain.UpdatePaymentStatusRequest{ID: h.Node.Generate(), Status: domain.PaymentStatusPaid})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.Recharges.UpdatePaymentStatus(ctx, domain.UpdatePaymentStatusRequest{ID: created.Recharge.ID, Status: "refunded"})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentStatus)
}

func TestCancelRechargeClosesReceivableAndRetractsBills(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	cancelled := h.Recharge(t, account.ID, "1000")
	_, err := h.Recharges.UpdatePaymentStatus(ctx, domain.UpdatePaymentStatusRequest{
		ID:     cancelled.Recharge.ID,
		Status: domain.PaymentStatusCancelled,
	})
	require.NoError(t, err)

	stored := h.Account(t, account.ID)
	assert.True(t, stored.CurrentBalance.IsZero())
	assert.True(t, stored.RebateReceivable.IsZero())

	items, err := h.Rebates.ListByAccount(ctx, nil, account.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, rebatedomain.ReceivableStatusVoided, items[0].Status)
	assert.True(t, items[0].CurrentBalance.IsZero())

	payables := billsOf(t, h, billdomain.BillCategoryPayable)
	require.Len(t, payables, 1)
	assert.True(t, payables[0].TotalAmount.IsZero())
	assert.True(t, payables[0].RebateAmount.IsZero())
	assert.Empty(t, payables[0].RechargeIDs)

	receivables := billsOf(t, h, billdomain.BillCategoryReceivable)
	require.Len(t, receivables, 1)
	assert.True(t, receivables[0].NetAmount.IsZero())
	assert.Empty(t, receivables[0].RechargeIDs)

	live := h.Recharge(t, account.ID, "2000")
	require.NotNil(t, live.Receivable)

	consumed := h.Consume(t, account.ID, "1100")
	require.Len(t, consumed.Writeoff.Applied, 1)
	assert.Equal(t, live.Receivable.ID, consumed.Writeoff.Applied[0].ReceivableID)
	assert.Equal(t, "100", consumed.Writeoff.Applied[0].Amount.String())
	assert.Equal(t, "100", consumed.Writeoff.Applied[0].RemainingBalance.String())

	payables = billsOf(t, h, billdomain.BillCategoryPayable)
	require.Len(t, payables, 1)
	assert.Equal(t, "2000", payables[0].TotalAmount.String())
	assert.Equal(t, "200", payables[0].RebateAmount.String())
	assert.Equal(t, []snowflake.ID{live.Recharge.ID}, []snowflake.ID(payables[0].RechargeIDs))
}

func TestCancelRechargeRefusedOnceBillLeftDraft(t *testing.T) {
	h := ledgertest.New(t)
	_, account := h.Seed(t, "10", agencydomain.RebatePeriodMonthly, "")
	ctx := context.Background()

	created := h.Recharge(t, account.ID, "1000")
	payables := billsOf(t, h, billdomain.BillCategoryPayable)
	require.Len(t, payables, 1)
	require.NoError(t, h.DB.Model(&billdomain.MonthlyBill{}).
		Where("id = ?", payables[0].ID).
		Update("status", billdomain.BillStatusPending).Error)

	_, err := h.Recharges.UpdatePaymentStatus(ctx, domain.UpdatePaymentStatusRequest{
		ID:     created.Recharge.ID,
		Status: domain.PaymentStatusCancelled,
	})
	assert.ErrorIs(t, err, billdomain.ErrBillNotDraft)

	got, err := h.Recharges.GetByID(ctx, created.Recharge.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, got.PaymentStatus)

	items, err := h.Rebates.ListByAccount(ctx, nil, account.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, rebatedomain.ReceivableStatusPendingWriteoff, items[0].Status)
	assert.Equal(t, "1000", h.Account(t, account.ID).CurrentBalance.String())
}
