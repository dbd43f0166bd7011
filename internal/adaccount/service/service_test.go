package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/adledger/internal/adaccount/domain"
	"github.com/smallbiznis/adledger/internal/adaccount/repository"
	agencydomain "github.com/smallbiznis/adledger/internal/agency/domain"
	agencyrepository "github.com/smallbiznis/adledger/internal/agency/repository"
	"github.com/smallbiznis/adledger/internal/clock"
	"github.com/smallbiznis/adledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, domain.Service, agencydomain.Agency) {
	t.Helper()
	db := testutil.OpenDB(t, &agencydomain.Agency{}, &domain.AdAccount{})
	node := testutil.Node(t)
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

	agency := agencydomain.Agency{
		ID:                 node.Generate(),
		Code:               "blue-ocean",
		Name:               "Blue Ocean",
		Platform:           agencydomain.PlatformFacebook,
		RebateRate:         decimal.NewFromInt(10),
		RebatePeriod:       agencydomain.RebatePeriodMonthly,
		SettlementCurrency: "USD",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, db.Create(&agency).Error)

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(now),
		Repo:       repository.Provide(),
		AgencyRepo: agencyrepository.Provide(),
	})
	return db, svc, agency
}

func TestCreateAdAccountInheritsCurrency(t *testing.T) {
	_, svc, agency := setup(t)

	account, err := svc.Create(context.Background(), domain.CreateAdAccountRequest{
		AgencyID: agency.ID,
		Name:     "Spring Campaigns",
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", account.Currency)
	assert.True(t, account.CurrentBalance.IsZero())
	assert.True(t, account.RebateReceivable.IsZero())
	assert.Equal(t, "Blue Ocean", account.AgencyName)
}

func TestCreateAdAccountRequiresAgency(t *testing.T) {
	_, svc, agency := setup(t)

	_, err := svc.Create(context.Background(), domain.CreateAdAccountRequest{AgencyID: agency.ID + 99, Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidAgency)

	_, err = svc.Create(context.Background(), domain.CreateAdAccountRequest{AgencyID: agency.ID, Name: "x", CreditLimit: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidCreditLimit)
}

func TestAgencyRenameIsVisibleWithoutCascade(t *testing.T) {
	db, svc, agency := setup(t)
	ctx := context.Background()

	account, err := svc.Create(ctx, domain.CreateAdAccountRequest{AgencyID: agency.ID, Name: "Main"})
	require.NoError(t, err)

	require.NoError(t, db.Model(&agencydomain.Agency{}).Where("id = ?", agency.ID).Update("name", "Blue Ocean Digital").Error)

	got, err := svc.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue Ocean Digital", got.AgencyName)

	list, err := svc.List(ctx, domain.ListAdAccountRequest{AgencyID: agency.ID})
	require.NoError(t, err)
	require.Len(t, list.AdAccounts, 1)
	assert.Equal(t, "Blue Ocean Digital", list.AdAccounts[0].AgencyName)
}

func TestGetAdAccountNotFound(t *testing.T) {
	_, svc, agency := setup(t)
	_, err := svc.GetByID(context.Background(), agency.ID+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
