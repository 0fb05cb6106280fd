package projects

import (
	"context"
	"testing"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions"
	testhelpers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = testhelpers.TestUserID

type fixedBase string

func (b fixedBase) BaseCurrency(context.Context, string) string { return string(b) }

func newService(t *testing.T) (*Service, *transactions.Repository) {
	t.Helper()
	db := testhelpers.NewTestDB(t, "ledger")
	log := zerolog.Nop()

	ledger := transactions.NewRepository(db.Conn(), log)
	rates := currency.NewService(testhelpers.StaticRates{"USD": 1, "EUR": 0.5}, log)
	return NewService(NewRepository(db.Conn(), log), ledger, rates, fixedBase("USD"), nil, log), ledger
}

func TestService_CRUD(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	start := testhelpers.FixedDate()
	end := start.AddDays(6)

	p, err := svc.Create(ctx, user, ProjectRequest{Name: " Lisbon ", Type: domain.ProjectTypeTrip, StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", p.Name)
	assert.Equal(t, domain.ProjectStatusPlanning, p.Status)

	got, err := svc.Get(ctx, user, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, end.String(), got.EndDate.String())

	_, err = svc.Get(ctx, "someone-else", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	updated, err := svc.Update(ctx, user, p.ID, ProjectRequest{Name: "Porto", Status: domain.ProjectStatusActive, Budget: testhelpers.FloatPtr(300)})
	require.NoError(t, err)
	assert.Nil(t, updated.StartDate)
	assert.Equal(t, domain.ProjectTypeOther, updated.Type)

	list, err := svc.List(ctx, user)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, user, p.ID))
	assert.ErrorIs(t, svc.Delete(ctx, user, p.ID), domain.ErrNotFound)
}

func TestService_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	start := testhelpers.FixedDate()
	before := start.AddDays(-1)

	for name, req := range map[string]ProjectRequest{
		"no name":     {Type: domain.ProjectTypeTrip},
		"bad type":    {Name: "x", Type: "HOLIDAY"},
		"bad status":  {Name: "x", Status: "DONE"},
		"end < start": {Name: "x", StartDate: &start, EndDate: &before},
		"neg budget":  {Name: "x", Budget: testhelpers.FloatPtr(-1)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, user, req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestService_StatsAndDetach(t *testing.T) {
	svc, ledger := newService(t)
	ctx := context.Background()
	start := testhelpers.FixedDate()
	end := start.AddDays(9)

	p, err := svc.Create(ctx, user, ProjectRequest{Name: "Trip", StartDate: &start, EndDate: &end, Budget: testhelpers.FloatPtr(1000)})
	require.NoError(t, err)

	for _, amount := range []float64{200, 300} {
		tx := testhelpers.NewTransactionFixture(domain.TransactionTypeExpense, amount, "acct", start)
		tx.ProjectID = p.ID
		require.NoError(t, ledger.Create(ctx, tx))
	}
	eur := testhelpers.NewTransactionFixture(domain.TransactionTypeIncome, 50, "acct", start)
	eur.Currency = "EUR"
	eur.ProjectID = p.ID
	require.NoError(t, ledger.Create(ctx, eur))

	stats, err := svc.Stats(ctx, user, p.ID, end.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, "USD", stats.Currency)
	assert.InDelta(t, 400, stats.TotalCost, 1e-9) // 500 - 50 EUR as 100 USD
	assert.InDelta(t, 40, stats.DailyCost, 1e-9)
	require.NotNil(t, stats.BudgetUtilization)
	assert.InDelta(t, 50, *stats.BudgetUtilization, 1e-9)
	assert.False(t, stats.RatesDegraded)

	byProject, err := svc.AmortizedOn(ctx, user, start.AddDays(3), end.AddDays(1), currency.IdentityConverter("USD"))
	require.NoError(t, err)
	assert.InDelta(t, 45, byProject[p.ID], 1e-9)

	txs, err := svc.Transactions(ctx, user, p.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 3)

	require.NoError(t, svc.Delete(ctx, user, p.ID))
	rows, err := ledger.List(ctx, user, transactions.Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	for _, tx := range rows {
		assert.Empty(t, tx.ProjectID)
	}
}
