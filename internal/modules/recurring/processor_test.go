package recurring

import (
	"context"
	"testing"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/accounts"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/categories"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions"
	testhelpers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = testhelpers.TestUserID

type fixture struct {
	svc      *Service
	accounts *accounts.Service
	ledger   *transactions.Service
	bus      *events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testhelpers.NewTestDB(t, "ledger")
	log := zerolog.Nop()
	bus := events.NewBus(log)

	acctSvc := accounts.NewService(db.Conn(), accounts.NewRepository(db.Conn(), log), nil, nil, log)
	txRepo := transactions.NewRepository(db.Conn(), log)
	ledger := transactions.NewService(db.Conn(), txRepo, categories.NewRepository(db.Conn(), log), acctSvc, nil, nil, log)
	repo := NewRepository(db.Conn(), log)
	processor := NewProcessor(db.Conn(), repo, ledger, bus, log)
	return &fixture{
		svc:      NewService(repo, processor, txRepo, bus, log),
		accounts: acctSvc,
		ledger:   ledger,
		bus:      bus,
	}
}

func (f *fixture) account(t *testing.T, initial float64) *domain.Account {
	t.Helper()
	acct, err := f.accounts.Create(context.Background(), user, accounts.CreateRequest{Name: "Bank", Currency: "USD", InitialBalance: initial})
	require.NoError(t, err)
	return acct
}

func TestProcessDue_FiresOncePerRule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, 500)
	first := domain.NewDate(2024, time.January, 5)
	today := domain.NewDate(2024, time.March, 20)

	var fired []*events.Event
	f.bus.Subscribe(events.RecurringProcessed, func(e *events.Event) { fired = append(fired, e) })

	rule, err := f.svc.Create(ctx, user, RuleRequest{
		Name: "Rent", Amount: 100, Currency: "usd", AccountID: acct.ID,
		Frequency: domain.FrequencyMonthly, NextRun: &first,
	})
	require.NoError(t, err)
	assert.True(t, rule.Active)
	assert.Equal(t, 1, rule.Interval)

	result, err := f.svc.Process(ctx, user, today)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RulesFired)
	require.Len(t, result.Transactions, 1)

	posted := result.Transactions[0]
	assert.Equal(t, first.String(), posted.Date.String())
	assert.Equal(t, domain.SourceRecurring, posted.Source)
	assert.Equal(t, "Rent", posted.Note)

	stored, err := f.svc.Get(ctx, user, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-05", stored.NextRun.String())
	assert.True(t, stored.NextRun.After(today))

	got, err := f.accounts.Get(ctx, user, acct.ID)
	require.NoError(t, err)
	assert.InDelta(t, 400, got.CurrentBalance, 1e-9)
	assert.Len(t, fired, 1)

	// a second run the same day has nothing due
	again, err := f.svc.Process(ctx, user, today)
	require.NoError(t, err)
	assert.Zero(t, again.RulesFired)
}

func TestProcessDue_SkipsInactiveAndFuture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.account(t, 0)
	today := domain.NewDate(2024, time.June, 1)
	past := today.AddDays(-3)
	future := today.AddDays(3)
	inactive := false

	_, err := f.svc.Create(ctx, user, RuleRequest{Amount: 10, Currency: "USD", Frequency: domain.FrequencyWeekly, NextRun: &past, Active: &inactive})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, user, RuleRequest{Amount: 10, Currency: "USD", Frequency: domain.FrequencyWeekly, NextRun: &future})
	require.NoError(t, err)

	result, err := f.svc.Process(ctx, user, today)
	require.NoError(t, err)
	assert.Zero(t, result.RulesFired)
}

func TestProcessDue_AllUsersAndDefaultAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acct := f.account(t, 0)
	today := domain.NewDate(2024, time.June, 1)

	_, err := f.svc.Create(ctx, user, RuleRequest{Type: domain.TransactionTypeIncome, Amount: 1000, Currency: "USD", Frequency: domain.FrequencyMonthly, NextRun: &today})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "other-user", RuleRequest{Amount: 5, Currency: "USD", Frequency: domain.FrequencyWeekly, NextRun: &today})
	require.NoError(t, err)

	job := NewJob(f.svc.processor, zerolog.Nop())
	job.now = func() domain.Date { return today }
	require.NoError(t, job.Run())
	assert.Equal(t, int64(1), job.Status().Runs)

	got, err := f.accounts.Get(ctx, user, acct.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1000, got.CurrentBalance, 1e-9)

	rows, err := f.ledger.List(ctx, "other-user", transactions.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].AccountID)
}

func TestService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for name, req := range map[string]RuleRequest{
		"transfer":     {Type: domain.TransactionTypeTransfer, Amount: 1, Currency: "USD", Frequency: domain.FrequencyWeekly},
		"zero amount":  {Amount: 0, Currency: "USD", Frequency: domain.FrequencyWeekly},
		"bad currency": {Amount: 1, Currency: "US", Frequency: domain.FrequencyWeekly},
		"daily":        {Amount: 1, Currency: "USD", Frequency: "DAILY"},
		"neg interval": {Amount: 1, Currency: "USD", Frequency: domain.FrequencyWeekly, Interval: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, user, req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := f.svc.Create(ctx, user, RuleRequest{Amount: 1, Currency: "USD", Frequency: domain.FrequencyWeekly, AccountID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_UpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rule, err := f.svc.Create(ctx, user, RuleRequest{Name: "Gym", Amount: 40, Currency: "EUR", Frequency: domain.FrequencyMonthly})
	require.NoError(t, err)
	next := rule.NextRun

	updated, err := f.svc.Update(ctx, user, rule.ID, RuleRequest{Name: "Gym", Amount: 45, Currency: "EUR", Frequency: domain.FrequencyYearly})
	require.NoError(t, err)
	assert.Equal(t, 45.0, updated.Amount)
	assert.Equal(t, next.String(), updated.NextRun.String())
	assert.True(t, updated.Active)

	_, err = f.svc.Update(ctx, "intruder", rule.ID, RuleRequest{Amount: 1, Currency: "EUR", Frequency: domain.FrequencyYearly})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, user, rule.ID))
	list, err := f.svc.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, list)
}
