package accounts

import (
	"context"
	"database/sql"
	"testing"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	testhelpers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/testing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPreference string

func (f fixedPreference) DefaultAccountID(context.Context, string) (string, error) {
	return string(f), nil
}

func newTestService(t *testing.T, prefs DefaultPreference) (*Service, *sql.DB) {
	t.Helper()
	db := testhelpers.NewTestDB(t, "ledger")
	repo := NewRepository(db.Conn(), zerolog.Nop())
	return NewService(db.Conn(), repo, prefs, events.NewBus(zerolog.Nop()), zerolog.Nop()), db.Conn()
}

func insertTx(t *testing.T, db *sql.DB, txType domain.TransactionType, amount float64, from, to string, target *float64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO transactions (id, user_id, type, amount, currency, date, account_id, transfer_to_account_id, target_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'USD', '2024-01-01', ?, NULLIF(?, ''), ?, 0, 0)
	`, uuid.NewString(), testhelpers.TestUserID, txType, amount, from, to, target)
	require.NoError(t, err)
}

func TestService_CreateFirstAccountBecomesDefault(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, testhelpers.TestUserID, CreateRequest{Name: "Checking", Currency: "usd", InitialBalance: 10})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, 10.0, first.CurrentBalance)

	second, err := svc.Create(ctx, testhelpers.TestUserID, CreateRequest{Name: "Savings", Currency: "USD"})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Create(context.Background(), "u1", CreateRequest{Name: "", Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(context.Background(), "u1", CreateRequest{Name: "X", Currency: "DOLLARS"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(context.Background(), "u1", CreateRequest{Name: "X", Currency: "USD", Type: "PIGGY"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_SetDefaultKeepsExactlyOne(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	user := testhelpers.TestUserID

	a, err := svc.Create(ctx, user, CreateRequest{Name: "A", Currency: "USD"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, user, CreateRequest{Name: "B", Currency: "USD"})
	require.NoError(t, err)
	c, err := svc.Create(ctx, user, CreateRequest{Name: "C", Currency: "USD", IsDefault: true})
	require.NoError(t, err)

	for _, id := range []string{b.ID, a.ID, c.ID, b.ID} {
		_, err := svc.SetDefault(ctx, user, id)
		require.NoError(t, err)

		list, err := svc.List(ctx, user)
		require.NoError(t, err)
		defaults := 0
		for _, acct := range list {
			if acct.IsDefault {
				defaults++
				assert.Equal(t, id, acct.ID)
			}
		}
		assert.Equal(t, 1, defaults)
	}
}

func TestService_SetDefaultOtherUserNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, "owner", CreateRequest{Name: "A", Currency: "USD"})
	require.NoError(t, err)

	_, err = svc.SetDefault(ctx, "intruder", a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_RecalculateIncomeExpense(t *testing.T) {
	svc, db := newTestService(t, nil)
	ctx := context.Background()

	acct, err := svc.Create(ctx, testhelpers.TestUserID, CreateRequest{Name: "A", Currency: "USD"})
	require.NoError(t, err)
	insertTx(t, db, domain.TransactionTypeIncome, 100, acct.ID, "", nil)
	insertTx(t, db, domain.TransactionTypeExpense, 30, acct.ID, "", nil)

	balance, err := svc.Recalculate(ctx, testhelpers.TestUserID, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, balance)

	// idempotent
	again, err := svc.Recalculate(ctx, testhelpers.TestUserID, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, balance, again)

	stored, err := svc.Get(ctx, testhelpers.TestUserID, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, stored.CurrentBalance)
}

func TestService_RecalculateManyCrossCurrencyTransfer(t *testing.T) {
	svc, db := newTestService(t, nil)
	ctx := context.Background()
	user := testhelpers.TestUserID

	usd, err := svc.Create(ctx, user, CreateRequest{Name: "USD", Currency: "USD"})
	require.NoError(t, err)
	eur, err := svc.Create(ctx, user, CreateRequest{Name: "EUR", Currency: "EUR"})
	require.NoError(t, err)

	insertTx(t, db, domain.TransactionTypeIncome, 100, usd.ID, "", nil)
	insertTx(t, db, domain.TransactionTypeTransfer, 100, usd.ID, eur.ID, testhelpers.FloatPtr(92))

	require.NoError(t, svc.RecalculateMany(ctx, user, usd.ID, eur.ID, usd.ID, ""))

	gotUSD, err := svc.Get(ctx, user, usd.ID)
	require.NoError(t, err)
	gotEUR, err := svc.Get(ctx, user, eur.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, gotUSD.CurrentBalance)
	assert.Equal(t, 92.0, gotEUR.CurrentBalance)
}

func TestService_RecalculateMissingAccount(t *testing.T) {
	svc, _ := newTestService(t, nil)

	balance, err := svc.Recalculate(context.Background(), "u1", "does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, 0.0, balance)
}

func TestService_UpdateInitialBalanceRecalculates(t *testing.T) {
	svc, db := newTestService(t, nil)
	ctx := context.Background()
	user := testhelpers.TestUserID

	acct, err := svc.Create(ctx, user, CreateRequest{Name: "A", Currency: "USD"})
	require.NoError(t, err)
	insertTx(t, db, domain.TransactionTypeExpense, 5, acct.ID, "", nil)

	initial := 50.0
	updated, err := svc.Update(ctx, user, acct.ID, UpdateRequest{InitialBalance: &initial})
	require.NoError(t, err)
	assert.Equal(t, 45.0, updated.CurrentBalance)
}

func TestService_DeleteRejectsAccountWithTransactions(t *testing.T) {
	svc, db := newTestService(t, nil)
	ctx := context.Background()
	user := testhelpers.TestUserID

	used, err := svc.Create(ctx, user, CreateRequest{Name: "Used", Currency: "USD"})
	require.NoError(t, err)
	unused, err := svc.Create(ctx, user, CreateRequest{Name: "Unused", Currency: "USD"})
	require.NoError(t, err)
	insertTx(t, db, domain.TransactionTypeIncome, 1, used.ID, "", nil)

	assert.ErrorIs(t, svc.Delete(ctx, user, used.ID), domain.ErrValidation)
	require.NoError(t, svc.Delete(ctx, user, unused.ID))

	_, err = svc.Get(ctx, user, unused.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ResolveDefault(t *testing.T) {
	ctx := context.Background()
	user := testhelpers.TestUserID

	t.Run("flagged default when no preference", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		acct, err := svc.Create(ctx, user, CreateRequest{Name: "A", Currency: "USD"})
		require.NoError(t, err)

		got, err := svc.ResolveDefault(ctx, user)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, acct.ID, got.ID)
	})

	t.Run("stale preference falls back", func(t *testing.T) {
		svc, _ := newTestService(t, fixedPreference("gone"))
		acct, err := svc.Create(ctx, user, CreateRequest{Name: "A", Currency: "USD"})
		require.NoError(t, err)

		got, err := svc.ResolveDefault(ctx, user)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, acct.ID, got.ID)
	})

	t.Run("no accounts", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		got, err := svc.ResolveDefault(ctx, user)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Dedupe([]string{"a", "", "b", "a"}))
	assert.Empty(t, Dedupe(nil))
}
