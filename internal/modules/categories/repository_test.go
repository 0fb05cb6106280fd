package categories

import (
	"context"
	"testing"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	testhelpers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testhelpers.NewTestDB(t, "ledger")
	return NewService(db.Conn(), NewRepository(db.Conn(), zerolog.Nop()), events.NewBus(zerolog.Nop()), zerolog.Nop())
}

func TestList_SeedsDefaultsOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, first, len(defaultCategories))

	second, err := svc.List(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, second, len(defaultCategories))

	names := map[string]bool{}
	for _, c := range first {
		names[c.Name] = true
		assert.True(t, c.IsDefault)
	}
	for _, name := range []string{Depreciation, InvestmentGain, InvestmentLoss, TransferFee} {
		assert.True(t, names[name], name)
	}

	other, err := svc.List(ctx, "u2", domain.CategoryTypeIncome)
	require.NoError(t, err)
	for _, c := range other {
		assert.Equal(t, "u2", c.UserID)
		assert.Equal(t, domain.CategoryTypeIncome, c.Type)
	}
}

func TestFindOrCreate(t *testing.T) {
	svc := newTestService(t)
	repo := svc.Repository()
	ctx := context.Background()

	a, err := repo.FindOrCreate(ctx, "u1", "Pets", domain.CategoryTypeExpense)
	require.NoError(t, err)
	b, err := repo.FindOrCreate(ctx, "u1", " Pets ", domain.CategoryTypeExpense)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	income, err := repo.FindOrCreate(ctx, "u1", "Pets", domain.CategoryTypeIncome)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, income.ID)
}

func TestCreate_DuplicateRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", "Pets", "", domain.CategoryTypeExpense)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", "Pets", "", domain.CategoryTypeExpense)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, "u1", "Bad", "", "NEITHER")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	custom, err := svc.Create(ctx, "u1", "Pets", "", domain.CategoryTypeExpense)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "u2", custom.ID), domain.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "u1", custom.ID))

	_, err = svc.List(ctx, "u1", "")
	require.NoError(t, err)
	seeded, err := svc.Repository().FindByName(ctx, "u1", TransferFee, domain.CategoryTypeExpense)
	require.NoError(t, err)
	require.NotNil(t, seeded)
	assert.ErrorIs(t, svc.Delete(ctx, "u1", seeded.ID), domain.ErrValidation)
}
