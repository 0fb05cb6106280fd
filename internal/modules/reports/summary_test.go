package reports

import (
	"fmt"
	"testing"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency"
	testhelpers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holding(name string, value float64, status domain.InvestmentStatus) domain.Investment {
	return domain.Investment{
		ID: name, Name: name, Type: domain.InvestmentTypeOther, Status: status,
		Currency: "USD", InitialAmount: value, Details: domain.OtherDetails{},
	}
}

func TestSummarize(t *testing.T) {
	today := domain.NewDate(2024, time.March, 15)
	usd := cashAccount(1000)
	eur := cashAccount(100)
	eur.Currency = "EUR"
	broker := cashAccount(500)
	broker.Type = domain.AccountTypeInvestment

	asset := testhelpers.NewAssetFixture(3650, 0, 10, domain.DepreciationStraightLine, today.AddDays(-10))
	invs := []domain.Investment{*asset, holding("closed", 9999, domain.InvestmentStatusClosed)}
	for i := 1; i <= 5; i++ {
		invs = append(invs, holding(fmt.Sprintf("h%d", i), float64(i*100), domain.InvestmentStatusActive))
	}

	food := tx(domain.TransactionTypeExpense, 60, usd.ID, today.AddDays(-2))
	food.CategoryName = "Food"
	rent := tx(domain.TransactionTypeExpense, 140, usd.ID, today.AddDays(-1))
	rent.CategoryName = "Rent"
	misc := tx(domain.TransactionTypeExpense, 50, usd.ID, today)
	excluded := tx(domain.TransactionTypeExpense, 999, usd.ID, today)
	excluded.ExcludeFromAnalytics = true
	old := tx(domain.TransactionTypeExpense, 300, usd.ID, domain.NewDate(2024, time.January, 3))
	salary := tx(domain.TransactionTypeIncome, 1000, usd.ID, today.AddDays(-5))
	transfer := *testhelpers.NewTransferFixture(50, usd.ID, broker.ID, nil, today)

	s := Summarize(SummaryInput{
		Today:        today,
		Converter:    currency.NewConverter(domain.RateTable{"USD": 1, "EUR": 0.5}, "USD"),
		Accounts:     []domain.Account{usd, eur, broker},
		Transactions: []domain.Transaction{food, rent, misc, excluded, old, salary, transfer},
		Investments:  invs,
		DailyBurn:    []float64{10, 20, 30},
	})

	assert.Equal(t, "USD", s.Currency)
	assert.False(t, s.RatesDegraded)
	assert.InDelta(t, 1200, s.TotalCash, 1e-9)
	assert.InDelta(t, 500+1500, s.FinancialInvestments, 1e-9)
	assert.InDelta(t, 3640, s.FixedAssets, 1e-6)
	assert.InDelta(t, 1200+2000+3640, s.NetWorth, 1e-6)

	assert.InDelta(t, 1000, s.ThisMonth.Income, 1e-9)
	assert.InDelta(t, 250, s.ThisMonth.Expense, 1e-9)
	assert.InDelta(t, 550, s.AllTime.Expense, 1e-9)
	assert.InDelta(t, 450, s.AllTime.Net, 1e-9)

	require.Len(t, s.ExpenseByCategory, 3)
	assert.Equal(t, "Rent", s.ExpenseByCategory[0].Category)
	assert.InDelta(t, 56, s.ExpenseByCategory[0].Share, 1e-9)
	assert.Equal(t, Uncategorized, s.ExpenseByCategory[2].Category)

	require.Len(t, s.TopAssets, TopAssetCount)
	assert.Equal(t, asset.ID, s.TopAssets[0].ID)
	assert.Equal(t, "h5", s.TopAssets[1].ID)
	for _, a := range s.TopAssets {
		assert.NotEqual(t, "closed", a.ID)
	}

	assert.InDelta(t, 20, s.MeanDailyBurn, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(SummaryInput{Today: testhelpers.FixedDate()})
	assert.True(t, s.RatesDegraded)
	assert.Empty(t, s.TopAssets)
	assert.Empty(t, s.ExpenseByCategory)
	assert.Zero(t, s.NetWorth)
	assert.Zero(t, s.MeanDailyBurn)
}
