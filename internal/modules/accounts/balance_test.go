package accounts

import (
	"math/rand"
	"testing"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	testhelpers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/testing"
	"github.com/stretchr/testify/assert"
)

func TestCalculateBalance_IncomeAndExpense(t *testing.T) {
	acct := testhelpers.NewAccountFixture("Checking", "USD", 0)
	day := testhelpers.FixedDate()

	txs := []domain.Transaction{
		*testhelpers.NewTransactionFixture(domain.TransactionTypeIncome, 100, acct.ID, day),
		*testhelpers.NewTransactionFixture(domain.TransactionTypeExpense, 30, acct.ID, day),
	}

	assert.Equal(t, 70.0, CalculateBalance(acct, txs))
}

func TestCalculateBalance_TransferWithTargetAmount(t *testing.T) {
	usd := testhelpers.NewAccountFixture("USD", "USD", 0)
	eur := testhelpers.NewAccountFixture("EUR", "EUR", 0)
	day := testhelpers.FixedDate()

	txs := []domain.Transaction{
		*testhelpers.NewTransactionFixture(domain.TransactionTypeIncome, 100, usd.ID, day),
		*testhelpers.NewTransferFixture(100, usd.ID, eur.ID, testhelpers.FloatPtr(92), day),
	}

	assert.Equal(t, 0.0, CalculateBalance(usd, txs))
	assert.Equal(t, 92.0, CalculateBalance(eur, txs))
}

func TestCalculateBalance_TransferWithoutTargetUsesAmount(t *testing.T) {
	a := testhelpers.NewAccountFixture("A", "USD", 50)
	b := testhelpers.NewAccountFixture("B", "USD", 0)
	txs := []domain.Transaction{
		*testhelpers.NewTransferFixture(20, a.ID, b.ID, nil, testhelpers.FixedDate()),
	}

	assert.Equal(t, 30.0, CalculateBalance(a, txs))
	assert.Equal(t, 20.0, CalculateBalance(b, txs))
}

func TestCalculateBalance_IgnoresOtherAccounts(t *testing.T) {
	a := testhelpers.NewAccountFixture("A", "USD", 10)
	txs := []domain.Transaction{
		*testhelpers.NewTransactionFixture(domain.TransactionTypeIncome, 500, "someone-else", testhelpers.FixedDate()),
	}
	assert.Equal(t, 10.0, CalculateBalance(a, txs))
	assert.Equal(t, 0.0, CalculateBalance(nil, txs))
}

func TestCalculateBalance_OrderIndependent(t *testing.T) {
	acct := testhelpers.NewAccountFixture("A", "USD", 0.1)
	other := testhelpers.NewAccountFixture("B", "USD", 0)
	day := testhelpers.FixedDate()

	var txs []domain.Transaction
	amounts := []float64{0.1, 0.2, 0.3, 19.99, 1234.56, 0.07, 3.33}
	for i, amt := range amounts {
		txType := domain.TransactionTypeIncome
		if i%2 == 1 {
			txType = domain.TransactionTypeExpense
		}
		txs = append(txs, *testhelpers.NewTransactionFixture(txType, amt, acct.ID, day))
	}
	txs = append(txs, *testhelpers.NewTransferFixture(0.7, other.ID, acct.ID, testhelpers.FloatPtr(0.65), day))

	want := CalculateBalance(acct, txs)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]domain.Transaction(nil), txs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, CalculateBalance(acct, shuffled))
	}
}
