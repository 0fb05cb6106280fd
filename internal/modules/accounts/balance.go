package accounts

import (
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// CalculateBalance folds the ledger into the account's current balance:
// initial balance, plus INCOME, minus EXPENSE and outgoing TRANSFERs, plus
// incoming TRANSFERs at their target amount when one is recorded.
// Sums are decimal-exact, so the result does not depend on ledger order.
func CalculateBalance(account *domain.Account, txs []domain.Transaction) float64 {
	if account == nil {
		return 0
	}

	balance := decimal.NewFromFloat(account.InitialBalance)
	for i := range txs {
		balance = balance.Add(Delta(account.ID, &txs[i]))
	}
	return balance.InexactFloat64()
}

// Delta is the signed effect of one transaction on accountID.
func Delta(accountID string, tx *domain.Transaction) decimal.Decimal {
	delta := decimal.Zero
	amount := decimal.NewFromFloat(tx.Amount)

	if tx.AccountID == accountID {
		switch tx.Type {
		case domain.TransactionTypeIncome:
			delta = delta.Add(amount)
		case domain.TransactionTypeExpense, domain.TransactionTypeTransfer:
			delta = delta.Sub(amount)
		}
	}

	if tx.Type == domain.TransactionTypeTransfer && tx.TransferToAccountID == accountID {
		if tx.TargetAmount != nil {
			delta = delta.Add(decimal.NewFromFloat(*tx.TargetAmount))
		} else {
			delta = delta.Add(amount)
		}
	}

	return delta
}
