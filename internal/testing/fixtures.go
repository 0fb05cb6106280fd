package testing

import (
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/google/uuid"
)

// TestUserID owns every fixture unless overridden.
const TestUserID = "user-test"

// NewAccountFixture returns an unsaved bank account.
func NewAccountFixture(name, currency string, initial float64) *domain.Account {
	return &domain.Account{
		ID:             uuid.NewString(),
		UserID:         TestUserID,
		Name:           name,
		Type:           domain.AccountTypeBank,
		Currency:       currency,
		InitialBalance: initial,
		CurrentBalance: initial,
	}
}

// NewTransactionFixture returns an unsaved INCOME or EXPENSE row on accountID.
func NewTransactionFixture(txType domain.TransactionType, amount float64, accountID string, date domain.Date) *domain.Transaction {
	return &domain.Transaction{
		ID:        uuid.NewString(),
		UserID:    TestUserID,
		Type:      txType,
		Amount:    amount,
		Currency:  "USD",
		Date:      date,
		AccountID: accountID,
		Source:    domain.SourceManual,
	}
}

// NewTransferFixture returns an unsaved TRANSFER from -> to.
func NewTransferFixture(amount float64, from, to string, target *float64, date domain.Date) *domain.Transaction {
	tx := NewTransactionFixture(domain.TransactionTypeTransfer, amount, from, date)
	tx.TransferToAccountID = to
	tx.TargetAmount = target
	return tx
}

// NewAssetFixture returns an unsaved fixed asset bought on start.
func NewAssetFixture(price, salvage, lifeYears float64, method domain.DepreciationMethod, start domain.Date) *domain.Investment {
	return &domain.Investment{
		ID:            uuid.NewString(),
		UserID:        TestUserID,
		Name:          "Laptop",
		Type:          domain.InvestmentTypeAsset,
		Status:        domain.InvestmentStatusActive,
		Currency:      "USD",
		InitialAmount: price,
		StartDate:     start,
		Details: domain.AssetDetails{
			PurchasePrice:   price,
			SalvageValue:    salvage,
			UsefulLifeYears: lifeYears,
			Method:          method,
		},
	}
}

// NewProjectFixture returns an unsaved project spanning [start, end].
func NewProjectFixture(start, end domain.Date, budget *float64) *domain.Project {
	return &domain.Project{
		ID:        uuid.NewString(),
		UserID:    TestUserID,
		Name:      "Trip",
		Type:      domain.ProjectTypeTrip,
		Status:    domain.ProjectStatusActive,
		StartDate: &start,
		EndDate:   &end,
		Budget:    budget,
		Currency:  "USD",
	}
}

// FixedDate is a stable reference day for tests.
func FixedDate() domain.Date {
	return domain.NewDate(2024, time.January, 1)
}

// FloatPtr returns &f.
func FloatPtr(f float64) *float64 {
	return &f
}
