package transactions

import (
	"context"
	"math"
	"strings"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/utils"
)

// Candidate is one transaction proposed by a recognizer
type Candidate struct {
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Type     string  `json:"type"`
	Merchant string  `json:"merchant"`
	Note     string  `json:"note"`
	Category string  `json:"category"`
}

// Recognizer extracts candidate transactions from a receipt or transfer screenshot
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) ([]Candidate, error)
}

// ImportRequest posts recognized candidates to one account
type ImportRequest struct {
	AccountID  string      `json:"account_id"`
	Candidates []Candidate `json:"candidates"`
}

// toTransaction maps a candidate onto an unsaved IMPORT row. A negative
// amount is read as an expense of its absolute value.
func (c Candidate) toTransaction(accountID string, today domain.Date) *domain.Transaction {
	t := &domain.Transaction{
		Type:         domain.TransactionType(strings.ToUpper(strings.TrimSpace(c.Type))),
		Amount:       c.Amount,
		Currency:     utils.NormalizeCurrency(c.Currency),
		AccountID:    accountID,
		CategoryName: strings.TrimSpace(c.Category),
		Merchant:     strings.TrimSpace(c.Merchant),
		Note:         strings.TrimSpace(c.Note),
		Source:       domain.SourceImport,
		Date:         today,
	}
	if t.Type != domain.TransactionTypeIncome {
		t.Type = domain.TransactionTypeExpense
	}
	if t.Amount < 0 {
		t.Amount = math.Abs(t.Amount)
		t.Type = domain.TransactionTypeExpense
	}
	if d, err := domain.ParseDate(c.Date); err == nil {
		t.Date = d
	}
	return t
}
