package projects

import (
	"math"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency"
	"github.com/shopspring/decimal"
)

// Totals are a project's linked income and expense in the reporting currency
type Totals struct {
	Expense float64 `json:"expense"`
	Income  float64 `json:"income"`
	Net     float64 `json:"net"` // expense - income
	Count   int     `json:"count"`
}

// TotalCost sums the analytics rows of a project. Transfers and rows
// excluded from analytics (split parents) do not count.
func TotalCost(txs []domain.Transaction, conv *currency.Converter) Totals {
	expense, income := decimal.Zero, decimal.Zero
	count := 0
	for i := range txs {
		t := &txs[i]
		if t.ExcludeFromAnalytics {
			continue
		}
		amount := decimal.NewFromFloat(conv.ToBase(t.Amount, t.Currency))
		switch t.Type {
		case domain.TransactionTypeExpense:
			expense = expense.Add(amount)
		case domain.TransactionTypeIncome:
			income = income.Add(amount)
		default:
			continue
		}
		count++
	}
	return Totals{
		Expense: expense.InexactFloat64(),
		Income:  income.InexactFloat64(),
		Net:     expense.Sub(income).InexactFloat64(),
		Count:   count,
	}
}

// Window is the span a project's cost is spread over. A project that starts
// after today but already has costs is spread from today instead.
func Window(p *domain.Project, totalCost float64, today domain.Date) (start, end domain.Date, ok bool) {
	if p.StartDate == nil || p.EndDate == nil || p.StartDate.IsZero() || p.EndDate.IsZero() {
		return domain.Date{}, domain.Date{}, false
	}
	start, end = *p.StartDate, *p.EndDate
	if end.Before(start) {
		return domain.Date{}, domain.Date{}, false
	}
	if start.After(today) && totalCost > 0 {
		start = today
	}
	return start, end, true
}

// DurationDays counts the days of [start, end] inclusive, at least 1
func DurationDays(start, end domain.Date) int {
	days := int(math.Ceil(end.Time.Sub(start.Time).Hours()/24)) + 1
	if days < 1 {
		return 1
	}
	return days
}

// DailyCost spreads a net cost evenly over the window; never negative
func DailyCost(totalCost float64, start, end domain.Date) float64 {
	return math.Max(0, totalCost/float64(DurationDays(start, end)))
}

// Amortize returns the project's cost attributed to asOf: its daily cost
// inside the amortization window, zero outside it or without both dates.
func Amortize(p *domain.Project, txs []domain.Transaction, asOf, today domain.Date, conv *currency.Converter) float64 {
	total := TotalCost(txs, conv).Net
	start, end, ok := Window(p, total, today)
	if !ok || asOf.Before(start) || asOf.After(end) {
		return 0
	}
	return DailyCost(total, start, end)
}

// BudgetUtilization is expenses as a percentage of the budget, nil without a
// positive budget
func BudgetUtilization(expense float64, budget *float64) *float64 {
	if budget == nil || *budget <= 0 {
		return nil
	}
	pct := decimal.NewFromFloat(expense).Div(decimal.NewFromFloat(*budget)).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	return &pct
}
