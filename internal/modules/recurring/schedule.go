package recurring

import (
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency"
)

// NextRun returns the run date one period of interval units after d.
// Monthly and yearly steps clamp to the last day of a shorter month.
func NextRun(d domain.Date, freq domain.Frequency, interval int) domain.Date {
	if interval < 1 {
		interval = 1
	}
	switch freq {
	case domain.FrequencyWeekly:
		return d.AddDays(7 * interval)
	case domain.FrequencyYearly:
		return addMonths(d, 12*interval)
	default:
		return addMonths(d, interval)
	}
}

// Advance steps next forward until it is strictly after today
func Advance(next domain.Date, freq domain.Frequency, interval int, today domain.Date) domain.Date {
	for !next.After(today) {
		next = NextRun(next, freq, interval)
	}
	return next
}

// DailyCost is the daily accrual of an EXPENSE rule in the converter's base
// currency: one period's amount spread over the period's nominal length.
func DailyCost(rule *domain.RecurringRule, conv *currency.Converter) float64 {
	if !rule.Active || rule.Type != domain.TransactionTypeExpense {
		return 0
	}
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}
	return conv.ToBase(rule.Amount, rule.Currency) / (rule.Frequency.PeriodDays() * float64(interval))
}

func addMonths(d domain.Date, months int) domain.Date {
	y, m, day := d.Time.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return domain.NewDate(first.Year(), first.Month(), day)
}
