package recurring

import (
	"testing"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency"
	"github.com/stretchr/testify/assert"
)

func TestNextRun(t *testing.T) {
	tests := []struct {
		name     string
		from     domain.Date
		freq     domain.Frequency
		interval int
		want     domain.Date
	}{
		{"weekly", domain.NewDate(2024, time.January, 1), domain.FrequencyWeekly, 1, domain.NewDate(2024, time.January, 8)},
		{"biweekly", domain.NewDate(2024, time.January, 1), domain.FrequencyWeekly, 2, domain.NewDate(2024, time.January, 15)},
		{"monthly", domain.NewDate(2024, time.January, 15), domain.FrequencyMonthly, 1, domain.NewDate(2024, time.February, 15)},
		{"month end clamps", domain.NewDate(2024, time.January, 31), domain.FrequencyMonthly, 1, domain.NewDate(2024, time.February, 29)},
		{"quarterly across year", domain.NewDate(2024, time.November, 30), domain.FrequencyMonthly, 3, domain.NewDate(2025, time.February, 28)},
		{"yearly leap day", domain.NewDate(2024, time.February, 29), domain.FrequencyYearly, 1, domain.NewDate(2025, time.February, 28)},
		{"zero interval is one", domain.NewDate(2024, time.March, 1), domain.FrequencyMonthly, 0, domain.NewDate(2024, time.April, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want.String(), NextRun(tt.from, tt.freq, tt.interval).String())
		})
	}
}

func TestAdvance_MovesPastToday(t *testing.T) {
	start := domain.NewDate(2024, time.January, 10)
	today := domain.NewDate(2024, time.April, 2)

	next := Advance(start, domain.FrequencyMonthly, 1, today)
	assert.Equal(t, "2024-04-10", next.String())

	// a run date already in the future is left alone
	assert.Equal(t, "2024-05-01", Advance(domain.NewDate(2024, time.May, 1), domain.FrequencyWeekly, 1, today).String())
	// due today moves one period
	assert.Equal(t, "2024-04-09", Advance(today, domain.FrequencyWeekly, 1, today).String())
}

func TestDailyCost(t *testing.T) {
	rule := &domain.RecurringRule{
		Type: domain.TransactionTypeExpense, Amount: 30, Currency: "USD",
		Frequency: domain.FrequencyMonthly, Interval: 1, Active: true,
	}
	conv := currency.IdentityConverter("USD")
	assert.InDelta(t, 1, DailyCost(rule, conv), 1e-9)

	rule.Interval = 2
	assert.InDelta(t, 0.5, DailyCost(rule, conv), 1e-9)

	rule.Interval = 1
	rule.Currency = "EUR"
	eur := currency.NewConverter(domain.RateTable{"USD": 1, "EUR": 0.5}, "USD")
	assert.InDelta(t, 2, DailyCost(rule, eur), 1e-9)

	rule.Active = false
	assert.Zero(t, DailyCost(rule, conv))

	rule.Active = true
	rule.Type = domain.TransactionTypeIncome
	assert.Zero(t, DailyCost(rule, conv))
}
