package testing

import (
	"context"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockRateProvider is a testify mock of the exchange-rate provider.
type MockRateProvider struct {
	mock.Mock
}

// GetExchangeRates implements the rate provider.
func (m *MockRateProvider) GetExchangeRates(ctx context.Context) (domain.RateTable, error) {
	args := m.Called(ctx)
	table, _ := args.Get(0).(domain.RateTable)
	return table, args.Error(1)
}

// StaticRates always returns the same table.
type StaticRates domain.RateTable

// GetExchangeRates implements the rate provider.
func (s StaticRates) GetExchangeRates(context.Context) (domain.RateTable, error) {
	return domain.RateTable(s), nil
}
