package currency

import (
	"context"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/rs/zerolog"
)

// RateProvider supplies the pivot-relative rate table.
type RateProvider interface {
	GetExchangeRates(ctx context.Context) (domain.RateTable, error)
}

// Service builds converters from the configured rate provider.
type Service struct {
	provider RateProvider
	log      zerolog.Logger
}

// NewService creates a currency service. provider may be nil (always degraded).
func NewService(provider RateProvider, log zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		log:      log.With().Str("service", "currency").Logger(),
	}
}

// Converter returns a converter reporting in base. A failed rate fetch is
// logged and yields the identity converter, never an error.
func (s *Service) Converter(ctx context.Context, base string) *Converter {
	if s.provider == nil {
		return IdentityConverter(base)
	}

	rates, err := s.provider.GetExchangeRates(ctx)
	if err != nil || len(rates) == 0 {
		s.log.Warn().Err(err).Str("base", base).Msg("Exchange rates unavailable, converting 1:1")
		return IdentityConverter(base)
	}
	return NewConverter(rates, base)
}
