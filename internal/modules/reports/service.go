package reports

import (
	"context"
	"fmt"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/accounts"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/investments"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/projects"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/recurring"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/utils"
	"github.com/rs/zerolog"
)

const (
	defaultSeriesDays = 30
	maxDailyPeriods   = 731
	maxRangeDays      = 3660
	burnLookbackDays  = 30
)

// RateSource builds a converter into a reporting currency
type RateSource interface {
	Converter(ctx context.Context, base string) *currency.Converter
}

// BaseCurrencyResolver returns a user's reporting currency
type BaseCurrencyResolver interface {
	BaseCurrency(ctx context.Context, userID string) string
}

// SeriesQuery selects a series range. Zero values default to the last 30
// days by day.
type SeriesQuery struct {
	From        *domain.Date
	To          *domain.Date
	Granularity domain.Granularity
	Window      int
}

// SeriesReport is a series with the currency it is expressed in
type SeriesReport struct {
	Currency      string        `json:"currency"`
	Granularity   string        `json:"granularity"`
	Points        []SeriesPoint `json:"points"`
	RatesDegraded bool          `json:"rates_degraded"`
}

// Service loads a user's data and runs the report builders over it
type Service struct {
	accounts    *accounts.Repository
	ledger      *transactions.Repository
	investments *investments.Repository
	projects    *projects.Repository
	rules       *recurring.Repository
	rates       RateSource
	bases       BaseCurrencyResolver
	log         zerolog.Logger
}

// NewService creates a report service
func NewService(
	accountRepo *accounts.Repository,
	ledger *transactions.Repository,
	investmentRepo *investments.Repository,
	projectRepo *projects.Repository,
	rules *recurring.Repository,
	rates RateSource,
	bases BaseCurrencyResolver,
	log zerolog.Logger,
) *Service {
	return &Service{
		accounts:    accountRepo,
		ledger:      ledger,
		investments: investmentRepo,
		projects:    projectRepo,
		rules:       rules,
		rates:       rates,
		bases:       bases,
		log:         log.With().Str("service", "reports").Logger(),
	}
}

type snapshot struct {
	accounts     []domain.Account
	transactions []domain.Transaction
	investments  []domain.Investment
	projects     []domain.Project
	rules        []domain.RecurringRule
	conv         *currency.Converter
}

// Series builds the user's series for q as of today
func (s *Service) Series(ctx context.Context, userID string, q SeriesQuery, today domain.Date) (*SeriesReport, error) {
	q, err := normalize(q, today)
	if err != nil {
		return nil, err
	}
	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	done := utils.OperationTimer("build_series", s.log)
	points := BuildSeries(snap.seriesInput(*q.From, *q.To, today, q.Granularity, q.Window))
	done()

	return &SeriesReport{
		Currency:      snap.conv.Base(),
		Granularity:   string(q.Granularity),
		Points:        points,
		RatesDegraded: snap.conv.Degraded(),
	}, nil
}

// SeriesChart renders the series for q as a PNG
func (s *Service) SeriesChart(ctx context.Context, userID string, q SeriesQuery, today domain.Date) ([]byte, error) {
	report, err := s.Series(ctx, userID, q, today)
	if err != nil {
		return nil, err
	}
	if len(report.Points) < 2 {
		return nil, domain.NewValidationError("from", "a chart needs at least two periods")
	}
	return RenderSeriesChart(report.Points, report.Currency)
}

// Dashboard summarizes the user's position as of today
func (s *Service) Dashboard(ctx context.Context, userID string, today domain.Date) (*Summary, error) {
	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	burn := BuildSeries(snap.seriesInput(today.AddDays(-(burnLookbackDays - 1)), today, today, domain.GranularityDay, 0))
	daily := make([]float64, len(burn))
	for i, p := range burn {
		daily[i] = p.TotalBurn
	}

	return Summarize(SummaryInput{
		Today:        today,
		Converter:    snap.conv,
		Accounts:     snap.accounts,
		Transactions: snap.transactions,
		Investments:  snap.investments,
		DailyBurn:    daily,
	}), nil
}

func (s *Service) load(ctx context.Context, userID string) (*snapshot, error) {
	var (
		snap snapshot
		err  error
	)
	if snap.accounts, err = s.accounts.List(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	if snap.transactions, err = s.ledger.List(ctx, userID, transactions.Filter{}); err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if snap.investments, err = s.investments.List(ctx, userID, ""); err != nil {
		return nil, fmt.Errorf("failed to load investments: %w", err)
	}
	if snap.projects, err = s.projects.List(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	if snap.rules, err = s.rules.List(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to load recurring rules: %w", err)
	}
	snap.conv = s.rates.Converter(ctx, s.bases.BaseCurrency(ctx, userID))
	return &snap, nil
}

func (snap *snapshot) seriesInput(from, to, today domain.Date, g domain.Granularity, window int) SeriesInput {
	return SeriesInput{
		Start:           from,
		End:             to,
		Today:           today,
		Converter:       snap.conv,
		Granularity:     g,
		Accounts:        snap.accounts,
		Transactions:    snap.transactions,
		Investments:     snap.investments,
		Rules:           snap.rules,
		Projects:        snap.projects,
		SmoothingWindow: window,
	}
}

func normalize(q SeriesQuery, today domain.Date) (SeriesQuery, error) {
	if q.Granularity == "" {
		q.Granularity = domain.GranularityDay
	}
	if !q.Granularity.Valid() {
		return q, domain.NewValidationError("granularity", "must be DAY, WEEK, MONTH or YEAR")
	}
	if q.To == nil || q.To.IsZero() {
		to := today
		q.To = &to
	}
	if q.From == nil || q.From.IsZero() {
		from := q.To.AddDays(-(defaultSeriesDays - 1))
		q.From = &from
	}
	if q.To.Before(*q.From) {
		return q, domain.NewValidationError("to", "must not be before from")
	}

	days := q.From.DaysUntil(*q.To) + 1
	if days > maxRangeDays {
		return q, domain.NewValidationError("from", fmt.Sprintf("range is limited to %d days", maxRangeDays))
	}
	if q.Granularity == domain.GranularityDay && days > maxDailyPeriods {
		return q, domain.NewValidationError("granularity", "use WEEK or coarser for ranges over two years")
	}
	if q.Window < 0 {
		return q, domain.NewValidationError("window", "must not be negative")
	}
	return q, nil
}
