package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions"
	"github.com/rs/zerolog"
)

// RateSource builds a converter into a reporting currency
type RateSource interface {
	Converter(ctx context.Context, base string) *currency.Converter
}

// BaseCurrencyResolver returns a user's reporting currency
type BaseCurrencyResolver interface {
	BaseCurrency(ctx context.Context, userID string) string
}

// ProjectRequest is the body of create and update calls
type ProjectRequest struct {
	StartDate *domain.Date         `json:"start_date"`
	EndDate   *domain.Date         `json:"end_date"`
	Budget    *float64             `json:"budget"`
	Name      string               `json:"name"`
	Type      domain.ProjectType   `json:"type"`
	Status    domain.ProjectStatus `json:"status"`
	Currency  string               `json:"currency"`
	Note      string               `json:"note"`
}

// Stats summarize a project's cost in the user's reporting currency
type Stats struct {
	StartDate         *domain.Date `json:"amortization_start,omitempty"`
	EndDate           *domain.Date `json:"amortization_end,omitempty"`
	BudgetUtilization *float64     `json:"budget_utilization,omitempty"`
	ProjectID         string       `json:"project_id"`
	Currency          string       `json:"currency"`
	Totals
	TotalCost     float64 `json:"total_cost"`
	DailyCost     float64 `json:"daily_cost"`
	DurationDays  int     `json:"duration_days"`
	RatesDegraded bool    `json:"rates_degraded"`
}

// Service manages projects and their cost attribution
type Service struct {
	repo   *Repository
	ledger *transactions.Repository
	rates  RateSource
	bases  BaseCurrencyResolver
	bus    *events.Bus
	log    zerolog.Logger
}

// NewService creates a project service
func NewService(repo *Repository, ledger *transactions.Repository, rates RateSource, bases BaseCurrencyResolver, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		ledger: ledger,
		rates:  rates,
		bases:  bases,
		bus:    bus,
		log:    log.With().Str("service", "projects").Logger(),
	}
}

// Repository exposes the underlying repository
func (s *Service) Repository() *Repository {
	return s.repo
}

// List returns the user's projects
func (s *Service) List(ctx context.Context, userID string) ([]domain.Project, error) {
	return s.repo.List(ctx, userID)
}

// Get returns one project
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Project, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// Create validates and stores a new project
func (s *Service) Create(ctx context.Context, userID string, req ProjectRequest) (*domain.Project, error) {
	p := &domain.Project{UserID: userID}
	if err := apply(p, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info().Str("project_id", p.ID).Str("name", p.Name).Msg("Project created")
	s.emit(userID, "created", p.ID)
	return p, nil
}

// Update replaces the project's fields with req
func (s *Service) Update(ctx context.Context, userID, id string, req ProjectRequest) (*domain.Project, error) {
	p, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(p, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.emit(userID, "updated", p.ID)
	return p, nil
}

// Delete removes a project. Linked transactions stay, unassigned.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.emit(userID, "deleted", id)
	return nil
}

// Transactions lists the rows attributed to a project
func (s *Service) Transactions(ctx context.Context, userID, id string) ([]domain.Transaction, error) {
	if _, err := s.repo.GetByID(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.ledger.List(ctx, userID, transactions.Filter{ProjectID: id})
}

// Stats computes the project's totals, daily cost and budget use as of today
func (s *Service) Stats(ctx context.Context, userID, id string, today domain.Date) (*Stats, error) {
	p, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	txs, err := s.ledger.List(ctx, userID, transactions.Filter{ProjectID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to load project transactions: %w", err)
	}

	conv := s.rates.Converter(ctx, s.bases.BaseCurrency(ctx, userID))
	return Compute(p, txs, today, conv), nil
}

// AmortizedOn returns each project's cost attributed to day, keyed by project
func (s *Service) AmortizedOn(ctx context.Context, userID string, day, today domain.Date, conv *currency.Converter) (map[string]float64, error) {
	projects, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(projects))
	for i := range projects {
		p := &projects[i]
		txs, err := s.ledger.List(ctx, userID, transactions.Filter{ProjectID: p.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to load project transactions: %w", err)
		}
		if v := Amortize(p, txs, day, today, conv); v > 0 {
			out[p.ID] = v
		}
	}
	return out, nil
}

// Compute derives Stats from a project and its rows
func Compute(p *domain.Project, txs []domain.Transaction, today domain.Date, conv *currency.Converter) *Stats {
	totals := TotalCost(txs, conv)
	stats := &Stats{
		ProjectID:     p.ID,
		Currency:      conv.Base(),
		Totals:        totals,
		TotalCost:     totals.Net,
		RatesDegraded: conv.Degraded(),
	}

	budgetSpend := totals.Expense
	if p.Currency != "" && p.Currency != conv.Base() {
		budgetSpend = conv.Convert(totals.Expense, conv.Base(), p.Currency)
	}
	stats.BudgetUtilization = BudgetUtilization(budgetSpend, p.Budget)

	if start, end, ok := Window(p, totals.Net, today); ok {
		stats.StartDate, stats.EndDate = &start, &end
		stats.DurationDays = DurationDays(start, end)
		stats.DailyCost = DailyCost(totals.Net, start, end)
	}
	return stats
}

func apply(p *domain.Project, req ProjectRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.NewValidationError("name", "is required")
	}
	if req.Type == "" {
		req.Type = domain.ProjectTypeOther
	}
	if !req.Type.Valid() {
		return domain.NewValidationError("type", fmt.Sprintf("unknown project type %q", req.Type))
	}
	if req.Status == "" {
		req.Status = domain.ProjectStatusPlanning
	}
	if !req.Status.Valid() {
		return domain.NewValidationError("status", fmt.Sprintf("unknown project status %q", req.Status))
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return domain.NewValidationError("end_date", "must not be before start_date")
	}
	if req.Budget != nil && *req.Budget < 0 {
		return domain.NewValidationError("budget", "must not be negative")
	}

	p.Name = name
	p.Type = req.Type
	p.Status = req.Status
	p.StartDate = req.StartDate
	p.EndDate = req.EndDate
	p.Budget = req.Budget
	p.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	p.Note = req.Note
	return nil
}

func (s *Service) emit(userID, action string, ids ...string) {
	s.bus.Emit(userID, "projects", &events.LedgerChangedData{Entity: "project", Action: action, IDs: ids})
}
