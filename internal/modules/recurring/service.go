package recurring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/utils"
	"github.com/rs/zerolog"
)

// OwnershipChecker verifies a referenced account or category belongs to the user
type OwnershipChecker interface {
	Owns(ctx context.Context, kind, userID, id string) error
}

// RuleRequest is the body of create and update calls
type RuleRequest struct {
	NextRun    *domain.Date           `json:"next_run"`
	Active     *bool                  `json:"active"`
	Name       string                 `json:"name"`
	Type       domain.TransactionType `json:"type"`
	Currency   string                 `json:"currency"`
	CategoryID string                 `json:"category_id"`
	AccountID  string                 `json:"account_id"`
	Frequency  domain.Frequency       `json:"frequency"`
	Amount     float64                `json:"amount"`
	Interval   int                    `json:"interval"`
}

// Service manages recurring rules
type Service struct {
	repo      *Repository
	processor *Processor
	refs      OwnershipChecker
	bus       *events.Bus
	log       zerolog.Logger
}

// NewService creates a recurring rule service
func NewService(repo *Repository, processor *Processor, refs OwnershipChecker, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		processor: processor,
		refs:      refs,
		bus:       bus,
		log:       log.With().Str("service", "recurring").Logger(),
	}
}

// List returns the user's rules
func (s *Service) List(ctx context.Context, userID string) ([]domain.RecurringRule, error) {
	return s.repo.List(ctx, userID)
}

// Get returns one rule
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.RecurringRule, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// Create validates and stores a rule. Active defaults to true and the first
// run to today.
func (s *Service) Create(ctx context.Context, userID string, req RuleRequest) (*domain.RecurringRule, error) {
	rule := &domain.RecurringRule{UserID: userID, Active: true, NextRun: domain.Today()}
	if err := s.apply(ctx, rule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.log.Info().Str("rule_id", rule.ID).Str("frequency", string(rule.Frequency)).Msg("Recurring rule created")
	s.emit(userID, "created", rule.ID)
	return rule, nil
}

// Update replaces the rule's fields with req. Omitted next_run and active
// keep their current values.
func (s *Service) Update(ctx context.Context, userID, id string, req RuleRequest) (*domain.RecurringRule, error) {
	rule, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, rule, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, err
	}

	s.emit(userID, "updated", rule.ID)
	return rule, nil
}

// Delete removes a rule
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.emit(userID, "deleted", id)
	return nil
}

// Process fires the user's due rules as of today
func (s *Service) Process(ctx context.Context, userID string, today domain.Date) (*Result, error) {
	return s.processor.ProcessDue(ctx, userID, today)
}

func (s *Service) apply(ctx context.Context, rule *domain.RecurringRule, req RuleRequest) error {
	if req.Type == "" {
		req.Type = domain.TransactionTypeExpense
	}
	if req.Type != domain.TransactionTypeExpense && req.Type != domain.TransactionTypeIncome {
		return domain.NewValidationError("type", "must be INCOME or EXPENSE")
	}
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return domain.NewValidationError("amount", "must be positive")
	}
	currency := utils.NormalizeCurrency(req.Currency)
	if len(currency) != 3 {
		return domain.NewValidationError("currency", "must be a 3-letter currency code")
	}
	if !req.Frequency.Valid() {
		return domain.NewValidationError("frequency", "must be WEEKLY, MONTHLY or YEARLY")
	}
	if req.Interval == 0 {
		req.Interval = 1
	}
	if req.Interval < 1 {
		return domain.NewValidationError("interval", "must be at least 1")
	}
	if req.AccountID != "" {
		if err := s.refs.Owns(ctx, "account", rule.UserID, req.AccountID); err != nil {
			return fmt.Errorf("account_id: %w", err)
		}
	}
	if req.CategoryID != "" {
		if err := s.refs.Owns(ctx, "category", rule.UserID, req.CategoryID); err != nil {
			return fmt.Errorf("category_id: %w", err)
		}
	}

	rule.Name = strings.TrimSpace(req.Name)
	rule.Type = req.Type
	rule.Amount = req.Amount
	rule.Currency = currency
	rule.CategoryID = req.CategoryID
	rule.AccountID = req.AccountID
	rule.Frequency = req.Frequency
	rule.Interval = req.Interval
	if req.NextRun != nil && !req.NextRun.IsZero() {
		rule.NextRun = *req.NextRun
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	return nil
}

func (s *Service) emit(userID, action string, ids ...string) {
	s.bus.Emit(userID, "recurring", &events.LedgerChangedData{Entity: "recurring_rule", Action: action, IDs: ids})
}
