package recurring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/rs/zerolog"
)

// Poster inserts a ledger row inside tx and keeps balances current.
// Implemented by the transactions service.
type Poster interface {
	Post(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
}

// Result summarizes one processing run
type Result struct {
	Transactions []domain.Transaction `json:"transactions"`
	RulesFired   int                  `json:"rules_fired"`
}

// Processor fires due recurring rules
type Processor struct {
	db     *sql.DB
	repo   *Repository
	ledger Poster
	bus    *events.Bus
	log    zerolog.Logger
}

// NewProcessor creates a recurring rule processor
func NewProcessor(db *sql.DB, repo *Repository, ledger Poster, bus *events.Bus, log zerolog.Logger) *Processor {
	return &Processor{
		db:     db,
		repo:   repo,
		ledger: ledger,
		bus:    bus,
		log:    log.With().Str("component", "recurring_processor").Logger(),
	}
}

// ProcessDue fires every active rule whose next run is on or before today.
// Each firing posts one transaction dated at the rule's next run and moves
// the next run past today, atomically per rule. Missed periods are not
// back-filled. An empty userID processes every user. A failing rule is
// skipped and reported in the returned error.
func (p *Processor) ProcessDue(ctx context.Context, userID string, today domain.Date) (*Result, error) {
	due, err := p.repo.Due(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	result := &Result{Transactions: []domain.Transaction{}}
	perUser := make(map[string][]string)
	var errs []error

	for i := range due {
		rule := &due[i]
		tx, err := p.fire(ctx, rule, today)
		if err != nil {
			p.log.Error().Err(err).Str("rule_id", rule.ID).Str("user_id", rule.UserID).Msg("Recurring rule failed")
			errs = append(errs, fmt.Errorf("rule %s: %w", rule.ID, err))
			continue
		}
		result.RulesFired++
		result.Transactions = append(result.Transactions, *tx)
		perUser[rule.UserID] = append(perUser[rule.UserID], tx.ID)
	}

	for user, ids := range perUser {
		p.bus.Emit(user, "recurring", &events.LedgerChangedData{Entity: "transaction", Action: "created", IDs: ids})
		p.bus.Emit(user, "recurring", &events.RecurringProcessedData{RulesFired: len(ids), TransactionsCreated: len(ids)})
	}

	if result.RulesFired > 0 || len(errs) > 0 {
		p.log.Info().
			Int("due", len(due)).
			Int("fired", result.RulesFired).
			Int("failed", len(errs)).
			Msg("Recurring rules processed")
	}
	return result, errors.Join(errs...)
}

func (p *Processor) fire(ctx context.Context, rule *domain.RecurringRule, today domain.Date) (*domain.Transaction, error) {
	t := &domain.Transaction{
		UserID:     rule.UserID,
		Type:       rule.Type,
		Amount:     rule.Amount,
		Currency:   rule.Currency,
		Date:       rule.NextRun,
		AccountID:  rule.AccountID,
		CategoryID: rule.CategoryID,
		Note:       rule.Name,
		Source:     domain.SourceRecurring,
	}
	next := Advance(rule.NextRun, rule.Frequency, rule.Interval, today)

	err := database.WithTransactionContext(ctx, p.db, func(tx *sql.Tx) error {
		if err := p.ledger.Post(ctx, tx, t); err != nil {
			return err
		}
		return p.repo.WithTx(tx).SetNextRun(ctx, rule.UserID, rule.ID, next)
	})
	if err != nil {
		return nil, err
	}
	rule.NextRun = next
	return t, nil
}
