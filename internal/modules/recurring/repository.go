// Package recurring stores recurring bills and income and posts them to the
// ledger when they fall due.
package recurring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const ruleColumns = `id, user_id, name, type, amount, currency, category_id, account_id,
	frequency, interval_count, next_run, active, created_at, updated_at`

// Repository handles recurring rule persistence in ledger.db
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// NewRepository creates a new recurring rule repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "recurring").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx, log: r.log}
}

// Create inserts rule
func (r *Repository) Create(ctx context.Context, rule *domain.RecurringRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	rule.CreatedAt, rule.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `INSERT INTO recurring_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.UserID, rule.Name, rule.Type, rule.Amount, rule.Currency,
		database.NullString(rule.CategoryID), database.NullString(rule.AccountID),
		rule.Frequency, rule.Interval, rule.NextRun, database.BoolToInt(rule.Active),
		now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert recurring rule: %w", err)
	}
	return nil
}

// Update writes every mutable column of rule
func (r *Repository) Update(ctx context.Context, rule *domain.RecurringRule) error {
	rule.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_rules SET name = ?, type = ?, amount = ?, currency = ?, category_id = ?,
			account_id = ?, frequency = ?, interval_count = ?, next_run = ?, active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		rule.Name, rule.Type, rule.Amount, rule.Currency,
		database.NullString(rule.CategoryID), database.NullString(rule.AccountID),
		rule.Frequency, rule.Interval, rule.NextRun, database.BoolToInt(rule.Active),
		rule.UpdatedAt.Unix(), rule.ID, rule.UserID)
	if err != nil {
		return fmt.Errorf("failed to update recurring rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recurring rule %s: %w", rule.ID, domain.ErrNotFound)
	}
	return nil
}

// SetNextRun moves a rule's next run date
func (r *Repository) SetNextRun(ctx context.Context, userID, id string, next domain.Date) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurring_rules SET next_run = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		next, time.Now().Unix(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to advance recurring rule: %w", err)
	}
	return nil
}

// GetByID returns one rule or domain.ErrNotFound
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*domain.RecurringRule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE id = ? AND user_id = ?`, id, userID)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recurring rule %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring rule: %w", err)
	}
	return rule, nil
}

// List returns the user's rules ordered by next run
func (r *Repository) List(ctx context.Context, userID string) ([]domain.RecurringRule, error) {
	return r.query(ctx, `SELECT `+ruleColumns+` FROM recurring_rules
		WHERE user_id = ? ORDER BY next_run, name`, userID)
}

// Due returns active rules with next_run on or before today. An empty userID
// selects the rules of every user.
func (r *Repository) Due(ctx context.Context, userID string, today domain.Date) ([]domain.RecurringRule, error) {
	if userID == "" {
		return r.query(ctx, `SELECT `+ruleColumns+` FROM recurring_rules
			WHERE active = 1 AND next_run <= ? ORDER BY user_id, next_run`, today)
	}
	return r.query(ctx, `SELECT `+ruleColumns+` FROM recurring_rules
		WHERE user_id = ? AND active = 1 AND next_run <= ? ORDER BY next_run`, userID, today)
}

// Delete removes a rule. Transactions it already posted stay.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete recurring rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("recurring rule %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]domain.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring rules: %w", err)
	}
	defer rows.Close()

	var out []domain.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring rule: %w", err)
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*domain.RecurringRule, error) {
	var (
		rule                 domain.RecurringRule
		categoryID           sql.NullString
		accountID            sql.NullString
		active               int
		createdAt, updatedAt int64
	)
	err := row.Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.Type, &rule.Amount, &rule.Currency,
		&categoryID, &accountID, &rule.Frequency, &rule.Interval, &rule.NextRun, &active,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rule.CategoryID = categoryID.String
	rule.AccountID = accountID.String
	rule.Active = active == 1
	rule.CreatedAt = time.Unix(createdAt, 0).UTC()
	rule.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &rule, nil
}
