// Package projects groups transactions for cost attribution and spreads their
// net cost evenly across the project's days.
package projects

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

const projectColumns = `id, user_id, name, type, status, start_date, end_date, budget, currency, note, created_at, updated_at`

// Repository handles project persistence in ledger.db
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// NewRepository creates a new project repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "projects").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx, log: r.log}
}

// Create inserts p
func (r *Repository) Create(ctx context.Context, p *domain.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Type, p.Status,
		domain.DatePtrValue(p.StartDate), domain.DatePtrValue(p.EndDate), p.Budget,
		database.NullString(p.Currency), p.Note, now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// Update writes every mutable column of p
func (r *Repository) Update(ctx context.Context, p *domain.Project) error {
	p.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, type = ?, status = ?, start_date = ?, end_date = ?,
			budget = ?, currency = ?, note = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		p.Name, p.Type, p.Status, domain.DatePtrValue(p.StartDate), domain.DatePtrValue(p.EndDate),
		p.Budget, database.NullString(p.Currency), p.Note, p.UpdatedAt.Unix(), p.ID, p.UserID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID returns one project or domain.ErrNotFound
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// List returns the user's projects, latest start first
func (r *Repository) List(ctx context.Context, userID string) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects
		WHERE user_id = ? ORDER BY start_date IS NULL, start_date DESC, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Delete removes a project and detaches its transactions and investments
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	for _, q := range []string{
		`UPDATE transactions SET project_id = NULL WHERE user_id = ? AND project_id = ?`,
		`UPDATE investments SET project_id = NULL WHERE user_id = ? AND project_id = ?`,
	} {
		if _, err := r.db.ExecContext(ctx, q, userID, id); err != nil {
			return fmt.Errorf("failed to detach project: %w", err)
		}
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*domain.Project, error) {
	var (
		p                    domain.Project
		start, end           domain.NullDate
		budget               sql.NullFloat64
		currency             sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Type, &p.Status, &start, &end, &budget,
		&currency, &p.Note, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.StartDate = start.Ptr()
	p.EndDate = end.Ptr()
	if budget.Valid {
		v := budget.Float64
		p.Budget = &v
	}
	p.Currency = currency.String
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}
