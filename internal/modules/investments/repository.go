// Package investments manages financial investments and depreciable fixed
// assets, their funding, valuation, depreciation and settlement.
package investments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const investmentColumns = `id, user_id, name, type, status, initial_amount, current_amount, currency,
	start_date, end_date, account_id, project_id, details_json, created_at, updated_at`

// Repository handles investment persistence in ledger.db.
// Details are stored as JSON whose shape is selected by the type column.
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// NewRepository creates a new investment repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "investments").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx, log: r.log}
}

// Create inserts inv
func (r *Repository) Create(ctx context.Context, inv *domain.Investment) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	details, err := json.Marshal(inv.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	inv.CreatedAt, inv.UpdatedAt = now, now

	_, err = r.db.ExecContext(ctx, `INSERT INTO investments (`+investmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.UserID, inv.Name, inv.Type, inv.Status, inv.InitialAmount, inv.CurrentAmount,
		inv.Currency, inv.StartDate, domain.DatePtrValue(inv.EndDate),
		database.NullString(inv.AccountID), database.NullString(inv.ProjectID),
		string(details), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert investment: %w", err)
	}
	return nil
}

// Update writes every mutable column of inv
func (r *Repository) Update(ctx context.Context, inv *domain.Investment) error {
	details, err := json.Marshal(inv.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}
	inv.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := r.db.ExecContext(ctx, `
		UPDATE investments SET name = ?, status = ?, current_amount = ?, end_date = ?,
			project_id = ?, details_json = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		inv.Name, inv.Status, inv.CurrentAmount, domain.DatePtrValue(inv.EndDate),
		database.NullString(inv.ProjectID), string(details), inv.UpdatedAt.Unix(),
		inv.ID, inv.UserID)
	if err != nil {
		return fmt.Errorf("failed to update investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("investment %s: %w", inv.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID returns one investment or domain.ErrNotFound
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*domain.Investment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = ? AND user_id = ?`, id, userID)
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("investment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}
	return inv, nil
}

// List returns the user's investments, optionally filtered by status
func (r *Repository) List(ctx context.Context, userID string, status domain.InvestmentStatus) ([]domain.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY start_date DESC, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	var out []domain.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// Delete removes an investment row
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM investments WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("investment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvestment(row scanner) (*domain.Investment, error) {
	var (
		inv                  domain.Investment
		current              sql.NullFloat64
		endDate              domain.NullDate
		accountID, projectID sql.NullString
		details              string
		createdAt, updatedAt int64
	)
	err := row.Scan(&inv.ID, &inv.UserID, &inv.Name, &inv.Type, &inv.Status, &inv.InitialAmount,
		&current, &inv.Currency, &inv.StartDate, &endDate, &accountID, &projectID, &details,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if current.Valid {
		v := current.Float64
		inv.CurrentAmount = &v
	}
	inv.EndDate = endDate.Ptr()
	inv.AccountID = accountID.String
	inv.ProjectID = projectID.String
	inv.Details, err = domain.DecodeDetails(inv.Type, json.RawMessage(details))
	if err != nil {
		return nil, fmt.Errorf("investment %s has invalid details: %w", inv.ID, err)
	}
	inv.CreatedAt = time.Unix(createdAt, 0).UTC()
	inv.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &inv, nil
}
