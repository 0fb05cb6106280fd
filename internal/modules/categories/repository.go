// Package categories manages per-user transaction categories.
//
// Every user starts with a seeded default set. The system categories
// (Depreciation, Investment Gain, Investment Loss, Transfer Fee) are looked up
// by name when the ledger posts settlements and fees.
package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository handles category persistence in ledger.db
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// NewRepository creates a new category repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "categories").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx, log: r.log}
}

// EnsureDefaults seeds the default categories for userID.
// Existing rows are left untouched, so calling it repeatedly is safe.
func (r *Repository) EnsureDefaults(ctx context.Context, userID string) error {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE user_id = ? AND is_default = 1`, userID).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to count default categories: %w", err)
	}
	if n >= len(defaultCategories) {
		return nil
	}

	now := time.Now().Unix()
	for _, s := range defaultCategories {
		_, err := r.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO categories (id, user_id, name, icon, type, is_default, created_at)
			VALUES (?, ?, ?, ?, ?, 1, ?)
		`, uuid.NewString(), userID, s.name, s.icon, s.typ, now)
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", s.name, err)
		}
	}

	r.log.Debug().Str("user_id", userID).Msg("Default categories ensured")
	return nil
}

// List returns the categories of userID, seeding defaults on first access.
//
// Parameters:
//   - ctx: request context
//   - userID: owner
//   - categoryType: optional filter; "" returns both types
//
// Returns:
//   - []domain.Category: categories ordered by type then name
//   - error: on database failure
func (r *Repository) List(ctx context.Context, userID string, categoryType domain.CategoryType) ([]domain.Category, error) {
	if err := r.EnsureDefaults(ctx, userID); err != nil {
		return nil, err
	}

	query := `SELECT id, user_id, name, icon, type, is_default, created_at FROM categories WHERE user_id = ?`
	args := []any{userID}
	if categoryType != "" {
		query += ` AND type = ?`
		args = append(args, categoryType)
	}
	query += ` ORDER BY type, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetByID returns one category or domain.ErrNotFound
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*domain.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, icon, type, is_default, created_at FROM categories WHERE id = ? AND user_id = ?`,
		id, userID)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
	}
	return c, err
}

// FindByName returns the category with the exact name and type, or nil
func (r *Repository) FindByName(ctx context.Context, userID, name string, categoryType domain.CategoryType) (*domain.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, icon, type, is_default, created_at FROM categories
		 WHERE user_id = ? AND name = ? AND type = ?`,
		userID, name, categoryType)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// FindOrCreate returns the category named name, creating it when missing
func (r *Repository) FindOrCreate(ctx context.Context, userID, name string, categoryType domain.CategoryType) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	existing, err := r.FindByName(ctx, userID, name, categoryType)
	if err != nil || existing != nil {
		return existing, err
	}

	c := &domain.Category{UserID: userID, Name: name, Type: categoryType}
	if err := r.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a user category. Duplicate (name, type) pairs are rejected.
func (r *Repository) Create(ctx context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO categories (id, user_id, name, icon, type, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.UserID, c.Name, c.Icon, c.Type, database.BoolToInt(c.IsDefault), c.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewValidationError("name", "a category with this name already exists")
	}
	return nil
}

// Delete removes a category and clears it from transactions and rules
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	for _, q := range []string{
		`UPDATE transactions SET category_id = NULL WHERE user_id = ? AND category_id = ?`,
		`UPDATE recurring_rules SET category_id = NULL WHERE user_id = ? AND category_id = ?`,
	} {
		if _, err := r.db.ExecContext(ctx, q, userID, id); err != nil {
			return fmt.Errorf("failed to detach category: %w", err)
		}
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("category %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(row scanner) (*domain.Category, error) {
	var (
		c         domain.Category
		isDefault int
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &c.Type, &isDefault, &createdAt); err != nil {
		return nil, err
	}
	c.IsDefault = isDefault == 1
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &c, nil
}
