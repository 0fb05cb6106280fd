// Package accounts manages accounts and their ledger-derived balances.
package accounts

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

const accountColumns = `id, user_id, name, type, initial_balance, current_balance, currency, is_default, created_at, updated_at`

// Repository handles account persistence in ledger.db.
// Every query is scoped by user id; another user's account reads as not found.
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// NewRepository creates a new account repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "accounts").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx, log: r.log}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*domain.Account, error) {
	var (
		a                    domain.Account
		isDefault            int
		createdAt, updatedAt int64
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.InitialBalance, &a.CurrentBalance,
		&a.Currency, &isDefault, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.IsDefault = isDefault == 1
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &a, nil
}

// Create inserts a new account, assigning an id when missing
func (r *Repository) Create(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	a.CreatedAt, a.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.Name, a.Type, a.InitialBalance, a.CurrentBalance, a.Currency,
		database.BoolToInt(a.IsDefault), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// GetByID returns the account or domain.ErrNotFound
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// List returns every account of userID, default first
func (r *Repository) List(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY is_default DESC, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// FlaggedDefault returns the account flagged default, or nil
func (r *Repository) FlaggedDefault(ctx context.Context, userID string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND is_default = 1 LIMIT 1`, userID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default account: %w", err)
	}
	return a, nil
}

// Update writes the editable fields (name, type, currency, initial balance)
func (r *Repository) Update(ctx context.Context, a *domain.Account) error {
	a.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET name = ?, type = ?, currency = ?, initial_balance = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, a.Name, a.Type, a.Currency, a.InitialBalance, a.UpdatedAt.Unix(), a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireAffected(res, a.ID)
}

// SetDefault flags id as the user's only default account in one statement
func (r *Repository) SetDefault(ctx context.Context, userID, id string) error {
	if _, err := r.GetByID(ctx, userID, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET is_default = CASE WHEN id = ? THEN 1 ELSE 0 END WHERE user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to set default account: %w", err)
	}
	return nil
}

// UpdateBalance stores a recomputed current balance
func (r *Repository) UpdateBalance(ctx context.Context, id string, balance float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET current_balance = ?, updated_at = ? WHERE id = ?`,
		balance, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

// Delete removes an account
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return requireAffected(res, id)
}

// Ledger returns the rows that move accountID's balance: those sourced from it
// and transfers into it. Split children are skipped since their parent already
// counts. Only the fields the balance calculation needs are loaded.
func (r *Repository) Ledger(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, amount, COALESCE(account_id, ''), COALESCE(transfer_to_account_id, ''), target_amount
		FROM transactions
		WHERE (account_id = ? OR transfer_to_account_id = ?) AND split_parent_id IS NULL
	`, accountID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			tx     domain.Transaction
			target sql.NullFloat64
		)
		if err := rows.Scan(&tx.ID, &tx.Type, &tx.Amount, &tx.AccountID, &tx.TransferToAccountID, &target); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		if target.Valid {
			v := target.Float64
			tx.TargetAmount = &v
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// CountLedger returns how many transactions reference accountID
func (r *Repository) CountLedger(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE account_id = ? OR transfer_to_account_id = ?
	`, accountID, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger rows: %w", err)
	}
	return n, nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
