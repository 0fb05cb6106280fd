// Package transactions manages ledger entries: CRUD, transfers with fees,
// splits, imports of recognized receipts, and CSV export.
package transactions

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

const selectColumns = `
	t.id, t.user_id, t.type, t.amount, t.currency, t.date,
	t.account_id, t.transfer_to_account_id, t.target_amount, t.target_currency, t.fee,
	t.category_id, t.project_id, t.investment_id, t.split_parent_id, t.fee_parent_id,
	t.exclude_from_analytics, t.merchant, t.note, t.source, t.created_at, t.updated_at,
	COALESCE(c.name, '')`

const fromClause = ` FROM transactions t LEFT JOIN categories c ON c.id = t.category_id`

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	From         *domain.Date
	To           *domain.Date
	AccountID    string // matches source or transfer destination
	CategoryID   string
	ProjectID    string
	InvestmentID string
	Type         domain.TransactionType
	Limit        int
	Offset       int
}

// Repository handles transaction persistence in ledger.db.
// Every query is scoped by user id.
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// NewRepository creates a new transaction repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

// WithTx returns a repository bound to tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx, log: r.log}
}

// Create inserts a transaction, assigning an id and timestamps.
//
// Parameters:
//   - ctx: request context
//   - t: transaction to insert; empty optional references are stored as NULL
//
// Returns:
//   - error: on database failure
func (r *Repository) Create(ctx context.Context, t *domain.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Source == "" {
		t.Source = domain.SourceManual
	}
	now := time.Now().UTC().Truncate(time.Second)
	t.CreatedAt, t.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, type, amount, currency, date,
			account_id, transfer_to_account_id, target_amount, target_currency, fee,
			category_id, project_id, investment_id, split_parent_id, fee_parent_id,
			exclude_from_analytics, merchant, note, source, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.UserID, t.Type, t.Amount, t.Currency, t.Date,
		database.NullString(t.AccountID), database.NullString(t.TransferToAccountID),
		t.TargetAmount, database.NullString(t.TargetCurrency), t.Fee,
		database.NullString(t.CategoryID), database.NullString(t.ProjectID),
		database.NullString(t.InvestmentID), database.NullString(t.SplitParentID),
		database.NullString(t.FeeParentID),
		database.BoolToInt(t.ExcludeFromAnalytics), t.Merchant, t.Note, t.Source,
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Update rewrites every mutable column of t
func (r *Repository) Update(ctx context.Context, t *domain.Transaction) error {
	t.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET
			type = ?, amount = ?, currency = ?, date = ?,
			account_id = ?, transfer_to_account_id = ?, target_amount = ?, target_currency = ?, fee = ?,
			category_id = ?, project_id = ?, investment_id = ?,
			exclude_from_analytics = ?, merchant = ?, note = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`,
		t.Type, t.Amount, t.Currency, t.Date,
		database.NullString(t.AccountID), database.NullString(t.TransferToAccountID),
		t.TargetAmount, database.NullString(t.TargetCurrency), t.Fee,
		database.NullString(t.CategoryID), database.NullString(t.ProjectID),
		database.NullString(t.InvestmentID),
		database.BoolToInt(t.ExcludeFromAnalytics), t.Merchant, t.Note, t.UpdatedAt.Unix(),
		t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

// SetExcluded flips the exclude_from_analytics flag
func (r *Repository) SetExcluded(ctx context.Context, userID, id string, excluded bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET exclude_from_analytics = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		database.BoolToInt(excluded), time.Now().Unix(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update analytics flag: %w", err)
	}
	return nil
}

// SyncSplitChildren copies the parent's date, account and currency onto its
// split children
func (r *Repository) SyncSplitChildren(ctx context.Context, parent *domain.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET date = ?, account_id = ?, currency = ?, updated_at = ?
		WHERE user_id = ? AND split_parent_id = ?
	`,
		parent.Date, database.NullString(parent.AccountID), parent.Currency, time.Now().Unix(),
		parent.UserID, parent.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to sync split children: %w", err)
	}
	return nil
}

// GetByID returns one transaction or domain.ErrNotFound
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+fromClause+` WHERE t.id = ? AND t.user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// List returns the user's transactions matching f, newest first
func (r *Repository) List(ctx context.Context, userID string, f Filter) ([]domain.Transaction, error) {
	where := []string{"t.user_id = ?"}
	args := []any{userID}

	if f.From != nil && !f.From.IsZero() {
		where = append(where, "t.date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil && !f.To.IsZero() {
		where = append(where, "t.date <= ?")
		args = append(args, f.To.String())
	}
	if f.AccountID != "" {
		where = append(where, "(t.account_id = ? OR t.transfer_to_account_id = ?)")
		args = append(args, f.AccountID, f.AccountID)
	}
	if f.CategoryID != "" {
		where = append(where, "t.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.ProjectID != "" {
		where = append(where, "t.project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.InvestmentID != "" {
		where = append(where, "t.investment_id = ?")
		args = append(args, f.InvestmentID)
	}
	if f.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, f.Type)
	}

	query := `SELECT ` + selectColumns + fromClause +
		` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY t.date DESC, t.created_at DESC, t.id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	return r.query(ctx, query, args...)
}

// ListByAccount returns every row touching accountID
func (r *Repository) ListByAccount(ctx context.Context, userID, accountID string) ([]domain.Transaction, error) {
	return r.List(ctx, userID, Filter{AccountID: accountID})
}

// ListChildren returns split children and fee rows hanging off parentID
func (r *Repository) ListChildren(ctx context.Context, userID, parentID string) ([]domain.Transaction, error) {
	return r.query(ctx, `SELECT `+selectColumns+fromClause+`
		WHERE t.user_id = ? AND (t.split_parent_id = ? OR t.fee_parent_id = ?)
		ORDER BY t.created_at, t.id`, userID, parentID, parentID)
}

// Delete removes one row
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteFeeChildren removes the fee rows of parentID
func (r *Repository) DeleteFeeChildren(ctx context.Context, userID, parentID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND fee_parent_id = ?`, userID, parentID)
	if err != nil {
		return fmt.Errorf("failed to delete fee rows: %w", err)
	}
	return nil
}

// DeleteSplitChildren removes the split children of parentID
func (r *Repository) DeleteSplitChildren(ctx context.Context, userID, parentID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND split_parent_id = ?`, userID, parentID)
	if err != nil {
		return fmt.Errorf("failed to delete split children: %w", err)
	}
	return nil
}

// ownedTables are the tables a transaction may reference
var ownedTables = map[string]string{
	"account":    "accounts",
	"category":   "categories",
	"project":    "projects",
	"investment": "investments",
}

// Owns reports domain.ErrNotFound unless the referenced row belongs to userID.
// kind is one of account, category, project or investment.
func (r *Repository) Owns(ctx context.Context, kind, userID, id string) error {
	table, ok := ownedTables[kind]
	if !ok {
		return fmt.Errorf("unknown reference kind %q", kind)
	}
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM `+table+` WHERE id = ? AND user_id = ?`, id, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check %s ownership: %w", kind, err)
	}
	return nil
}

// AccountCurrency returns the currency of an owned account
func (r *Repository) AccountCurrency(ctx context.Context, userID, accountID string) (string, error) {
	var currency string
	err := r.db.QueryRowContext(ctx,
		`SELECT currency FROM accounts WHERE id = ? AND user_id = ?`, accountID, userID).Scan(&currency)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get account currency: %w", err)
	}
	return currency, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var (
		t                          domain.Transaction
		accountID, transferTo      sql.NullString
		targetCurrency             sql.NullString
		categoryID, projectID      sql.NullString
		investmentID               sql.NullString
		splitParentID, feeParentID sql.NullString
		targetAmount, fee          sql.NullFloat64
		excluded                   int
		createdAt, updatedAt       int64
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Currency, &t.Date,
		&accountID, &transferTo, &targetAmount, &targetCurrency, &fee,
		&categoryID, &projectID, &investmentID, &splitParentID, &feeParentID,
		&excluded, &t.Merchant, &t.Note, &t.Source, &createdAt, &updatedAt,
		&t.CategoryName,
	)
	if err != nil {
		return nil, err
	}

	t.AccountID = accountID.String
	t.TransferToAccountID = transferTo.String
	t.TargetCurrency = targetCurrency.String
	t.CategoryID = categoryID.String
	t.ProjectID = projectID.String
	t.InvestmentID = investmentID.String
	t.SplitParentID = splitParentID.String
	t.FeeParentID = feeParentID.String
	if targetAmount.Valid {
		v := targetAmount.Float64
		t.TargetAmount = &v
	}
	if fee.Valid {
		v := fee.Float64
		t.Fee = &v
	}
	t.ExcludeFromAnalytics = excluded == 1
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &t, nil
}
