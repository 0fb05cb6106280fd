package transactions

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/categories"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SplitTolerance is the largest accepted gap between the parts and the parent
var SplitTolerance = decimal.RequireFromString("0.01")

// BalanceKeeper recomputes derived account balances and resolves the
// default account. Implemented by the accounts service.
type BalanceKeeper interface {
	RecalculateTx(ctx context.Context, tx *sql.Tx, userID string, accountIDs ...string) error
	ResolveDefault(ctx context.Context, userID string) (*domain.Account, error)
}

// SplitPart is one child of a split
type SplitPart struct {
	Amount       float64 `json:"amount"`
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	ProjectID    string  `json:"project_id"`
	Merchant     string  `json:"merchant"`
	Note         string  `json:"note"`
}

// Service applies ledger mutations and keeps the affected balances current.
// Every mutation and its balance recompute commit in one database transaction.
type Service struct {
	db         *sql.DB
	repo       *Repository
	categories *categories.Repository
	balances   BalanceKeeper
	recognizer Recognizer
	bus        *events.Bus
	log        zerolog.Logger
}

// NewService creates a transaction service. recognizer may be nil.
func NewService(
	db *sql.DB,
	repo *Repository,
	categoryRepo *categories.Repository,
	balances BalanceKeeper,
	recognizer Recognizer,
	bus *events.Bus,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:         db,
		repo:       repo,
		categories: categoryRepo,
		balances:   balances,
		recognizer: recognizer,
		bus:        bus,
		log:        log.With().Str("service", "transactions").Logger(),
	}
}

// Repository exposes the underlying repository
func (s *Service) Repository() *Repository {
	return s.repo
}

// List returns the user's transactions matching f
func (s *Service) List(ctx context.Context, userID string, f Filter) ([]domain.Transaction, error) {
	return s.repo.List(ctx, userID, f)
}

// Get returns one transaction
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// Children returns the split and fee rows of id
func (s *Service) Children(ctx context.Context, userID, id string) ([]domain.Transaction, error) {
	if _, err := s.repo.GetByID(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.repo.ListChildren(ctx, userID, id)
}

// Create validates and stores t for userID
func (s *Service) Create(ctx context.Context, userID string, t *domain.Transaction) (*domain.Transaction, error) {
	t.UserID = userID
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		return s.Post(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("transaction_id", t.ID).Str("type", string(t.Type)).Msg("Transaction created")
	s.emit(t.UserID, "created", t.ID)
	return t, nil
}

// Post validates and inserts t inside tx, posts its transfer fee, and
// recomputes the touched accounts. t.UserID must be set. Callers emit events.
func (s *Service) Post(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	repo := s.repo.WithTx(tx)
	if err := s.prepare(ctx, tx, t); err != nil {
		return err
	}
	if err := repo.Create(ctx, t); err != nil {
		return err
	}
	if err := s.postFee(ctx, tx, t); err != nil {
		return err
	}
	return s.balances.RecalculateTx(ctx, tx, t.UserID, t.AccountID, t.TransferToAccountID)
}

// Update replaces the editable fields of id with those of in. Both the old
// and the new source and destination accounts are recomputed.
func (s *Service) Update(ctx context.Context, userID, id string, in *domain.Transaction) (*domain.Transaction, error) {
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		old, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if old.FeeParentID != "" {
			return domain.NewValidationError("id", "fee rows follow their transfer; edit the transfer instead")
		}

		children, err := repo.ListChildren(ctx, userID, id)
		if err != nil {
			return err
		}
		split := hasSplitChildren(children, id)
		locked := split || old.SplitParentID != ""
		if locked && (in.Type != old.Type || !sameAmount(in.Amount, old.Amount)) {
			return domain.NewValidationError("amount", "amount and type of a split are fixed; unsplit first")
		}

		in.ID = old.ID
		in.UserID = userID
		in.CreatedAt = old.CreatedAt
		in.SplitParentID = old.SplitParentID
		in.Source = old.Source
		if old.SplitParentID != "" {
			// date, account and currency follow the parent
			in.Date = old.Date
			in.AccountID = old.AccountID
			in.Currency = old.Currency
		}
		if split {
			in.ExcludeFromAnalytics = true
		}

		if err := s.prepare(ctx, tx, in); err != nil {
			return err
		}
		if err := repo.Update(ctx, in); err != nil {
			return err
		}
		if split {
			if err := repo.SyncSplitChildren(ctx, in); err != nil {
				return err
			}
		}
		if err := repo.DeleteFeeChildren(ctx, userID, id); err != nil {
			return err
		}
		if err := s.postFee(ctx, tx, in); err != nil {
			return err
		}

		return s.balances.RecalculateTx(ctx, tx, userID,
			old.AccountID, old.TransferToAccountID, in.AccountID, in.TransferToAccountID)
	})
	if err != nil {
		return nil, err
	}

	s.emit(userID, "updated", id)
	return s.repo.GetByID(ctx, userID, id)
}

// Delete removes id together with its split children and fee rows
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		old, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if old.SplitParentID != "" {
			return domain.NewValidationError("id", "split children are removed by unsplitting the parent")
		}
		if old.FeeParentID != "" {
			return domain.NewValidationError("id", "fee rows are removed with their transfer")
		}

		children, err := repo.ListChildren(ctx, userID, id)
		if err != nil {
			return err
		}
		affected := []string{old.AccountID, old.TransferToAccountID}
		for _, c := range children {
			affected = append(affected, c.AccountID)
		}

		if err := repo.DeleteSplitChildren(ctx, userID, id); err != nil {
			return err
		}
		if err := repo.DeleteFeeChildren(ctx, userID, id); err != nil {
			return err
		}
		if err := repo.Delete(ctx, userID, id); err != nil {
			return err
		}
		return s.balances.RecalculateTx(ctx, tx, userID, affected...)
	})
	if err != nil {
		return err
	}

	s.emit(userID, "deleted", id)
	return nil
}

// Split divides an INCOME or EXPENSE row into children whose amounts sum to
// the parent within SplitTolerance. The parent keeps moving the balance but
// leaves analytics to its children.
func (s *Service) Split(ctx context.Context, userID, parentID string, parts []SplitPart) ([]domain.Transaction, error) {
	if len(parts) < 2 {
		return nil, domain.NewValidationError("parts", "a split needs at least two parts")
	}

	total := decimal.Zero
	for i, p := range parts {
		if p.Amount <= 0 || math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) {
			return nil, domain.NewValidationError("parts", fmt.Sprintf("part %d must have a positive amount", i+1))
		}
		total = total.Add(decimal.NewFromFloat(p.Amount))
	}

	var children []domain.Transaction
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		parent, err := repo.GetByID(ctx, userID, parentID)
		if err != nil {
			return err
		}
		if parent.Type == domain.TransactionTypeTransfer {
			return domain.NewValidationError("id", "transfers cannot be split")
		}
		if parent.SplitParentID != "" || parent.FeeParentID != "" {
			return domain.NewValidationError("id", "only top-level transactions can be split")
		}
		existing, err := repo.ListChildren(ctx, userID, parentID)
		if err != nil {
			return err
		}
		if hasSplitChildren(existing, parentID) {
			return domain.NewValidationError("id", "transaction is already split")
		}

		gap := total.Sub(decimal.NewFromFloat(parent.Amount)).Abs()
		if gap.GreaterThan(SplitTolerance) {
			return domain.NewValidationError("parts",
				fmt.Sprintf("parts sum to %s but the transaction is %s",
					total.StringFixed(2), decimal.NewFromFloat(parent.Amount).StringFixed(2)))
		}

		for _, p := range parts {
			child := domain.Transaction{
				UserID:        userID,
				Type:          parent.Type,
				Amount:        p.Amount,
				Currency:      parent.Currency,
				Date:          parent.Date,
				AccountID:     parent.AccountID,
				CategoryID:    firstNonEmpty(p.CategoryID, parent.CategoryID),
				ProjectID:     firstNonEmpty(p.ProjectID, parent.ProjectID),
				InvestmentID:  parent.InvestmentID,
				SplitParentID: parent.ID,
				Merchant:      firstNonEmpty(p.Merchant, parent.Merchant),
				Note:          p.Note,
				Source:        parent.Source,
			}
			if p.CategoryID == "" && p.CategoryName != "" {
				child.CategoryID = ""
				child.CategoryName = p.CategoryName
			}
			if err := s.resolveReferences(ctx, tx, &child); err != nil {
				return err
			}
			if err := repo.Create(ctx, &child); err != nil {
				return err
			}
			children = append(children, child)
		}

		return repo.SetExcluded(ctx, userID, parentID, true)
	})
	if err != nil {
		return nil, err
	}

	ids := []string{parentID}
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	s.emit(userID, "split", ids...)
	return children, nil
}

// Unsplit removes the split children of parentID and returns it to analytics
func (s *Service) Unsplit(ctx context.Context, userID, parentID string) error {
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.GetByID(ctx, userID, parentID); err != nil {
			return err
		}
		if err := repo.DeleteSplitChildren(ctx, userID, parentID); err != nil {
			return err
		}
		return repo.SetExcluded(ctx, userID, parentID, false)
	})
	if err != nil {
		return err
	}

	s.emit(userID, "unsplit", parentID)
	return nil
}

// Import posts recognized candidates as IMPORT rows, all or nothing
func (s *Service) Import(ctx context.Context, userID string, req ImportRequest) ([]domain.Transaction, error) {
	if len(req.Candidates) == 0 {
		return nil, domain.NewValidationError("candidates", "nothing to import")
	}

	today := domain.Today()
	created := make([]domain.Transaction, 0, len(req.Candidates))
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		for i, c := range req.Candidates {
			t := c.toTransaction(req.AccountID, today)
			t.UserID = userID
			if err := s.Post(ctx, tx, t); err != nil {
				return fmt.Errorf("candidate %d: %w", i+1, err)
			}
			created = append(created, *t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(created))
	for i := range created {
		ids[i] = created[i].ID
	}
	s.log.Info().Int("count", len(created)).Str("user_id", userID).Msg("Imported transactions")
	s.emit(userID, "imported", ids...)
	return created, nil
}

// Recognize runs the configured recognizer over an uploaded image
func (s *Service) Recognize(ctx context.Context, image []byte, mimeType string) ([]Candidate, error) {
	if s.recognizer == nil {
		return nil, fmt.Errorf("receipt recognition is not configured: %w", domain.ErrInvalidState)
	}
	if len(image) == 0 {
		return nil, domain.NewValidationError("image", "is required")
	}

	defer utils.OperationTimer("recognize", s.log)()
	return s.recognizer.Recognize(ctx, image, mimeType)
}

// prepare normalizes t and verifies every reference belongs to t.UserID
func (s *Service) prepare(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	repo := s.repo.WithTx(tx)

	if !t.Type.Valid() {
		return domain.NewValidationError("type", "must be INCOME, EXPENSE or TRANSFER")
	}
	if t.Amount <= 0 || math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return domain.NewValidationError("amount", "must be positive")
	}
	if t.Date.IsZero() {
		t.Date = domain.Today()
	}
	if t.Source == "" {
		t.Source = domain.SourceManual
	}
	t.Currency = utils.NormalizeCurrency(t.Currency)
	t.TargetCurrency = utils.NormalizeCurrency(t.TargetCurrency)
	t.Merchant = strings.TrimSpace(t.Merchant)
	if t.Fee != nil && *t.Fee == 0 {
		t.Fee = nil
	}

	if t.Type == domain.TransactionTypeTransfer {
		// one side may be an investment instead of an account (funding, redemption)
		if t.AccountID == "" && t.TransferToAccountID == "" {
			return domain.NewValidationError("transfer_to_account_id", "a transfer needs a source and a destination account")
		}
		if (t.AccountID == "" || t.TransferToAccountID == "") && t.InvestmentID == "" {
			return domain.NewValidationError("transfer_to_account_id", "a transfer needs a source and a destination account")
		}
		if t.AccountID == t.TransferToAccountID {
			return domain.NewValidationError("transfer_to_account_id", "source and destination must differ")
		}
		if t.TargetAmount != nil && *t.TargetAmount <= 0 {
			return domain.NewValidationError("target_amount", "must be positive")
		}
		if t.Fee != nil && (*t.Fee < 0 || t.AccountID == "") {
			return domain.NewValidationError("fee", "must be non-negative and needs a source account")
		}
		if t.TransferToAccountID != "" {
			destCurrency, err := repo.AccountCurrency(ctx, t.UserID, t.TransferToAccountID)
			if err != nil {
				return err
			}
			if t.AccountID == "" && t.Currency == "" {
				t.Currency = destCurrency
			}
			if t.TargetAmount != nil && t.TargetCurrency == "" {
				t.TargetCurrency = destCurrency
			}
		}
	} else {
		if t.Fee != nil {
			return domain.NewValidationError("fee", "only transfers carry a fee")
		}
		t.TransferToAccountID = ""
		t.TargetAmount = nil
		t.TargetCurrency = ""

		// system rows without an account are non-cash (depreciation, write-offs)
		if t.AccountID == "" && t.Source != domain.SourceSystem && s.balances != nil {
			def, err := s.balances.ResolveDefault(ctx, t.UserID)
			if err != nil {
				return err
			}
			if def != nil {
				t.AccountID = def.ID
			}
		}
	}

	if t.AccountID != "" {
		currency, err := repo.AccountCurrency(ctx, t.UserID, t.AccountID)
		if err != nil {
			return err
		}
		if t.Currency == "" {
			t.Currency = currency
		}
	}
	if len(t.Currency) != 3 {
		return domain.NewValidationError("currency", "must be a 3-letter currency code")
	}

	return s.resolveReferences(ctx, tx, t)
}

// resolveReferences checks category, project and investment ownership and
// turns a bare category name into a category id
func (s *Service) resolveReferences(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	repo := s.repo.WithTx(tx)

	if t.CategoryID != "" {
		if err := repo.Owns(ctx, "category", t.UserID, t.CategoryID); err != nil {
			return err
		}
	} else if t.CategoryName != "" && t.Type != domain.TransactionTypeTransfer {
		c, err := s.categories.WithTx(tx).FindOrCreate(ctx, t.UserID, t.CategoryName, categoryTypeFor(t.Type))
		if err != nil {
			return err
		}
		t.CategoryID = c.ID
		t.CategoryName = c.Name
	}
	if t.ProjectID != "" {
		if err := repo.Owns(ctx, "project", t.UserID, t.ProjectID); err != nil {
			return err
		}
	}
	if t.InvestmentID != "" {
		if err := repo.Owns(ctx, "investment", t.UserID, t.InvestmentID); err != nil {
			return err
		}
	}
	return nil
}

// postFee books a transfer's fee as an EXPENSE on the source account
func (s *Service) postFee(ctx context.Context, tx *sql.Tx, parent *domain.Transaction) error {
	if parent.Type != domain.TransactionTypeTransfer || parent.Fee == nil || *parent.Fee <= 0 {
		return nil
	}

	category, err := s.categories.WithTx(tx).FindOrCreate(ctx, parent.UserID, categories.TransferFee, domain.CategoryTypeExpense)
	if err != nil {
		return err
	}

	fee := &domain.Transaction{
		UserID:      parent.UserID,
		Type:        domain.TransactionTypeExpense,
		Amount:      *parent.Fee,
		Currency:    parent.Currency,
		Date:        parent.Date,
		AccountID:   parent.AccountID,
		CategoryID:  category.ID,
		ProjectID:   parent.ProjectID,
		FeeParentID: parent.ID,
		Note:        "Transfer fee",
		Source:      domain.SourceSystem,
	}
	return s.repo.WithTx(tx).Create(ctx, fee)
}

func (s *Service) emit(userID, action string, ids ...string) {
	s.bus.Emit(userID, "transactions", &events.LedgerChangedData{Entity: "transaction", Action: action, IDs: ids})
}

func categoryTypeFor(t domain.TransactionType) domain.CategoryType {
	if t == domain.TransactionTypeIncome {
		return domain.CategoryTypeIncome
	}
	return domain.CategoryTypeExpense
}

func hasSplitChildren(children []domain.Transaction, parentID string) bool {
	for _, c := range children {
		if c.SplitParentID == parentID {
			return true
		}
	}
	return false
}

func sameAmount(a, b float64) bool {
	return decimal.NewFromFloat(a).Equal(decimal.NewFromFloat(b))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
