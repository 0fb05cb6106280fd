package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/utils"
	"github.com/rs/zerolog"
)

// DefaultPreference supplies the explicitly chosen default account of a user.
type DefaultPreference interface {
	DefaultAccountID(ctx context.Context, userID string) (string, error)
}

// CreateRequest is the input of Service.Create
type CreateRequest struct {
	Name           string             `json:"name"`
	Type           domain.AccountType `json:"type"`
	Currency       string             `json:"currency"`
	InitialBalance float64            `json:"initial_balance"`
	IsDefault      bool               `json:"is_default"`
}

// UpdateRequest is the input of Service.Update. Nil fields are unchanged.
type UpdateRequest struct {
	Name           *string             `json:"name"`
	Type           *domain.AccountType `json:"type"`
	Currency       *string             `json:"currency"`
	InitialBalance *float64            `json:"initial_balance"`
}

// Service owns account lifecycle and balance recalculation
type Service struct {
	db    *sql.DB
	repo  *Repository
	prefs DefaultPreference
	bus   *events.Bus
	log   zerolog.Logger
}

// NewService creates an account service. prefs may be nil.
func NewService(db *sql.DB, repo *Repository, prefs DefaultPreference, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		db:    db,
		repo:  repo,
		prefs: prefs,
		bus:   bus,
		log:   log.With().Str("service", "accounts").Logger(),
	}
}

// Repository exposes the underlying repository
func (s *Service) Repository() *Repository {
	return s.repo
}

// List returns the user's accounts
func (s *Service) List(ctx context.Context, userID string) ([]domain.Account, error) {
	return s.repo.List(ctx, userID)
}

// Get returns one account owned by userID
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Account, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// Exists reports domain.ErrNotFound unless id belongs to userID
func (s *Service) Exists(ctx context.Context, userID, id string) error {
	_, err := s.repo.GetByID(ctx, userID, id)
	return err
}

// Create validates and stores a new account. The first account of a user
// becomes the default.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*domain.Account, error) {
	account := &domain.Account{
		UserID:         userID,
		Name:           strings.TrimSpace(req.Name),
		Type:           req.Type,
		Currency:       utils.NormalizeCurrency(req.Currency),
		InitialBalance: req.InitialBalance,
		CurrentBalance: req.InitialBalance,
	}
	if account.Type == "" {
		account.Type = domain.AccountTypeBank
	}
	if err := validate(account); err != nil {
		return nil, err
	}

	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.List(ctx, userID)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, account); err != nil {
			return err
		}
		if req.IsDefault || len(existing) == 0 {
			account.IsDefault = true
			return repo.SetDefault(ctx, userID, account.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", account.ID).Str("user_id", userID).Msg("Account created")
	s.emit(userID, "created", account.ID)
	return account, nil
}

// Update applies the non-nil fields. Changing the initial balance recomputes
// the current balance.
func (s *Service) Update(ctx context.Context, userID, id string, req UpdateRequest) (*domain.Account, error) {
	var account *domain.Account
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		var err error
		account, err = repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			account.Name = strings.TrimSpace(*req.Name)
		}
		if req.Type != nil {
			account.Type = *req.Type
		}
		if req.Currency != nil {
			account.Currency = utils.NormalizeCurrency(*req.Currency)
		}
		if req.InitialBalance != nil {
			account.InitialBalance = *req.InitialBalance
		}
		if err := validate(account); err != nil {
			return err
		}
		if err := repo.Update(ctx, account); err != nil {
			return err
		}

		balance, err := s.recalculate(ctx, repo, userID, id)
		if err != nil {
			return err
		}
		account.CurrentBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(userID, "updated", id)
	return account, nil
}

// Delete removes an account that no transaction references
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.GetByID(ctx, userID, id); err != nil {
			return err
		}
		n, err := repo.CountLedger(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.NewValidationError("id", fmt.Sprintf("account has %d transactions", n))
		}
		return repo.Delete(ctx, userID, id)
	})
	if err != nil {
		return err
	}

	s.emit(userID, "deleted", id)
	return nil
}

// SetDefault makes id the only default account of userID
func (s *Service) SetDefault(ctx context.Context, userID, id string) (*domain.Account, error) {
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		return s.repo.WithTx(tx).SetDefault(ctx, userID, id)
	})
	if err != nil {
		return nil, err
	}

	s.emit(userID, "updated", id)
	return s.repo.GetByID(ctx, userID, id)
}

// ResolveDefault picks the account new transactions post to when none is
// given: the user's preferred account if it still exists, else the flagged
// default, else nil.
func (s *Service) ResolveDefault(ctx context.Context, userID string) (*domain.Account, error) {
	if s.prefs != nil {
		id, err := s.prefs.DefaultAccountID(ctx, userID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to read default account preference")
		} else if id != "" {
			account, err := s.repo.GetByID(ctx, userID, id)
			if err == nil {
				return account, nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			s.log.Debug().Str("account_id", id).Msg("Preferred default account no longer exists")
		}
	}
	return s.repo.FlaggedDefault(ctx, userID)
}

// Recalculate recomputes and stores the balance of accountID from the full
// ledger. A missing account yields 0 without error.
func (s *Service) Recalculate(ctx context.Context, userID, accountID string) (float64, error) {
	balance, err := s.recalculate(ctx, s.repo, userID, accountID)
	if err != nil {
		return 0, err
	}
	s.emit(userID, "recalculated", accountID)
	return balance, nil
}

// RecalculateTx recomputes each distinct non-empty id inside tx. Services
// that mutate the ledger call it before committing.
func (s *Service) RecalculateTx(ctx context.Context, tx *sql.Tx, userID string, accountIDs ...string) error {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	for _, id := range Dedupe(accountIDs) {
		if _, err := s.recalculate(ctx, repo, userID, id); err != nil {
			return fmt.Errorf("failed to recalculate account %s: %w", id, err)
		}
	}
	return nil
}

// RecalculateMany is RecalculateTx in its own transaction
func (s *Service) RecalculateMany(ctx context.Context, userID string, accountIDs ...string) error {
	return database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		return s.RecalculateTx(ctx, tx, userID, accountIDs...)
	})
}

func (s *Service) recalculate(ctx context.Context, repo *Repository, userID, accountID string) (float64, error) {
	if accountID == "" {
		return 0, nil
	}
	account, err := repo.GetByID(ctx, userID, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	ledger, err := repo.Ledger(ctx, accountID)
	if err != nil {
		return 0, err
	}
	balance := CalculateBalance(account, ledger)
	if err := repo.UpdateBalance(ctx, accountID, balance); err != nil {
		return 0, err
	}

	s.log.Debug().
		Str("account_id", accountID).
		Float64("balance", balance).
		Int("transactions", len(ledger)).
		Msg("Balance recalculated")
	return balance, nil
}

func (s *Service) emit(userID, action string, ids ...string) {
	s.bus.Emit(userID, "accounts", &events.LedgerChangedData{Entity: "account", Action: action, IDs: ids})
}

// Dedupe returns the distinct non-empty ids in first-seen order
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func validate(a *domain.Account) error {
	if a.Name == "" {
		return domain.NewValidationError("name", "is required")
	}
	if !a.Type.Valid() {
		return domain.NewValidationError("type", "unknown account type")
	}
	if len(a.Currency) != 3 {
		return domain.NewValidationError("currency", "must be a 3-letter currency code")
	}
	return nil
}
