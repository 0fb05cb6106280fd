package investments

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
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BalanceRecalculator recomputes account balances inside a transaction
type BalanceRecalculator interface {
	RecalculateTx(ctx context.Context, tx *sql.Tx, userID string, accountIDs ...string) error
}

// DepreciationRequest records depreciation on an asset. A nil Amount books
// the scheduled depreciation accrued up to Date.
type DepreciationRequest struct {
	Amount *float64     `json:"amount"`
	Date   *domain.Date `json:"date"`
}

// CloseRequest redeems an investment into an account
type CloseRequest struct {
	AccountID string       `json:"account_id"`
	Amount    float64      `json:"amount"`
	Date      *domain.Date `json:"date"`
}

// UpdateRequest edits descriptive fields. Nil fields are unchanged.
type UpdateRequest struct {
	Name      *string `json:"name"`
	ProjectID *string `json:"project_id"`
}

// Service owns the investment lifecycle. Each operation and its ledger
// postings commit atomically.
type Service struct {
	db       *sql.DB
	repo     *Repository
	ledger   *transactions.Service
	balances BalanceRecalculator
	bus      *events.Bus
	log      zerolog.Logger
}

// NewService creates an investment service
func NewService(db *sql.DB, repo *Repository, ledger *transactions.Service, balances BalanceRecalculator, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		ledger:   ledger,
		balances: balances,
		bus:      bus,
		log:      log.With().Str("service", "investments").Logger(),
	}
}

// Repository exposes the underlying repository
func (s *Service) Repository() *Repository {
	return s.repo
}

// List returns the user's investments
func (s *Service) List(ctx context.Context, userID string, status domain.InvestmentStatus) ([]domain.Investment, error) {
	return s.repo.List(ctx, userID, status)
}

// Get returns one investment
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Investment, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// Create stores a new ACTIVE investment. Every type except ASSET must name the
// account that funds it; the funding TRANSFER is posted in the same database
// transaction, so a failed posting leaves nothing behind.
func (s *Service) Create(ctx context.Context, userID string, inv *domain.Investment) (*domain.Investment, error) {
	inv.UserID = userID
	inv.Status = domain.InvestmentStatusActive
	inv.Name = strings.TrimSpace(inv.Name)
	inv.Currency = utils.NormalizeCurrency(inv.Currency)
	inv.EndDate = nil
	if inv.StartDate.IsZero() {
		inv.StartDate = domain.Today()
	}
	if asset, ok := inv.Asset(); ok && inv.InitialAmount == 0 {
		inv.InitialAmount = asset.PurchasePrice
	}
	if inv.CurrentAmount == nil {
		v := inv.InitialAmount
		inv.CurrentAmount = &v
	}

	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if inv.Type != domain.InvestmentTypeAsset && inv.AccountID == "" {
		return nil, domain.NewValidationError("account_id", "a source account is required for non-asset investments")
	}

	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		ledgerRepo := s.ledger.Repository().WithTx(tx)
		if inv.AccountID != "" {
			if err := ledgerRepo.Owns(ctx, "account", userID, inv.AccountID); err != nil {
				return err
			}
		}
		if inv.ProjectID != "" {
			if err := ledgerRepo.Owns(ctx, "project", userID, inv.ProjectID); err != nil {
				return err
			}
		}

		if err := s.repo.WithTx(tx).Create(ctx, inv); err != nil {
			return err
		}
		if inv.AccountID == "" || inv.InitialAmount <= 0 {
			return nil
		}

		return s.ledger.Post(ctx, tx, &domain.Transaction{
			UserID:       userID,
			Type:         domain.TransactionTypeTransfer,
			Amount:       inv.InitialAmount,
			Currency:     inv.Currency,
			Date:         inv.StartDate,
			AccountID:    inv.AccountID,
			InvestmentID: inv.ID,
			ProjectID:    inv.ProjectID,
			Note:         "Funding: " + inv.Name,
			Source:       domain.SourceSystem,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("investment_id", inv.ID).Str("type", string(inv.Type)).Msg("Investment created")
	s.emit(userID, "created", inv.ID)
	return inv, nil
}

// Update edits descriptive fields
func (s *Service) Update(ctx context.Context, userID, id string, req UpdateRequest) (*domain.Investment, error) {
	var inv *domain.Investment
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		var err error
		if inv, err = repo.GetByID(ctx, userID, id); err != nil {
			return err
		}
		if req.Name != nil {
			if inv.Name = strings.TrimSpace(*req.Name); inv.Name == "" {
				return domain.NewValidationError("name", "is required")
			}
		}
		if req.ProjectID != nil {
			if *req.ProjectID != "" {
				if err := s.ledger.Repository().WithTx(tx).Owns(ctx, "project", userID, *req.ProjectID); err != nil {
					return err
				}
			}
			inv.ProjectID = *req.ProjectID
		}
		return repo.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.emit(userID, "updated", id)
	return inv, nil
}

// UpdateValuation marks an ACTIVE investment to amount
func (s *Service) UpdateValuation(ctx context.Context, userID, id string, amount float64) (*domain.Investment, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, domain.NewValidationError("amount", "must not be negative")
	}

	inv, err := s.mutateActive(ctx, userID, id, func(_ *sql.Tx, inv *domain.Investment) error {
		inv.CurrentAmount = &amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(userID, "revalued", id)
	return inv, nil
}

// RecordDepreciation books depreciation on an ACTIVE asset: the current amount
// drops (never below salvage), the last depreciation date advances, and an
// EXPENSE in the Depreciation category is posted to the asset's funding
// account for the amount actually removed. Assets bought without an account
// get an unattached row.
func (s *Service) RecordDepreciation(ctx context.Context, userID, id string, req DepreciationRequest) (*domain.Investment, error) {
	asOf := domain.Today()
	if req.Date != nil && !req.Date.IsZero() {
		asOf = *req.Date
	}

	inv, err := s.mutateActive(ctx, userID, id, func(tx *sql.Tx, inv *domain.Investment) error {
		asset, ok := inv.Asset()
		if !ok {
			return domain.NewValidationError("type", "only fixed assets depreciate")
		}
		if asOf.Before(inv.StartDate) {
			return domain.NewValidationError("date", "is before the asset entered service")
		}

		current := inv.Value()
		amount := 0.0
		if req.Amount != nil {
			amount = *req.Amount
			if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
				return domain.NewValidationError("amount", "must be positive")
			}
		} else {
			scheduled, _ := DepreciateAsset(inv, asOf)
			amount = current - scheduled.BookValue
		}

		next := math.Max(current-amount, asset.SalvageValue)
		booked := decimal.NewFromFloat(current).Sub(decimal.NewFromFloat(next)).Round(2).InexactFloat64()
		if booked <= 0 {
			return domain.NewValidationError("amount", "nothing left to depreciate")
		}

		inv.CurrentAmount = &next
		if asset.LastDepreciationDate == nil || asOf.After(*asset.LastDepreciationDate) {
			d := asOf
			asset.LastDepreciationDate = &d
		}
		inv.Details = asset

		return s.ledger.Post(ctx, tx, &domain.Transaction{
			UserID:       userID,
			Type:         domain.TransactionTypeExpense,
			Amount:       booked,
			Currency:     inv.Currency,
			Date:         asOf,
			AccountID:    inv.AccountID,
			CategoryName: categories.Depreciation,
			InvestmentID: inv.ID,
			ProjectID:    inv.ProjectID,
			Note:         "Depreciation: " + inv.Name,
			Source:       domain.SourceSystem,
		})
	})
	if err != nil {
		return nil, err
	}

	s.emit(userID, "depreciated", id)
	return inv, nil
}

// Close redeems an ACTIVE investment for proceeds paid into an account. The
// cost basis returns as a TRANSFER and the difference is booked as an
// Investment Gain INCOME or an Investment Loss EXPENSE on that account.
func (s *Service) Close(ctx context.Context, userID, id string, req CloseRequest) (*domain.Investment, error) {
	if req.Amount < 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, domain.NewValidationError("amount", "must not be negative")
	}
	date := domain.Today()
	if req.Date != nil && !req.Date.IsZero() {
		date = *req.Date
	}

	inv, err := s.mutateActive(ctx, userID, id, func(tx *sql.Tx, inv *domain.Investment) error {
		accountID := req.AccountID
		if accountID == "" {
			accountID = inv.AccountID
		}
		if accountID == "" {
			return domain.NewValidationError("account_id", "is required to receive the proceeds")
		}

		basis := costBasis(inv, date)
		proceeds := decimal.NewFromFloat(req.Amount)
		diff := proceeds.Sub(decimal.NewFromFloat(basis)).Round(2)

		if basis > 0 {
			err := s.ledger.Post(ctx, tx, &domain.Transaction{
				UserID:              userID,
				Type:                domain.TransactionTypeTransfer,
				Amount:              basis,
				Currency:            inv.Currency,
				Date:                date,
				TransferToAccountID: accountID,
				InvestmentID:        inv.ID,
				ProjectID:           inv.ProjectID,
				Note:                "Principal returned: " + inv.Name,
				Source:              domain.SourceSystem,
			})
			if err != nil {
				return err
			}
		}

		if !diff.IsZero() {
			settlement := &domain.Transaction{
				UserID:       userID,
				Type:         domain.TransactionTypeIncome,
				Amount:       diff.Abs().InexactFloat64(),
				Currency:     inv.Currency,
				Date:         date,
				AccountID:    accountID,
				CategoryName: categories.InvestmentGain,
				InvestmentID: inv.ID,
				ProjectID:    inv.ProjectID,
				Note:         "Gain: " + inv.Name,
				Source:       domain.SourceSystem,
			}
			if diff.IsNegative() {
				settlement.Type = domain.TransactionTypeExpense
				settlement.CategoryName = categories.InvestmentLoss
				settlement.Note = "Loss: " + inv.Name
			}
			if err := s.ledger.Post(ctx, tx, settlement); err != nil {
				return err
			}
		}

		zero := 0.0
		inv.Status = domain.InvestmentStatusClosed
		inv.CurrentAmount = &zero
		inv.EndDate = &date
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("investment_id", id).Float64("proceeds", req.Amount).Msg("Investment closed")
	s.emit(userID, "closed", id)
	return inv, nil
}

// WriteOff ends an ACTIVE investment by booking its book value on the
// write-off date as a non-cash Investment Loss EXPENSE.
func (s *Service) WriteOff(ctx context.Context, userID, id string, date *domain.Date) (*domain.Investment, error) {
	on := domain.Today()
	if date != nil && !date.IsZero() {
		on = *date
	}

	inv, err := s.mutateActive(ctx, userID, id, func(tx *sql.Tx, inv *domain.Investment) error {
		remaining := decimal.NewFromFloat(BookValue(inv, on)).Round(2).InexactFloat64()
		if remaining > 0 {
			err := s.ledger.Post(ctx, tx, &domain.Transaction{
				UserID:       userID,
				Type:         domain.TransactionTypeExpense,
				Amount:       remaining,
				Currency:     inv.Currency,
				Date:         on,
				CategoryName: categories.InvestmentLoss,
				InvestmentID: inv.ID,
				ProjectID:    inv.ProjectID,
				Note:         "Write-off: " + inv.Name,
				Source:       domain.SourceSystem,
			})
			if err != nil {
				return err
			}
		}

		zero := 0.0
		inv.Status = domain.InvestmentStatusWrittenOff
		inv.CurrentAmount = &zero
		inv.EndDate = &on
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(userID, "written_off", id)
	return inv, nil
}

// Delete removes an investment with every ledger row it posted
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.repo.WithTx(tx).GetByID(ctx, userID, id); err != nil {
			return err
		}

		ledgerRepo := s.ledger.Repository().WithTx(tx)
		rows, err := ledgerRepo.List(ctx, userID, transactions.Filter{InvestmentID: id})
		if err != nil {
			return err
		}
		var affected []string
		for _, row := range rows {
			affected = append(affected, row.AccountID, row.TransferToAccountID)
			if err := ledgerRepo.DeleteFeeChildren(ctx, userID, row.ID); err != nil {
				return err
			}
			if err := ledgerRepo.DeleteSplitChildren(ctx, userID, row.ID); err != nil {
				return err
			}
			if err := ledgerRepo.Delete(ctx, userID, row.ID); err != nil {
				return err
			}
		}

		if err := s.repo.WithTx(tx).Delete(ctx, userID, id); err != nil {
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

// mutateActive loads id, rejects non-ACTIVE investments with
// domain.ErrInvalidState, applies fn and stores the result in one transaction
func (s *Service) mutateActive(ctx context.Context, userID, id string, fn func(*sql.Tx, *domain.Investment) error) (*domain.Investment, error) {
	var inv *domain.Investment
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		var err error
		if inv, err = repo.GetByID(ctx, userID, id); err != nil {
			return err
		}
		if !inv.IsActive() {
			return fmt.Errorf("investment %s is %s: %w", id, strings.ToLower(string(inv.Status)), domain.ErrInvalidState)
		}
		if err := fn(tx, inv); err != nil {
			return err
		}
		return repo.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) emit(userID, action string, ids ...string) {
	s.bus.Emit(userID, "investments", &events.LedgerChangedData{Entity: "investment", Action: action, IDs: ids})
}

// costBasis is what a redemption on date returns as principal: the book
// value of an asset, the funded amount of anything else
func costBasis(inv *domain.Investment, date domain.Date) float64 {
	if inv.Type == domain.InvestmentTypeAsset {
		return BookValue(inv, date)
	}
	return inv.InitialAmount
}
