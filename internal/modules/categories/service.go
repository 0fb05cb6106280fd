package categories

import (
	"context"
	"database/sql"
	"strings"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/database"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/rs/zerolog"
)

// Service validates category changes and publishes them
type Service struct {
	db   *sql.DB
	repo *Repository
	bus  *events.Bus
	log  zerolog.Logger
}

// NewService creates a category service
func NewService(db *sql.DB, repo *Repository, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		db:   db,
		repo: repo,
		bus:  bus,
		log:  log.With().Str("service", "categories").Logger(),
	}
}

// Repository exposes the underlying repository
func (s *Service) Repository() *Repository {
	return s.repo
}

// List returns the user's categories
func (s *Service) List(ctx context.Context, userID string, categoryType domain.CategoryType) ([]domain.Category, error) {
	if categoryType != "" && !categoryType.Valid() {
		return nil, domain.NewValidationError("type", "must be INCOME or EXPENSE")
	}
	return s.repo.List(ctx, userID, categoryType)
}

// Create adds a user-defined category
func (s *Service) Create(ctx context.Context, userID, name, icon string, categoryType domain.CategoryType) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if !categoryType.Valid() {
		return nil, domain.NewValidationError("type", "must be INCOME or EXPENSE")
	}

	c := &domain.Category{UserID: userID, Name: name, Icon: icon, Type: categoryType}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.bus.Emit(userID, "categories", &events.LedgerChangedData{Entity: "category", Action: "created", IDs: []string{c.ID}})
	return c, nil
}

// Delete removes a user-defined category. Seeded categories cannot be deleted.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := database.WithTransactionContext(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		c, err := repo.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if c.IsDefault {
			return domain.NewValidationError("id", "default categories cannot be deleted")
		}
		return repo.Delete(ctx, userID, id)
	})
	if err != nil {
		return err
	}

	s.bus.Emit(userID, "categories", &events.LedgerChangedData{Entity: "category", Action: "deleted", IDs: []string{id}})
	return nil
}
