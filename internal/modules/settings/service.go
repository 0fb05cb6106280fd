package settings

import (
	"context"
	"regexp"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/utils"
	"github.com/rs/zerolog"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Service resolves per-user preferences with configured fallbacks.
type Service struct {
	users            *UserRepository
	bus              *events.Bus
	baseCurrency     string
	defaultAccountID string
	log              zerolog.Logger
}

// NewService creates a settings service. baseCurrency and defaultAccountID
// apply to users without their own preference.
func NewService(users *UserRepository, bus *events.Bus, baseCurrency, defaultAccountID string, log zerolog.Logger) *Service {
	return &Service{
		users:            users,
		bus:              bus,
		baseCurrency:     baseCurrency,
		defaultAccountID: defaultAccountID,
		log:              log.With().Str("service", "settings").Logger(),
	}
}

// Preferences returns the effective preferences of userID.
func (s *Service) Preferences(ctx context.Context, userID string) (*Preferences, error) {
	stored, err := s.users.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs := &Preferences{
		BaseCurrency:     s.baseCurrency,
		DefaultAccountID: s.defaultAccountID,
	}
	if v := stored[KeyBaseCurrency]; v != "" {
		prefs.BaseCurrency = v
	}
	if v, ok := stored[KeyDefaultAccountID]; ok {
		prefs.DefaultAccountID = v
	}
	return prefs, nil
}

// BaseCurrency returns the user's reporting currency. Lookup failures fall
// back to the configured default.
func (s *Service) BaseCurrency(ctx context.Context, userID string) string {
	prefs, err := s.Preferences(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load preferences, using default base currency")
		return s.baseCurrency
	}
	return prefs.BaseCurrency
}

// DefaultAccountID returns the explicitly configured default account ("" when none).
func (s *Service) DefaultAccountID(ctx context.Context, userID string) (string, error) {
	prefs, err := s.Preferences(ctx, userID)
	if err != nil {
		return "", err
	}
	return prefs.DefaultAccountID, nil
}

// Update stores the non-nil fields of the update.
func (s *Service) Update(ctx context.Context, userID string, baseCurrency, defaultAccountID *string) (*Preferences, error) {
	var changed []string

	if baseCurrency != nil {
		code := utils.NormalizeCurrency(*baseCurrency)
		if code != "" && !currencyPattern.MatchString(code) {
			return nil, domain.NewValidationError("base_currency", "must be a 3-letter currency code")
		}
		if err := s.users.Set(ctx, userID, KeyBaseCurrency, code); err != nil {
			return nil, err
		}
		changed = append(changed, KeyBaseCurrency)
	}

	if defaultAccountID != nil {
		if err := s.users.Set(ctx, userID, KeyDefaultAccountID, *defaultAccountID); err != nil {
			return nil, err
		}
		changed = append(changed, KeyDefaultAccountID)
	}

	if len(changed) > 0 {
		s.bus.Emit(userID, "settings", &events.SettingsChangedData{Keys: changed})
	}
	return s.Preferences(ctx, userID)
}
