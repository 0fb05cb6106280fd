// Package handlers provides HTTP handlers for user settings.
package handlers

import (
	"context"
	"net/http"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/settings"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AccountChecker verifies that an account exists and belongs to the user.
type AccountChecker interface {
	Exists(ctx context.Context, userID, accountID string) error
}

// Handler provides HTTP handlers for settings endpoints
type Handler struct {
	service  *settings.Service
	accounts AccountChecker
	global   *settings.Repository
	log      zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(service *settings.Service, accounts AccountChecker, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		accounts: accounts,
		log:      log.With().Str("handler", "settings").Logger(),
	}
}

// EnableGlobal exposes the settings-table overrides under /settings/global.
// Any authenticated user can change them, so only dev servers enable it.
func (h *Handler) EnableGlobal(repo *settings.Repository) *Handler {
	h.global = repo
	return h
}

// UpdateRequest is the body of PUT /api/settings. Omitted fields are unchanged;
// empty strings reset to the default.
type UpdateRequest struct {
	BaseCurrency     *string `json:"base_currency"`
	DefaultAccountID *string `json:"default_account_id"`
}

// RegisterRoutes registers settings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Put("/", h.HandleUpdate)

		if h.global != nil {
			r.Route("/global", func(r chi.Router) {
				r.Get("/", h.HandleGetGlobal)
				r.Put("/{key}", h.HandleSetGlobal)
				r.Delete("/{key}", h.HandleDeleteGlobal)
			})
		}
	})
}

// HandleGet handles GET /api/settings
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	prefs, err := h.service.Preferences(r.Context(), userID)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, prefs)
}

// HandleUpdate handles PUT /api/settings
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req UpdateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	if req.DefaultAccountID != nil && *req.DefaultAccountID != "" && h.accounts != nil {
		if err := h.accounts.Exists(r.Context(), userID, *req.DefaultAccountID); err != nil {
			respond.Error(w, h.log, err)
			return
		}
	}

	prefs, err := h.service.Update(r.Context(), userID, req.BaseCurrency, req.DefaultAccountID)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, prefs)
}

// GlobalSetRequest is the body of PUT /api/settings/global/{key}
type GlobalSetRequest struct {
	Value       string  `json:"value"`
	Description *string `json:"description"`
}

const maskedValue = "********"

// HandleGetGlobal handles GET /api/settings/global
func (h *Handler) HandleGetGlobal(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireUser(r.Context()); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	all, err := h.global.GetAll()
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	for k, v := range all {
		if settings.IsSecret(k) && v != "" {
			all[k] = maskedValue
		}
	}
	respond.JSON(w, http.StatusOK, all, map[string]any{"count": len(all)})
}

// HandleSetGlobal handles PUT /api/settings/global/{key}
func (h *Handler) HandleSetGlobal(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireUser(r.Context()); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	key := chi.URLParam(r, "key")
	if _, ok := settings.GlobalKeys[key]; !ok {
		respond.Error(w, h.log, domain.NewValidationError("key", "unknown setting"))
		return
	}

	var req GlobalSetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if err := h.global.Set(key, req.Value, req.Description); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	h.log.Info().Str("key", key).Msg("Global setting updated, applies on restart")
	respond.OK(w, map[string]string{"key": key})
}

// HandleDeleteGlobal handles DELETE /api/settings/global/{key}
func (h *Handler) HandleDeleteGlobal(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireUser(r.Context()); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	key := chi.URLParam(r, "key")
	if err := h.global.Delete(key); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, map[string]string{"key": key})
}
