// Package handlers provides HTTP handlers for recurring rules.
package handlers

import (
	"net/http"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/recurring"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for recurring rule endpoints
type Handler struct {
	service *recurring.Service
	log     zerolog.Logger
}

// NewHandler creates a new recurring rules handler
func NewHandler(service *recurring.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "recurring").Logger(),
	}
}

// RegisterRoutes registers recurring rule routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/recurring", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Post("/process", h.HandleProcess)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
		})
	})
}

// HandleList handles GET /api/recurring
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	rules, err := h.service.List(r.Context(), userID)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if rules == nil {
		rules = []domain.RecurringRule{}
	}
	respond.JSON(w, http.StatusOK, rules, map[string]any{"count": len(rules)})
}

// HandleCreate handles POST /api/recurring
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req recurring.RuleRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	rule, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.Created(w, rule)
}

// HandleGet handles GET /api/recurring/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	rule, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, rule)
}

// HandleUpdate handles PUT /api/recurring/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req recurring.RuleRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	rule, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, rule)
}

// HandleDelete handles DELETE /api/recurring/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, map[string]string{"id": id})
}

// HandleProcess handles POST /api/recurring/process. Rules that failed are
// logged; the rules that fired are still reported.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	result, err := h.service.Process(r.Context(), userID, domain.Today())
	if result == nil {
		respond.Error(w, h.log, err)
		return
	}
	meta := map[string]any{"rules_fired": result.RulesFired}
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("Some recurring rules failed")
		meta["partial"] = true
	}
	respond.JSON(w, http.StatusOK, result, meta)
}
