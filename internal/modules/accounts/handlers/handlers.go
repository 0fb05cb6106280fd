// Package handlers provides HTTP handlers for accounts.
package handlers

import (
	"net/http"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/accounts"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for account endpoints
type Handler struct {
	service *accounts.Service
	log     zerolog.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(service *accounts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "accounts").Logger(),
	}
}

// HandleList handles GET /api/accounts
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, list, map[string]any{"count": len(list)})
}

// HandleCreate handles POST /api/accounts
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req accounts.CreateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	account, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.Created(w, account)
}

// HandleGet handles GET /api/accounts/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	account, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, account)
}

// HandleGetDefault handles GET /api/accounts/default
func (h *Handler) HandleGetDefault(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	account, err := h.service.ResolveDefault(r.Context(), userID)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, account)
}

// HandleUpdate handles PUT /api/accounts/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req accounts.UpdateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	account, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, account)
}

// HandleDelete handles DELETE /api/accounts/{id}
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

// HandleSetDefault handles POST /api/accounts/{id}/default
func (h *Handler) HandleSetDefault(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	account, err := h.service.SetDefault(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, account)
}

// HandleRecalculate handles POST /api/accounts/{id}/recalculate
func (h *Handler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Exists(r.Context(), userID, id); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	balance, err := h.service.Recalculate(r.Context(), userID, id)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, map[string]any{"id": id, "current_balance": balance})
}
