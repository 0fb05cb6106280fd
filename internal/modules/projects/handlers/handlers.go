// Package handlers provides HTTP handlers for projects.
package handlers

import (
	"net/http"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/projects"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for project endpoints
type Handler struct {
	service *projects.Service
	log     zerolog.Logger
}

// NewHandler creates a new projects handler
func NewHandler(service *projects.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "projects").Logger(),
	}
}

// RegisterRoutes registers project routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
			r.Get("/stats", h.HandleStats)
			r.Get("/transactions", h.HandleTransactions)
		})
	})
}

// HandleList handles GET /api/projects
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
	if list == nil {
		list = []domain.Project{}
	}
	respond.JSON(w, http.StatusOK, list, map[string]any{"count": len(list)})
}

// HandleCreate handles POST /api/projects
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req projects.ProjectRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	p, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.Created(w, p)
}

// HandleGet handles GET /api/projects/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	p, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, p)
}

// HandleUpdate handles PUT /api/projects/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req projects.ProjectRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	p, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, p)
}

// HandleDelete handles DELETE /api/projects/{id}
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

// HandleStats handles GET /api/projects/{id}/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	stats, err := h.service.Stats(r.Context(), userID, chi.URLParam(r, "id"), domain.Today())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, stats)
}

// HandleTransactions handles GET /api/projects/{id}/transactions
func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	txs, err := h.service.Transactions(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	respond.JSON(w, http.StatusOK, txs, map[string]any{"count": len(txs)})
}
