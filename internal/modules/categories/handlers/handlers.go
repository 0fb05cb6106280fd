// Package handlers provides HTTP handlers for categories.
package handlers

import (
	"net/http"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/categories"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for category endpoints
type Handler struct {
	service *categories.Service
	log     zerolog.Logger
}

// NewHandler creates a new categories handler
func NewHandler(service *categories.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "categories").Logger(),
	}
}

// CreateRequest is the body of POST /api/categories
type CreateRequest struct {
	Name string              `json:"name"`
	Icon string              `json:"icon"`
	Type domain.CategoryType `json:"type"`
}

// RegisterRoutes registers category routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleList handles GET /api/categories?type=EXPENSE
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	list, err := h.service.List(r.Context(), userID, domain.CategoryType(r.URL.Query().Get("type")))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, list)
}

// HandleCreate handles POST /api/categories
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req CreateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	c, err := h.service.Create(r.Context(), userID, req.Name, req.Icon, req.Type)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.Created(w, c)
}

// HandleDelete handles DELETE /api/categories/{id}
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
