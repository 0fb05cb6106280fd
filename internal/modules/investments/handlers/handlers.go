// Package handlers provides HTTP handlers for investments.
package handlers

import (
	"net/http"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/investments"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for investment endpoints
type Handler struct {
	service *investments.Service
	log     zerolog.Logger
}

// NewHandler creates a new investments handler
func NewHandler(service *investments.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "investments").Logger(),
	}
}

// InvestmentView adds today's depreciation state to fixed assets
type InvestmentView struct {
	*domain.Investment
	Depreciation *investments.DepreciationResult `json:"depreciation,omitempty"`
}

// ValuationRequest is the body of POST /api/investments/{id}/valuation
type ValuationRequest struct {
	Amount float64 `json:"amount"`
}

// WriteOffRequest is the body of POST /api/investments/{id}/write-off
type WriteOffRequest struct {
	Date *domain.Date `json:"date"`
}

// RegisterRoutes registers investment routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/investments", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
			r.Post("/valuation", h.HandleValuation)
			r.Post("/depreciation", h.HandleDepreciation)
			r.Post("/close", h.HandleClose)
			r.Post("/write-off", h.HandleWriteOff)
		})
	})
}

func view(inv *domain.Investment) InvestmentView {
	v := InvestmentView{Investment: inv}
	if inv.IsActive() {
		if result, ok := investments.DepreciateAsset(inv, domain.Today()); ok {
			v.Depreciation = &result
		}
	}
	return v
}

// HandleList handles GET /api/investments?status=ACTIVE
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	list, err := h.service.List(r.Context(), userID, domain.InvestmentStatus(r.URL.Query().Get("status")))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	views := make([]InvestmentView, len(list))
	for i := range list {
		views[i] = view(&list[i])
	}
	respond.JSON(w, http.StatusOK, views, map[string]any{"count": len(views)})
}

// HandleCreate handles POST /api/investments
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var inv domain.Investment
	if err := respond.Decode(r, &inv); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	created, err := h.service.Create(r.Context(), userID, &inv)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.Created(w, view(created))
}

// HandleGet handles GET /api/investments/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	inv, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, view(inv))
}

// HandleUpdate handles PUT /api/investments/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req investments.UpdateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	inv, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, view(inv))
}

// HandleDelete handles DELETE /api/investments/{id}
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

// HandleValuation handles POST /api/investments/{id}/valuation
func (h *Handler) HandleValuation(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req ValuationRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	inv, err := h.service.UpdateValuation(r.Context(), userID, chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, view(inv))
}

// HandleDepreciation handles POST /api/investments/{id}/depreciation
func (h *Handler) HandleDepreciation(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req investments.DepreciationRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	inv, err := h.service.RecordDepreciation(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, view(inv))
}

// HandleClose handles POST /api/investments/{id}/close
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req investments.CloseRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	inv, err := h.service.Close(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, view(inv))
}

// HandleWriteOff handles POST /api/investments/{id}/write-off
func (h *Handler) HandleWriteOff(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req WriteOffRequest
	if r.ContentLength != 0 {
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, h.log, err)
			return
		}
	}

	inv, err := h.service.WriteOff(r.Context(), userID, chi.URLParam(r, "id"), req.Date)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, view(inv))
}
