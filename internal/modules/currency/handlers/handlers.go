// Package handlers provides HTTP handlers for currency operations.
package handlers

import (
	"context"
	"net/http"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/currency"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/utils"
	"github.com/rs/zerolog"
)

// BaseResolver returns the reporting currency of a user.
type BaseResolver interface {
	BaseCurrency(ctx context.Context, userID string) string
}

// Handler handles currency HTTP requests
type Handler struct {
	service *currency.Service
	bases   BaseResolver
	log     zerolog.Logger
}

// NewHandler creates a new currency handler
func NewHandler(service *currency.Service, bases BaseResolver, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		bases:   bases,
		log:     log.With().Str("handler", "currency").Logger(),
	}
}

// ConvertRequest represents a request to convert currency
type ConvertRequest struct {
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Amount       float64 `json:"amount"`
}

// HandleGetRates handles GET /api/currency/rates
func (h *Handler) HandleGetRates(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	conv := h.service.Converter(r.Context(), h.bases.BaseCurrency(r.Context(), userID))
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"base":  conv.Base(),
		"rates": conv.Rates(),
	}, map[string]interface{}{"degraded": conv.Degraded()})
}

// HandleConvert handles POST /api/currency/convert
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req ConvertRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	from := utils.NormalizeCurrency(req.FromCurrency)
	to := utils.NormalizeCurrency(req.ToCurrency)
	if to == "" {
		to = h.bases.BaseCurrency(r.Context(), userID)
	}
	if from == "" {
		respond.Error(w, h.log, domain.NewValidationError("from_currency", "is required"))
		return
	}

	conv := h.service.Converter(r.Context(), to)
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"from_currency": from,
		"to_currency":   to,
		"amount":        req.Amount,
		"converted":     conv.Convert(req.Amount, from, to),
	}, map[string]interface{}{"degraded": conv.Degraded()})
}
