// Package handlers provides HTTP handlers for reports and the dashboard.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/reports"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for report endpoints
type Handler struct {
	service *reports.Service
	log     zerolog.Logger
}

// NewHandler creates a new reports handler
func NewHandler(service *reports.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "reports").Logger(),
	}
}

// RegisterRoutes registers report routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/series", h.HandleSeries)
		r.Get("/series.png", h.HandleSeriesChart)
	})
	r.Get("/dashboard", h.HandleDashboard)
}

// HandleSeries handles GET /api/reports/series?from=&to=&granularity=&window=
func (h *Handler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	report, err := h.service.Series(r.Context(), userID, q, domain.Today())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, report, map[string]any{
		"count":    len(report.Points),
		"degraded": report.RatesDegraded,
	})
}

// HandleSeriesChart handles GET /api/reports/series.png
func (h *Handler) HandleSeriesChart(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	png, err := h.service.SeriesChart(r.Context(), userID, q, domain.Today())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// HandleDashboard handles GET /api/dashboard
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	summary, err := h.service.Dashboard(r.Context(), userID, domain.Today())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, summary, map[string]any{"degraded": summary.RatesDegraded})
}

func parseQuery(r *http.Request) (reports.SeriesQuery, error) {
	v := r.URL.Query()
	q := reports.SeriesQuery{Granularity: domain.Granularity(strings.ToUpper(v.Get("granularity")))}

	for key, dst := range map[string]**domain.Date{"from": &q.From, "to": &q.To} {
		if s := v.Get(key); s != "" {
			d, err := domain.ParseDate(s)
			if err != nil {
				return q, domain.NewValidationError(key, "must be YYYY-MM-DD")
			}
			*dst = &d
		}
	}
	if s := v.Get("window"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, domain.NewValidationError("window", "must be an integer")
		}
		q.Window = n
	}
	return q, nil
}
