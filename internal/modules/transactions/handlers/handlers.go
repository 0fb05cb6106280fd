// Package handlers provides HTTP handlers for transactions.
package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxImageBytes = 10 << 20

// Handler provides HTTP handlers for transaction endpoints
type Handler struct {
	service *transactions.Service
	log     zerolog.Logger
}

// NewHandler creates a new transactions handler
func NewHandler(service *transactions.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "transactions").Logger(),
	}
}

// SplitRequest is the body of POST /api/transactions/{id}/split
type SplitRequest struct {
	Parts []transactions.SplitPart `json:"parts"`
}

// HandleList handles GET /api/transactions
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	list, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, list, map[string]any{"count": len(list)})
}

// HandleCreate handles POST /api/transactions
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var in domain.Transaction
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	in.Source = domain.SourceManual

	created, err := h.service.Create(r.Context(), userID, &in)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.Created(w, created)
}

// HandleGet handles GET /api/transactions/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	t, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, t)
}

// HandleChildren handles GET /api/transactions/{id}/children
func (h *Handler) HandleChildren(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	children, err := h.service.Children(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, children)
}

// HandleUpdate handles PUT /api/transactions/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var in domain.Transaction
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	updated, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), &in)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, updated)
}

// HandleDelete handles DELETE /api/transactions/{id}
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

// HandleSplit handles POST /api/transactions/{id}/split
func (h *Handler) HandleSplit(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req SplitRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	children, err := h.service.Split(r.Context(), userID, chi.URLParam(r, "id"), req.Parts)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.Created(w, children)
}

// HandleUnsplit handles DELETE /api/transactions/{id}/split
func (h *Handler) HandleUnsplit(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Unsplit(r.Context(), userID, id); err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.OK(w, map[string]string{"id": id})
}

// HandleImport handles POST /api/transactions/import
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	var req transactions.ImportRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	created, err := h.service.Import(r.Context(), userID, req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, created, map[string]any{"count": len(created)})
}

// HandleRecognize handles POST /api/transactions/recognize (multipart field "image")
func (h *Handler) HandleRecognize(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireUser(r.Context()); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1<<20)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		respond.Error(w, h.log, domain.NewValidationError("image", "expected a multipart upload"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respond.Error(w, h.log, domain.NewValidationError("image", "is required"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		respond.Error(w, h.log, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}

	candidates, err := h.service.Recognize(r.Context(), image, mimeType)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, candidates, map[string]any{"count": len(candidates)})
}

// HandleExport handles GET /api/transactions/export.csv
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	filename := fmt.Sprintf("transactions-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	n, err := h.service.ExportCSV(r.Context(), w, userID)
	if err != nil {
		// headers may already be out; log only
		h.log.Error().Err(err).Str("user_id", userID).Msg("CSV export failed")
		return
	}
	h.log.Debug().Int("rows", n).Msg("CSV export written")
}

func parseFilter(r *http.Request) (transactions.Filter, error) {
	q := r.URL.Query()
	f := transactions.Filter{
		AccountID:    q.Get("account_id"),
		CategoryID:   q.Get("category_id"),
		ProjectID:    q.Get("project_id"),
		InvestmentID: q.Get("investment_id"),
		Type:         domain.TransactionType(q.Get("type")),
	}
	if f.Type != "" && !f.Type.Valid() {
		return f, domain.NewValidationError("type", "must be INCOME, EXPENSE or TRANSFER")
	}

	for key, dst := range map[string]**domain.Date{"from": &f.From, "to": &f.To} {
		if v := q.Get(key); v != "" {
			d, err := domain.ParseDate(v)
			if err != nil {
				return f, domain.NewValidationError(key, "must be YYYY-MM-DD")
			}
			*dst = &d
		}
	}

	for key, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return f, domain.NewValidationError(key, "must be a non-negative integer")
			}
			*dst = n
		}
	}
	return f, nil
}
