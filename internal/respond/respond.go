// Package respond writes the uniform {success, data, error, metadata} envelope
// shared by every HTTP handler.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/rs/zerolog"
)

// GenericError is the only failure message shown for unexpected errors.
const GenericError = "Something went wrong"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Envelope is the response body of every API endpoint.
type Envelope struct {
	Data     any            `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata"`
	Error    string         `json:"error,omitempty"`
	Success  bool           `json:"success"`
}

// JSON writes data with status and optional extra metadata.
func JSON(w http.ResponseWriter, status int, data any, meta map[string]any) {
	metadata := map[string]any{"timestamp": time.Now().Format(time.RFC3339)}
	for k, v := range meta {
		metadata[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Success:  status < 400,
		Data:     data,
		Metadata: metadata,
	})
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data, nil)
}

// Created writes a 201 response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data, nil)
}

// Fail writes a failure envelope with an explicit message.
func Fail(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Error:    message,
		Metadata: map[string]any{"timestamp": time.Now().Format(time.RFC3339)},
	})
}

// Status maps a domain error to its HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message is the caller-visible text for err. Unexpected errors never leak.
func Message(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
		return "Not found"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidState):
		return err.Error()
	default:
		return GenericError
	}
}

// Error logs err and writes the mapped failure envelope.
func Error(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := Status(err)
	if status >= 500 {
		log.Error().Err(err).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	Fail(w, status, Message(err))
}

// Decode reads a JSON body into dst. Malformed bodies are validation errors.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return domain.NewValidationError("body", "invalid JSON request body")
	}
	return nil
}
