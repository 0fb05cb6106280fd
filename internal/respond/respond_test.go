package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("account x: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrForbidden, http.StatusNotFound},
		{domain.NewValidationError("amount", "bad"), http.StatusBadRequest},
		{domain.ErrInvalidState, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, Status(tt.err), tt.err.Error())
	}
}

func TestError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, zerolog.Nop(), errors.New("sql: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, GenericError, env.Error)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestError_ValidationMessage(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, zerolog.Nop(), domain.NewValidationError("parts", "must sum to 90.00"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "parts: must sum to 90.00")
}

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, map[string]int{"balance": 70})

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(70), body["data"].(map[string]any)["balance"])
	assert.Contains(t, body["metadata"], "timestamp")
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, Decode(r, &dst))
	assert.Equal(t, "x", dst.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.ErrorIs(t, Decode(r, &dst), domain.ErrValidation)
}
