package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/accounts"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/categories"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions"
	testhelpers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecognizer struct{}

func (stubRecognizer) Recognize(_ context.Context, image []byte, mimeType string) ([]transactions.Candidate, error) {
	return []transactions.Candidate{{Amount: float64(len(image)), Note: mimeType}}, nil
}

type env struct {
	router    http.Handler
	accountID string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testhelpers.NewTestDB(t, "ledger")
	log := zerolog.Nop()

	acctSvc := accounts.NewService(db.Conn(), accounts.NewRepository(db.Conn(), log), nil, nil, log)
	acct, err := acctSvc.Create(context.Background(), "u1", accounts.CreateRequest{Name: "A", Currency: "USD", InitialBalance: 90})
	require.NoError(t, err)

	svc := transactions.NewService(db.Conn(), transactions.NewRepository(db.Conn(), log),
		categories.NewRepository(db.Conn(), log), acctSvc, stubRecognizer{}, nil, log)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id := req.Header.Get("X-Test-User"); id != "" {
				req = req.WithContext(auth.WithUserID(req.Context(), id))
			}
			next.ServeHTTP(w, req)
		})
	})
	NewHandler(svc, log).RegisterRoutes(r)
	return &env{router: r, accountID: acct.ID}
}

func (e *env) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Test-User", "u1")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestCreateAndSplit(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/transactions",
		`{"type":"EXPENSE","amount":90,"account_id":"`+e.accountID+`","date":"2024-05-01"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	w = e.do(http.MethodPost, "/transactions/"+created.Data.ID+"/split",
		`{"parts":[{"amount":30},{"amount":30},{"amount":29}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	w = e.do(http.MethodPost, "/transactions/"+created.Data.ID+"/split",
		`{"parts":[{"amount":30},{"amount":30},{"amount":30}]}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = e.do(http.MethodGet, "/transactions/"+created.Data.ID+"/children", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGet_OtherUserIsNotFound(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/transactions", `{"type":"INCOME","amount":5,"account_id":"`+e.accountID+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodGet, "/transactions/"+created.Data.ID, nil)
	req.Header.Set("X-Test-User", "u2")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestList_Unauthorized(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestList_BadFilter(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/transactions?from=yesterday", "").Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/transactions?limit=-1", "").Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/transactions?type=EXPENSE&limit=5", "").Code)
}

func TestExport(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated,
		e.do(http.MethodPost, "/transactions", `{"type":"EXPENSE","amount":3,"account_id":"`+e.accountID+`","date":"2024-05-01"}`).Code)

	w := e.do(http.MethodGet, "/transactions/export.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Date,Type,Category,Amount,Currency,Merchant,Note,Source\n"))
	assert.Contains(t, w.Body.String(), "2024-05-01,EXPENSE,,3.00,USD,,,MANUAL")
}

func TestRecognize(t *testing.T) {
	e := newEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "receipt.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nrest"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/transactions/recognize", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Test-User", "u1")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"note":"image/png"`)
}
