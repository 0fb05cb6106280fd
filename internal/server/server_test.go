package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/config"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/di"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

type envelope struct {
	Data     json.RawMessage `json:"data"`
	Metadata map[string]any  `json:"metadata"`
	Error    string          `json:"error"`
	Success  bool            `json:"success"`
}

func newTestServer(t *testing.T) (*Server, *di.Container) {
	t.Helper()
	cfg := &config.Config{
		DataDir:              t.TempDir(),
		Port:                 8080,
		BaseCurrency:         "USD",
		JWTSecret:            "test-secret",
		DevMode:              true,
		RecurringSchedule:    "0 5 0 * * *",
		CacheCleanupSchedule: "0 30 3 * * *",
		Backup:               &config.BackupConfig{},
	}
	container, _, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	return New(Config{Log: zerolog.Nop(), Config: cfg, Container: container}), container
}

func do(t *testing.T, h http.Handler, method, path, userID string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(auth.DevUserHeader, userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec, env := do(t, s.Handler(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestAPI_RequiresUser(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := do(t, s.Handler(), http.MethodGet, "/api/accounts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDevToken_AuthenticatesRequests(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := do(t, s.Handler(), http.MethodPost, "/api/auth/dev-token", "", map[string]string{"user_id": "u1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.NotEmpty(t, body.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	out := httptest.NewRecorder()
	s.Handler().ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
}

func TestAccounts_RoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/accounts", "u1", map[string]any{
		"name": "Checking", "type": "BANK", "currency": "USD", "initial_balance": 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	_, env := do(t, h, http.MethodGet, "/api/accounts", "u1", nil)
	assert.Equal(t, float64(1), env.Metadata["count"])

	_, env = do(t, h, http.MethodGet, "/api/accounts", "u2", nil)
	assert.Equal(t, float64(0), env.Metadata["count"])
}

func TestSystemStatus(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := do(t, s.Handler(), http.MethodGet, "/api/system/status", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	require.Len(t, status.Databases, 3)
	for _, db := range status.Databases {
		assert.True(t, db.Healthy, db.Name)
	}
	assert.Len(t, status.Jobs, 5)
	assert.False(t, status.Features["backups"])
}

func TestRunJob(t *testing.T) {
	s, container := newTestServer(t)
	h := s.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/system/jobs/missing/run", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/system/jobs/check_databases/run", "u1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, job := range container.Scheduler.Jobs() {
		if job.Name == "check_databases" {
			assert.Equal(t, int64(1), job.Status.Runs)
		}
	}
}

func TestEventStream_SSE(t *testing.T) {
	s, container := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events/stream", nil)
	require.NoError(t, err)
	req.Header.Set(auth.DevUserHeader, "u1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	type frame struct {
		Type   string `json:"type"`
		Module string `json:"module"`
	}
	next := func() frame {
		for lines.Scan() {
			line := lines.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var msg frame
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg))
			return msg
		}
		t.Fatal("stream closed")
		return frame{}
	}

	assert.Equal(t, "connected", next().Type)

	// Another user's event is filtered out; the system-wide one is not
	container.EventBus.Emit("u2", "accounts", &events.LedgerChangedData{Entity: "account"})
	container.EventBus.Emit("", "reliability", &events.BackupCompletedData{Key: "k"})
	container.EventBus.Emit("u1", "accounts", &events.LedgerChangedData{Entity: "account"})

	msg := next()
	assert.Equal(t, string(events.BackupCompleted), msg.Type)
	msg = next()
	assert.Equal(t, string(events.LedgerChanged), msg.Type)
	assert.Equal(t, "accounts", msg.Module)
}

func TestEventStream_WebSocket(t *testing.T) {
	s, container := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws?types=ledger_changed"
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{auth.DevUserHeader: []string{"u1"}},
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() map[string]any {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	assert.Equal(t, "connected", read()["type"])

	container.EventBus.Emit("u1", "transactions", &events.LedgerChangedData{Entity: "transaction", IDs: []string{"t1"}})
	msg := read()
	assert.Equal(t, "ledger_changed", msg["type"])
	assert.Equal(t, "transactions", msg["module"])
}

func TestParseTypes(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?types=ledger_changed,%20backup_completed,", nil)
	assert.Equal(t, []events.EventType{events.LedgerChanged, events.BackupCompleted}, parseTypes(req))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	assert.Equal(t, events.AllEventTypes, parseTypes(req))
}

func TestGlobalSettings_DevMode(t *testing.T) {
	s, container := newTestServer(t)
	h := s.Handler()

	rec, _ := do(t, h, http.MethodPut, "/api/settings/global/gemini_api_key", "u1", map[string]string{"value": "secret-key"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodPut, "/api/settings/global/backup_enabled", "u1", map[string]string{"value": "yes"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, h, http.MethodGet, "/api/settings/global", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Equal(t, "********", all["gemini_api_key"])
	assert.Equal(t, "yes", all["backup_enabled"])

	stored, err := container.SettingsRepo.Get("gemini_api_key")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "secret-key", *stored)

	rec, _ = do(t, h, http.MethodPut, "/api/settings/global/not_a_setting", "u1", map[string]string{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/api/settings/global/gemini_api_key", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored, err = container.SettingsRepo.Get("gemini_api_key")
	require.NoError(t, err)
	assert.Nil(t, stored)

	rec, _ = do(t, h, http.MethodGet, "/api/settings/global", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
