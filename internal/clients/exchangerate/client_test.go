package exchangerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/clientdata"
	testhelpers "github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *clientdata.Repository {
	db := testhelpers.NewTestDB(t, "client_data")
	return clientdata.NewRepository(db.Conn())
}

func TestGetExchangeRates_PublicEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/USD", r.URL.Path)
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"USD":1,"EUR":0.92,"gbp":0.79}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil, zerolog.Nop())
	table, err := c.GetExchangeRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.92, table["EUR"])
	assert.Equal(t, 0.79, table["GBP"])
	assert.Equal(t, 1.0, table["USD"])
}

func TestGetExchangeRates_KeyedEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/secret/latest/USD", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","conversion_rates":{"USD":1,"JPY":150}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", nil, zerolog.Nop())
	table, err := c.GetExchangeRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.0, table["JPY"])
}

func TestGetExchangeRates_UsesFreshCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"rates":{"EUR":0.9}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", newCache(t), zerolog.Nop())
	_, err := c.GetExchangeRates(context.Background())
	require.NoError(t, err)
	_, err = c.GetExchangeRates(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetExchangeRates_StaleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cache := newCache(t)
	stale := cachedTable{Rates: map[string]float64{"USD": 1, "EUR": 0.5}, FetchedAt: time.Now().Add(-48 * time.Hour)}
	require.NoError(t, cache.Store(context.Background(), "exchangerate", Pivot, stale, -time.Hour))

	c := NewClient(srv.URL, "", cache, zerolog.Nop())
	table, err := c.GetExchangeRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.5, table["EUR"])
}

func TestGetExchangeRates_NothingAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", newCache(t), zerolog.Nop())
	table, err := c.GetExchangeRates(context.Background())
	assert.Error(t, err)
	assert.Nil(t, table)
}

func TestGetExchangeRates_EmptyTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rates":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", nil, zerolog.Nop()).GetExchangeRates(context.Background())
	assert.Error(t, err)
}
