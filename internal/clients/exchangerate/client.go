// Package exchangerate fetches pivot-relative currency rate tables from
// exchangerate-api.com with a persistent cache and stale fallback.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/clientdata"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// PublicBaseURL serves keyless requests: {base}/{pivot}
	PublicBaseURL = "https://api.exchangerate-api.com/v4/latest"
	// KeyedBaseURL serves keyed requests: {base}/{key}/latest/{pivot}
	KeyedBaseURL = "https://v6.exchangerate-api.com/v6"

	// Pivot is the currency every table is expressed against.
	Pivot = "USD"

	cacheTable = "exchangerate"
)

// Client for exchangerate-api.com
type Client struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	limiter   *rate.Limiter
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new exchangerate-api.com client.
// cacheRepo is optional - if nil, caching is disabled. An empty baseURL
// selects the public or keyed endpoint depending on apiKey.
func NewClient(baseURL, apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = PublicBaseURL
		if apiKey != "" {
			baseURL = KeyedBaseURL
		}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 2),
		log:       log.With().Str("client", "exchangerate-api").Logger(),
		cacheRepo: cacheRepo,
	}
}

// cachedTable is the structure stored in the cache
type cachedTable struct {
	Rates     domain.RateTable `json:"rates"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// GetExchangeRates returns the pivot-relative rate table.
// Fresh cache wins; otherwise the API is called; if that fails the stale
// cache is returned. An error is returned only when nothing is available.
func (c *Client) GetExchangeRates(ctx context.Context) (domain.RateTable, error) {
	if table, fresh := c.fromCache(ctx); fresh {
		c.log.Debug().Int("currencies", len(table)).Msg("Cache hit")
		return table, nil
	}

	table, err := c.fetch(ctx)
	if err != nil {
		if stale, _ := c.fromCache(ctx); stale != nil {
			c.log.Warn().Err(err).Msg("API failed, using stale cached rates")
			return stale, nil
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		cached := cachedTable{Rates: table, FetchedAt: time.Now().UTC()}
		if err := c.cacheRepo.Store(ctx, cacheTable, Pivot, cached, clientdata.TTLExchangeRate); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache exchange rates")
		}
	}

	c.log.Info().Int("currencies", len(table)).Msg("Fetched rates")
	return table, nil
}

// fromCache returns the cached table (nil when absent) and whether it is fresh.
func (c *Client) fromCache(ctx context.Context) (domain.RateTable, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}
	var cached cachedTable
	found, fresh, err := c.cacheRepo.Load(ctx, cacheTable, Pivot, &cached)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to read rate cache")
		return nil, false
	}
	if !found || len(cached.Rates) == 0 {
		return nil, false
	}
	return cached.Rates, fresh
}

func (c *Client) url() string {
	if c.apiKey != "" {
		return fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, Pivot)
	}
	return fmt.Sprintf("%s/%s", c.baseURL, Pivot)
}

func (c *Client) fetch(ctx context.Context) (domain.RateTable, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	// v4 answers with "rates", v6 with "conversion_rates"
	var result struct {
		Result          string             `json:"result"`
		Rates           map[string]float64 `json:"rates"`
		ConversionRates map[string]float64 `json:"conversion_rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Result == "error" {
		return nil, fmt.Errorf("API reported an error")
	}

	rates := result.Rates
	if len(rates) == 0 {
		rates = result.ConversionRates
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("API returned an empty rate table")
	}

	table := make(domain.RateTable, len(rates))
	for code, r := range rates {
		if r > 0 {
			table[strings.ToUpper(code)] = r
		}
	}
	table[Pivot] = 1
	return table, nil
}
