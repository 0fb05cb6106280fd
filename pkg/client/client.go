// Package client talks to the finance API and keeps a local mirror of the
// caller's ledger that applies mutations optimistically.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/accounts"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/reports"
	"github.com/rs/zerolog"
)

// APIError is a failure envelope returned by the server.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client calls the finance API on behalf of one user.
type Client struct {
	baseURL string
	token   string
	devUser string
	client  *http.Client
	log     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithDevUser names the user through the dev header. Only honored by servers
// running in dev mode.
func WithDevUser(userID string) Option {
	return func(c *Client) { c.devUser = userID }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("client", "finance-api").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListAccounts returns the user's accounts.
func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var out []domain.Account
	if err := c.do(ctx, http.MethodGet, "/api/accounts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAccount creates an account.
func (c *Client) CreateAccount(ctx context.Context, req accounts.CreateRequest) (*domain.Account, error) {
	var out domain.Account
	if err := c.do(ctx, http.MethodPost, "/api/accounts", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAccount deletes an account.
func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/accounts/"+url.PathEscape(id), nil, nil)
}

// ListTransactions returns the user's transactions, newest first.
func (c *Client) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	var out []domain.Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTransaction posts a transaction and returns the stored row.
func (c *Client) CreateTransaction(ctx context.Context, t domain.Transaction) (*domain.Transaction, error) {
	var out domain.Transaction
	if err := c.do(ctx, http.MethodPost, "/api/transactions", t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTransaction replaces a transaction.
func (c *Client) UpdateTransaction(ctx context.Context, t domain.Transaction) (*domain.Transaction, error) {
	var out domain.Transaction
	if err := c.do(ctx, http.MethodPut, "/api/transactions/"+url.PathEscape(t.ID), t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTransaction deletes a transaction.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+url.PathEscape(id), nil, nil)
}

// Dashboard returns the user's summary as of today.
func (c *Client) Dashboard(ctx context.Context) (*reports.Summary, error) {
	var out reports.Summary
	if err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) authorize(h http.Header) {
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	} else if c.devUser != "" {
		h.Set(auth.DevUserHeader, c.devUser)
	}
}

// do sends a JSON request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req.Header)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env domain.ActionResult[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Error}
	}

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("Request completed")

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}
