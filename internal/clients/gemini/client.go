// Package gemini extracts transactions from receipt and transfer screenshots
// with the Google Gemini API.
package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/clientdata"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/modules/transactions"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	MaxImageBytes  = 20 * 1024 * 1024
	requestTimeout = 60 * time.Second
	cacheTable     = "recognition"
)

// generateFunc sends one prompt with inline parts and returns the model text
type generateFunc func(ctx context.Context, parts []*genai.Part) (string, error)

// Client implements transactions.Recognizer
type Client struct {
	client    *genai.Client
	model     string
	generate  generateFunc
	limiter   *rate.Limiter
	cacheRepo *clientdata.Repository
	log       zerolog.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithCache caches results per image hash in client_data
func WithCache(repo *clientdata.Repository) ClientOption {
	return func(c *Client) {
		c.cacheRepo = repo
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, log zerolog.Logger, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := newClient(log, opts...)
	c.client = genaiClient
	c.generate = c.generateContent
	return c, nil
}

func newClient(log zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		model:   DefaultModel,
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		log:     log.With().Str("client", "gemini").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Recognize returns the transactions the model finds in image. Identical
// images are answered from the cache.
func (c *Client) Recognize(ctx context.Context, image []byte, mimeType string) ([]transactions.Candidate, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	if len(image) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	key := imageKey(image, mimeType)
	if cached, ok := c.fromCache(ctx, key); ok {
		c.log.Debug().Str("hash", key).Int("candidates", len(cached)).Msg("Cache hit")
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	parts := []*genai.Part{
		{Text: recognitionPrompt},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
	}

	started := time.Now()
	text, err := c.generate(ctx, parts)
	if err != nil {
		return nil, err
	}

	candidates, err := parseCandidates(text)
	if err != nil {
		c.log.Warn().Err(err).Str("raw", truncate(text, 500)).Msg("Unparseable model output")
		return nil, err
	}

	c.log.Info().
		Int("candidates", len(candidates)).
		Dur("duration", time.Since(started)).
		Msg("Recognized document")

	c.toCache(ctx, key, candidates)
	return candidates, nil
}

func (c *Client) generateContent(ctx context.Context, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("no content generated")
	}
	return text, nil
}

func (c *Client) fromCache(ctx context.Context, key string) ([]transactions.Candidate, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}
	var cached []transactions.Candidate
	found, fresh, err := c.cacheRepo.Load(ctx, cacheTable, key, &cached)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to read recognition cache")
		return nil, false
	}
	return cached, found && fresh
}

func (c *Client) toCache(ctx context.Context, key string, candidates []transactions.Candidate) {
	if c.cacheRepo == nil {
		return
	}
	if err := c.cacheRepo.Store(ctx, cacheTable, key, candidates, clientdata.TTLRecognition); err != nil {
		c.log.Warn().Err(err).Msg("Failed to cache recognition")
	}
}

func imageKey(image []byte, mimeType string) string {
	h := sha256.New()
	h.Write([]byte(mimeType))
	h.Write([]byte{0})
	h.Write(image)
	return hex.EncodeToString(h.Sum(nil))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
