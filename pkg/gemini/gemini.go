// Package gemini narrates and advises directly through the Gemini API. It is
// the alternative to routing generation through the backend and needs an API
// key injected at runtime.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/agriinsight/harvest/agri"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrNoKeys is returned by New when no API key is given.
var ErrNoKeys = errors.New("gemini: at least one API key is required")

// ErrEmptyResponse is returned when the model answers without text.
var ErrEmptyResponse = errors.New("gemini: empty response")

// generator is one authenticated model endpoint.
type generator interface {
	generate(ctx context.Context, model, systemPrompt, userQuery string) (string, error)
}

type genaiGenerator struct {
	client *genai.Client
}

func (g genaiGenerator) generate(ctx context.Context, model, systemPrompt, userQuery string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if systemPrompt != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		}
	}
	resp, err := g.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(userQuery, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Client generates text with one or more API keys. Requests rotate across keys
// and fail over to the next key when one fails.
type Client struct {
	gens   []generator
	model  string
	logger *zap.Logger

	mu   sync.Mutex
	next int
}

// Option configures a Client.
type Option func(*Client)

// WithModel sets the model name. Default: DefaultModel.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger for failover events. Default: no logging.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client with one Gemini API client per key.
func New(ctx context.Context, keys []string, opts ...Option) (*Client, error) {
	var gens []generator
	for i, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		gc, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: client %d: %w", i, err)
		}
		gens = append(gens, genaiGenerator{client: gc})
	}
	if len(gens) == 0 {
		return nil, ErrNoKeys
	}
	return newClient(gens, opts...), nil
}

func newClient(gens []generator, opts ...Option) *Client {
	c := &Client{
		gens:   gens,
		model:  DefaultModel,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ agri.Narrator = (*Client)(nil)
	_ agri.Advisor  = (*Client)(nil)
)

// Generate answers userQuery under systemPrompt. Keys are tried in rotation
// until one succeeds; an empty answer counts as a failure of that key.
func (c *Client) Generate(ctx context.Context, systemPrompt, userQuery string) (string, error) {
	start := c.rotate()
	var lastErr error
	for attempt := 0; attempt < len(c.gens); attempt++ {
		idx := (start + attempt) % len(c.gens)
		text, err := c.gens[idx].generate(ctx, c.model, systemPrompt, userQuery)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		c.logger.Warn("gemini request failed, trying next key",
			zap.Int("key_index", idx),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return "", fmt.Errorf("gemini: all %d keys failed: %w", len(c.gens), lastErr)
}

// WeatherAdvice asks for crop advice from a weather forecast.
func (c *Client) WeatherAdvice(ctx context.Context, crop string, f agri.WeatherForecast, location string) (string, error) {
	return c.Generate(ctx, agri.WeatherAdvisorPrompt, agri.WeatherAdviceQuery(crop, location, f))
}

// SoilAdvice asks for irrigation advice from a live sensor reading.
func (c *Client) SoilAdvice(ctx context.Context, crop string, r agri.SensorReading) (string, error) {
	return c.Generate(ctx, agri.SoilAdvisorPrompt, agri.SoilAdviceQuery(crop, r))
}

// rotate returns the key index to start the next request with.
func (c *Client) rotate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.next
	c.next = (c.next + 1) % len(c.gens)
	return idx
}
