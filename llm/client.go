// Package llm provides a provider-agnostic LLM client with retry support and
// structured (JSON-schema constrained) output handling.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // Message content
}

// SchemaFormat constrains a completion to a JSON schema (structured output).
type SchemaFormat struct {
	// Name identifies the schema to the provider.
	Name string
	// Strict requests strict schema conformance where supported.
	Strict bool
	// Schema is the raw JSON schema document.
	Schema json.RawMessage
}

// Request defines a completion request.
type Request struct {
	// Messages is the chat history to send.
	Messages []Message

	// Temperature controls randomness. nil uses the endpoint default.
	Temperature *float64

	// MaxTokens limits response length. 0 uses the endpoint default.
	MaxTokens int

	// Format, when set, constrains the output to a JSON schema.
	Format *SchemaFormat
}

// Response contains the completion result.
type Response struct {
	// Content is the generated text.
	Content string

	// Model is the model that produced the response.
	Model string

	// TokensUsed is the total tokens consumed, if reported.
	TokensUsed int

	// FinishReason indicates why generation stopped.
	FinishReason string
}

// Config identifies the backend a Client talks to.
type Config struct {
	// Provider is a registered provider name ("openrouter", "ollama").
	Provider string
	// Model is the model identifier passed through to the provider.
	Model string
	// BaseURL overrides the provider's default endpoint. Optional.
	BaseURL string
	// Timeout bounds a single HTTP attempt. Zero means 120s.
	Timeout time.Duration
}

// Client is a provider-agnostic LLM client. One Client is shared
// process-wide; it holds no per-request state.
type Client struct {
	cfg         Config
	provider    Provider
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a client for the configured provider.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	provider := GetProvider(cfg.Provider)
	if provider == nil {
		return nil, fmt.Errorf("unknown LLM provider %q (registered: %v)", cfg.Provider, ListProviders())
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	c := &Client{
		cfg:         cfg,
		provider:    provider,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete sends a completion request, retrying transient failures with
// exponential backoff. Fatal errors and context cancellation abort
// immediately.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	backoff := c.retryConfig.BackoffBase
	var lastErr error

	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if IsFatal(err) || ctx.Err() != nil {
			return nil, err
		}

		if attempt < c.retryConfig.MaxAttempts {
			// Full jitter keeps concurrent retries from synchronizing.
			delay := time.Duration(rand.Float64() * float64(backoff))
			c.logger.Warn("LLM request failed, retrying",
				"attempt", attempt,
				"max_attempts", c.retryConfig.MaxAttempts,
				"delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			backoff = min(time.Duration(float64(backoff)*c.retryConfig.BackoffMultiplier), c.retryConfig.MaxBackoff)
		}
	}

	return nil, fmt.Errorf("llm request failed after %d attempts: %w", c.retryConfig.MaxAttempts, lastErr)
}

// CompleteJSON sends a structured-output completion and unmarshals the
// result into out. The response content is passed through ExtractJSON first,
// since models wrap JSON in markdown fences or commentary even when a schema
// was requested.
func (c *Client) CompleteJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}

	raw := ExtractJSON(resp.Content)
	if raw == "" {
		return fmt.Errorf("no JSON object in llm response (model %s)", resp.Model)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("parse structured output: %w", err)
	}
	return nil
}

// attempt performs a single HTTP round trip.
func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	body, err := c.provider.BuildRequestBody(c.cfg.Model, req.Messages, req.Temperature, req.MaxTokens, req.Format)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	url := c.provider.BuildURL(c.cfg.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.provider.SetHeaders(httpReq)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("llm request to %s: %w", url, err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read llm response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		err := fmt.Errorf("llm endpoint returned %d: %s", httpResp.StatusCode, truncate(string(respBody), 200))
		if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
			return nil, NewTransientError(err)
		}
		return nil, NewFatalError(err)
	}

	resp, err := c.provider.ParseResponse(respBody, c.cfg.Model)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("parse llm response: %w", err))
	}

	c.logger.Debug("LLM completion",
		"model", resp.Model,
		"tokens", resp.TokensUsed,
		"duration", time.Since(start),
	)
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
