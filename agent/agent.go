// Package agent implements the LLM-backed capabilities the briefing engine
// consumes: content classification, topic summarization, and source
// suggestion. All outputs are schema-constrained; the engine treats this
// package as an opaque producer of schema-conformant results.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/newsfold/newsfold/llm"
	"github.com/newsfold/newsfold/topic"
)

// Completer is the slice of the LLM client the agent needs.
type Completer interface {
	CompleteJSON(ctx context.Context, req llm.Request, out any) error
}

// URLFilter validates suggested source URLs before they are trusted.
type URLFilter interface {
	Filter(ctx context.Context, urls []string) []string
}

// Agent turns prompts plus schemas into typed capability results.
type Agent struct {
	client      Completer
	filter      URLFilter
	temperature *float64
	maxTokens   int
	logger      *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithTemperature sets the sampling temperature for all requests.
func WithTemperature(t float64) Option {
	return func(a *Agent) {
		a.temperature = &t
	}
}

// WithMaxTokens limits response length for all requests.
func WithMaxTokens(n int) Option {
	return func(a *Agent) {
		a.maxTokens = n
	}
}

// New creates an Agent on top of an LLM completer. filter is used to drop
// unreachable suggested-source URLs; it may be nil to skip validation.
func New(client Completer, filter URLFilter, opts ...Option) *Agent {
	a := &Agent{
		client: client,
		filter: filter,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Classify categorizes one content item against the topics discovered so
// far. Transport and schema-parse failures are returned as-is; callers treat
// them as fatal.
func (a *Agent) Classify(ctx context.Context, existingTopics []string, content string) (topic.CategorizationResult, error) {
	var result topic.CategorizationResult
	req := llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: categorizationPrompt(existingTopics, content)},
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Format: &llm.SchemaFormat{
			Name:   "categorization",
			Strict: true,
			Schema: categorizationSchema,
		},
	}
	if err := a.client.CompleteJSON(ctx, req, &result); err != nil {
		return topic.CategorizationResult{}, fmt.Errorf("categorization: %w", err)
	}
	return result, nil
}

// Summarize produces a structured summary for one topic from the gathered
// content of its sources.
func (a *Agent) Summarize(ctx context.Context, topicName string, contents []string) (topic.Summary, error) {
	var result topic.Summary
	req := llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: summaryPrompt(topicName, contents)},
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Format: &llm.SchemaFormat{
			Name:   "news_summary",
			Strict: true,
			Schema: summarySchema,
		},
	}
	if err := a.client.CompleteJSON(ctx, req, &result); err != nil {
		return topic.Summary{}, fmt.Errorf("summarize %q: %w", topicName, err)
	}
	return result, nil
}

// suggestionResponse is the schema-constrained shape of SuggestSources output.
type suggestionResponse struct {
	Sources []topic.Source `json:"sources"`
}

// SuggestSources asks the model for news sources covering subject and
// returns those whose URLs are reachable.
func (a *Agent) SuggestSources(ctx context.Context, subject string) ([]topic.Source, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("subject is required")
	}

	var resp suggestionResponse
	req := llm.Request{
		Messages: []llm.Message{
			{Role: "user", Content: suggestionPrompt(subject)},
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Format: &llm.SchemaFormat{
			Name:   "sources",
			Strict: true,
			Schema: sourcesSchema,
		},
	}
	if err := a.client.CompleteJSON(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("suggest sources for %q: %w", subject, err)
	}

	if a.filter == nil {
		return resp.Sources, nil
	}

	urls := make([]string, len(resp.Sources))
	for i, s := range resp.Sources {
		urls[i] = s.URL
	}
	reachable := make(map[string]bool)
	for _, u := range a.filter.Filter(ctx, urls) {
		reachable[u] = true
	}

	valid := make([]topic.Source, 0, len(resp.Sources))
	for _, s := range resp.Sources {
		if reachable[s.URL] {
			valid = append(valid, s)
		} else {
			a.logger.Debug("Dropping unreachable suggested source", "url", s.URL)
		}
	}
	return valid, nil
}
