// Package briefing drives a full run: ingest sources, categorize content
// into topics, summarize every topic concurrently, persist the results. The
// batch and streaming entry points share one implementation; streaming
// callers additionally observe the run as an ordered event sequence.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/newsfold/newsfold/ingest"
	"github.com/newsfold/newsfold/metrics"
	"github.com/newsfold/newsfold/persist"
	"github.com/newsfold/newsfold/topic"
)

// Summarizer produces a structured summary for one topic from the gathered
// content of its sources.
type Summarizer interface {
	Summarize(ctx context.Context, topicName string, contents []string) (topic.Summary, error)
}

// Engine runs briefings. One Engine is shared across runs and holds no
// per-run state: each run owns its topic store, results buffer, and event
// stream exclusively.
type Engine struct {
	classifier topic.Classifier
	summarizer Summarizer
	ingestor   ingest.Ingestor
	filter     topic.URLFilter
	expander   *ingest.FeedExpander
	persister  persist.Persister
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPersister sets the persistence collaborator. Defaults to persist.Noop.
func WithPersister(p persist.Persister) EngineOption {
	return func(e *Engine) {
		e.persister = p
	}
}

// WithFeedExpander enables RSS/Atom expansion of feed-flagged sources.
func WithFeedExpander(f *ingest.FeedExpander) EngineOption {
	return func(e *Engine) {
		e.expander = f
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine from its required capabilities.
func New(classifier topic.Classifier, summarizer Summarizer, ingestor ingest.Ingestor, filter topic.URLFilter, opts ...EngineOption) *Engine {
	e := &Engine{
		classifier: classifier,
		summarizer: summarizer,
		ingestor:   ingestor,
		filter:     filter,
		persister:  persist.Noop{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes a briefing and returns the results ordered by snapshot index.
// Batch callers receive exactly one error result on failure.
func (e *Engine) Run(ctx context.Context, userID string, sources []topic.Source) ([]topic.SummaryResult, error) {
	return e.run(ctx, userID, sources, func(Event) {})
}

// Stream executes a briefing and returns its ordered event stream. The
// channel is closed after the single terminal event (done or error). The
// returned results are identical to Run's; callers consume them from the
// summary events.
func (e *Engine) Stream(ctx context.Context, userID string, sources []topic.Source) <-chan Event {
	ch := make(chan Event, 16)

	emit := func(ev Event) {
		// Prefer delivery: a cancelled run should still surface its terminal
		// error event when the consumer is draining the channel.
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(ch)
		if _, err := e.run(ctx, userID, sources, emit); err != nil {
			emit(Event{Type: EventError, Data: ErrorPayload{Error: err.Error()}})
			return
		}
		emit(Event{Type: EventDone, Data: DonePayload{Message: "briefing complete"}})
	}()

	return ch
}

// run is the single implementation behind both entry points. emit receives
// every non-terminal event; terminal events are the caller's responsibility
// so that each entry point reports failure exactly once, in its own form.
func (e *Engine) run(ctx context.Context, userID string, sources []topic.Source, emit func(Event)) (results []topic.SummaryResult, err error) {
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID, "user_id", userID)
	started := time.Now()

	defer func() {
		status := "ok"
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = "cancelled"
		case err != nil:
			status = "error"
		}
		e.metrics.RunCompleted(status, time.Since(started))
		logger.Info("Run finished", "status", status, "duration", time.Since(started))
	}()

	emit(Event{Type: EventStart, Data: StartPayload{RunID: runID, Sources: len(sources)}})

	if e.expander != nil {
		sources, err = e.expander.Expand(ctx, sources)
		if err != nil {
			return nil, err
		}
	}

	// Stage 1: ingest. A fetch failure is fatal for the run.
	emit(Event{Type: EventStatus, Data: StatusPayload{Message: fmt.Sprintf("fetching content from %d sources", len(sources))}})
	items := make([]topic.ContentItem, 0, len(sources))
	for _, s := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := e.ingestor.Fetch(ctx, s.URL)
		if err != nil {
			return nil, fmt.Errorf("ingest %s: %w", s.URL, err)
		}
		items = append(items, topic.ContentItem{URL: s.URL, Content: content})
	}

	// Stage 2: categorize, strictly in input order. The store is owned by
	// this run and mutated only here.
	emit(Event{Type: EventStatus, Data: StatusPayload{Message: "categorizing content into topics"}})
	store := topic.NewStore()
	categorizer := topic.NewCategorizer(e.classifier, e.filter, topic.WithCategorizerLogger(logger))
	err = categorizer.Run(ctx, store, items, func(name string, total int) {
		e.metrics.TopicDiscovered()
		emit(Event{Type: EventTopic, Data: TopicPayload{TopicName: name, TotalTopics: total}})
	})
	if err != nil {
		return nil, err
	}

	// Stage boundary: freeze the snapshot. Summarization never sees the
	// mutable store.
	snapshot := store.Snapshot()
	logger.Info("Categorization complete", "topics", len(snapshot), "items", len(items))

	// Stage 3: summarize all topics concurrently.
	emit(Event{Type: EventStatus, Data: StatusPayload{Message: fmt.Sprintf("summarizing %d topics", len(snapshot))}})
	results, err = e.fanout(ctx, snapshot, emit)
	if err != nil {
		return nil, err
	}

	if err := e.persister.Persist(ctx, userID, results); err != nil {
		return nil, fmt.Errorf("persist briefing: %w", err)
	}

	return results, nil
}
