package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/gofeed"

	"github.com/newsfold/newsfold/topic"
)

// defaultFeedLimit caps how many item links one feed contributes.
const defaultFeedLimit = 10

// FeedExpander replaces RSS/Atom feed sources with their item links so the
// rest of the pipeline only ever sees article URLs.
type FeedExpander struct {
	parser *gofeed.Parser
	limit  int
	logger *slog.Logger
}

// FeedOption configures a FeedExpander.
type FeedOption func(*FeedExpander)

// WithFeedLimit caps the number of items taken per feed.
func WithFeedLimit(n int) FeedOption {
	return func(f *FeedExpander) {
		f.limit = n
	}
}

// WithFeedLogger sets the logger.
func WithFeedLogger(logger *slog.Logger) FeedOption {
	return func(f *FeedExpander) {
		f.logger = logger
	}
}

// NewFeedExpander creates a FeedExpander.
func NewFeedExpander(opts ...FeedOption) *FeedExpander {
	f := &FeedExpander{
		parser: gofeed.NewParser(),
		limit:  defaultFeedLimit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Expand returns sources with every feed-flagged entry replaced by the
// feed's item links, newest first, up to the configured limit. Non-feed
// sources pass through unchanged. A feed that cannot be fetched or parsed
// fails the expansion; feed sources are explicit caller input, so a broken
// one is surfaced rather than silently dropped.
func (f *FeedExpander) Expand(ctx context.Context, sources []topic.Source) ([]topic.Source, error) {
	expanded := make([]topic.Source, 0, len(sources))
	for _, s := range sources {
		if !s.Feed {
			expanded = append(expanded, s)
			continue
		}

		feed, err := f.parser.ParseURLWithContext(s.URL, ctx)
		if err != nil {
			return nil, fmt.Errorf("expand feed %s: %w", s.URL, err)
		}

		count := 0
		for _, item := range feed.Items {
			if item.Link == "" {
				continue
			}
			expanded = append(expanded, topic.Source{
				URL:         item.Link,
				Name:        item.Title,
				Description: s.Description,
			})
			count++
			if count >= f.limit {
				break
			}
		}
		f.logger.Debug("Expanded feed", "feed", s.URL, "items", count)
	}
	return expanded, nil
}
