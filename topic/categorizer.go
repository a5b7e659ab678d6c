package topic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Classifier produces a categorization decision for one content item, given
// the names of topics discovered so far.
type Classifier interface {
	Classify(ctx context.Context, existingTopics []string, content string) (CategorizationResult, error)
}

// URLFilter validates candidate URLs, returning the reachable subset in the
// original order. Implementations never fail; unreachable URLs are dropped.
type URLFilter interface {
	Filter(ctx context.Context, urls []string) []string
}

// DiscoveryFunc is invoked once per newly created topic. total is the
// cumulative topic count after the creation, starting at 1.
type DiscoveryFunc func(name string, total int)

// Categorizer feeds content items through a Classifier and folds the results
// into a Store. Items are processed strictly in input order: an item's
// possible topic matches depend on topics created by earlier items, so this
// stage must not be parallelized.
type Categorizer struct {
	classifier Classifier
	filter     URLFilter
	logger     *slog.Logger
}

// CategorizerOption configures a Categorizer.
type CategorizerOption func(*Categorizer)

// WithCategorizerLogger sets the logger.
func WithCategorizerLogger(logger *slog.Logger) CategorizerOption {
	return func(c *Categorizer) {
		c.logger = logger
	}
}

// NewCategorizer creates a Categorizer with the given classification and URL
// validation capabilities.
func NewCategorizer(classifier Classifier, filter URLFilter, opts ...CategorizerOption) *Categorizer {
	c := &Categorizer{
		classifier: classifier,
		filter:     filter,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run folds items into store in input order. onDiscover (optional) is called
// for every topic creation, never for merges.
//
// A Classifier failure is fatal for the whole run and is returned
// immediately; a skip decision or an empty assignments list is a normal
// outcome and contributes no state change.
func (c *Categorizer) Run(ctx context.Context, store *Store, items []ContentItem, onDiscover DiscoveryFunc) error {
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := c.classifier.Classify(ctx, store.Names(), item.Content)
		if err != nil {
			return fmt.Errorf("classify %s: %w", item.URL, err)
		}

		if result.Skip || len(result.Assignments) == 0 {
			c.logger.Debug("Content item skipped", "url", item.URL, "skip", result.Skip)
			continue
		}

		assignments := result.Assignments
		if len(assignments) > MaxAssignments {
			c.logger.Warn("Truncating assignments", "url", item.URL, "got", len(assignments), "max", MaxAssignments)
			assignments = assignments[:MaxAssignments]
		}

		for _, a := range assignments {
			if strings.TrimSpace(a.TopicName) == "" {
				c.logger.Debug("Skipping assignment with blank topic name", "url", item.URL)
				continue
			}
			c.apply(ctx, store, item.URL, a, onDiscover)
		}
	}
	return nil
}

// apply folds a single assignment into the store.
func (c *Categorizer) apply(ctx context.Context, store *Store, itemURL string, a Assignment, onDiscover DiscoveryFunc) {
	readings := a.FurtherReadings
	if len(readings) > MaxFurtherReadings {
		readings = readings[:MaxFurtherReadings]
	}
	if len(readings) > 0 {
		readings = c.filter.Filter(ctx, readings)
	}

	existing := store.FindByName(a.TopicName) != nil
	created := store.Upsert(a.TopicName, itemURL, readings)

	switch {
	case created && !a.IsNew:
		// The classifier referenced a topic that cannot be located.
		// Recovery policy: create it rather than drop the assignment.
		c.logger.Warn("Classifier referenced unknown topic, creating it",
			"topic", a.TopicName, "url", itemURL)
	case !created && a.IsNew && existing:
		c.logger.Debug("Classifier proposed duplicate topic, merging",
			"topic", a.TopicName, "url", itemURL)
	}

	if created && onDiscover != nil {
		onDiscover(a.TopicName, store.Len())
	}
}
