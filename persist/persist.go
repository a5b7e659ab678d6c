// Package persist stores completed briefing results. The engine hands each
// run's complete ordered result set to a Persister exactly once.
package persist

import (
	"context"

	"github.com/newsfold/newsfold/topic"
)

// Persister receives the complete ordered result set for one run.
type Persister interface {
	Persist(ctx context.Context, userID string, results []topic.SummaryResult) error
}

// Noop discards results. Used when no store is configured.
type Noop struct{}

// Persist implements Persister.
func (Noop) Persist(context.Context, string, []topic.SummaryResult) error {
	return nil
}
