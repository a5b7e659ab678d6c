package briefing

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/newsfold/newsfold/topic"
)

// contentUnavailable substitutes for a topic source that could not be
// fetched during summarization, so one dead link does not sink a topic that
// still has live sources.
const contentUnavailable = "[content unavailable]"

// fanout summarizes every topic in the frozen snapshot concurrently, one
// task per topic with no additional cap beyond the topic count. Each task
// owns the results slot at its snapshot index, so the buffer needs no
// locking; summary events are emitted in completion order.
//
// One failed task aborts the whole fan-out with a single error. Summary
// events already emitted by other tasks are not retracted: delivery is
// at-least-once, then abort.
func (e *Engine) fanout(ctx context.Context, snapshot []topic.Topic, emit func(Event)) ([]topic.SummaryResult, error) {
	results := make([]topic.SummaryResult, len(snapshot))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range snapshot {
		g.Go(func() error {
			contents, err := e.gather(gctx, t)
			if err != nil {
				return fmt.Errorf("topic %q: %w", t.Name, err)
			}

			summary, err := e.summarizer.Summarize(gctx, t.Name, contents)
			if err != nil {
				return fmt.Errorf("summarize topic %q: %w", t.Name, err)
			}

			results[i] = topic.SummaryResult{Index: i, Topic: t.Name, Summary: summary}
			e.metrics.SummaryProduced()
			emit(Event{Type: EventSummary, Data: SummaryPayload{Index: i, Topic: t.Name, Summary: summary}})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// gather fetches the content of every source in the topic. Individual fetch
// failures are tolerated with a placeholder as long as at least one source
// yields content; a topic whose sources all fail is an error.
func (e *Engine) gather(ctx context.Context, t topic.Topic) ([]string, error) {
	if len(t.Sources) == 0 {
		return nil, fmt.Errorf("topic has no sources")
	}

	contents := make([]string, len(t.Sources))
	fetched := 0
	var lastErr error

	for i, url := range t.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := e.ingestor.Fetch(ctx, url)
		if err != nil {
			e.logger.Warn("Source unavailable during summarization", "topic", t.Name, "url", url, "error", err)
			contents[i] = contentUnavailable
			lastErr = err
			continue
		}
		contents[i] = content
		fetched++
	}

	if fetched == 0 {
		return nil, fmt.Errorf("no sources reachable: %w", lastErr)
	}
	return contents, nil
}
