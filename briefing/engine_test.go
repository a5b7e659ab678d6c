package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsfold/newsfold/topic"
)

// fakeIngestor returns "content:<url>" for every URL, failing configured ones.
type fakeIngestor struct {
	mu   sync.Mutex
	fail map[string]bool
}

func (f *fakeIngestor) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[url] {
		return "", fmt.Errorf("unreachable")
	}
	return "content:" + url, nil
}

// scriptClassifier maps content strings to canned classification results.
type scriptClassifier struct {
	results map[string]topic.CategorizationResult
	err     error
}

func (s *scriptClassifier) Classify(_ context.Context, _ []string, content string) (topic.CategorizationResult, error) {
	if s.err != nil {
		return topic.CategorizationResult{}, s.err
	}
	return s.results[content], nil
}

// passFilter keeps every URL.
type passFilter struct{}

func (passFilter) Filter(_ context.Context, urls []string) []string { return urls }

// fakeSummarizer titles each summary after its topic. Topics listed in gated
// block until the gate channel is closed; topics with a registered failure
// return it after passing their gate.
type fakeSummarizer struct {
	gated map[string]chan struct{}

	mu   sync.Mutex
	fail map[string]error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, topicName string, contents []string) (topic.Summary, error) {
	if gate := f.gated[topicName]; gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return topic.Summary{}, ctx.Err()
		}
	}
	f.mu.Lock()
	err := f.fail[topicName]
	f.mu.Unlock()
	if err != nil {
		return topic.Summary{}, err
	}
	return topic.Summary{Title: topicName, Summary: strings.Join(contents, "|")}, nil
}

func (f *fakeSummarizer) failWith(topicName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil {
		f.fail = map[string]error{}
	}
	f.fail[topicName] = err
}

// recordingPersister captures every Persist call.
type recordingPersister struct {
	mu      sync.Mutex
	calls   int
	userID  string
	results []topic.SummaryResult
}

func (r *recordingPersister) Persist(_ context.Context, userID string, results []topic.SummaryResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.userID = userID
	r.results = results
	return nil
}

func sources(urls ...string) []topic.Source {
	out := make([]topic.Source, len(urls))
	for i, u := range urls {
		out[i] = topic.Source{URL: u}
	}
	return out
}

func singleTopic(name string) topic.CategorizationResult {
	return topic.CategorizationResult{Assignments: []topic.Assignment{{TopicName: name, IsNew: true}}}
}

func collect(ch <-chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestRunProducesSnapshotOrderedResults(t *testing.T) {
	classifier := &scriptClassifier{results: map[string]topic.CategorizationResult{
		"content:a": singleTopic("Alpha"),
		"content:b": singleTopic("Beta"),
	}}
	persister := &recordingPersister{}
	engine := New(classifier, &fakeSummarizer{}, &fakeIngestor{}, passFilter{}, WithPersister(persister))

	results, err := engine.Run(context.Background(), "user-1", sources("a", "b"))
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, topic.SummaryResult{Index: 0, Topic: "Alpha", Summary: topic.Summary{Title: "Alpha", Summary: "content:a"}}, results[0])
	assert.Equal(t, "Beta", results[1].Topic)
	assert.Equal(t, 1, results[1].Index)

	assert.Equal(t, 1, persister.calls)
	assert.Equal(t, "user-1", persister.userID)
	assert.Equal(t, results, persister.results)
}

func TestStreamEventProtocol(t *testing.T) {
	classifier := &scriptClassifier{results: map[string]topic.CategorizationResult{
		"content:a": singleTopic("Alpha"),
		"content:b": singleTopic("Beta"),
	}}
	engine := New(classifier, &fakeSummarizer{}, &fakeIngestor{}, passFilter{})

	events := collect(engine.Stream(context.Background(), "u", sources("a", "b")))

	assert.Equal(t, []EventType{
		EventStart,
		EventStatus,  // fetching
		EventStatus,  // categorizing
		EventTopic,   // Alpha
		EventTopic,   // Beta
		EventStatus,  // summarizing
		EventSummary, // either order
		EventSummary,
		EventDone,
	}, eventTypes(events))

	start := events[0].Data.(StartPayload)
	assert.NotEmpty(t, start.RunID)
	assert.Equal(t, 2, start.Sources)

	// Topic totals increase strictly by one from 1.
	assert.Equal(t, TopicPayload{TopicName: "Alpha", TotalTopics: 1}, events[3].Data)
	assert.Equal(t, TopicPayload{TopicName: "Beta", TotalTopics: 2}, events[4].Data)
}

func TestStreamSummariesArriveInCompletionOrder(t *testing.T) {
	classifier := &scriptClassifier{results: map[string]topic.CategorizationResult{
		"content:a": singleTopic("Alpha"),
		"content:b": singleTopic("Beta"),
	}}
	// Alpha (snapshot index 0) blocks until Beta's summary has been observed,
	// forcing completion order [Beta, Alpha].
	gate := make(chan struct{})
	summarizer := &fakeSummarizer{gated: map[string]chan struct{}{"Alpha": gate}}
	persister := &recordingPersister{}
	engine := New(classifier, summarizer, &fakeIngestor{}, passFilter{}, WithPersister(persister))

	var summaries []SummaryPayload
	for ev := range engine.Stream(context.Background(), "u", sources("a", "b")) {
		if ev.Type != EventSummary {
			continue
		}
		payload := ev.Data.(SummaryPayload)
		summaries = append(summaries, payload)
		if payload.Topic == "Beta" {
			close(gate)
		}
	}

	require.Len(t, summaries, 2)
	assert.Equal(t, "Beta", summaries[0].Topic)
	assert.Equal(t, 1, summaries[0].Index, "index is the snapshot position, not arrival order")
	assert.Equal(t, "Alpha", summaries[1].Topic)
	assert.Equal(t, 0, summaries[1].Index)

	// Persisted results are snapshot-ordered regardless of completion order.
	require.Len(t, persister.results, 2)
	assert.Equal(t, "Alpha", persister.results[0].Topic)
	assert.Equal(t, "Beta", persister.results[1].Topic)
}

func TestStreamClassifierFailure(t *testing.T) {
	boom := errors.New("model unavailable")
	persister := &recordingPersister{}
	engine := New(&scriptClassifier{err: boom}, &fakeSummarizer{}, &fakeIngestor{}, passFilter{}, WithPersister(persister))

	events := collect(engine.Stream(context.Background(), "u", sources("a")))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Contains(t, last.Data.(ErrorPayload).Error, "model unavailable")

	for _, ev := range events[:len(events)-1] {
		assert.False(t, ev.Terminal(), "exactly one terminal event")
		assert.NotEqual(t, EventSummary, ev.Type)
	}
	assert.Equal(t, 0, persister.calls, "failed runs persist nothing")
}

func TestStreamSummarizerFailureDoesNotRetract(t *testing.T) {
	classifier := &scriptClassifier{results: map[string]topic.CategorizationResult{
		"content:a": singleTopic("Alpha"),
		"content:b": singleTopic("Beta"),
	}}
	// Alpha fails only after Beta's summary was observed, so the run ends in
	// error with one summary already delivered.
	gate := make(chan struct{})
	summarizer := &fakeSummarizer{gated: map[string]chan struct{}{"Alpha": gate}}
	persister := &recordingPersister{}
	engine := New(classifier, summarizer, &fakeIngestor{}, passFilter{}, WithPersister(persister))

	var events []Event
	for ev := range engine.Stream(context.Background(), "u", sources("a", "b")) {
		events = append(events, ev)
		if ev.Type == EventSummary && ev.Data.(SummaryPayload).Topic == "Beta" {
			summarizer.failWith("Alpha", errors.New("summary failed"))
			close(gate)
		}
	}

	require.NotEmpty(t, events)
	assert.Equal(t, EventError, events[len(events)-1].Type)

	var summaries int
	for _, ev := range events {
		if ev.Type == EventSummary {
			summaries++
		}
	}
	assert.Equal(t, 1, summaries, "the summary delivered before the failure stands")
	assert.Equal(t, 0, persister.calls)
}

func TestStreamIngestFailureIsFatal(t *testing.T) {
	ingestor := &fakeIngestor{fail: map[string]bool{"b": true}}
	persister := &recordingPersister{}
	engine := New(&scriptClassifier{}, &fakeSummarizer{}, ingestor, passFilter{}, WithPersister(persister))

	events := collect(engine.Stream(context.Background(), "u", sources("a", "b")))

	last := events[len(events)-1]
	require.Equal(t, EventError, last.Type)
	assert.Contains(t, last.Data.(ErrorPayload).Error, "ingest b")
	assert.Equal(t, 0, persister.calls)
}

func TestStreamCancelledRunEmitsTerminalError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	persister := &recordingPersister{}
	engine := New(&scriptClassifier{}, &fakeSummarizer{}, &fakeIngestor{}, passFilter{}, WithPersister(persister))

	events := collect(engine.Stream(ctx, "u", sources("a")))

	require.NotEmpty(t, events)
	assert.Equal(t, EventError, events[len(events)-1].Type)
	assert.Equal(t, 0, persister.calls, "cancelled runs persist nothing")
}

func TestRunWithNoTopicsPersistsEmptyResults(t *testing.T) {
	// Every item skipped: the run succeeds with zero topics and still
	// persists (an empty briefing).
	classifier := &scriptClassifier{results: map[string]topic.CategorizationResult{
		"content:a": {Skip: true},
	}}
	persister := &recordingPersister{}
	engine := New(classifier, &fakeSummarizer{}, &fakeIngestor{}, passFilter{}, WithPersister(persister))

	results, err := engine.Run(context.Background(), "u", sources("a"))
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, persister.calls)
}

func TestGatherToleratesPartialFailures(t *testing.T) {
	ingestor := &fakeIngestor{fail: map[string]bool{"dead": true}}
	engine := New(&scriptClassifier{}, &fakeSummarizer{}, ingestor, passFilter{})

	contents, err := engine.gather(context.Background(), topic.Topic{
		Name:    "Tech",
		Sources: []string{"live", "dead"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"content:live", contentUnavailable}, contents)
}

func TestGatherFailsWhenAllSourcesDead(t *testing.T) {
	ingestor := &fakeIngestor{fail: map[string]bool{"dead1": true, "dead2": true}}
	engine := New(&scriptClassifier{}, &fakeSummarizer{}, ingestor, passFilter{})

	_, err := engine.gather(context.Background(), topic.Topic{
		Name:    "Tech",
		Sources: []string{"dead1", "dead2"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sources reachable")
}

func TestStreamClosesPromptly(t *testing.T) {
	classifier := &scriptClassifier{results: map[string]topic.CategorizationResult{
		"content:a": singleTopic("Alpha"),
	}}
	engine := New(classifier, &fakeSummarizer{}, &fakeIngestor{}, passFilter{})

	ch := engine.Stream(context.Background(), "u", sources("a"))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close")
		}
	}
}
