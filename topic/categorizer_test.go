package topic

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptClassifier returns a canned result per content string.
type scriptClassifier struct {
	results map[string]CategorizationResult
	calls   []string
}

func (s *scriptClassifier) Classify(_ context.Context, _ []string, content string) (CategorizationResult, error) {
	s.calls = append(s.calls, content)
	res, ok := s.results[content]
	if !ok {
		return CategorizationResult{}, fmt.Errorf("no script for %q", content)
	}
	return res, nil
}

// passFilter keeps every URL.
type passFilter struct{}

func (passFilter) Filter(_ context.Context, urls []string) []string { return urls }

// denyFilter drops the configured URLs.
type denyFilter struct {
	drop map[string]bool
}

func (d denyFilter) Filter(_ context.Context, urls []string) []string {
	var kept []string
	for _, u := range urls {
		if !d.drop[u] {
			kept = append(kept, u)
		}
	}
	return kept
}

func item(url string) ContentItem {
	return ContentItem{URL: url, Content: "content:" + url}
}

func TestCategorizerCaseInsensitiveMerge(t *testing.T) {
	// A claims topic "Tech" as new, B claims "tech" as new: exactly one
	// topic results, holding both sources.
	classifier := &scriptClassifier{results: map[string]CategorizationResult{
		"content:A": {Assignments: []Assignment{{TopicName: "Tech", IsNew: true}}},
		"content:B": {Assignments: []Assignment{{TopicName: "tech", IsNew: true}}},
	}}
	store := NewStore()
	cat := NewCategorizer(classifier, passFilter{})

	err := cat.Run(context.Background(), store, []ContentItem{item("A"), item("B")}, nil)
	require.NoError(t, err)

	require.Equal(t, 1, store.Len())
	topic := store.FindByName("Tech")
	require.NotNil(t, topic)
	assert.Equal(t, []string{"A", "B"}, topic.Sources)
}

func TestCategorizerSkipAndEmptyAssignments(t *testing.T) {
	classifier := &scriptClassifier{results: map[string]CategorizationResult{
		"content:A": {Skip: true, Assignments: []Assignment{{TopicName: "Ignored", IsNew: true}}},
		"content:B": {Skip: false},
		"content:C": {Assignments: []Assignment{{TopicName: "Real", IsNew: true}}},
	}}
	store := NewStore()
	cat := NewCategorizer(classifier, passFilter{})

	err := cat.Run(context.Background(), store, []ContentItem{item("A"), item("B"), item("C")}, nil)
	require.NoError(t, err)

	// A skipped, B empty: neither changed state, processing continued to C.
	assert.Equal(t, []string{"Real"}, store.Names())
	assert.Len(t, classifier.calls, 3)
}

func TestCategorizerRecoversInconsistentReference(t *testing.T) {
	// The classifier claims an existing topic that cannot be located: the
	// topic is created anyway, never dropped.
	classifier := &scriptClassifier{results: map[string]CategorizationResult{
		"content:A": {Assignments: []Assignment{{TopicName: "Phantom", IsNew: false}}},
	}}
	store := NewStore()
	cat := NewCategorizer(classifier, passFilter{})

	err := cat.Run(context.Background(), store, []ContentItem{item("A")}, nil)
	require.NoError(t, err)
	require.NotNil(t, store.FindByName("Phantom"))
}

func TestCategorizerSkipsBlankTopicNames(t *testing.T) {
	classifier := &scriptClassifier{results: map[string]CategorizationResult{
		"content:A": {Assignments: []Assignment{
			{TopicName: "", IsNew: true},
			{TopicName: "   ", IsNew: true},
			{TopicName: "Valid", IsNew: true},
		}},
	}}
	store := NewStore()
	cat := NewCategorizer(classifier, passFilter{})

	err := cat.Run(context.Background(), store, []ContentItem{item("A")}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Valid"}, store.Names())
}

func TestCategorizerEnforcesLimits(t *testing.T) {
	var assignments []Assignment
	for i := 0; i < MaxAssignments+3; i++ {
		assignments = append(assignments, Assignment{
			TopicName: fmt.Sprintf("Topic%d", i),
			IsNew:     true,
			FurtherReadings: []string{
				"https://r.example/1", "https://r.example/2", "https://r.example/3",
				"https://r.example/4", "https://r.example/5",
			},
		})
	}
	classifier := &scriptClassifier{results: map[string]CategorizationResult{
		"content:A": {Assignments: assignments},
	}}
	store := NewStore()
	cat := NewCategorizer(classifier, passFilter{})

	err := cat.Run(context.Background(), store, []ContentItem{item("A")}, nil)
	require.NoError(t, err)

	assert.Equal(t, MaxAssignments, store.Len())
	for _, name := range store.Names() {
		// Item URL plus at most MaxFurtherReadings readings.
		assert.LessOrEqual(t, len(store.FindByName(name).Sources), 1+MaxFurtherReadings)
	}
}

func TestCategorizerDropsUnreachableReadings(t *testing.T) {
	classifier := &scriptClassifier{results: map[string]CategorizationResult{
		"content:A": {Assignments: []Assignment{{
			TopicName:       "Tech",
			IsNew:           true,
			FurtherReadings: []string{"https://live.example", "https://dead.example"},
		}}},
	}}
	store := NewStore()
	cat := NewCategorizer(classifier, denyFilter{drop: map[string]bool{"https://dead.example": true}})

	err := cat.Run(context.Background(), store, []ContentItem{item("A")}, nil)
	require.NoError(t, err)

	topic := store.FindByName("Tech")
	require.NotNil(t, topic)
	assert.Equal(t, []string{"A", "https://live.example"}, topic.Sources)
}

func TestCategorizerDiscoveryNotifications(t *testing.T) {
	classifier := &scriptClassifier{results: map[string]CategorizationResult{
		"content:A": {Assignments: []Assignment{{TopicName: "First", IsNew: true}}},
		"content:B": {Assignments: []Assignment{
			{TopicName: "first", IsNew: false}, // merge: no notification
			{TopicName: "Second", IsNew: true},
		}},
	}}
	store := NewStore()
	cat := NewCategorizer(classifier, passFilter{})

	type discovery struct {
		name  string
		total int
	}
	var seen []discovery
	err := cat.Run(context.Background(), store, []ContentItem{item("A"), item("B")}, func(name string, total int) {
		seen = append(seen, discovery{name, total})
	})
	require.NoError(t, err)

	assert.Equal(t, []discovery{{"First", 1}, {"Second", 2}}, seen)
}

func TestCategorizerClassifierFailureIsFatal(t *testing.T) {
	boom := errors.New("model unavailable")
	classifier := &failingClassifier{err: boom}
	store := NewStore()
	cat := NewCategorizer(classifier, passFilter{})

	err := cat.Run(context.Background(), store, []ContentItem{item("A"), item("B")}, nil)
	require.ErrorIs(t, err, boom)
	// Aborted on the first item: the second was never classified.
	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, 0, store.Len())
}

type failingClassifier struct {
	err   error
	calls int
}

func (f *failingClassifier) Classify(context.Context, []string, string) (CategorizationResult, error) {
	f.calls++
	return CategorizationResult{}, f.err
}

func TestCategorizerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	classifier := &scriptClassifier{results: map[string]CategorizationResult{}}
	cat := NewCategorizer(classifier, passFilter{})

	err := cat.Run(ctx, NewStore(), []ContentItem{item("A")}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, classifier.calls)
}
