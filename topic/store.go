package topic

import "strings"

// Store is the per-run aggregation of content into named topics. It preserves
// insertion order and is append-only during categorization: topics and
// sources are never removed or reordered.
//
// Single-writer discipline: a Store is exclusively owned by one run and
// mutated only by the Categorizer, never concurrently. Lifecycle: created
// empty, populated sequentially, frozen via Snapshot, then discarded.
type Store struct {
	topics []*Topic
}

// NewStore creates an empty topic store for a single run.
func NewStore() *Store {
	return &Store{}
}

// Len returns the number of topics discovered so far.
func (s *Store) Len() int {
	return len(s.topics)
}

// Names returns the topic names in insertion order.
func (s *Store) Names() []string {
	names := make([]string, len(s.topics))
	for i, t := range s.topics {
		names[i] = t.Name
	}
	return names
}

// FindByName looks up a topic by case-insensitive name match.
// Returns nil if no topic matches.
func (s *Store) FindByName(name string) *Topic {
	for _, t := range s.topics {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// Upsert folds one assignment into the store. A case-insensitive name match
// always means merge, regardless of the assignment's IsNew flag; a miss
// always means create, even when the classifier claimed the topic existed.
// The reported bool is true when a new topic was created.
//
// itemURL is appended first, then each reading, each skipped if already
// present. Callers are expected to have validated readings beforehand.
func (s *Store) Upsert(name, itemURL string, readings []string) bool {
	if t := s.FindByName(name); t != nil {
		t.addSource(itemURL)
		for _, r := range readings {
			t.addSource(r)
		}
		return false
	}

	t := &Topic{Name: name, Sources: []string{itemURL}}
	for _, r := range readings {
		t.addSource(r)
	}
	s.topics = append(s.topics, t)
	return true
}

// Snapshot returns a read-only ordered copy of the store, taken once at the
// categorization/summarization boundary. Mutating the snapshot does not
// affect the store and vice versa.
func (s *Store) Snapshot() []Topic {
	snap := make([]Topic, len(s.topics))
	for i, t := range s.topics {
		sources := make([]string, len(t.Sources))
		copy(sources, t.Sources)
		snap[i] = Topic{Name: t.Name, Sources: sources}
	}
	return snap
}

// addSource appends url unless the exact URL is already present.
func (t *Topic) addSource(url string) {
	for _, s := range t.Sources {
		if s == url {
			return
		}
	}
	t.Sources = append(t.Sources, url)
}
