// Package topic implements the incremental topic-aggregation engine: the data
// model for categorized content, the single-run topic store, and the
// sequential categorizer that folds classification decisions into it.
package topic

// Limits applied defensively when merging classification output, regardless
// of what the external capability returns.
const (
	// MaxAssignments caps topic assignments per content item.
	MaxAssignments = 5
	// MaxFurtherReadings caps supplementary URLs per assignment.
	MaxFurtherReadings = 3
)

// Source is an input pointer to content.
type Source struct {
	URL         string `json:"url" yaml:"url"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Feed marks the URL as an RSS/Atom feed to be expanded into its item
	// links before ingestion.
	Feed bool `json:"feed,omitempty" yaml:"feed,omitempty"`
}

// ContentItem is the fetched text for one source. It is ephemeral and owned
// by a single run.
type ContentItem struct {
	URL     string
	Content string
}

// Assignment is one classification decision for one content item.
type Assignment struct {
	TopicName       string   `json:"topicName"`
	IsNew           bool     `json:"isNew"`
	FurtherReadings []string `json:"furtherReadings,omitempty"`
}

// CategorizationResult is the schema-constrained response of the
// classification capability for a single content item.
type CategorizationResult struct {
	Skip        bool         `json:"skip"`
	Assignments []Assignment `json:"assignments,omitempty"`
}

// Topic is a named cluster of source URLs judged to concern the same subject.
// Names are unique case-insensitively within a Store; Sources is append-only
// and holds no exact-URL duplicates.
type Topic struct {
	Name    string   `json:"name"`
	Sources []string `json:"sources"`
}

// Summary is the structured summarization output for one topic.
type Summary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Image   string `json:"image"`
}

// SummaryResult pairs a Summary with the stable position and name of its
// topic in the frozen snapshot, so consumers can place completion-ordered
// results back into snapshot order.
type SummaryResult struct {
	Index   int     `json:"index"`
	Topic   string  `json:"topic"`
	Summary Summary `json:"summary"`
}
