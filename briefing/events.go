package briefing

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/newsfold/newsfold/topic"
)

// EventType identifies one kind of run notification.
type EventType string

// Event types, in protocol order:
// start → status* → topic* → status → summary* → (done | error).
const (
	EventStart   EventType = "start"
	EventStatus  EventType = "status"
	EventTopic   EventType = "topic"
	EventSummary EventType = "summary"
	EventDone    EventType = "done"
	EventError   EventType = "error"
)

// Event is one envelope in a run's ordered, single-consumer notification
// stream. Exactly one terminal event (done or error) ends a run; no events
// follow it.
type Event struct {
	Type EventType
	Data any
}

// StartPayload opens a run.
type StartPayload struct {
	RunID   string `json:"runId"`
	Sources int    `json:"sources"`
}

// StatusPayload is a human-readable progress note.
type StatusPayload struct {
	Message string `json:"message"`
}

// TopicPayload announces a topic creation. TotalTopics is the cumulative
// topic count, strictly increasing by one, starting at 1.
type TopicPayload struct {
	TopicName   string `json:"topicName"`
	TotalTopics int    `json:"totalTopics"`
}

// SummaryPayload carries one completed topic summary. Index is the topic's
// stable position in the frozen snapshot; events arrive in completion order,
// not snapshot order.
type SummaryPayload struct {
	Index   int           `json:"index"`
	Topic   string        `json:"topic"`
	Summary topic.Summary `json:"summary"`
}

// DonePayload terminates a successful run.
type DonePayload struct {
	Message string `json:"message"`
}

// ErrorPayload terminates a failed run.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// WriteSSE renders the event in server-sent-events wire form:
//
//	event: <type>\ndata: <JSON>\n\n
func (e Event) WriteSSE(w io.Writer) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
		return fmt.Errorf("write %s event: %w", e.Type, err)
	}
	return nil
}
