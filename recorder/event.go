// Package recorder is the client SDK for the dvr-service: it batches events
// from a capture source and ships them to the ingestion endpoint, with a
// chunked synchronous fallback for process teardown.
package recorder

// Event type tags understood by the replay pipeline.
const (
	EventTypeDOMContentLoaded = 0
	EventTypeLoad             = 1
	EventTypeFullSnapshot     = 2
	EventTypeMeta             = 3
	EventTypeIncremental      = 4
	EventTypeCustom           = 5
)

// Event is a single captured event, wire-compatible with the dvr-service.
type Event struct {
	Type      int            `json:"type"`
	Timestamp int64          `json:"timestamp"` // Unix milliseconds
	Data      map[string]any `json:"data,omitempty"`
}

// EventSource abstracts the capture library. Start begins emitting events to
// the given callback; Stop ceases emission. Both are called at most once per
// recording.
type EventSource interface {
	Start(emit func(Event)) error
	Stop()
}
