// Package domain defines the core types shared by the dvr-service layers.
package domain

import "encoding/json"

// EventType tags a recorded browser event.
type EventType int

const (
	EventTypeDOMContentLoaded EventType = 0
	EventTypeLoad             EventType = 1
	EventTypeFullSnapshot     EventType = 2
	EventTypeMeta             EventType = 3
	EventTypeIncremental      EventType = 4
	EventTypeCustom           EventType = 5
)

// Event is a single recorded browser event. Events are immutable once
// emitted; ordering within a session is emission order and is never re-sorted.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// SessionMetadata summarizes a finalized session for listing and lookup.
type SessionMetadata struct {
	SessionID  string `json:"sessionId"`
	Timestamp  int64  `json:"timestamp"` // Unix milliseconds of the first event
	Duration   int64  `json:"duration"`  // milliseconds
	EventCount int    `json:"eventCount"`
	URL        string `json:"url"`
	CreatedAt  string `json:"createdAt"` // RFC 3339
	UpdatedAt  string `json:"updatedAt"` // RFC 3339
}

// SessionData is the result of finalizing a session buffer: the full event
// log plus the metadata computed from it.
type SessionData struct {
	Events   []Event         `json:"events"`
	Metadata SessionMetadata `json:"metadata"`
}
