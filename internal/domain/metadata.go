package domain

import (
	"encoding/json"
	"time"
)

// URLUnknown is reported when no meta event carries a page URL.
const URLUnknown = "Unknown"

// ComputeMetadata derives session metadata from an accumulated event log.
// An empty log yields a zero-duration record stamped with now. The URL comes
// from the first meta event carrying an href; duration is clamped to zero
// when timestamps are missing or out of order.
func ComputeMetadata(sessionID string, events []Event, now time.Time) SessionMetadata {
	created := now.UTC().Format(time.RFC3339)
	md := SessionMetadata{
		SessionID:  sessionID,
		Timestamp:  now.UnixMilli(),
		Duration:   0,
		EventCount: len(events),
		URL:        URLUnknown,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	if len(events) == 0 {
		return md
	}

	first := events[0].Timestamp
	last := events[len(events)-1].Timestamp
	if first != 0 {
		md.Timestamp = first
	}
	if first != 0 && last != 0 && last > first {
		md.Duration = last - first
	}
	if url := pageURL(events); url != "" {
		md.URL = url
	}
	return md
}

// pageURL returns the href of the first meta event that carries one.
func pageURL(events []Event) string {
	for _, ev := range events {
		if ev.Type != EventTypeMeta || len(ev.Data) == 0 {
			continue
		}
		var data struct {
			Href string `json:"href"`
		}
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			continue
		}
		if data.Href != "" {
			return data.Href
		}
	}
	return ""
}
