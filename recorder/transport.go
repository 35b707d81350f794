package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// beaconMaxBytes is the ceiling on a single teardown-path payload, matching
// the browser beacon size limit the ingestion endpoint was sized for.
const beaconMaxBytes = 64 * 1024

// Transport serializes batches and ships them to the ingestion endpoint.
// Sends are fire-and-forget: failures are logged and reported to an optional
// callback, never returned; recording must not disturb the host
// application.
type Transport struct {
	serviceURL string
	appName    string
	sessionID  string
	client     *http.Client
	onError    func(error)
}

// NewTransport creates a transport for one session. client may be nil, in
// which case a default with a 10s timeout is used.
func NewTransport(serviceURL, appName, sessionID string, client *http.Client, onError func(error)) *Transport {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Transport{
		serviceURL: strings.TrimSuffix(serviceURL, "/"),
		appName:    appName,
		sessionID:  sessionID,
		client:     client,
		onError:    onError,
	}
}

type sessionPayload struct {
	SessionID string  `json:"sessionId"`
	AppName   string  `json:"appName,omitempty"`
	Events    []Event `json:"events"`
	Finalize  bool    `json:"finalize,omitempty"`
}

// SendBatch posts a batch to the ingestion endpoint. An empty non-finalize
// batch is a no-op; an empty finalize batch IS sent, to close the session
// server-side. When finalize is set the request is detached from the caller's
// context so it can outlive the caller's teardown.
func (t *Transport) SendBatch(ctx context.Context, events []Event, finalize bool) {
	if len(events) == 0 && !finalize {
		return
	}
	if finalize {
		ctx = context.WithoutCancel(ctx)
	}
	if events == nil {
		events = []Event{}
	}
	t.post(ctx, sessionPayload{
		SessionID: t.sessionID,
		AppName:   t.appName,
		Events:    events,
		Finalize:  finalize,
	})
}

// SendFinalBatchSync ships all buffered events synchronously for the
// teardown path, split into chunks that each stay under the beacon size
// ceiling. Only the last chunk carries finalize; earlier chunks are plain
// appends, so the full log reaches the server while exactly one transmission
// closes the session. No-op when events is empty.
func (t *Transport) SendFinalBatchSync(events []Event) {
	if len(events) == 0 || t.serviceURL == "" {
		return
	}
	chunks := t.chunkEvents(events)
	for i, chunk := range chunks {
		t.post(context.Background(), sessionPayload{
			SessionID: t.sessionID,
			AppName:   t.appName,
			Events:    chunk,
			Finalize:  i == len(chunks)-1,
		})
	}
}

// chunkEvents greedily packs events into chunks whose serialized payload
// stays under the beacon ceiling. A chunk is closed only once it holds at
// least one event, so a single oversized event still ships alone.
func (t *Transport) chunkEvents(events []Event) [][]Event {
	base := t.basePayloadSize()

	var chunks [][]Event
	var current []Event
	size := base
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		evSize := len(data) + 1 // separator
		if size+evSize >= beaconMaxBytes && len(current) > 0 {
			chunks = append(chunks, current)
			current = []Event{ev}
			size = base + evSize
			continue
		}
		current = append(current, ev)
		size += evSize
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// basePayloadSize is the serialized size of the envelope without events.
func (t *Transport) basePayloadSize() int {
	data, err := json.Marshal(sessionPayload{
		SessionID: t.sessionID,
		AppName:   t.appName,
		Events:    []Event{},
		Finalize:  true,
	})
	if err != nil {
		return 0
	}
	return len(data)
}

func (t *Transport) post(ctx context.Context, payload sessionPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		t.fail(fmt.Errorf("failed to marshal batch: %w", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.serviceURL+"/api/sessions", bytes.NewReader(body))
	if err != nil {
		t.fail(fmt.Errorf("failed to create request: %w", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.fail(fmt.Errorf("failed to send batch: %w", err))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.fail(fmt.Errorf("ingestion endpoint returned status %d", resp.StatusCode))
	}
}

// fail logs a transport error and surfaces it to the host app's callback.
// Data loss here is accepted; the checkout must never notice.
func (t *Transport) fail(err error) {
	log.Printf("session-recorder: %v", err)
	if t.onError != nil {
		t.onError(err)
	}
}
