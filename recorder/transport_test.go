package recorder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type capturedPayload struct {
	SessionID string  `json:"sessionId"`
	AppName   string  `json:"appName"`
	Events    []Event `json:"events"`
	Finalize  bool    `json:"finalize"`
}

type captureServer struct {
	mu       sync.Mutex
	payloads []capturedPayload
	status   int
	server   *httptest.Server
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()
	cs := &captureServer{status: http.StatusOK}
	cs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p capturedPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		cs.mu.Lock()
		cs.payloads = append(cs.payloads, p)
		status := cs.status
		cs.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(cs.server.Close)
	return cs
}

func (cs *captureServer) all() []capturedPayload {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]capturedPayload, len(cs.payloads))
	copy(out, cs.payloads)
	return out
}

func TestSendBatchEmptyNonFinalizeIsNoOp(t *testing.T) {
	cs := newCaptureServer(t)
	tr := NewTransport(cs.server.URL, "app", "s1", nil, nil)

	tr.SendBatch(context.Background(), nil, false)

	if len(cs.all()) != 0 {
		t.Fatalf("expected no request for an empty non-finalize batch")
	}
}

func TestSendBatchEmptyFinalizeIsSent(t *testing.T) {
	cs := newCaptureServer(t)
	tr := NewTransport(cs.server.URL, "app", "s1", nil, nil)

	tr.SendBatch(context.Background(), nil, true)

	got := cs.all()
	if len(got) != 1 {
		t.Fatalf("expected the empty finalize batch to be sent, got %d requests", len(got))
	}
	if !got[0].Finalize || len(got[0].Events) != 0 {
		t.Fatalf("unexpected payload: %+v", got[0])
	}
	if got[0].SessionID != "s1" || got[0].AppName != "app" {
		t.Fatalf("unexpected envelope: %+v", got[0])
	}
}

func TestSendBatchFailureHitsCallbackOnly(t *testing.T) {
	cs := newCaptureServer(t)
	cs.status = http.StatusInternalServerError

	var mu sync.Mutex
	var failures int
	tr := NewTransport(cs.server.URL, "app", "s1", nil, func(err error) {
		mu.Lock()
		failures++
		mu.Unlock()
	})

	tr.SendBatch(context.Background(), []Event{{Timestamp: 1}}, false)

	mu.Lock()
	defer mu.Unlock()
	if failures != 1 {
		t.Fatalf("expected one error callback, got %d", failures)
	}
}

func TestSendFinalBatchSyncChunksUnderCeiling(t *testing.T) {
	cs := newCaptureServer(t)
	tr := NewTransport(cs.server.URL, "app", "s1", nil, nil)

	// ~10KiB per event, 20 events: well over one 64KiB beacon.
	blob := strings.Repeat("x", 10*1024)
	events := make([]Event, 20)
	for i := range events {
		events[i] = Event{Type: EventTypeIncremental, Timestamp: int64(i), Data: map[string]any{"blob": blob}}
	}

	tr.SendFinalBatchSync(events)

	got := cs.all()
	if len(got) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(got))
	}

	var flattened []Event
	for i, p := range got {
		raw, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("marshal chunk: %v", err)
		}
		if len(raw) >= beaconMaxBytes {
			t.Fatalf("chunk %d is %d bytes, over the ceiling", i, len(raw))
		}
		if p.Finalize != (i == len(got)-1) {
			t.Fatalf("only the last chunk may finalize: chunk %d of %d has finalize=%v", i, len(got), p.Finalize)
		}
		flattened = append(flattened, p.Events...)
	}
	if len(flattened) != len(events) {
		t.Fatalf("expected %d events across chunks, got %d", len(events), len(flattened))
	}
	for i, ev := range flattened {
		if ev.Timestamp != int64(i) {
			t.Fatalf("chunking broke event order at %d: %+v", i, ev)
		}
	}
}

func TestSendFinalBatchSyncEmptyIsNoOp(t *testing.T) {
	cs := newCaptureServer(t)
	tr := NewTransport(cs.server.URL, "app", "s1", nil, nil)

	tr.SendFinalBatchSync(nil)

	if len(cs.all()) != 0 {
		t.Fatalf("expected no requests for empty teardown batch")
	}
}

func TestChunkEventsSingleOversizedEvent(t *testing.T) {
	tr := NewTransport("http://unused", "", "s1", nil, nil)

	huge := Event{Timestamp: 1, Data: map[string]any{"blob": strings.Repeat("x", beaconMaxBytes)}}
	chunks := tr.chunkEvents([]Event{huge, {Timestamp: 2}})

	if len(chunks) != 2 {
		t.Fatalf("expected oversized event isolated in its own chunk, got %d chunks", len(chunks))
	}
	if len(chunks[0]) != 1 || chunks[0][0].Timestamp != 1 {
		t.Fatalf("unexpected first chunk: %+v", chunks[0])
	}
}
