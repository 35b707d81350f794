package recorder

import (
	"encoding/json"
	"sync"
	"time"
)

// FlushReason names the trigger that caused a batch flush.
type FlushReason string

const (
	FlushCount  FlushReason = "count"
	FlushSize   FlushReason = "size"
	FlushTime   FlushReason = "time"
	FlushFinal  FlushReason = "final"
	FlushManual FlushReason = "manual"
)

// FlushFunc receives the flushed batch and the reason it was flushed.
type FlushFunc func(events []Event, reason FlushReason)

// Batcher accumulates events and flushes them when the event count, the
// serialized payload size, or the periodic timer trips, whichever first.
// Safe for concurrent use.
type Batcher struct {
	sessionID string
	maxEvents int
	maxBytes  int
	interval  time.Duration
	onFlush   FlushFunc

	mu     sync.Mutex
	events []Event
	done   chan struct{}

	// sendMu is taken before mu is released on a flush, so batches reach
	// onFlush in the order they were cut even when the periodic timer and a
	// threshold flush race.
	sendMu sync.Mutex
}

// NewBatcher creates a batcher for one session. onFlush runs outside the
// state lock, so it may add events; it must not call Flush, which would
// deadlock on the send lock.
func NewBatcher(sessionID string, maxEvents, maxBytes int, interval time.Duration, onFlush FlushFunc) *Batcher {
	return &Batcher{
		sessionID: sessionID,
		maxEvents: maxEvents,
		maxBytes:  maxBytes,
		interval:  interval,
		onFlush:   onFlush,
	}
}

// AddEvent appends an event and flushes synchronously when a threshold is
// met. Count is checked before size, so when both trip at once the reported
// reason is "count".
func (b *Batcher) AddEvent(ev Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)

	var reason FlushReason
	switch {
	case len(b.events) >= b.maxEvents:
		reason = FlushCount
	case b.payloadSizeLocked() >= b.maxBytes:
		reason = FlushSize
	default:
		b.mu.Unlock()
		return
	}
	flushed := b.swapLocked()
	b.sendMu.Lock()
	b.mu.Unlock()

	b.emit(flushed, reason)
	b.sendMu.Unlock()
}

// Start arms the periodic flush timer.
func (b *Batcher) Start() {
	b.mu.Lock()
	if b.done != nil {
		b.mu.Unlock()
		return
	}
	done := make(chan struct{})
	b.done = done
	b.mu.Unlock()

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				b.Flush(FlushTime)
			}
		}
	}()
}

// Stop disarms the periodic flush timer. It does not flush.
func (b *Batcher) Stop() {
	b.mu.Lock()
	if b.done != nil {
		close(b.done)
		b.done = nil
	}
	b.mu.Unlock()
}

// Flush swaps out the accumulated batch, invokes the flush callback with it
// and returns it. A flush of an empty buffer returns nil and does not invoke
// the callback, which is what makes back-to-back teardown signals harmless.
func (b *Batcher) Flush(reason FlushReason) []Event {
	b.mu.Lock()
	flushed := b.swapLocked()
	b.sendMu.Lock()
	b.mu.Unlock()

	b.emit(flushed, reason)
	b.sendMu.Unlock()
	return flushed
}

// Len returns the number of buffered events.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func (b *Batcher) swapLocked() []Event {
	flushed := b.events
	b.events = nil
	return flushed
}

func (b *Batcher) emit(events []Event, reason FlushReason) {
	if len(events) == 0 || b.onFlush == nil {
		return
	}
	b.onFlush(events, reason)
}

// payloadSizeLocked computes the serialized size of {sessionId, events}, the
// same shape the transport puts on the wire.
func (b *Batcher) payloadSizeLocked() int {
	data, err := json.Marshal(struct {
		SessionID string  `json:"sessionId"`
		Events    []Event `json:"events"`
	}{b.sessionID, b.events})
	if err != nil {
		return 0
	}
	return len(data)
}
