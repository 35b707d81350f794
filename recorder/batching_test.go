package recorder

import (
	"sync"
	"testing"
	"time"
)

type flushRecord struct {
	events []Event
	reason FlushReason
}

type flushCollector struct {
	mu      sync.Mutex
	flushes []flushRecord
}

func (f *flushCollector) collect(events []Event, reason FlushReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes = append(f.flushes, flushRecord{events: events, reason: reason})
}

func (f *flushCollector) all() []flushRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]flushRecord, len(f.flushes))
	copy(out, f.flushes)
	return out
}

func TestCountTriggerFlushesExactBatch(t *testing.T) {
	var c flushCollector
	b := NewBatcher("s1", 3, 1<<20, time.Hour, c.collect)

	for i := 0; i < 3; i++ {
		b.AddEvent(Event{Type: EventTypeIncremental, Timestamp: int64(i + 1)})
	}

	flushes := c.all()
	if len(flushes) != 1 {
		t.Fatalf("expected exactly one flush, got %d", len(flushes))
	}
	if flushes[0].reason != FlushCount {
		t.Fatalf("expected reason count, got %q", flushes[0].reason)
	}
	got := flushes[0].events
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, ev := range got {
		if ev.Timestamp != int64(i+1) {
			t.Fatalf("events out of insertion order: %+v", got)
		}
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after flush, got %d", b.Len())
	}
}

func TestCountWinsTieBreakOverSize(t *testing.T) {
	var c flushCollector
	// Both thresholds trip on the first event; count must be reported.
	b := NewBatcher("s1", 1, 1, time.Hour, c.collect)

	b.AddEvent(Event{Type: EventTypeIncremental, Timestamp: 1})

	flushes := c.all()
	if len(flushes) != 1 || flushes[0].reason != FlushCount {
		t.Fatalf("expected a single count flush, got %+v", flushes)
	}
}

func TestSizeTrigger(t *testing.T) {
	var c flushCollector
	b := NewBatcher("s1", 1000, 200, time.Hour, c.collect)

	big := make([]byte, 150)
	for i := range big {
		big[i] = 'a'
	}
	b.AddEvent(Event{Type: EventTypeIncremental, Timestamp: 1, Data: map[string]any{"blob": string(big)}})

	flushes := c.all()
	if len(flushes) != 1 || flushes[0].reason != FlushSize {
		t.Fatalf("expected a single size flush, got %+v", flushes)
	}
}

func TestFlushEmptyBufferIsNoOp(t *testing.T) {
	var c flushCollector
	b := NewBatcher("s1", 10, 1<<20, time.Hour, c.collect)

	got := b.Flush(FlushManual)
	if got != nil {
		t.Fatalf("expected nil from empty flush, got %+v", got)
	}
	if len(c.all()) != 0 {
		t.Fatalf("empty flush must not invoke the callback")
	}
}

func TestPeriodicFlush(t *testing.T) {
	var c flushCollector
	b := NewBatcher("s1", 1000, 1<<20, 20*time.Millisecond, c.collect)
	b.Start()
	defer b.Stop()

	b.AddEvent(Event{Type: EventTypeIncremental, Timestamp: 1})

	deadline := time.Now().Add(2 * time.Second)
	for {
		flushes := c.all()
		if len(flushes) > 0 {
			if flushes[0].reason != FlushTime {
				t.Fatalf("expected reason time, got %q", flushes[0].reason)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for periodic flush")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConcurrentFlushesDeliverInCutOrder(t *testing.T) {
	var mu sync.Mutex
	var active, maxActive int
	var delivered []Event

	collect := func(events []Event, reason FlushReason) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		// Widen the window so a racing flush would overtake this one.
		time.Sleep(time.Millisecond)

		mu.Lock()
		delivered = append(delivered, events...)
		active--
		mu.Unlock()
	}

	b := NewBatcher("s1", 5, 1<<20, time.Hour, collect)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			b.AddEvent(Event{Timestamp: int64(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			b.Flush(FlushManual)
		}
	}()
	wg.Wait()
	b.Flush(FlushManual)

	mu.Lock()
	defer mu.Unlock()
	if maxActive > 1 {
		t.Fatalf("flush callbacks overlapped, %d at once", maxActive)
	}
	if len(delivered) != 200 {
		t.Fatalf("expected 200 events delivered, got %d", len(delivered))
	}
	for i, ev := range delivered {
		if ev.Timestamp != int64(i) {
			t.Fatalf("batches delivered out of cut order at %d: %+v", i, ev)
		}
	}
}

func TestManualFlushReturnsBatch(t *testing.T) {
	var c flushCollector
	b := NewBatcher("s1", 10, 1<<20, time.Hour, c.collect)

	b.AddEvent(Event{Timestamp: 1})
	b.AddEvent(Event{Timestamp: 2})
	got := b.Flush(FlushFinal)

	if len(got) != 2 {
		t.Fatalf("expected 2 events returned, got %d", len(got))
	}
	flushes := c.all()
	if len(flushes) != 1 || flushes[0].reason != FlushFinal {
		t.Fatalf("expected final flush callback, got %+v", flushes)
	}
}
