// Package buffer implements the per-session event buffer: a keyed actor
// registry giving each session id a single serialized writer, an inactivity
// timer, and autonomous persistence when no explicit finalize ever arrives.
package buffer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/firmly/dvr/internal/domain"
	"github.com/firmly/dvr/internal/store"
)

// Adapter is the session-buffer contract consumed by the use cases. The
// Registry is the in-process implementation; bufferapi provides an HTTP
// client speaking the same protocol to an out-of-process buffer.
type Adapter interface {
	Append(ctx context.Context, sessionID string, events []domain.Event) (*AppendResult, error)
	Finalize(ctx context.Context, sessionID string) (*domain.SessionData, error)
}

// AppendResult reports the outcome of buffering a batch.
type AppendResult struct {
	EventCount int // running total for the session
}

// Registry owns one actor per active session id. All access to a session's
// buffered state goes through that actor's mutex, so concurrent appends for
// the same session serialize with no further locking.
type Registry struct {
	mu     sync.Mutex
	actors map[string]*actor

	store        store.Store
	inactivity   time.Duration
	storeTimeout time.Duration
}

// NewRegistry creates a buffer registry. Sessions idle for the inactivity
// window are auto-finalized and written to st; storeTimeout bounds those
// background writes.
func NewRegistry(st store.Store, inactivity, storeTimeout time.Duration) *Registry {
	return &Registry{
		actors:       make(map[string]*actor),
		store:        st,
		inactivity:   inactivity,
		storeTimeout: storeTimeout,
	}
}

// actor holds the buffered state for one session. Empty state is
// events == nil with no armed timer. gen counts timer arms and takes; an
// expiry callback carries the generation it was armed with and is void once
// the counter moves on.
type actor struct {
	reg       *Registry
	sessionID string

	mu     sync.Mutex
	events []domain.Event
	gen    uint64
	timer  *time.Timer
}

// Append buffers events for a session and re-arms its inactivity timer. An
// empty batch keeps the session alive without touching the log.
func (r *Registry) Append(ctx context.Context, sessionID string, events []domain.Event) (*AppendResult, error) {
	if sessionID == "" {
		return nil, domain.NewMissingParameter("sessionId")
	}
	if events == nil {
		return nil, domain.NewInvalidRequest("events must be an array")
	}

	a := r.lockActor(sessionID)
	defer a.mu.Unlock()

	a.events = append(a.events, events...)
	a.rearmLocked()
	return &AppendResult{EventCount: len(a.events)}, nil
}

// Finalize disarms the timer, computes metadata over the accumulated log and
// returns it with the events for the caller to persist, then resets the
// actor to empty. Finalizing a session with zero appends succeeds with an
// empty log.
func (r *Registry) Finalize(ctx context.Context, sessionID string) (*domain.SessionData, error) {
	if sessionID == "" {
		return nil, domain.NewMissingParameter("sessionId")
	}

	a := r.lockActor(sessionID)
	events, md := a.takeLocked(time.Now())
	a.mu.Unlock()
	r.release(a)

	return &domain.SessionData{Events: events, Metadata: md}, nil
}

// Close drains every accumulating actor to storage. Called on shutdown so
// buffered sessions are not lost when the process stops before their
// inactivity window elapses.
func (r *Registry) Close() {
	r.mu.Lock()
	actors := make([]*actor, 0, len(r.actors))
	for _, a := range r.actors {
		actors = append(actors, a)
	}
	r.mu.Unlock()

	for _, a := range actors {
		a.mu.Lock()
		a.drainLocked()
	}
}

// lockActor returns the registered actor for a session id with its mutex
// held, creating one if needed. An actor can be evicted between lookup and
// lock (finalize or expiry racing this request), so registration is
// re-checked under the actor lock; the caller always holds the one live
// actor for the id.
func (r *Registry) lockActor(sessionID string) *actor {
	for {
		r.mu.Lock()
		a, ok := r.actors[sessionID]
		if !ok {
			a = &actor{reg: r, sessionID: sessionID}
			r.actors[sessionID] = a
		}
		r.mu.Unlock()

		a.mu.Lock()
		r.mu.Lock()
		live := r.actors[sessionID] == a
		r.mu.Unlock()
		if live {
			return a
		}
		a.mu.Unlock()
	}
}

// release evicts an actor that has returned to empty state.
func (r *Registry) release(a *actor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.actors[a.sessionID]; ok && cur == a {
		delete(r.actors, a.sessionID)
	}
}

// rearmLocked cancels and reschedules the inactivity timer. Every append
// resets the countdown. Bumping gen voids a countdown that already fired
// but is still waiting on the actor lock.
func (a *actor) rearmLocked() {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(a.reg.inactivity, func() { a.expire(gen) })
}

// takeLocked computes metadata, returns the accumulated log and resets the
// actor to empty state.
func (a *actor) takeLocked(now time.Time) ([]domain.Event, domain.SessionMetadata) {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	events := a.events
	if events == nil {
		events = []domain.Event{}
	}
	md := domain.ComputeMetadata(a.sessionID, events, now)

	a.events = nil
	return events, md
}

// expire is the inactivity path: no append or finalize arrived within the
// window, so the actor persists its log itself and resets. gen identifies
// the countdown that fired; when the actor's counter has moved on, an
// append or finalize won the race and this callback must not touch the
// session.
func (a *actor) expire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.drainLocked()
}

// drainLocked persists the buffered log and evicts the actor. The actor
// mutex is held on entry and released here. There is no caller to propagate
// failures to; they are logged and dropped.
func (a *actor) drainLocked() {
	if len(a.events) == 0 {
		if a.timer != nil {
			a.timer.Stop()
			a.timer = nil
		}
		a.mu.Unlock()
		a.reg.release(a)
		return
	}
	events, md := a.takeLocked(time.Now())
	a.mu.Unlock()
	a.reg.release(a)

	md.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	ctx, cancel := context.WithTimeout(context.Background(), a.reg.storeTimeout)
	defer cancel()
	if _, err := a.reg.store.WriteEvents(ctx, a.sessionID, events); err != nil {
		log.Printf("ERROR: failed to persist timed-out session %s: %v", a.sessionID, err)
		return
	}
	if err := a.reg.store.CreateMetadata(ctx, a.sessionID, &md); err != nil {
		log.Printf("ERROR: failed to persist metadata for timed-out session %s: %v", a.sessionID, err)
		return
	}
	log.Printf("session %s auto-finalized after inactivity (%d events)", a.sessionID, len(events))
}
