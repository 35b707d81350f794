package recorder

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// watcher observes process teardown signals (SIGINT/SIGTERM and an optional
// context cancellation) and routes both to the same callback. The callback
// may fire more than once when signals arrive back to back; the final flush
// it triggers is a no-op on an empty buffer, so double firing is harmless.
type watcher struct {
	mu       sync.Mutex
	callback func()
	sigCh    chan os.Signal
	done     chan struct{}
}

func newWatcher(callback func()) *watcher {
	return &watcher{callback: callback}
}

// Setup registers the signal handler and, when ctx is non-nil, a
// context-done handler.
func (w *watcher) Setup(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sigCh != nil {
		return
	}

	w.sigCh = make(chan os.Signal, 1)
	w.done = make(chan struct{})
	signal.Notify(w.sigCh, syscall.SIGINT, syscall.SIGTERM)

	var ctxDone <-chan struct{}
	if ctx != nil {
		ctxDone = ctx.Done()
	}

	go func(sigCh chan os.Signal, done chan struct{}) {
		for {
			select {
			case <-sigCh:
				w.fire()
			case <-ctxDone:
				w.fire()
				return
			case <-done:
				return
			}
		}
	}(w.sigCh, w.done)
}

// Remove deregisters the handlers and nulls references. Safe to call when
// Setup never ran, and safe to call twice.
func (w *watcher) Remove() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sigCh == nil {
		return
	}
	signal.Stop(w.sigCh)
	close(w.done)
	w.sigCh = nil
	w.done = nil
}

func (w *watcher) fire() {
	w.mu.Lock()
	cb := w.callback
	w.mu.Unlock()
	if cb != nil {
		cb()
	}
}
