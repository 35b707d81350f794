package recorder

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config configures a SessionRecorder.
type Config struct {
	// ServiceURL is the dvr-service base URL, e.g. "https://dvr.example.com".
	ServiceURL string
	// AppName identifies the host application, sent with every batch.
	AppName string
	// Disabled turns the recorder into a global no-op.
	Disabled bool

	// MaxEvents flushes a batch at this event count. Default 50.
	MaxEvents int
	// MaxBytes flushes a batch at this serialized payload size. Default 256 KiB.
	MaxBytes int
	// FlushInterval is the periodic flush period. Default 10s.
	FlushInterval time.Duration

	// HTTPClient overrides the transport's HTTP client.
	HTTPClient *http.Client
	// OnError receives transport failures for host-app observability. The
	// recorder itself never surfaces them to callers.
	OnError func(error)
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 50
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 256 * 1024
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	return cfg
}

// SessionRecorder composes a capture source, a batcher, a transport and a
// teardown watcher behind a start/stop facade. It is either idle or
// recording; Start and Stop move between the two and everything else is a
// no-op in the wrong state.
type SessionRecorder struct {
	cfg        Config
	source     EventSource
	instanceID string

	mu        sync.Mutex
	recording bool
	sessionID string
	batcher   *Batcher
	transport *Transport
	watcher   *watcher
}

// New creates a recorder around a capture source.
func New(source EventSource, cfg Config) *SessionRecorder {
	return &SessionRecorder{
		cfg:        cfg.withDefaults(),
		source:     source,
		instanceID: uuid.NewString(),
	}
}

// Start begins recording under the given session id, generating one when
// empty. Returns the active session id. Starting while recording returns the
// current id; starting a disabled recorder returns "".
func (r *SessionRecorder) Start(ctx context.Context, sessionID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.Disabled {
		return "", nil
	}
	if r.recording {
		return r.sessionID, nil
	}
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	transport := NewTransport(r.cfg.ServiceURL, r.cfg.AppName, sessionID, r.cfg.HTTPClient, r.cfg.OnError)
	batcher := NewBatcher(sessionID, r.cfg.MaxEvents, r.cfg.MaxBytes, r.cfg.FlushInterval, func(events []Event, reason FlushReason) {
		if reason == FlushFinal {
			// The flusher owns the final send; see Stop and the watcher.
			return
		}
		transport.SendBatch(context.Background(), events, false)
	})

	w := newWatcher(func() {
		// Emergency teardown: ship everything synchronously in beacon-sized
		// chunks, last one finalizing.
		transport.SendFinalBatchSync(batcher.Flush(FlushFinal))
	})

	if err := r.source.Start(batcher.AddEvent); err != nil {
		return "", fmt.Errorf("failed to start capture source: %w", err)
	}
	batcher.Start()
	w.Setup(ctx)

	r.sessionID = sessionID
	r.batcher = batcher
	r.transport = transport
	r.watcher = w
	r.recording = true

	log.Printf("session-recorder %s: recording session %s", r.instanceID, sessionID)
	return sessionID, nil
}

// Stop ends the recording: the capture source and periodic timer stop, the
// remaining buffer is flushed and sent with finalize (awaited, since Stop is
// an intentional teardown, not an emergency unload), and the recorder returns
// to idle.
func (r *SessionRecorder) Stop(ctx context.Context) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	source := r.source
	batcher := r.batcher
	transport := r.transport
	w := r.watcher

	r.recording = false
	r.sessionID = ""
	r.batcher = nil
	r.transport = nil
	r.watcher = nil
	r.mu.Unlock()

	source.Stop()
	batcher.Stop()
	events := batcher.Flush(FlushFinal)
	transport.SendBatch(ctx, events, true)
	w.Remove()
}

// SessionID returns the active session id, or "" when idle.
func (r *SessionRecorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// Recording reports whether a session is active.
func (r *SessionRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// generateSessionID produces ids of the form session_<epoch-ms>_<base36>.
func generateSessionID() string {
	suffix := strconv.FormatUint(rand.Uint64(), 36)
	if len(suffix) > 9 {
		suffix = suffix[:9]
	}
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), suffix)
}
