package bufferapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/firmly/dvr/internal/buffer"
	"github.com/firmly/dvr/internal/domain"
	"github.com/firmly/dvr/internal/store"
	transport "github.com/firmly/dvr/internal/transport/http"
)

// Spins up a real internal server and talks to it through the client, so the
// wire protocol is exercised end to end.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", 1000)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	reg := buffer.NewRegistry(st, time.Minute, time.Second)
	srv := httptest.NewServer(transport.NewInternalServer(reg))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL)
}

func TestClientAppendAndFinalize(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	res, err := c.Append(ctx, "s1", []domain.Event{
		{Type: domain.EventTypeLoad, Timestamp: 1000},
		{Type: domain.EventTypeFullSnapshot, Timestamp: 4000},
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if res.EventCount != 2 {
		t.Fatalf("expected count 2, got %d", res.EventCount)
	}

	data, err := c.Finalize(ctx, "s1")
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if len(data.Events) != 2 || data.Metadata.Duration != 3000 {
		t.Fatalf("unexpected session data: %+v", data)
	}
}

func TestClientAppendRejectedByServer(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Append(context.Background(), "", []domain.Event{{Timestamp: 1}})
	if err == nil {
		t.Fatal("expected error for missing session id")
	}
}
