// Package store defines the persistence adapter for finalized sessions.
package store

import (
	"context"

	"github.com/firmly/dvr/internal/domain"
)

// Store persists finalized session event logs and their metadata.
//
// Event logs have overwrite semantics keyed by session id. Metadata writes
// also maintain a bounded most-recent-first index used for listing; index
// maintenance is best-effort and must never fail the primary write.
type Store interface {
	// WriteEvents stores the full event log for a session, replacing any
	// previous log, and returns the number of events written.
	WriteEvents(ctx context.Context, sessionID string, events []domain.Event) (int, error)

	// GetEvents returns the stored event log, or nil if none exists. Absence
	// is not an error; the caller decides whether it is a 404.
	GetEvents(ctx context.Context, sessionID string) ([]domain.Event, error)

	// CreateMetadata stores session metadata and inserts it into the
	// recent-sessions index.
	CreateMetadata(ctx context.Context, sessionID string, md *domain.SessionMetadata) error

	// GetMetadata returns stored metadata, or nil if none exists.
	GetMetadata(ctx context.Context, sessionID string) (*domain.SessionMetadata, error)

	// ListMetadata returns a slice of the recent-sessions index, most recent
	// first.
	ListMetadata(ctx context.Context, limit, offset int) ([]domain.SessionMetadata, error)

	// Lifecycle
	Close() error
}
