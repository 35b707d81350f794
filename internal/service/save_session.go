package service

import (
	"context"

	"github.com/firmly/dvr/internal/domain"
)

// SaveResult is the outcome of a SaveSession call.
type SaveResult struct {
	SessionID  string `json:"sessionId"`
	Success    bool   `json:"success"`
	Buffered   bool   `json:"buffered,omitempty"`
	Finalized  bool   `json:"finalized,omitempty"`
	EventCount int    `json:"eventCount"`
}

// SaveSession appends a batch to the session buffer, or, when finalize is
// set, closes the session: any trailing events are appended first, the
// buffer is finalized, and the returned log and metadata are persisted.
func (s *Service) SaveSession(ctx context.Context, sessionID string, events []domain.Event, finalize bool) (*SaveResult, error) {
	if !finalize {
		res, err := s.buffer.Append(ctx, sessionID, events)
		if err != nil {
			return nil, err
		}
		return &SaveResult{
			SessionID:  sessionID,
			Success:    true,
			Buffered:   true,
			EventCount: res.EventCount,
		}, nil
	}

	// Append trailing events only when present; an empty append would be a
	// pointless round trip through the actor.
	if len(events) > 0 {
		if _, err := s.buffer.Append(ctx, sessionID, events); err != nil {
			return nil, err
		}
	}

	data, err := s.buffer.Finalize(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		// Finalize must always yield session data, even for an empty session.
		return nil, domain.NewInternal("finalize returned no session data")
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if _, err := s.store.WriteEvents(sctx, sessionID, data.Events); err != nil {
		return nil, domain.NewPersistence(sessionID, err)
	}
	if err := s.store.CreateMetadata(sctx, sessionID, &data.Metadata); err != nil {
		return nil, domain.NewPersistence(sessionID, err)
	}

	return &SaveResult{
		SessionID:  sessionID,
		Success:    true,
		Finalized:  true,
		EventCount: len(data.Events),
	}, nil
}
