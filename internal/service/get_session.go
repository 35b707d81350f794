package service

import (
	"context"

	"github.com/firmly/dvr/internal/domain"
)

// SessionRecord joins a persisted event log with its metadata.
type SessionRecord struct {
	SessionID string                  `json:"sessionId"`
	Events    []domain.Event          `json:"events"`
	Metadata  *domain.SessionMetadata `json:"metadata"`
}

// GetSession returns the persisted events and metadata for a session, or a
// not-found error when no events were ever stored for the id.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	if sessionID == "" {
		return nil, domain.NewMissingParameter("sessionId")
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	events, err := s.store.GetEvents(sctx, sessionID)
	if err != nil {
		return nil, domain.NewStorage("get events", err)
	}
	if events == nil {
		return nil, domain.NewSessionNotFound(sessionID)
	}

	md, err := s.store.GetMetadata(sctx, sessionID)
	if err != nil {
		return nil, domain.NewStorage("get metadata", err)
	}

	return &SessionRecord{SessionID: sessionID, Events: events, Metadata: md}, nil
}
