package service

import (
	"context"

	"github.com/firmly/dvr/internal/domain"
)

// ListSessions returns a page of the recent-sessions index, most recent
// first. Range validation of limit and offset belongs to the routing layer.
func (s *Service) ListSessions(ctx context.Context, limit, offset int) ([]domain.SessionMetadata, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	sessions, err := s.store.ListMetadata(sctx, limit, offset)
	if err != nil {
		return nil, domain.NewStorage("list metadata", err)
	}
	return sessions, nil
}
