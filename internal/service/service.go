// Package service implements the dvr-service use cases: SaveSession,
// GetSession and ListSessions.
package service

import (
	"context"
	"time"

	"github.com/firmly/dvr/internal/buffer"
	"github.com/firmly/dvr/internal/config"
	"github.com/firmly/dvr/internal/store"
)

type Service struct {
	store  store.Store
	buffer buffer.Adapter
	config *config.Config
}

func New(st store.Store, buf buffer.Adapter, cfg *config.Config) *Service {
	return &Service{
		store:  st,
		buffer: buf,
		config: cfg,
	}
}

// storeCtx bounds a persistence call, per the design rule that storage I/O
// never runs without a deadline.
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.config.StoreTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
