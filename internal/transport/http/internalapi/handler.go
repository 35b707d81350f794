// Package internalapi serves the session-buffer actor protocol over HTTP.
// It is consumed by the SaveSession use case (via the bufferapi client) when
// the buffer runs apart from the ingestion front end.
package internalapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/firmly/dvr/internal/buffer"
	"github.com/firmly/dvr/internal/domain"
)

// Handler exposes the buffer's append/finalize protocol.
type Handler struct {
	buffer buffer.Adapter
}

// NewHandler creates a new internal handler.
func NewHandler(buf buffer.Adapter) *Handler {
	return &Handler{buffer: buf}
}

// RegisterRoutes registers internal routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/append", h.Append)
	e.POST("/finalize", h.Finalize)
}

type appendRequest struct {
	SessionID string         `json:"sessionId"`
	Events    []domain.Event `json:"events"`
}

// Append buffers a batch for a session.
// POST /append
func (h *Handler) Append(c echo.Context) error {
	var req appendRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewInvalidRequest("invalid JSON body")
	}

	res, err := h.buffer.Append(c.Request().Context(), req.SessionID, req.Events)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"buffered":   true,
		"eventCount": res.EventCount,
	})
}

type finalizeRequest struct {
	SessionID string `json:"sessionId"`
}

// Finalize closes a session's accumulation cycle and returns the event log
// plus metadata for the caller to persist.
// POST /finalize
func (h *Handler) Finalize(c echo.Context) error {
	var req finalizeRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewInvalidRequest("invalid JSON body")
	}

	data, err := h.buffer.Finalize(c.Request().Context(), req.SessionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"finalized":   true,
		"sessionData": data,
	})
}
