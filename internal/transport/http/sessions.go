package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/firmly/dvr/internal/domain"
	"github.com/firmly/dvr/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// Handler handles session ingestion and query requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// RegisterRoutes registers the public session routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/sessions", h.SaveSession)
	e.GET("/api/sessions", h.ListSessions)
	e.GET("/api/sessions/:sessionId", h.GetSession)
	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "dvr-service",
	})
}

type saveSessionRequest struct {
	SessionID string         `json:"sessionId"`
	AppName   string         `json:"appName"`
	Events    []domain.Event `json:"events"`
	Finalize  bool           `json:"finalize"`
}

// SaveSession ingests a batch of recorded events.
// POST /api/sessions
func (h *Handler) SaveSession(c echo.Context) error {
	var req saveSessionRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewInvalidRequest("invalid JSON body")
	}
	if req.SessionID == "" {
		return domain.NewMissingParameter("sessionId")
	}
	if !req.Finalize && len(req.Events) == 0 {
		return domain.NewInvalidSessionData("events must be a non-empty array")
	}
	if req.Events == nil {
		req.Events = []domain.Event{}
	}

	res, err := h.service.SaveSession(c.Request().Context(), req.SessionID, req.Events, req.Finalize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// ListSessions returns a page of the recent-sessions index.
// GET /api/sessions?limit=..&offset=..
func (h *Handler) ListSessions(c echo.Context) error {
	limit := defaultListLimit
	if l := c.QueryParam("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil {
			return domain.NewInvalidRequest("limit must be an integer")
		}
		limit = val
	}
	if limit < 1 || limit > maxListLimit {
		return domain.NewInvalidRequest("limit must be between 1 and 1000")
	}

	offset := 0
	if o := c.QueryParam("offset"); o != "" {
		val, err := strconv.Atoi(o)
		if err != nil {
			return domain.NewInvalidRequest("offset must be an integer")
		}
		offset = val
	}
	if offset < 0 {
		return domain.NewInvalidRequest("offset must be non-negative")
	}

	sessions, err := h.service.ListSessions(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession returns the persisted events and metadata for one session.
// GET /api/sessions/:sessionId
func (h *Handler) GetSession(c echo.Context) error {
	sessionID := c.Param("sessionId")

	record, err := h.service.GetSession(c.Request().Context(), sessionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}
