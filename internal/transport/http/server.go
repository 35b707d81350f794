// Package http provides the HTTP servers for the dvr-service.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/firmly/dvr/internal/buffer"
	"github.com/firmly/dvr/internal/service"
	"github.com/firmly/dvr/internal/transport/http/internalapi"
)

// NewExternalServer creates and configures the public ingestion/query server.
// The widget is embedded on arbitrary merchant origins, so CORS is wide open
// and stamped on every response, errors included.
func NewExternalServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(cors)

	// Handlers
	h := NewHandler(svc)
	h.RegisterRoutes(e)

	return e
}

// cors stamps the widget's open CORS contract onto every response, success
// or failure, and answers preflights with 200 so browser callers never see a
// CORS-rejected error response. The echo CORS middleware answers preflights
// with 204 and skips requests without an Origin header, neither of which
// matches the wire contract.
func cors(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set(echo.HeaderAccessControlAllowOrigin, "*")
		h.Set(echo.HeaderAccessControlAllowMethods, "GET,POST,PUT,DELETE,OPTIONS")
		h.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type")
		if c.Request().Method == http.MethodOptions {
			return c.NoContent(http.StatusOK)
		}
		return next(c)
	}
}

// NewInternalServer creates the server carrying the session-buffer actor
// protocol, for deployments where the buffer runs apart from the ingestion
// front end.
func NewInternalServer(buf buffer.Adapter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Handlers
	internalHandler := internalapi.NewHandler(buf)
	internalHandler.RegisterRoutes(e)

	return e
}
