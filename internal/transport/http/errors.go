package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/firmly/dvr/internal/domain"
)

// errorBody is the uniform error shape for every non-2xx response.
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

// errorHandler converts typed errors to their predefined responses and wraps
// anything unexpected in a generic 500. Route handlers never render errors
// themselves.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	code := domain.CodeInternalError
	msg := err.Error()

	var apiErr *domain.Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Status
		code = apiErr.Code
		msg = apiErr.Message
	case errors.As(err, &httpErr):
		// Unmatched routes and method mismatches from the router itself.
		status = httpErr.Code
		switch status {
		case http.StatusNotFound:
			code = "NOT_FOUND"
			msg = "Not Found"
		case http.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
			msg = "Method Not Allowed"
		default:
			if m, ok := httpErr.Message.(string); ok {
				msg = m
			}
		}
	}

	body := errorBody{
		Error:     msg,
		Code:      code,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if jerr := c.JSON(status, body); jerr != nil {
		c.Logger().Error(jerr)
	}
}
