package domain

import (
	"fmt"
	"net/http"
)

// Error codes returned in API error bodies.
const (
	CodeMissingParameter   = "MISSING_PARAMETER"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidSessionData = "INVALID_SESSION_DATA"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeStorageError       = "STORAGE_ERROR"
	CodeBufferError        = "BUFFER_ERROR"
	CodePersistenceError   = "PERSISTENCE_ERROR"
)

// Error is a typed API error carrying its HTTP status and wire code. Route
// handlers never render errors themselves; they let these propagate to the
// server's error handler.
type Error struct {
	Code    string
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// NewMissingParameter reports a required request parameter that was absent.
func NewMissingParameter(name string) *Error {
	return &Error{
		Code:    CodeMissingParameter,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("missing required parameter: %s", name),
	}
}

// NewInvalidRequest reports a malformed request.
func NewInvalidRequest(msg string) *Error {
	return &Error{Code: CodeInvalidRequest, Status: http.StatusBadRequest, Message: msg}
}

// NewInvalidSessionData reports a session payload with an invalid shape.
func NewInvalidSessionData(msg string) *Error {
	return &Error{Code: CodeInvalidSessionData, Status: http.StatusBadRequest, Message: msg}
}

// NewSessionNotFound reports an unknown session id.
func NewSessionNotFound(sessionID string) *Error {
	return &Error{
		Code:    CodeSessionNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("session not found: %s", sessionID),
	}
}

// NewInternal wraps an unexpected failure.
func NewInternal(msg string) *Error {
	return &Error{Code: CodeInternalError, Status: http.StatusInternalServerError, Message: msg}
}

// NewStorage wraps a storage-layer failure.
func NewStorage(op string, cause error) *Error {
	return &Error{
		Code:    CodeStorageError,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("storage operation failed: %s", op),
		cause:   cause,
	}
}

// NewBuffer wraps a session-buffer operation failure.
func NewBuffer(op string, cause error) *Error {
	return &Error{
		Code:    CodeBufferError,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("session buffer operation failed: %s", op),
		cause:   cause,
	}
}

// NewPersistence wraps a failure while persisting a finalized session.
func NewPersistence(sessionID string, cause error) *Error {
	return &Error{
		Code:    CodePersistenceError,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("failed to persist session %s", sessionID),
		cause:   cause,
	}
}
