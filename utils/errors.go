package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error taxonomy for the ingestion and generation pipeline. Callers match
// with errors.Is; every error carries the user/document identifiers of the
// failing unit of work via wrapping.
var (
	// ErrNotFound covers missing files, missing chunks and missing sessions.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFormat is returned for document extensions other than .pdf and .txt.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrConnectionFailure means the chunk store is unreachable. Fatal at
	// construction time; the service does not retry its storage dependency.
	ErrConnectionFailure = errors.New("store connection failure")

	// ErrSchemaViolation means the model produced output that does not conform
	// to the requested structure. Surfaced as-is, never coerced.
	ErrSchemaViolation = errors.New("model output violates requested schema")

	// ErrCapacityExceeded means a document produced more generation chunks
	// than the configured fetch bound.
	ErrCapacityExceeded = errors.New("generation chunk capacity exceeded")

	// ErrSessionClosed is returned by any session operation after cleanup.
	ErrSessionClosed = errors.New("session already cleaned up")

	// ErrUpstreamFailure wraps embedding/completion provider errors. The core
	// propagates these without retrying.
	ErrUpstreamFailure = errors.New("upstream provider failure")
)

// ErrorResponse is the standardized error payload for HTTP responses.
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response.
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error.
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error.
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error.
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}
