package api

import (
	"errors"
	"fmt"

	"github.com/hushmap/hushmap/internal/db"
	"github.com/hushmap/hushmap/internal/feed"
	"github.com/hushmap/hushmap/internal/identity"
	"github.com/hushmap/hushmap/internal/media"
	"github.com/hushmap/hushmap/internal/models"
	"github.com/hushmap/hushmap/internal/story"
	"github.com/hushmap/hushmap/internal/validate"
)

// Standard JSON-RPC error codes
const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32603
	ErrServerError    = -32000
)

// Application error codes
const (
	ErrUnauthorized = -32001
	ErrForbidden    = -32003
	ErrNotFound     = -32004
	ErrConflict     = -32009
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// classify maps a handler error to a JSON-RPC code and public message.
// Unclassified errors are reported as a generic server error.
func classify(err error) (int, string) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code, apiErr.Message
	case errors.Is(err, validate.ErrInvalidParams),
		errors.Is(err, models.ErrInvalid),
		errors.Is(err, story.ErrInvalid),
		errors.Is(err, feed.ErrLocationRequired),
		errors.Is(err, feed.ErrInvalidLocation),
		errors.Is(err, feed.ErrUnknownStrategy),
		errors.Is(err, db.ErrSelfFollow),
		errors.Is(err, media.ErrUnsupportedType),
		errors.Is(err, media.ErrTooLarge):
		return ErrInvalidParams, "Invalid params"
	case errors.Is(err, identity.ErrUnauthenticated):
		return ErrUnauthorized, "Unauthorized"
	case errors.Is(err, story.ErrForbidden):
		return ErrForbidden, "Forbidden"
	case errors.Is(err, db.ErrNotFound), errors.Is(err, story.ErrNotFound):
		return ErrNotFound, "Not found"
	case errors.Is(err, db.ErrConflict):
		return ErrConflict, "Conflict"
	}
	return ErrServerError, "Server error"
}
