package sessions

import (
	"errors"
	"net/http"

	"github.com/cynaps/labelstate/internal/annotations"
	"github.com/cynaps/labelstate/internal/projects"
)

// Domain errors for session operations.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many open sessions")
	ErrInvalidRequest  = errors.New("invalid session request")
	ErrItemOutOfRange  = errors.New("item index out of range")
	ErrRegionNotFound  = errors.New("region not found")
	ErrDuplicateRegion = errors.New("region already exists")
	ErrInvalidRegion   = errors.New("region record requires an id and a shape type")
	ErrUnknownControl  = errors.New("unknown control")
	ErrTypeMismatch    = errors.New("value type does not match control type")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrBodyTooLarge    = errors.New("request body too large")
)

// MapHTTPStatus maps session domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrRegionNotFound),
		errors.Is(err, ErrUnknownControl),
		errors.Is(err, annotations.ErrNotFound),
		errors.Is(err, projects.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateRegion), errors.Is(err, ErrNothingToUndo):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrItemOutOfRange),
		errors.Is(err, ErrInvalidRegion),
		errors.Is(err, ErrTypeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrTooManySessions):
		return http.StatusServiceUnavailable
	}
	return annotations.MapHTTPStatus(err)
}
