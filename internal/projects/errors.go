package projects

import (
	"errors"
	"net/http"
)

// Domain errors for project operations.
var (
	ErrNotFound        = errors.New("project not found")
	ErrDuplicate       = errors.New("project already exists")
	ErrInvalidProject  = errors.New("invalid project")
	ErrInvalidControls = errors.New("invalid control declarations")
)

// MapHTTPStatus maps project domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidProject) || errors.Is(err, ErrInvalidControls) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
