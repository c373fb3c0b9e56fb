package annotations

import (
	"errors"
	"net/http"
)

// Domain errors for annotation operations.
var (
	ErrNotFound          = errors.New("annotation not found")
	ErrDuplicate         = errors.New("annotation already exists")
	ErrInvalidAnnotation = errors.New("invalid annotation")
	ErrProjectNotFound   = errors.New("project not found")
	ErrNotPrediction     = errors.New("annotation is not a prediction")
	ErrTooLarge          = errors.New("request body exceeds maximum upload size")
	ErrExportFailed      = errors.New("export failed")
)

// MapHTTPStatus maps annotation domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrNotPrediction):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidAnnotation):
		return http.StatusBadRequest
	case errors.Is(err, ErrProjectNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrExportFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
