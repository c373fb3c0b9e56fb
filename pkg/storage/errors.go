package storage

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("blob not found")
	ErrEmptyKey          = errors.New("storage key must not be empty")
	ErrInvalidKey        = errors.New("storage key contains invalid path segment")
	ErrInvalidMaxResults = errors.New("max_results must be a positive integer")
)

var statusOf = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrEmptyKey, http.StatusBadRequest},
	{ErrInvalidKey, http.StatusBadRequest},
	{ErrInvalidMaxResults, http.StatusBadRequest},
}

// MapHTTPStatus returns the response status for err, which may wrap a
// storage sentinel. Anything else is a 500.
func MapHTTPStatus(err error) int {
	for _, s := range statusOf {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
