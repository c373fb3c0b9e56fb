package routes

import (
	"net/http"

	"github.com/cynaps/labelstate/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler. OpenAPI is optional;
// Document generates a minimal operation when it is nil.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}
