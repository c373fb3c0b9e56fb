package openapi

import (
	"maps"
	"net/http"
)

// Component response names for the error statuses the API returns.
const (
	BadRequest          = "BadRequest"
	NotFound            = "NotFound"
	Conflict            = "Conflict"
	UnprocessableEntity = "UnprocessableEntity"
	PayloadTooLarge     = "PayloadTooLarge"
	ServiceUnavailable  = "ServiceUnavailable"
)

// ErrorStatus maps HTTP status codes to their component response names.
var ErrorStatus = map[int]string{
	http.StatusBadRequest:            BadRequest,
	http.StatusNotFound:              NotFound,
	http.StatusConflict:              Conflict,
	http.StatusUnprocessableEntity:   UnprocessableEntity,
	http.StatusRequestEntityTooLarge: PayloadTooLarge,
	http.StatusServiceUnavailable:    ServiceUnavailable,
}

// NewComponents returns the schemas and error responses every document shares.
func NewComponents() *Components {
	c := &Components{
		Schemas: map[string]*Schema{
			"Error": {
				Type:     "object",
				Required: []string{"error"},
				Properties: map[string]*Schema{
					"error": {Type: "string", Description: "Error message"},
				},
			},
			"PageRequest": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":      {Type: "integer", Description: "Page number, starting at 1", Example: 1},
					"page_size": {Type: "integer", Description: "Results per page", Example: 20},
					"search":    {Type: "string", Description: "Free-text search"},
					"sort":      {Type: "string", Description: "Comma-separated sort fields, - prefix for descending", Example: "-created_at"},
				},
			},
		},
		Responses: map[string]*Response{},
	}

	c.AddResponses(map[string]*Response{
		BadRequest:          errorResponse("Malformed request"),
		NotFound:            errorResponse("Resource not found"),
		Conflict:            errorResponse("Resource already exists"),
		UnprocessableEntity: errorResponse("Request understood but rejected"),
		PayloadTooLarge:     errorResponse("Request body exceeds the upload limit"),
		ServiceUnavailable:  errorResponse("A dependency is not ready"),
	})
	return c
}

// AddSchemas merges schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// AddResponses merges responses into the component responses.
func (c *Components) AddResponses(responses map[string]*Response) {
	maps.Copy(c.Responses, responses)
}

func errorResponse(description string) *Response {
	return &Response{
		Description: description,
		Content: map[string]*MediaType{
			"application/json": {Schema: SchemaRef("Error")},
		},
	}
}
