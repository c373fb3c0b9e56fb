package annotations

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/cynaps/labelstate/pkg/handlers"
	"github.com/cynaps/labelstate/pkg/openapi"
	"github.com/cynaps/labelstate/pkg/pagination"
	"github.com/cynaps/labelstate/pkg/routes"
)

// Handler provides HTTP endpoints for annotation operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// ExportProjectRequest names the project whose annotations are exported.
type ExportProjectRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
}

// NewHandler creates a Handler. Create and update bodies larger than
// maxUploadSize are rejected.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "annotations"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for annotation endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/annotations",
		Tags:   []string{"Annotations"},
		Routes: []routes.Route{
			{
				Method:  "GET",
				Pattern: "",
				Handler: h.List,
				OpenAPI: &openapi.Operation{
					Summary: "List annotations",
					Parameters: []*openapi.Parameter{
						openapi.QueryParam("page", "integer", "Page number", false),
						openapi.QueryParam("page_size", "integer", "Results per page", false),
						openapi.QueryParam("search", "string", "Match project title, completer or model version", false),
						openapi.QueryParam("sort", "string", "Sort fields, e.g. -CreatedAt", false),
						openapi.QueryParam("project_id", "string", "Owning project", false),
						openapi.QueryParam("task_id", "integer", "Task identifier", false),
						openapi.QueryParam("kind", "string", "annotation or prediction", false),
						openapi.QueryParam("control", "string", "Holds a record from this control", false),
						openapi.QueryParam("copied", "boolean", "Has a parent annotation", false),
						openapi.QueryParam("created_after", "string", "RFC 3339 lower bound, inclusive", false),
						openapi.QueryParam("created_before", "string", "RFC 3339 upper bound, exclusive", false),
					},
					Responses: map[int]*openapi.Response{
						http.StatusOK: openapi.ResponsePage("Page of annotations", "Annotation"),
					},
				},
			},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{
				Method:  "POST",
				Pattern: "",
				Handler: h.Create,
				OpenAPI: &openapi.Operation{
					Summary:     "Store an annotation result",
					RequestBody: openapi.RequestBodyJSON("CreateAnnotationCommand", true),
					Responses: openapi.WithErrors(map[int]*openapi.Response{
						http.StatusCreated: openapi.ResponseJSON("Annotation created", "Annotation"),
					}, http.StatusBadRequest, http.StatusNotFound, http.StatusRequestEntityTooLarge),
				},
			},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/export", Handler: h.ExportProject},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
			{Method: "POST", Pattern: "/{id}/copy", Handler: h.Copy},
			{Method: "POST", Pattern: "/{id}/export", Handler: h.Export},
		},
	}
}

// List returns a paginated list of annotations with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single annotation by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	a, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, a)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching annotations.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidAnnotation)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Create registers an annotation from a JSON body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if !h.decodeLimited(w, r, &cmd) {
		return
	}

	a, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, a)
}

// Update replaces an annotation's result list.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var cmd UpdateCommand
	if !h.decodeLimited(w, r, &cmd) {
		return
	}

	a, err := h.sys.Update(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, a)
}

// Delete removes an annotation and its export blob.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.sys.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Copy creates an annotation from a prediction. An empty body is allowed.
func (h *Handler) Copy(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var cmd CopyCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil && !errors.Is(err, io.EOF) {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidAnnotation)
		return
	}

	a, err := h.sys.CopyPrediction(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, a)
}

// Export writes one annotation's result list to blob storage.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	key, err := h.sys.Export(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ExportResult{Keys: []string{key}})
}

// ExportProject writes every annotation of a project to blob storage.
func (h *Handler) ExportProject(w http.ResponseWriter, r *http.Request) {
	var req ExportProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectID == uuid.Nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidAnnotation)
		return
	}

	keys, err := h.sys.ExportProject(r.Context(), req.ProjectID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ExportResult{Keys: keys})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidAnnotation)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decodeLimited(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrTooLarge)
			return false
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidAnnotation)
		return false
	}
	return true
}
