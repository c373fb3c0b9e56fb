package sessions

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
	"github.com/cynaps/labelstate/pkg/results"
	"github.com/cynaps/labelstate/pkg/routes"
)

// Handler provides HTTP endpoints for editing sessions.
type Handler struct {
	sys         System
	logger      *slog.Logger
	pagination  pagination.Config
	maxBodySize int64
}

// OpenRequest names the annotation to open a session for.
type OpenRequest struct {
	AnnotationID uuid.UUID `json:"annotation_id"`
}

// NavigationRequest moves a session to an item.
type NavigationRequest struct {
	Item int `json:"item"`
}

// SelectionRequest selects a region. An empty region clears the selection.
type SelectionRequest struct {
	Region string `json:"region"`
}

// ClearResult reports whether a clear removed an answer.
type ClearResult struct {
	Control string `json:"control"`
	Cleared bool   `json:"cleared"`
}

// NewHandler creates a Handler over the session registry. Request bodies
// larger than maxBodySize are rejected with 413.
func NewHandler(sys System, logger *slog.Logger, page pagination.Config, maxBodySize int64) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "sessions"),
		pagination:  page,
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group definition for session endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Tags:   []string{"Sessions"},
		Routes: []routes.Route{
			{
				Method:  "GET",
				Pattern: "",
				Handler: h.List,
				OpenAPI: &openapi.Operation{
					Summary: "List open sessions, oldest first",
					Parameters: []*openapi.Parameter{
						openapi.QueryParam("page", "integer", "Page number", false),
						openapi.QueryParam("page_size", "integer", "Results per page", false),
					},
					Responses: map[int]*openapi.Response{
						http.StatusOK: openapi.ResponsePage("Page of session summaries", "SessionSummary"),
					},
				},
			},
			{
				Method:  "POST",
				Pattern: "",
				Handler: h.Open,
				OpenAPI: &openapi.Operation{
					Summary:     "Open an editing session for an annotation",
					RequestBody: openapi.RequestBodyJSON("OpenSessionRequest", true),
					Responses: openapi.WithErrors(map[int]*openapi.Response{
						http.StatusOK: openapi.ResponseJSON("Session state", "SessionState"),
					}, http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable),
				},
			},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Close},
			{Method: "PUT", Pattern: "/{id}/navigation", Handler: h.Navigate},
			{Method: "PUT", Pattern: "/{id}/selection", Handler: h.Select},
			{Method: "POST", Pattern: "/{id}/regions", Handler: h.CreateRegion},
			{Method: "DELETE", Pattern: "/{id}/regions/{region}", Handler: h.DeleteRegion},
			{Method: "GET", Pattern: "/{id}/values/{control}", Handler: h.Value},
			{Method: "PUT", Pattern: "/{id}/values/{control}", Handler: h.SetValue},
			{Method: "DELETE", Pattern: "/{id}/values/{control}", Handler: h.ClearValue},
			{Method: "POST", Pattern: "/{id}/undo", Handler: h.Undo},
			{Method: "GET", Pattern: "/{id}/validation", Handler: h.Validate},
			{Method: "GET", Pattern: "/{id}/result", Handler: h.Result},
			{
				Method:  "POST",
				Pattern: "/{id}/save",
				Handler: h.Save,
				OpenAPI: &openapi.Operation{
					Summary:     "Persist the session result",
					Description: "Submitting runs required-control validation and refuses to save while warnings remain.",
					Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Session identifier")},
					RequestBody: openapi.RequestBodyJSON("SaveCommand", false),
					Responses: map[int]*openapi.Response{
						http.StatusOK:                  openapi.ResponseJSON("Result saved", "SaveResult"),
						http.StatusUnprocessableEntity: openapi.ResponseJSON("Submission blocked by validation", "SaveResult"),
						http.StatusNotFound:            openapi.ResponseRef(openapi.NotFound),
					},
				},
			},
		},
	}
}

// List returns a page of open session summaries, oldest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	handlers.RespondJSON(w, http.StatusOK, pagination.PageOf(h.sys.List(), page))
}

// Open opens, or returns the live, session for an annotation.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AnnotationID == uuid.Nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	s, err := h.sys.Open(r.Context(), req.AnnotationID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.respondState(w, s.State)
}

// Find returns the session state in its current navigation.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondState(w, s.State)
}

// Close removes a session from the registry. Its draft is kept.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if err := h.sys.Close(id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Navigate moves the session to an item.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req NavigationRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondState(w, func() (State, error) { return s.Navigate(req.Item) })
}

// Select selects or clears the active region.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SelectionRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondState(w, func() (State, error) { return s.SelectRegion(req.Region) })
}

// CreateRegion registers a drawn region from its shape record.
func (h *Handler) CreateRegion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var rec results.Record
	if !h.decode(w, r, &rec) {
		return
	}

	region, err := s.CreateRegion(r.Context(), rec)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, region)
}

// DeleteRegion removes a region with its shape records and answers.
func (h *Handler) DeleteRegion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.DeleteRegion(r.Context(), r.PathValue("region")); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Value returns a control's answer in the current navigation.
func (h *Handler) Value(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	v, err := s.Value(r.PathValue("control"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}

// SetValue writes a control's answer in the current navigation. The body is
// the value in wire shape, for example {"choices": ["yes"]}.
func (h *Handler) SetValue(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var v results.Value
	if !h.decode(w, r, &v) {
		return
	}

	res, err := s.SetValue(r.Context(), r.PathValue("control"), v)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, res)
}

// ClearValue removes a control's answer in the current navigation.
func (h *Handler) ClearValue(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	control := r.PathValue("control")
	cleared, err := s.ClearValue(r.Context(), control)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ClearResult{Control: control, Cleared: cleared})
}

// Undo reverts the last mutation.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondState(w, func() (State, error) { return s.Undo(r.Context()) })
}

// Validate reports every required control still missing an answer.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	v, err := s.Validate()
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}

// Result returns the serialized result list.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	records, err := s.Result()
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, records)
}

// Save persists the session. A submit blocked by validation responds 422 with
// the warnings. An empty body saves without submitting.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var cmd SaveCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil && !errors.Is(err, io.EOF) {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	res, err := s.Save(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	status := http.StatusOK
	if !res.Saved {
		status = http.StatusUnprocessableEntity
	}
	handlers.RespondJSON(w, status, res)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return nil, false
	}

	s, err := h.sys.Get(id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	return s, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrBodyTooLarge)
			return false
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return false
	}
	return true
}

func (h *Handler) respondState(w http.ResponseWriter, fn func() (State, error)) {
	st, err := fn()
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, st)
}
