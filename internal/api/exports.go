package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/cynaps/labelstate/pkg/handlers"
	"github.com/cynaps/labelstate/pkg/routes"
	"github.com/cynaps/labelstate/pkg/storage"
)

const exportsPrefix = "annotations/"

type exportsHandler struct {
	store       storage.System
	logger      *slog.Logger
	maxListSize int32
}

func newExportsHandler(
	store storage.System,
	logger *slog.Logger,
	maxListSize int32,
) *exportsHandler {
	return &exportsHandler{
		store:       store,
		logger:      logger.With("handler", "exports"),
		maxListSize: maxListSize,
	}
}

func (h *exportsHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/exports",
		Tags:   []string{"Exports"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list},
			{Method: "GET", Pattern: "/download/{key...}", Handler: h.download},
			{Method: "GET", Pattern: "/{key...}", Handler: h.find},
		},
	}
}

// list pages through exported result blobs. The optional project query
// parameter narrows the listing to a single project's exports.
func (h *exportsHandler) list(w http.ResponseWriter, r *http.Request) {
	prefix := exportsPrefix
	if project := r.URL.Query().Get("project"); project != "" {
		prefix += project + "/"
	}
	marker := r.URL.Query().Get("marker")

	maxResults, err := storage.ParseMaxResults(
		r.URL.Query().Get("max_results"),
		h.maxListSize,
	)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			http.StatusBadRequest, err,
		)
		return
	}

	result, err := h.store.List(
		r.Context(),
		prefix,
		marker,
		maxResults,
	)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			http.StatusInternalServerError, err,
		)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *exportsHandler) find(w http.ResponseWriter, r *http.Request) {
	key := exportsPrefix + r.PathValue("key")

	meta, err := h.store.Find(r.Context(), key)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, meta)
}

func (h *exportsHandler) download(w http.ResponseWriter, r *http.Request) {
	key := exportsPrefix + r.PathValue("key")

	result, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			storage.MapHTTPStatus(err), err,
		)
		return
	}
	defer result.Body.Close()

	w.Header().Set("Content-Type", result.ContentType)

	if result.ContentLength > 0 {
		w.Header().Set(
			"Content-Length",
			strconv.FormatInt(result.ContentLength, 10),
		)
	}
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, result.Body)
}
