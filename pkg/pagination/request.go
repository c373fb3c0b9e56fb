package pagination

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/cynaps/labelstate/pkg/query"
)

// SortFields accepts either "title,-created_at" or a JSON array of
// query.SortField values when decoded.
type SortFields []query.SortField

func (s *SortFields) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*s = query.ParseSortFields(raw)
		return nil
	}

	var fields []query.SortField
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = fields
	return nil
}

// PageRequest selects one page of a listing, optionally narrowed by a
// free-text search and ordered by sort fields.
type PageRequest struct {
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Search   *string    `json:"search,omitempty"`
	Sort     SortFields `json:"sort,omitempty"`
}

// Normalize clamps the page to at least 1 and the page size into
// [1, cfg.MaxPageSize], falling back to cfg.DefaultPageSize.
func (r *PageRequest) Normalize(cfg Config) {
	r.Page = max(r.Page, 1)
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	if cfg.MaxPageSize > 0 {
		r.PageSize = min(r.PageSize, cfg.MaxPageSize)
	}
	r.PageSize = max(r.PageSize, 1)
}

// Offset is the number of rows preceding the requested page.
func (r *PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// SearchTerm returns the trimmed search text, or "" when none was given.
func (r *PageRequest) SearchTerm() string {
	if r.Search == nil {
		return ""
	}
	return strings.TrimSpace(*r.Search)
}

// PageRequestFromQuery reads page, page_size, search and sort from query
// values. Unparseable numbers fall back to the configured defaults.
func PageRequestFromQuery(values url.Values, cfg Config) PageRequest {
	var req PageRequest
	req.Page, _ = strconv.Atoi(values.Get("page"))
	req.PageSize, _ = strconv.Atoi(values.Get("page_size"))

	if s := values.Get("search"); s != "" {
		req.Search = &s
	}
	req.Sort = query.ParseSortFields(values.Get("sort"))

	req.Normalize(cfg)
	return req
}
