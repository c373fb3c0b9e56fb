package projects

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cynaps/labelstate/pkg/query"
	"github.com/cynaps/labelstate/pkg/repository"
	"github.com/cynaps/labelstate/pkg/results"
)

var projection = query.
	NewProjectionMap("public", "projects", "p").
	Project("id", "ID").
	Project("title", "Title").
	Project("controls", "Controls").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for project queries.
// Title uses case-insensitive contains matching.
type Filters struct {
	Title *string `json:"title,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.WhereContains("Title", f.Title)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if t := values.Get("title"); t != "" {
		f.Title = &t
	}

	return f
}

func scanProject(s repository.Scanner) (Project, error) {
	var p Project
	var controlsRaw []byte

	err := s.Scan(
		&p.ID,
		&p.Title,
		&controlsRaw,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}

	var controls []results.Control
	if len(controlsRaw) > 0 {
		if err := json.Unmarshal(controlsRaw, &controls); err != nil {
			return p, fmt.Errorf("unmarshal controls: %w", err)
		}
	}
	p.Controls = controlsOrEmpty(controls)

	return p, nil
}
