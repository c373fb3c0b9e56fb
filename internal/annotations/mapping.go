package annotations

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cynaps/labelstate/pkg/query"
	"github.com/cynaps/labelstate/pkg/repository"
	"github.com/cynaps/labelstate/pkg/results"
)

var projection = query.
	NewProjectionMap("public", "annotations", "a").
	Project("id", "ID").
	Project("project_id", "ProjectID").
	Project("task_id", "TaskID").
	Project("kind", "Kind").
	Project("parent_id", "ParentID").
	Project("item_count", "ItemCount").
	Project("result", "Result").
	Project("model_version", "ModelVersion").
	Project("completed_by", "CompletedBy").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "projects", "p", "JOIN", "a.project_id = p.id").
	Project("title", "ProjectTitle")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for annotation queries.
// Nil fields are ignored. CompletedBy and ProjectTitle use case-insensitive
// contains matching. Control keeps annotations holding a record from that
// control. Copied selects annotations with (true) or without (false) a parent.
type Filters struct {
	ProjectID     *uuid.UUID `json:"project_id,omitempty"`
	ProjectTitle  *string    `json:"project_title,omitempty"`
	TaskID        *int64     `json:"task_id,omitempty"`
	Kind          *string    `json:"kind,omitempty"`
	CompletedBy   *string    `json:"completed_by,omitempty"`
	Control       *string    `json:"control,omitempty"`
	Copied        *bool      `json:"copied,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("ProjectID", f.ProjectID).
		WhereContains("ProjectTitle", f.ProjectTitle).
		WhereEquals("TaskID", f.TaskID).
		WhereEquals("Kind", f.Kind).
		WhereContains("CompletedBy", f.CompletedBy).
		WhereCompare("CreatedAt", ">=", f.CreatedAfter).
		WhereCompare("CreatedAt", "<", f.CreatedBefore)

	if f.Control != nil && *f.Control != "" {
		b.WhereJSONContains("Result", []map[string]string{{"from_name": *f.Control}})
	}
	if f.Copied != nil {
		b.WhereNull("ParentID", !*f.Copied)
	}
	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Malformed ids are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if p := values.Get("project_id"); p != "" {
		if id, err := uuid.Parse(p); err == nil {
			f.ProjectID = &id
		}
	}

	if t := values.Get("project_title"); t != "" {
		f.ProjectTitle = &t
	}

	if tid := values.Get("task_id"); tid != "" {
		if v, err := strconv.ParseInt(tid, 10, 64); err == nil {
			f.TaskID = &v
		}
	}

	if k := values.Get("kind"); k != "" {
		f.Kind = &k
	}

	if c := values.Get("completed_by"); c != "" {
		f.CompletedBy = &c
	}

	if c := values.Get("control"); c != "" {
		f.Control = &c
	}

	if c := values.Get("copied"); c != "" {
		if v, err := strconv.ParseBool(c); err == nil {
			f.Copied = &v
		}
	}

	f.CreatedAfter = parseTime(values.Get("created_after"))
	f.CreatedBefore = parseTime(values.Get("created_before"))

	return f
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func scanAnnotation(s repository.Scanner) (Annotation, error) {
	var a Annotation
	var parent uuid.NullUUID
	var resultRaw []byte

	err := s.Scan(
		&a.ID,
		&a.ProjectID,
		&a.TaskID,
		&a.Kind,
		&parent,
		&a.ItemCount,
		&resultRaw,
		&a.ModelVersion,
		&a.CompletedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.ProjectTitle,
	)
	if err != nil {
		return a, err
	}

	if parent.Valid {
		a.ParentID = &parent.UUID
	}

	a.Result, err = results.DecodeRecords(resultRaw)
	if err != nil {
		return a, fmt.Errorf("annotation %s: %w", a.ID, err)
	}

	return a, nil
}
