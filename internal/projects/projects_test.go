package projects_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/cynaps/labelstate/internal/projects"
	"github.com/cynaps/labelstate/pkg/results"
)

func validControls() []results.Control {
	return []results.Control{
		{Name: "sentiment", Type: results.TypeChoices, Mode: results.PerTag, Required: true},
		{Name: "quality", Type: results.TypeRating, Mode: results.PerItem},
		{Name: "label", Type: results.TypeTaxonomy, Mode: results.PerRegion},
	}
}

func TestCreateCommandValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     projects.CreateCommand
		wantErr error
	}{
		{
			name: "valid",
			cmd:  projects.CreateCommand{Title: "Cats", Controls: validControls()},
		},
		{
			name: "no controls",
			cmd:  projects.CreateCommand{Title: "Empty"},
		},
		{
			name:    "missing title",
			cmd:     projects.CreateCommand{Controls: validControls()},
			wantErr: projects.ErrInvalidProject,
		},
		{
			name: "unknown control type",
			cmd: projects.CreateCommand{Title: "x", Controls: []results.Control{
				{Name: "c", Type: "textarea", Mode: results.PerTag},
			}},
			wantErr: projects.ErrInvalidControls,
		},
		{
			name: "unknown binding mode",
			cmd: projects.CreateCommand{Title: "x", Controls: []results.Control{
				{Name: "c", Type: results.TypeChoices, Mode: "perPage"},
			}},
			wantErr: projects.ErrInvalidControls,
		},
		{
			name: "missing control name",
			cmd: projects.CreateCommand{Title: "x", Controls: []results.Control{
				{Type: results.TypeChoices, Mode: results.PerTag},
			}},
			wantErr: projects.ErrInvalidControls,
		},
		{
			name: "duplicate control names",
			cmd: projects.CreateCommand{Title: "x", Controls: []results.Control{
				{Name: "c", Type: results.TypeChoices, Mode: results.PerTag},
				{Name: "c", Type: results.TypeNumber, Mode: results.PerItem},
			}},
			wantErr: projects.ErrInvalidControls,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateCommandValidate(t *testing.T) {
	cmd := projects.UpdateCommand{Title: "Renamed", Controls: validControls()}
	if err := cmd.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cmd.Controls[1].Type = ""
	if err := cmd.Validate(); !errors.Is(err, projects.ErrInvalidControls) {
		t.Errorf("error = %v, want ErrInvalidControls", err)
	}
}

func TestProjectSchema(t *testing.T) {
	p := projects.Project{Title: "Cats", Controls: validControls()}
	schema := p.Schema()

	ctrl, ok := schema.Control("quality")
	if !ok {
		t.Fatal("control quality not found")
	}
	if ctrl.Mode != results.PerItem {
		t.Errorf("mode = %q, want perItem", ctrl.Mode)
	}
	if _, ok := schema.Control("missing"); ok {
		t.Error("unknown control reported found")
	}
	if got := len(schema.Controls()); got != 3 {
		t.Errorf("controls = %d, want 3", got)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", projects.ErrNotFound, http.StatusNotFound},
		{"duplicate", projects.ErrDuplicate, http.StatusConflict},
		{"invalid project", projects.ErrInvalidProject, http.StatusBadRequest},
		{"wrapped invalid controls", fmt.Errorf("%w: bad", projects.ErrInvalidControls), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := projects.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	f := projects.FiltersFromQuery(url.Values{"title": {"cat"}})
	if f.Title == nil || *f.Title != "cat" {
		t.Errorf("title = %v, want cat", f.Title)
	}

	if f := projects.FiltersFromQuery(url.Values{}); f.Title != nil {
		t.Errorf("empty query title = %v, want nil", *f.Title)
	}
}
