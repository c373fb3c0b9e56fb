package routes_test

import (
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/cynaps/labelstate/pkg/openapi"
	"github.com/cynaps/labelstate/pkg/routes"
)

func respond(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}
}

func sessionGroup() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Tags:   []string{"Sessions"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: respond(http.StatusOK)},
			{Method: "DELETE", Pattern: "/{id}", Handler: respond(http.StatusNoContent)},
			{
				Method:  "POST",
				Pattern: "/{id}/save",
				Handler: respond(http.StatusOK),
				OpenAPI: &openapi.Operation{
					Summary:   "Persist the session result",
					Responses: map[int]*openapi.Response{http.StatusOK: {Description: "saved"}},
				},
			},
		},
		Children: []routes.Group{
			{
				Prefix: "/{id}/values",
				Routes: []routes.Route{
					{Method: "PUT", Pattern: "/{control}", Handler: respond(http.StatusOK)},
				},
			},
		},
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	if err := routes.Register(mux, sessionGroup()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/sessions", http.StatusOK},
		{"DELETE", "/sessions/abc", http.StatusNoContent},
		{"PUT", "/sessions/abc/values/sentiment", http.StatusOK},
		{"GET", "/sessions/abc/values/sentiment", http.StatusMethodNotAllowed},
		{"GET", "/projects", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name  string
		group routes.Group
		want  string
	}{
		{
			name:  "missing handler",
			group: routes.Group{Prefix: "/a", Routes: []routes.Route{{Method: "GET"}}},
			want:  "method and handler required",
		},
		{
			name: "conflicting pattern",
			group: routes.Group{Prefix: "/a", Routes: []routes.Route{
				{Method: "GET", Pattern: "/x", Handler: respond(http.StatusOK)},
				{Method: "GET", Pattern: "/x", Handler: respond(http.StatusOK)},
			}},
			want: `"GET /a/x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := routes.Register(http.NewServeMux(), tt.group)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %s", err, tt.want)
			}
		})
	}
}

func TestDocument(t *testing.T) {
	spec := openapi.NewSpec("t", "v")
	routes.Document(spec, sessionGroup(), routes.Group{
		Prefix: "/exports",
		Tags:   []string{"Exports"},
		Routes: []routes.Route{{Method: "GET", Pattern: "/download/{key...}", Handler: respond(http.StatusOK)}},
	})

	t.Run("default operation", func(t *testing.T) {
		op := spec.Paths["/sessions/{id}"].Delete
		if op == nil {
			t.Fatal("DELETE /sessions/{id} not documented")
		}
		if op.OperationID != "deleteSessionsById" {
			t.Errorf("operationId: got %q", op.OperationID)
		}
		if len(op.Parameters) != 1 || op.Parameters[0].Schema.Format != "uuid" {
			t.Errorf("parameters: got %+v, want uuid id", op.Parameters)
		}
	})

	t.Run("explicit operation keeps summary", func(t *testing.T) {
		op := spec.Paths["/sessions/{id}/save"].Post
		if op.Summary != "Persist the session result" {
			t.Errorf("summary: got %q", op.Summary)
		}
		if !slices.Equal(op.Tags, []string{"Sessions"}) {
			t.Errorf("tags: got %v", op.Tags)
		}
	})

	t.Run("child inherits tags and params", func(t *testing.T) {
		op := spec.Paths["/sessions/{id}/values/{control}"].Put
		if op == nil {
			t.Fatal("PUT values not documented")
		}
		if !slices.Equal(op.Tags, []string{"Sessions"}) {
			t.Errorf("tags: got %v", op.Tags)
		}
		if len(op.Parameters) != 2 || op.Parameters[1].Name != "control" || op.Parameters[1].Schema.Format != "" {
			t.Errorf("parameters: got %+v", op.Parameters)
		}
	})

	t.Run("wildcard segment", func(t *testing.T) {
		item, ok := spec.Paths["/exports/download/{key}"]
		if !ok || item.Get == nil {
			t.Fatalf("paths: got %v", slices.Sorted(maps.Keys(spec.Paths)))
		}
		if item.Get.OperationID != "getExportsDownloadByKey" {
			t.Errorf("operationId: got %q", item.Get.OperationID)
		}
	})

	t.Run("tags declared once", func(t *testing.T) {
		var names []string
		for _, tag := range spec.Tags {
			names = append(names, tag.Name)
		}
		if !slices.Equal(names, []string{"Sessions", "Exports"}) {
			t.Errorf("tags: got %v", names)
		}
	})
}
