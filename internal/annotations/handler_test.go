package annotations_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cynaps/labelstate/internal/annotations"
	"github.com/cynaps/labelstate/pkg/pagination"
	"github.com/cynaps/labelstate/pkg/results"
)

type mockSystem struct {
	listFn          func(ctx context.Context, page pagination.PageRequest, filters annotations.Filters) (*pagination.PageResult[annotations.Annotation], error)
	findFn          func(ctx context.Context, id uuid.UUID) (*annotations.Annotation, error)
	createFn        func(ctx context.Context, cmd annotations.CreateCommand) (*annotations.Annotation, error)
	updateFn        func(ctx context.Context, id uuid.UUID, cmd annotations.UpdateCommand) (*annotations.Annotation, error)
	deleteFn        func(ctx context.Context, id uuid.UUID) error
	copyFn          func(ctx context.Context, id uuid.UUID, cmd annotations.CopyCommand) (*annotations.Annotation, error)
	exportFn        func(ctx context.Context, id uuid.UUID) (string, error)
	exportProjectFn func(ctx context.Context, projectID uuid.UUID) ([]string, error)
}

func (m *mockSystem) Handler(maxUploadSize int64) *annotations.Handler {
	return newTestHandler(m, maxUploadSize)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters annotations.Filters) (*pagination.PageResult[annotations.Annotation], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*annotations.Annotation, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Create(ctx context.Context, cmd annotations.CreateCommand) (*annotations.Annotation, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) Update(ctx context.Context, id uuid.UUID, cmd annotations.UpdateCommand) (*annotations.Annotation, error) {
	return m.updateFn(ctx, id, cmd)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) CopyPrediction(ctx context.Context, id uuid.UUID, cmd annotations.CopyCommand) (*annotations.Annotation, error) {
	return m.copyFn(ctx, id, cmd)
}

func (m *mockSystem) Export(ctx context.Context, id uuid.UUID) (string, error) {
	return m.exportFn(ctx, id)
}

func (m *mockSystem) ExportProject(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	return m.exportProjectFn(ctx, projectID)
}

func newTestHandler(sys annotations.System, maxUploadSize int64) *annotations.Handler {
	return annotations.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		maxUploadSize,
	)
}

func setupMux(h *annotations.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func sampleAnnotation() annotations.Annotation {
	records, _ := results.DecodeRecords([]byte(`[
		{"from_name": "sentiment", "to_name": "text", "type": "choices", "value": {"choices": ["positive"]}}
	]`))
	return annotations.Annotation{
		ID:           uuid.MustParse("9a0c2f4e-3b1d-4e6f-8a7b-5c4d3e2f1a00"),
		ProjectID:    uuid.MustParse("6f1c1e2a-8f9e-4c1b-9d0a-2b7f5c3e4d10"),
		ProjectTitle: "Reviews",
		TaskID:       7,
		Kind:         annotations.KindAnnotation,
		ItemCount:    1,
		Result:       records,
		CreatedAt:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestHandlerList(t *testing.T) {
	a := sampleAnnotation()
	var captured annotations.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, f annotations.Filters) (*pagination.PageResult[annotations.Annotation], error) {
			captured = f
			result := pagination.NewPageResult([]annotations.Annotation{a}, 1, 1, 20)
			return &result, nil
		},
	}

	mux := setupMux(newTestHandler(sys, 1024))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/annotations?kind=prediction", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var result pagination.PageResult[annotations.Annotation]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Data) != 1 || len(result.Data[0].Result) != 1 {
		t.Fatalf("data = %+v, want one annotation with one record", result.Data)
	}
	if got := result.Data[0].Result[0].FromName; got != "sentiment" {
		t.Errorf("from_name = %q, want sentiment", got)
	}
	if captured.Kind == nil || *captured.Kind != "prediction" {
		t.Errorf("kind filter = %v, want prediction", captured.Kind)
	}
}

func TestHandlerFind(t *testing.T) {
	a := sampleAnnotation()
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*annotations.Annotation, error) {
			if id == a.ID {
				return &a, nil
			}
			return nil, annotations.ErrNotFound
		},
	}

	mux := setupMux(newTestHandler(sys, 1024))

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/annotations/" + a.ID.String(), http.StatusOK},
		{"not found", "/annotations/" + uuid.New().String(), http.StatusNotFound},
		{"invalid id", "/annotations/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerCreate(t *testing.T) {
	var captured annotations.CreateCommand
	sys := &mockSystem{
		createFn: func(_ context.Context, cmd annotations.CreateCommand) (*annotations.Annotation, error) {
			if err := cmd.Validate(); err != nil {
				return nil, err
			}
			captured = cmd
			a := sampleAnnotation()
			return &a, nil
		},
	}

	mux := setupMux(newTestHandler(sys, 512))

	t.Run("creates annotation", func(t *testing.T) {
		body := `{"project_id": "6f1c1e2a-8f9e-4c1b-9d0a-2b7f5c3e4d10", "task_id": 7, "item_count": 2,
			"result": [{"id": "r1", "from_name": "box", "type": "rectanglelabels", "value": {"x": 1}}]}`
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/annotations", bytes.NewBufferString(body)))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
		}
		if captured.ItemCount != 2 {
			t.Errorf("item_count = %d, want 2", captured.ItemCount)
		}
		if len(captured.Result) != 1 || captured.Result[0].ID != "r1" {
			t.Errorf("result = %+v, want one record r1", captured.Result)
		}
	})

	t.Run("rejects zero item count", func(t *testing.T) {
		body := `{"project_id": "6f1c1e2a-8f9e-4c1b-9d0a-2b7f5c3e4d10", "item_count": 0}`
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/annotations", bytes.NewBufferString(body)))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		body := `{"project_id": "6f1c1e2a-8f9e-4c1b-9d0a-2b7f5c3e4d10", "item_count": 1, "result": [` +
			strings.Repeat(`{"from_name": "x", "type": "choices", "value": {"choices": ["a"]}},`, 20) +
			`{}]}`
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/annotations", bytes.NewBufferString(body)))

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})
}

func TestHandlerUpdate(t *testing.T) {
	a := sampleAnnotation()
	sys := &mockSystem{
		updateFn: func(_ context.Context, id uuid.UUID, cmd annotations.UpdateCommand) (*annotations.Annotation, error) {
			if id != a.ID {
				return nil, annotations.ErrNotFound
			}
			updated := a
			updated.Result = cmd.Result
			updated.CompletedBy = cmd.CompletedBy
			return &updated, nil
		},
	}

	mux := setupMux(newTestHandler(sys, 1024))

	body := `{"result": [], "completed_by": "ana"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("PUT", "/annotations/"+a.ID.String(), bytes.NewBufferString(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got annotations.Annotation
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CompletedBy == nil || *got.CompletedBy != "ana" {
		t.Errorf("completed_by = %v, want ana", got.CompletedBy)
	}
	if len(got.Result) != 0 {
		t.Errorf("result = %d records, want 0", len(got.Result))
	}
}

func TestHandlerDelete(t *testing.T) {
	sys := &mockSystem{
		deleteFn: func(_ context.Context, _ uuid.UUID) error { return nil },
	}

	mux := setupMux(newTestHandler(sys, 1024))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/annotations/"+uuid.New().String(), nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestHandlerCopy(t *testing.T) {
	pred := sampleAnnotation()
	pred.Kind = annotations.KindPrediction

	sys := &mockSystem{
		copyFn: func(_ context.Context, id uuid.UUID, cmd annotations.CopyCommand) (*annotations.Annotation, error) {
			if id != pred.ID {
				return nil, annotations.ErrNotPrediction
			}
			a := sampleAnnotation()
			a.ID = uuid.New()
			a.ParentID = &pred.ID
			a.CompletedBy = cmd.CompletedBy
			return &a, nil
		},
	}

	mux := setupMux(newTestHandler(sys, 1024))

	t.Run("copies prediction with empty body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/annotations/"+pred.ID.String()+"/copy", nil))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}

		var got annotations.Annotation
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ParentID == nil || *got.ParentID != pred.ID {
			t.Errorf("parent_id = %v, want %v", got.ParentID, pred.ID)
		}
	})

	t.Run("passes completed_by", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/annotations/"+pred.ID.String()+"/copy", bytes.NewBufferString(`{"completed_by": "ana"}`))
		mux.ServeHTTP(rec, req)

		var got annotations.Annotation
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.CompletedBy == nil || *got.CompletedBy != "ana" {
			t.Errorf("completed_by = %v, want ana", got.CompletedBy)
		}
	})

	t.Run("rejects non-prediction", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/annotations/"+uuid.New().String()+"/copy", nil))

		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})
}

func TestHandlerExport(t *testing.T) {
	a := sampleAnnotation()
	project := a.ProjectID

	sys := &mockSystem{
		exportFn: func(_ context.Context, id uuid.UUID) (string, error) {
			return annotations.ExportKey(project, id), nil
		},
		exportProjectFn: func(_ context.Context, pid uuid.UUID) ([]string, error) {
			if pid != project {
				return []string{}, nil
			}
			return []string{annotations.ExportKey(project, a.ID)}, nil
		},
	}

	mux := setupMux(newTestHandler(sys, 1024))

	t.Run("single annotation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/annotations/"+a.ID.String()+"/export", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got annotations.ExportResult
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got.Keys) != 1 || got.Keys[0] != annotations.ExportKey(project, a.ID) {
			t.Errorf("keys = %v", got.Keys)
		}
	})

	t.Run("whole project", func(t *testing.T) {
		body := `{"project_id": "` + project.String() + `"}`
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/annotations/export", bytes.NewBufferString(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got annotations.ExportResult
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got.Keys) != 1 {
			t.Errorf("keys = %v, want 1", got.Keys)
		}
	})

	t.Run("project id required", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/annotations/export", bytes.NewBufferString(`{}`)))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
