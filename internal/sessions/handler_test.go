package sessions_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/cynaps/labelstate/internal/sessions"
	"github.com/cynaps/labelstate/pkg/pagination"
	"github.com/cynaps/labelstate/pkg/results"
)

func setupMux(h *sessions.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHandlerSessionFlow(t *testing.T) {
	f := newFixture(t, sessions.Config{})
	mux := setupMux(f.sys.Handler())

	rec := do(t, mux, "POST", "/sessions", `{"annotation_id": "`+f.annotation.String()+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("open status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	st := decode[sessions.State](t, rec)
	base := "/sessions/" + st.ID.String()

	if len(st.Controls) != len(fixtureControls) {
		t.Fatalf("controls = %d, want %d", len(st.Controls), len(fixtureControls))
	}
	if st.Controls[0].Name != "sentiment" || st.Controls[0].Value == nil {
		t.Errorf("controls[0] = %+v, want loaded sentiment", st.Controls[0])
	}

	t.Run("set and read value", func(t *testing.T) {
		rec := do(t, mux, "PUT", base+"/values/quality", `{"rating": 5}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		if res := decode[sessions.WriteResult](t, rec); !res.Written {
			t.Errorf("result = %+v, want written", res)
		}

		rec = do(t, mux, "GET", base+"/values/quality", "")
		v := decode[sessions.ValueState](t, rec)
		if v.Value == nil || v.Value.Rating() != 5 {
			t.Errorf("quality = %v, want 5", v.Value)
		}
	})

	t.Run("type mismatch", func(t *testing.T) {
		rec := do(t, mux, "PUT", base+"/values/quality", `{"choices": ["a"]}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown control", func(t *testing.T) {
		rec := do(t, mux, "GET", base+"/values/nope", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("dropped region write", func(t *testing.T) {
		rec := do(t, mux, "PUT", base+"/values/label", `{"taxonomy": [["Animal"]]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if res := decode[sessions.WriteResult](t, rec); res.Written {
			t.Error("write without region should be dropped")
		}
	})

	t.Run("navigation out of range", func(t *testing.T) {
		rec := do(t, mux, "PUT", base+"/navigation", `{"item": 9}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("region lifecycle", func(t *testing.T) {
		rec := do(t, mux, "POST", base+"/regions", `{"id": "reg3", "from_name": "box", "type": "rectanglelabels", "value": {"x": 1}}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d, want 201", rec.Code)
		}
		if r := decode[results.Region](t, rec); r.ID != "reg3" {
			t.Errorf("region = %+v, want reg3", r)
		}

		rec = do(t, mux, "PUT", base+"/selection", `{"region": "reg3"}`)
		if st := decode[sessions.State](t, rec); st.Navigation.Region != "reg3" {
			t.Errorf("navigation = %+v, want reg3", st.Navigation)
		}

		rec = do(t, mux, "DELETE", base+"/regions/reg3", "")
		if rec.Code != http.StatusNoContent {
			t.Errorf("delete status = %d, want 204", rec.Code)
		}
		rec = do(t, mux, "DELETE", base+"/regions/reg3", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("second delete status = %d, want 404", rec.Code)
		}
	})

	t.Run("undo", func(t *testing.T) {
		rec := do(t, mux, "POST", base+"/undo", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if st := decode[sessions.State](t, rec); len(st.Regions) != 3 {
			t.Errorf("regions after undo = %v, want 3", st.Regions)
		}
	})

	t.Run("validation and blocked submit", func(t *testing.T) {
		rec := do(t, mux, "GET", base+"/validation", "")
		v := decode[sessions.Validation](t, rec)
		if v.Valid || len(v.Warnings) == 0 {
			t.Errorf("validation = %+v, want warnings", v)
		}

		rec = do(t, mux, "POST", base+"/save", `{"submit": true}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("submit status = %d, want 422", rec.Code)
		}
	})

	t.Run("save and result", func(t *testing.T) {
		rec := do(t, mux, "POST", base+"/save", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("save status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		if res := decode[sessions.SaveResult](t, rec); !res.Saved {
			t.Errorf("result = %+v, want saved", res)
		}

		rec = do(t, mux, "GET", base+"/result", "")
		records := decode[[]results.Record](t, rec)
		if len(records) == 0 {
			t.Error("result list is empty")
		}
	})

	t.Run("list and close", func(t *testing.T) {
		rec := do(t, mux, "GET", "/sessions", "")
		page := decode[pagination.PageResult[sessions.Summary]](t, rec)
		if len(page.Data) != 1 || page.Total != 1 {
			t.Errorf("sessions = %d of %d, want 1 of 1", len(page.Data), page.Total)
		}
		if page.HasMore {
			t.Error("has_more = true, want false")
		}

		rec = do(t, mux, "GET", "/sessions?page=2", "")
		if page := decode[pagination.PageResult[sessions.Summary]](t, rec); len(page.Data) != 0 {
			t.Errorf("page 2 sessions = %d, want 0", len(page.Data))
		}

		rec = do(t, mux, "DELETE", base, "")
		if rec.Code != http.StatusNoContent {
			t.Errorf("close status = %d, want 204", rec.Code)
		}
		rec = do(t, mux, "GET", base, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("closed session status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerOpenErrors(t *testing.T) {
	f := newFixture(t, sessions.Config{})
	mux := setupMux(f.sys.Handler())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", "{", http.StatusBadRequest},
		{"missing id", "{}", http.StatusBadRequest},
		{"unknown annotation", `{"annotation_id": "` + uuid.New().String() + `"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, "POST", "/sessions", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := do(t, mux, "GET", "/sessions/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

func TestHandlerBodyLimit(t *testing.T) {
	f := newFixture(t, sessions.Config{MaxBodySize: 256})
	mux := setupMux(f.sys.Handler())

	rec := do(t, mux, "POST", "/sessions", `{"annotation_id": "`+f.annotation.String()+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("open status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	base := "/sessions/" + decode[sessions.State](t, rec).ID.String()

	points := "[" + strings.Repeat("[1.5, 2.5], ", 100) + "[0, 0]]"
	rec = do(t, mux, "POST", base+"/regions",
		`{"id": "big", "from_name": "poly", "type": "polygon", "value": {"points": `+points+`}}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized status = %d, want 413", rec.Code)
	}

	rec = do(t, mux, "POST", base+"/regions", `{"id": "small", "from_name": "box", "type": "rectangle", "value": {"x": 1}}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("small body status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}
