package pagination_test

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/cynaps/labelstate/pkg/pagination"
	"github.com/cynaps/labelstate/pkg/query"
)

var cfg = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var c pagination.Config
		if err := c.Finalize(nil); err != nil {
			t.Fatalf("finalize: %v", err)
		}
		if c != cfg {
			t.Errorf("got %+v, want %+v", c, cfg)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("LS_PAGE", "5")
		t.Setenv("LS_MAX", "10")
		var c pagination.Config
		err := c.Finalize(&pagination.ConfigEnv{DefaultPageSize: "LS_PAGE", MaxPageSize: "LS_MAX"})
		if err != nil {
			t.Fatalf("finalize: %v", err)
		}
		if c.DefaultPageSize != 5 || c.MaxPageSize != 10 {
			t.Errorf("got %+v, want {5 10}", c)
		}
	})

	t.Run("env not an integer", func(t *testing.T) {
		t.Setenv("LS_PAGE", "twenty")
		var c pagination.Config
		err := c.Finalize(&pagination.ConfigEnv{DefaultPageSize: "LS_PAGE"})
		if err == nil || !strings.Contains(err.Error(), "LS_PAGE") {
			t.Errorf("got %v, want LS_PAGE error", err)
		}
	})

	t.Run("default above max", func(t *testing.T) {
		c := pagination.Config{DefaultPageSize: 50, MaxPageSize: 10}
		err := c.Finalize(nil)
		if err == nil || !strings.Contains(err.Error(), "cannot exceed") {
			t.Errorf("got %v, want cannot exceed error", err)
		}
	})

	t.Run("merge keeps unset fields", func(t *testing.T) {
		c := cfg
		c.Merge(&pagination.Config{MaxPageSize: 500})
		if c.DefaultPageSize != 20 || c.MaxPageSize != 500 {
			t.Errorf("got %+v, want {20 500}", c)
		}
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		cfg      pagination.Config
		in       pagination.PageRequest
		page     int
		pageSize int
	}{
		{"zero request", cfg, pagination.PageRequest{}, 1, 20},
		{"negative page", cfg, pagination.PageRequest{Page: -3, PageSize: 7}, 1, 7},
		{"oversized page", cfg, pagination.PageRequest{Page: 2, PageSize: 1000}, 2, 100},
		{"zero config still sizes", pagination.Config{}, pagination.PageRequest{}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.in
			req.Normalize(tt.cfg)
			if req.Page != tt.page || req.PageSize != tt.pageSize {
				t.Errorf("got page %d size %d, want page %d size %d",
					req.Page, req.PageSize, tt.page, tt.pageSize)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	req := pagination.PageRequest{Page: 4, PageSize: 25}
	if got := req.Offset(); got != 75 {
		t.Errorf("got %d, want 75", got)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{
		"page":      {"3"},
		"page_size": {"oops"},
		"search":    {"  cats  "},
		"sort":      {"-updated_at,title"},
	}

	req := pagination.PageRequestFromQuery(values, cfg)

	if req.Page != 3 {
		t.Errorf("page: got %d, want 3", req.Page)
	}
	if req.PageSize != 20 {
		t.Errorf("page_size: got %d, want 20", req.PageSize)
	}
	if got := req.SearchTerm(); got != "cats" {
		t.Errorf("search: got %q, want %q", got, "cats")
	}
	want := []query.SortField{{Field: "updated_at", Descending: true}, {Field: "title"}}
	if len(req.Sort) != len(want) {
		t.Fatalf("sort: got %v, want %v", req.Sort, want)
	}
	for i := range want {
		if req.Sort[i] != want[i] {
			t.Errorf("sort[%d]: got %v, want %v", i, req.Sort[i], want[i])
		}
	}

	if empty := pagination.PageRequestFromQuery(url.Values{}, cfg); empty.SearchTerm() != "" {
		t.Errorf("search: got %q, want empty", empty.SearchTerm())
	}
}

func TestSortFieldsUnmarshal(t *testing.T) {
	inputs := map[string]string{
		"string": `"title,-created_at"`,
		"array":  `[{"Field":"title"},{"Field":"created_at","Descending":true}]`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			var sf pagination.SortFields
			if err := json.Unmarshal([]byte(input), &sf); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(sf) != 2 || sf[0].Field != "title" || !sf[1].Descending {
				t.Errorf("got %v, want [title -created_at]", sf)
			}
		})
	}

	var sf pagination.SortFields
	if err := json.Unmarshal([]byte(`42`), &sf); err == nil {
		t.Error("number: got nil error, want failure")
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		page    int
		pages   int
		hasMore bool
	}{
		{"empty", 0, 1, 1, false},
		{"exact", 40, 1, 2, true},
		{"remainder last page", 41, 3, 3, false},
		{"middle", 41, 2, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pagination.NewPageResult[int](nil, tt.total, tt.page, 20)
			if r.TotalPages != tt.pages {
				t.Errorf("total_pages: got %d, want %d", r.TotalPages, tt.pages)
			}
			if r.HasMore != tt.hasMore {
				t.Errorf("has_more: got %v, want %v", r.HasMore, tt.hasMore)
			}
			if r.Data == nil {
				t.Error("data: got nil, want empty slice")
			}
		})
	}
}

func TestPageOf(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		name string
		req  pagination.PageRequest
		want string
		more bool
	}{
		{"first", pagination.PageRequest{Page: 1, PageSize: 2}, "ab", true},
		{"last partial", pagination.PageRequest{Page: 3, PageSize: 2}, "e", false},
		{"past end", pagination.PageRequest{Page: 9, PageSize: 2}, "", false},
		{"all", pagination.PageRequest{Page: 1, PageSize: 10}, "abcde", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pagination.PageOf(items, tt.req)
			if got := strings.Join(r.Data, ""); got != tt.want {
				t.Errorf("data: got %q, want %q", got, tt.want)
			}
			if r.Total != len(items) {
				t.Errorf("total: got %d, want %d", r.Total, len(items))
			}
			if r.HasMore != tt.more {
				t.Errorf("has_more: got %v, want %v", r.HasMore, tt.more)
			}
		})
	}

	t.Run("append does not clobber source", func(t *testing.T) {
		r := pagination.PageOf(items, pagination.PageRequest{Page: 1, PageSize: 2})
		_ = append(r.Data, "z")
		if items[2] != "c" {
			t.Errorf("items[2]: got %q, want c", items[2])
		}
	})
}
