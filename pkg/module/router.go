package module

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// Router sends requests to the module owning their first path segment and
// everything else to a plain ServeMux for probes and metrics.
type Router struct {
	mu      sync.RWMutex
	modules map[string]*Module
	native  *http.ServeMux
}

// NewRouter returns a Router with no modules mounted.
func NewRouter() *Router {
	return &Router{
		modules: make(map[string]*Module),
		native:  http.NewServeMux(),
	}
}

// Handle registers h on the fallback mux.
func (r *Router) Handle(pattern string, h http.Handler) {
	r.native.Handle(pattern, h)
}

// HandleNative registers a handler function on the fallback mux.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.native.HandleFunc(pattern, handler)
}

// Mount claims the module's prefix. Mounting two modules on one prefix fails.
func (r *Router) Mount(m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.modules[m.prefix]; taken {
		return fmt.Errorf("module %s already mounted", m.prefix)
	}
	r.modules[m.prefix] = m
	return nil
}

// Prefixes lists mounted module prefixes in sorted order.
func (r *Router) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefixes := make([]string, 0, len(r.modules))
	for p := range r.modules {
		prefixes = append(prefixes, p)
	}
	slices.Sort(prefixes)
	return prefixes
}

// ServeHTTP trims one trailing slash, then dispatches by first segment.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if p := req.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
		req.URL.Path = strings.TrimSuffix(p, "/")
	}

	r.mu.RLock()
	m, ok := r.modules[firstSegment(req.URL.Path)]
	r.mu.RUnlock()

	if ok {
		m.Serve(w, req)
		return
	}
	r.native.ServeHTTP(w, req)
}

func firstSegment(path string) string {
	rest := strings.TrimPrefix(path, "/")
	seg, _, _ := strings.Cut(rest, "/")
	return "/" + seg
}
