// Package middleware holds the HTTP middleware the API module wraps its
// router with: request ids, CORS and request logging with metrics.
package middleware

import "net/http"

// Func wraps a handler with behavior that runs around it.
type Func = func(http.Handler) http.Handler

// System is an ordered middleware stack. The first middleware added is the
// outermost when applied.
type System interface {
	Use(mws ...Func)
	Apply(handler http.Handler) http.Handler
}

type stack struct {
	mws []Func
}

// New returns an empty stack.
func New() System {
	return &stack{}
}

func (s *stack) Use(mws ...Func) {
	s.mws = append(s.mws, mws...)
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	return Chain(handler, s.mws...)
}

// Chain wraps handler so that mws[0] sees the request first.
func Chain(handler http.Handler, mws ...Func) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i](handler)
	}
	return handler
}
