// Package routes declares HTTP endpoints as data so the same definitions
// can be registered on a mux and documented as OpenAPI.
package routes

import (
	"fmt"
	"net/http"
)

// Group nests routes under a shared prefix. Tags carry into child groups
// that declare none of their own.
type Group struct {
	Prefix   string
	Tags     []string
	Routes   []Route
	Children []Group
}

// Register adds every route in groups to mux. A route without a method or
// handler, or one whose pattern conflicts with an earlier registration,
// stops registration with an error instead of a mux panic.
func Register(mux *http.ServeMux, groups ...Group) error {
	for _, group := range groups {
		if err := registerGroup(mux, "", group); err != nil {
			return err
		}
	}
	return nil
}

func registerGroup(mux *http.ServeMux, parentPrefix string, group Group) error {
	prefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		if err := handle(mux, prefix, route); err != nil {
			return err
		}
	}
	for _, child := range group.Children {
		if err := registerGroup(mux, prefix, child); err != nil {
			return err
		}
	}
	return nil
}

func handle(mux *http.ServeMux, prefix string, route Route) (err error) {
	pattern := route.Method + " " + prefix + route.Pattern
	if route.Method == "" || route.Handler == nil {
		return fmt.Errorf("route %q: method and handler required", pattern)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("route %q: %v", pattern, r)
		}
	}()
	mux.HandleFunc(pattern, route.Handler)
	return nil
}
