package api

import (
	"github.com/cynaps/labelstate/internal/annotations"
	"github.com/cynaps/labelstate/internal/projects"
	"github.com/cynaps/labelstate/internal/sessions"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Projects    projects.System
	Annotations annotations.System
	Sessions    sessions.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	projectsSystem := projects.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	annotationsSystem := annotations.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	sessionsSystem := sessions.New(
		annotationsSystem,
		projectsSystem,
		runtime.Drafts,
		runtime.Sessions,
		runtime.Logger,
	)

	return &Domain{
		Projects:    projectsSystem,
		Annotations: annotationsSystem,
		Sessions:    sessionsSystem,
	}
}

// Start registers long-running domain work with the lifecycle coordinator.
func (d *Domain) Start(runtime *Runtime) error {
	return d.Sessions.Start(runtime.Lifecycle)
}
