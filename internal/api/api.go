// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/cynaps/labelstate/internal/config"
	"github.com/cynaps/labelstate/internal/infrastructure"
	"github.com/cynaps/labelstate/pkg/middleware"
	"github.com/cynaps/labelstate/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The session registry is registered with the lifecycle coordinator here so
// its eviction loop and shutdown flush run alongside infrastructure hooks.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	if err := domain.Start(runtime); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, runtime); err != nil {
		return nil, err
	}

	m, err := module.New(runtime.BasePath, mux)
	if err != nil {
		return nil, err
	}
	m.Use(middleware.RequestID())
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, nil
}
