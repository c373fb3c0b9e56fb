package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cynaps/labelstate/internal/api"
	"github.com/cynaps/labelstate/internal/config"
	"github.com/cynaps/labelstate/internal/infrastructure"
	"github.com/cynaps/labelstate/pkg/handlers"
	"github.com/cynaps/labelstate/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: apiModule,
	}, nil
}

func (m *Modules) Mount(router *module.Router) error {
	return router.Mount(m.API)
}

type readiness struct {
	Status string          `json:"status"`
	Checks map[string]bool `json:"checks"`
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		body := readiness{Status: "ready", Checks: infra.Lifecycle.Status()}
		if !infra.Lifecycle.Ready() {
			body.Status = "not ready"
			handlers.RespondJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		handlers.RespondJSON(w, http.StatusOK, body)
	})

	router.Handle("GET /metrics", promhttp.Handler())

	return router
}
