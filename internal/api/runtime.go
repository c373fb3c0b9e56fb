package api

import (
	"github.com/cynaps/labelstate/internal/config"
	"github.com/cynaps/labelstate/internal/infrastructure"
	"github.com/cynaps/labelstate/internal/sessions"
	"github.com/cynaps/labelstate/pkg/openapi"
	"github.com/cynaps/labelstate/pkg/pagination"
)

// Runtime is the infrastructure as the API module sees it: a module-scoped
// logger plus the settings its handlers and systems read.
type Runtime struct {
	*infrastructure.Infrastructure
	BasePath      string
	Version       string
	MaxUploadSize int64
	MaxListSize   int32
	Pagination    pagination.Config
	Sessions      sessions.Config
	Docs          openapi.Config
}

// NewRuntime derives the API runtime from cfg. infra itself is not modified.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		BasePath:       cfg.API.BasePath,
		Version:        cfg.Version,
		MaxUploadSize:  cfg.API.MaxUploadSizeBytes(),
		MaxListSize:    cfg.Storage.MaxListSize,
		Pagination:     cfg.API.Pagination,
		Sessions: sessions.Config{
			MaxOpen:      cfg.Sessions.MaxOpen,
			HistoryLimit: cfg.Sessions.HistoryLimit,
			IdleTimeout:  cfg.Sessions.IdleTimeoutDuration(),
			Pagination:   cfg.API.Pagination,
			MaxBodySize:  cfg.API.MaxUploadSizeBytes(),
		},
		Docs: cfg.API.OpenAPI,
	}
}
