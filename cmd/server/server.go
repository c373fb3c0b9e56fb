package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cynaps/labelstate/internal/config"
	"github.com/cynaps/labelstate/internal/infrastructure"
)

// Server owns the infrastructure, the mounted modules and the listener
// for one process.
type Server struct {
	infra    *infrastructure.Infrastructure
	modules  *Modules
	http     *httpServer
	logger   *slog.Logger
	shutdown time.Duration
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, errors.Join(err, infra.Close())
	}

	router := buildRouter(infra)
	if err := modules.Mount(router); err != nil {
		return nil, errors.Join(err, infra.Close())
	}

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"modules", router.Prefixes(),
	)

	return &Server{
		infra:    infra,
		modules:  modules,
		http:     newHTTPServer(&cfg.Server, router, infra.Logger),
		logger:   infra.Logger,
		shutdown: cfg.ShutdownTimeoutDuration(),
	}, nil
}

// Run starts every subsystem and the listener, blocks until ctx is done,
// then drains within the shutdown timeout. A failed start still runs the
// shutdown hooks registered so far.
func (s *Server) Run(ctx context.Context) error {
	if err := s.start(); err != nil {
		return errors.Join(err, s.stop())
	}

	<-ctx.Done()
	s.logger.Info("initiating shutdown", "cause", context.Cause(ctx))
	return s.stop()
}

func (s *Server) start() error {
	lc := s.infra.Lifecycle

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(lc); err != nil {
		return err
	}

	go func() {
		lc.WaitForStartup()
		s.logger.Info("all subsystems started", "checks", lc.Status())
	}()
	return nil
}

func (s *Server) stop() error {
	err := s.infra.Lifecycle.Shutdown(s.shutdown)
	if err == nil {
		s.logger.Info("labelstate stopped")
	}
	return err
}
