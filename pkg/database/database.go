// Package database provides PostgreSQL connection management with lifecycle
// coordination. Connections go through the pgx stdlib driver so repositories
// work against database/sql.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/cynaps/labelstate/pkg/lifecycle"
)

const (
	retryInitial = 500 * time.Millisecond
	retryMax     = 10 * time.Second
)

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Ready reports whether the most recent startup or retry ping succeeded.
	Ready() bool
	// Start registers startup, readiness, and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type database struct {
	conn        *sql.DB
	name        string
	logger      *slog.Logger
	connTimeout time.Duration
	ready       atomic.Bool
}

// New configures the pool from cfg without connecting.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	connCfg, err := cfg.ConnConfig()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		name:        connCfg.Database,
		logger:      logger.With("system", "database", "host", connCfg.Host, "database", connCfg.Database),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Ready() bool {
	return d.ready.Load()
}

// Start pings once during startup. When that ping fails, startup still
// completes and a background loop keeps pinging with backoff until the
// database answers or the coordinator shuts down.
func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")
	lc.Check("database", d)
	d.registerStats()

	lc.OnStartup(func() {
		if err := d.ping(lc.Context()); err != nil {
			d.logger.Error("database ping failed, retrying in background", "error", err)
			go d.retry(lc.Context())
			return
		}
		d.ready.Store(true)
		d.logger.Info("database connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.ready.Store(false)
		d.logger.Info("closing database connection", "open_connections", d.conn.Stats().OpenConnections)

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed")
	})

	return nil
}

func (d *database) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.connTimeout)
	defer cancel()
	return d.conn.PingContext(ctx)
}

func (d *database) retry(ctx context.Context) {
	wait := retryInitial
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for attempt := 2; ; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := d.ping(ctx)
		if err == nil {
			d.ready.Store(true)
			d.logger.Info("database connection established", "attempt", attempt)
			return
		}
		if ctx.Err() != nil {
			return
		}

		wait = min(wait*2, retryMax)
		d.logger.Warn("database ping failed", "attempt", attempt, "next", wait, "error", err)
		timer.Reset(wait)
	}
}

// registerStats exposes sql.DBStats for the pool. A second system for the
// same database name keeps the collector already registered.
func (d *database) registerStats() {
	err := prometheus.Register(collectors.NewDBStatsCollector(d.conn, d.name))
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		d.logger.Warn("database stats collector not registered", "error", err)
	}
}
