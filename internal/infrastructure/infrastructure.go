// Package infrastructure assembles the process-wide systems every module
// shares: lifecycle coordination, logging, the Postgres pool, export blob
// storage and the draft store.
package infrastructure

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/cynaps/labelstate/internal/config"
	"github.com/cynaps/labelstate/pkg/database"
	"github.com/cynaps/labelstate/pkg/drafts"
	"github.com/cynaps/labelstate/pkg/lifecycle"
	"github.com/cynaps/labelstate/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Drafts    drafts.System
}

// New builds every system from cfg without starting any of them. Systems
// opened before a later one fails are closed again.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := cfg.Logging.NewLogger(os.Stderr)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("storage init failed: %w", err), db.Connection().Close())
	}

	draftStore, err := drafts.New(&cfg.Drafts, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("drafts init failed: %w", err), db.Connection().Close())
	}

	logger.Info("infrastructure initialized",
		"database", cfg.Database.Name,
		"container", cfg.Storage.ContainerName,
		"drafts_in_memory", cfg.Drafts.InMemory,
		"max_upload", humanize.IBytes(uint64(cfg.API.MaxUploadSizeBytes())),
	)

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Drafts:    draftStore,
	}, nil
}

// Start registers each system's hooks and readiness check with the coordinator.
func (i *Infrastructure) Start() error {
	systems := []struct {
		name  string
		start func(*lifecycle.Coordinator) error
	}{
		{"database", i.Database.Start},
		{"storage", i.Storage.Start},
		{"drafts", i.Drafts.Start},
	}

	for _, s := range systems {
		if err := s.start(i.Lifecycle); err != nil {
			return fmt.Errorf("%s start failed: %w", s.name, err)
		}
	}
	return nil
}

// Close releases the draft store and the database pool. It is for
// processes that fail before Start; once started, lifecycle shutdown
// hooks own these resources.
func (i *Infrastructure) Close() error {
	return errors.Join(
		i.Drafts.Close(),
		i.Database.Connection().Close(),
	)
}
