// Package drafts persists unsaved editing state in an embedded badger store so an
// interrupted annotation session can be resumed.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/cynaps/labelstate/pkg/lifecycle"
	"github.com/cynaps/labelstate/pkg/results"
)

// ErrNotFound indicates no draft is stored for the annotation.
var ErrNotFound = errors.New("draft not found")

const keyPrefix = "draft/"

// Draft is the autosaved state of one annotation session.
type Draft struct {
	AnnotationID uuid.UUID          `json:"annotation_id"`
	Result       []results.Record   `json:"result"`
	Regions      []results.Region   `json:"regions"`
	Navigation   results.Navigation `json:"navigation"`
	SavedAt      time.Time          `json:"saved_at"`
}

// System stores drafts keyed by annotation id.
type System interface {
	// Start registers value log GC and close hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	Save(ctx context.Context, d Draft) error
	// Load returns ErrNotFound when no draft exists or it has expired.
	Load(ctx context.Context, annotationID uuid.UUID) (*Draft, error)
	// Delete removes a draft. Deleting an absent draft is not an error.
	Delete(ctx context.Context, annotationID uuid.UUID) error
	Close() error
}

type store struct {
	db         *badger.DB
	logger     *slog.Logger
	ttl        time.Duration
	inMemory   bool
	gcInterval time.Duration
	gcRatio    float64
}

// New opens the draft store described by cfg.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "drafts")

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create draft directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open draft store: %w", err)
	}

	return &store{
		db:         db,
		logger:     logger,
		ttl:        cfg.TTLDuration(),
		inMemory:   cfg.InMemory,
		gcInterval: cfg.GCIntervalDuration(),
		gcRatio:    cfg.GCDiscardRatio,
	}, nil
}

func (s *store) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting draft store", "in_memory", s.inMemory)
	lc.Check("drafts", lifecycle.ReadyFunc(func() bool { return !s.db.IsClosed() }))

	if !s.inMemory && s.gcInterval > 0 {
		lc.OnStartup(func() {
			go s.runGC(lc.Context())
		})
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		s.logger.Info("closing draft store")

		if err := s.Close(); err != nil {
			s.logger.Error("draft store close failed", "error", err)
			return
		}

		s.logger.Info("draft store closed")
	})

	return nil
}

func (s *store) Save(ctx context.Context, d Draft) error {
	if d.SavedAt.IsZero() {
		d.SavedAt = time.Now().UTC()
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", d.AnnotationID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key(d.AnnotationID), data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("save draft %s: %w", d.AnnotationID, err)
	}
	return nil
}

func (s *store) Load(ctx context.Context, annotationID uuid.UUID) (*Draft, error) {
	var d Draft

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(annotationID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &d)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", annotationID, err)
	}

	return &d, nil
}

func (s *store) Delete(ctx context.Context, annotationID uuid.UUID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(annotationID))
	})
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", annotationID, err)
	}
	return nil
}

func (s *store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

func (s *store) runGC(ctx context.Context) {
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(s.gcRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("draft value log gc failed", "error", err)
			}
		}
	}
}

func key(id uuid.UUID) []byte {
	return []byte(keyPrefix + id.String())
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
