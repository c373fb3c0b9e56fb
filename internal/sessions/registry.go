package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cynaps/labelstate/pkg/drafts"
	"github.com/cynaps/labelstate/pkg/lifecycle"
	"github.com/cynaps/labelstate/pkg/pagination"
)

const defaultMaxBodySize = 10 << 20

type registry struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]*Session
	byAnnotation map[uuid.UUID]*Session

	annotations Annotations
	projects    Projects
	drafts      drafts.System
	cfg         Config
	logger      *slog.Logger
}

// New creates a session registry implementing the System interface.
func New(
	ann Annotations,
	proj Projects,
	store drafts.System,
	cfg Config,
	logger *slog.Logger,
) System {
	if cfg.Pagination.DefaultPageSize <= 0 || cfg.Pagination.MaxPageSize <= 0 {
		cfg.Pagination = pagination.Config{}
		_ = cfg.Pagination.Finalize(nil)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}

	return &registry{
		sessions:     make(map[uuid.UUID]*Session),
		byAnnotation: make(map[uuid.UUID]*Session),
		annotations:  ann,
		projects:     proj,
		drafts:       store,
		cfg:          cfg,
		logger:       logger.With("system", "sessions"),
	}
}

func (r *registry) Handler() *Handler {
	return NewHandler(r, r.logger, r.cfg.Pagination, r.cfg.MaxBodySize)
}

func (r *registry) Start(lc *lifecycle.Coordinator) error {
	r.logger.Info("starting session registry",
		"max_open", r.cfg.MaxOpen,
		"history_limit", r.cfg.HistoryLimit,
		"idle_timeout", r.cfg.IdleTimeout,
	)

	if r.cfg.IdleTimeout > 0 {
		lc.OnStartup(func() {
			go r.runEviction(lc.Context())
		})
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		n := r.closeAll()
		r.logger.Info("session registry closed", "sessions", n)
	})

	return nil
}

func (r *registry) Open(ctx context.Context, annotationID uuid.UUID) (*Session, error) {
	if s := r.live(annotationID); s != nil {
		return s, nil
	}

	a, err := r.annotations.Find(ctx, annotationID)
	if err != nil {
		return nil, err
	}
	p, err := r.projects.Find(ctx, a.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", a.ProjectID, err)
	}

	s := newSession(a, p, r.annotations, r.drafts, r.cfg.HistoryLimit, r.logger)
	report := s.load(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byAnnotation[annotationID]; ok {
		return existing, nil
	}

	if len(r.sessions) >= r.cfg.MaxOpen {
		r.evictLocked(time.Now())
		if len(r.sessions) >= r.cfg.MaxOpen {
			return nil, fmt.Errorf("%w: limit %d", ErrTooManySessions, r.cfg.MaxOpen)
		}
	}

	r.sessions[s.id] = s
	r.byAnnotation[annotationID] = s
	openSessions.Inc()

	s.logger.Info("session opened",
		"project_id", a.ProjectID,
		"bound", report.Bound,
		"opaque", report.Opaque,
		"regions", len(s.regions),
		"restored", s.restored,
	)
	return s, nil
}

func (r *registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *registry) List() []Summary {
	r.mu.Lock()
	open := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		open = append(open, s)
	}
	r.mu.Unlock()

	out := make([]Summary, 0, len(open))
	for _, s := range open {
		out = append(out, s.summary())
	}
	slices.SortFunc(out, func(a, b Summary) int {
		return a.OpenedAt.Compare(b.OpenedAt)
	})
	return out
}

func (r *registry) Close(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	r.removeLocked(s)
	s.logger.Info("session closed")
	return nil
}

func (r *registry) live(annotationID uuid.UUID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byAnnotation[annotationID]
}

// removeLocked runs under r.mu. It only touches the session's atomic state,
// never its mutex, so a long-running session operation cannot stall the registry.
func (r *registry) removeLocked(s *Session) {
	delete(r.sessions, s.id)
	delete(r.byAnnotation, s.annotation.ID)
	s.close()
	openSessions.Dec()
}

// evictLocked closes sessions idle for longer than the idle timeout. Their
// drafts are kept, so reopening resumes where editing stopped.
func (r *registry) evictLocked(now time.Time) int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}

	evicted := 0
	for _, s := range r.sessions {
		if now.Sub(s.idleSince()) < r.cfg.IdleTimeout {
			continue
		}
		r.removeLocked(s)
		evictions.Inc()
		evicted++
		s.logger.Info("session evicted", "idle_timeout", r.cfg.IdleTimeout)
	}
	return evicted
}

func (r *registry) runEviction(ctx context.Context) {
	ticker := time.NewTicker(max(r.cfg.IdleTimeout/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.mu.Lock()
			r.evictLocked(now)
			r.mu.Unlock()
		}
	}
}

func (r *registry) closeAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.sessions)
	for _, s := range r.sessions {
		r.removeLocked(s)
	}
	return n
}
