package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cynaps/labelstate/internal/annotations"
	"github.com/cynaps/labelstate/internal/projects"
	"github.com/cynaps/labelstate/pkg/lifecycle"
	"github.com/cynaps/labelstate/pkg/pagination"
)

// Annotations is the annotation store sessions load from and save to.
type Annotations interface {
	Find(ctx context.Context, id uuid.UUID) (*annotations.Annotation, error)
	Update(ctx context.Context, id uuid.UUID, cmd annotations.UpdateCommand) (*annotations.Annotation, error)
}

// Projects resolves the controls a session binds results with.
type Projects interface {
	Find(ctx context.Context, id uuid.UUID) (*projects.Project, error)
}

// Config bounds the session registry.
type Config struct {
	MaxOpen      int
	HistoryLimit int
	// IdleTimeout closes sessions unused for this long. Zero disables eviction.
	IdleTimeout time.Duration
	// Pagination sizes the session listing. Zero values take the package defaults.
	Pagination pagination.Config
	// MaxBodySize caps request bodies of the session endpoints. Zero takes 10 MiB.
	MaxBodySize int64
}

// Summary describes an open session without touching it.
type Summary struct {
	ID           uuid.UUID `json:"id"`
	AnnotationID uuid.UUID `json:"annotation_id"`
	ProjectID    uuid.UUID `json:"project_id"`
	Dirty        bool      `json:"dirty"`
	OpenedAt     time.Time `json:"opened_at"`
	LastUsed     time.Time `json:"last_used"`
}

// System is the in-process registry of open editing sessions.
type System interface {
	Handler() *Handler

	// Start registers idle eviction and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error

	// Open returns the live session for an annotation, loading a new one when
	// none is open.
	Open(ctx context.Context, annotationID uuid.UUID) (*Session, error)
	Get(id uuid.UUID) (*Session, error)
	List() []Summary
	Close(id uuid.UUID) error
}
