package annotations

import (
	"context"

	"github.com/google/uuid"

	"github.com/cynaps/labelstate/pkg/pagination"
)

// System defines the public contract for annotation domain operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Annotation], error)

	Find(ctx context.Context, id uuid.UUID) (*Annotation, error)
	Create(ctx context.Context, cmd CreateCommand) (*Annotation, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Annotation, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// CopyPrediction creates an annotation from a prediction. Every copied
	// record carries the prediction origin and the copy's parent is the source.
	CopyPrediction(ctx context.Context, id uuid.UUID, cmd CopyCommand) (*Annotation, error)

	// Export writes the annotation's result list to blob storage and returns its key.
	Export(ctx context.Context, id uuid.UUID) (string, error)
	// ExportProject exports every annotation of a project concurrently.
	ExportProject(ctx context.Context, projectID uuid.UUID) ([]string, error)
}
