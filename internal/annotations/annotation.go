// Package annotations implements the annotation domain: stored result lists
// for labeling tasks, the prediction-to-annotation copy, and JSON export of
// result lists to blob storage.
package annotations

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cynaps/labelstate/pkg/results"
)

var validate = validator.New()

// Kind distinguishes human annotations from model predictions.
type Kind string

const (
	KindAnnotation Kind = "annotation"
	KindPrediction Kind = "prediction"
)

// Annotation is a stored result list for one task of a project.
// ParentID links an annotation to the prediction it was copied from.
type Annotation struct {
	ID           uuid.UUID        `json:"id"`
	ProjectID    uuid.UUID        `json:"project_id"`
	ProjectTitle string           `json:"project_title"`
	TaskID       int64            `json:"task_id"`
	Kind         Kind             `json:"kind"`
	ParentID     *uuid.UUID       `json:"parent_id"`
	ItemCount    int              `json:"item_count"`
	Result       []results.Record `json:"result"`
	ModelVersion *string          `json:"model_version"`
	CompletedBy  *string          `json:"completed_by"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// DefaultOrigin returns the origin given to records loaded from a without one.
func (a *Annotation) DefaultOrigin() results.Origin {
	if a.Kind == KindPrediction {
		return results.OriginPrediction
	}
	return ""
}

// CreateCommand carries the data needed to register an annotation.
// Kind defaults to annotation when empty.
type CreateCommand struct {
	ProjectID    uuid.UUID        `json:"project_id" validate:"required"`
	TaskID       int64            `json:"task_id" validate:"gte=0"`
	Kind         Kind             `json:"kind" validate:"omitempty,oneof=annotation prediction"`
	ItemCount    int              `json:"item_count" validate:"gte=1"`
	Result       []results.Record `json:"result"`
	ModelVersion *string          `json:"model_version" validate:"omitempty,max=255"`
	CompletedBy  *string          `json:"completed_by" validate:"omitempty,max=255"`
}

// Validate checks the command fields.
func (c CreateCommand) Validate() error {
	return checkStruct(c)
}

// UpdateCommand replaces an annotation's result list. Nil fields keep their
// stored values.
type UpdateCommand struct {
	Result      []results.Record `json:"result"`
	ItemCount   *int             `json:"item_count" validate:"omitempty,gte=1"`
	CompletedBy *string          `json:"completed_by" validate:"omitempty,max=255"`
}

// Validate checks the command fields.
func (c UpdateCommand) Validate() error {
	return checkStruct(c)
}

// CopyCommand names who the copied annotation is attributed to.
type CopyCommand struct {
	CompletedBy *string `json:"completed_by" validate:"omitempty,max=255"`
}

// ExportResult lists the blob keys written by an export.
type ExportResult struct {
	Keys []string `json:"keys"`
}

// ExportKey returns the blob key an annotation's result list is exported to.
func ExportKey(projectID, id uuid.UUID) string {
	return fmt.Sprintf("annotations/%s/%s.json", projectID, id)
}

func checkStruct(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %q", ErrInvalidAnnotation, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %w", ErrInvalidAnnotation, err)
}

// withOrigin returns a copy of records with every origin set to origin.
func withOrigin(records []results.Record, origin results.Origin) []results.Record {
	out := make([]results.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
		out[i].Origin = string(origin)
	}
	return out
}
