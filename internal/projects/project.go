// Package projects implements the project domain: a project names a labeling
// configuration and stores the classification controls it declares, which
// annotation sessions use to bind result records.
package projects

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cynaps/labelstate/pkg/results"
)

var validate = validator.New()

// Project is a labeling configuration with its declared controls.
type Project struct {
	ID        uuid.UUID          `json:"id"`
	Title     string             `json:"title"`
	Controls  results.ControlSet `json:"controls"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Schema returns the project's controls as a binding schema.
func (p *Project) Schema() results.Schema {
	return p.Controls
}

// CreateCommand carries the data needed to register a project.
type CreateCommand struct {
	Title    string            `json:"title" validate:"required,max=255"`
	Controls []results.Control `json:"controls" validate:"unique=Name,dive"`
}

// Validate checks the command fields and the control declarations.
func (c CreateCommand) Validate() error {
	return checkStruct(c)
}

// UpdateCommand replaces a project's title and controls.
type UpdateCommand struct {
	Title    string            `json:"title" validate:"required,max=255"`
	Controls []results.Control `json:"controls" validate:"unique=Name,dive"`
}

// Validate checks the command fields and the control declarations.
func (c UpdateCommand) Validate() error {
	return checkStruct(c)
}

// checkStruct maps validator failures to ErrInvalidControls when a control
// declaration is at fault and ErrInvalidProject otherwise.
func checkStruct(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if strings.Contains(fe.Namespace(), "Controls") {
				return fmt.Errorf("%w: %s failed %q", ErrInvalidControls, fe.Namespace(), fe.Tag())
			}
		}
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %q", ErrInvalidProject, fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%w: %w", ErrInvalidProject, err)
}

func controlsOrEmpty(controls []results.Control) results.ControlSet {
	if controls == nil {
		return results.ControlSet{}
	}
	return controls
}
