package crm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperengineering/crm/internal/pipeline"
	"github.com/hyperengineering/crm/internal/validation"
)

// ErrUnsupportedMedia is returned when an uploaded logo is not an image type
// the branding profile accepts.
var ErrUnsupportedMedia = errors.New("unsupported logo media type")

// ValidationError reports rejected input, one entry per offending field.
type ValidationError struct {
	Errors []validation.ValidationError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + " " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(errs []validation.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

func fieldError(field, message string) error {
	return &ValidationError{Errors: []validation.ValidationError{{Field: field, Message: message}}}
}

// ruleError translates a reconciliation rule failure into a caller-facing error.
func ruleError(err error) error {
	switch {
	case errors.Is(err, pipeline.ErrSiteTypeRequired):
		return fieldError("site_type_id", "is required when status is closed")
	case errors.Is(err, pipeline.ErrInconsistent):
		return fmt.Errorf("reconcile client: %w", err)
	}
	return err
}
