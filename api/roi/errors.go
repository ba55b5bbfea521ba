package roi

import (
	"errors"
	"fmt"
)

// ValidationError is a local input problem detected before any remote call:
// missing selection, malformed coordinates, degenerate polygon.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Invalidf builds a ValidationError with a formatted reason.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedShapeError reports a drawn shape kind the normalizer cannot
// turn into a region. It unwraps to a ValidationError.
type UnsupportedShapeError struct {
	Shape string
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("unsupported shape kind %q", e.Shape)
}

func (e *UnsupportedShapeError) Unwrap() error {
	return &ValidationError{Reason: e.Error()}
}

// IsValidation reports whether err (or anything it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
