package rules

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is matched by every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports operator input that was rejected before any state
// was mutated. Problems lists every violation found, not just the first.
type ValidationError struct {
	Problems []string
}

// NewValidationError builds a ValidationError from one or more problem descriptions.
func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

// Validationf builds a single-problem ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Problems, "; "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Problems collects validation failures and turns them into a single error.
type Problems []string

// Addf appends a formatted problem.
func (p *Problems) Addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Err returns nil when no problems were collected, otherwise a *ValidationError.
func (p Problems) Err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: append([]string(nil), p...)}
}

// DataIntegrityWarning describes persisted data that could not be used as-is
// and was degraded instead: an unknown condition id, a condition target the
// character lacks, or a malformed file that was skipped.
type DataIntegrityWarning struct {
	// Subject identifies the offending record, e.g. a file path or condition id.
	Subject string
	// Detail is a human readable description of the problem.
	Detail string
}

// Warnf builds a DataIntegrityWarning.
func Warnf(subject, format string, args ...any) *DataIntegrityWarning {
	return &DataIntegrityWarning{Subject: subject, Detail: fmt.Sprintf(format, args...)}
}

func (w *DataIntegrityWarning) Error() string {
	return fmt.Sprintf("data integrity: %s: %s", w.Subject, w.Detail)
}
