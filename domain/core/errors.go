package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrConvergence is matched by every *ConvergenceError.
	ErrConvergence = errors.New("fit did not converge")

	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// ValidationKind names the specific input problem behind a ValidationError
type ValidationKind string

const (
	KindNoMatchedGenes         ValidationKind = "no_matched_genes"
	KindInsufficientConditions ValidationKind = "insufficient_conditions"
	KindIdentifierMismatch     ValidationKind = "identifier_mismatch"
	KindDuplicateIdentifier    ValidationKind = "duplicate_identifier"
	KindShapeMismatch          ValidationKind = "shape_mismatch"
	KindInvalidOption          ValidationKind = "invalid_option"
	KindInsufficientNull       ValidationKind = "insufficient_null"
	KindMissingValues          ValidationKind = "missing_values"
)

// ValidationError reports bad or mismatched input. It is fatal to the call
// that returned it and is never retried.
type ValidationError struct {
	Kind  ValidationKind
	Cause string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Cause)
}

// Is lets errors.Is(err, ErrValidation) match any kind
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConvergenceError reports an iterative fit that exhausted its iteration or
// time budget, or whose normal equations could not be solved.
type ConvergenceError struct {
	Entity     string
	Iterations int
	Reason     string
}

func (e *ConvergenceError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("fit did not converge after %d iterations: %s", e.Iterations, e.Reason)
	}
	return fmt.Sprintf("fit for %s did not converge after %d iterations: %s", e.Entity, e.Iterations, e.Reason)
}

func (e *ConvergenceError) Is(target error) bool {
	return target == ErrConvergence
}

// Error constructors with context
func NewValidationError(kind ValidationKind, format string, args ...interface{}) error {
	return &ValidationError{Kind: kind, Cause: fmt.Sprintf(format, args...)}
}

func NewConvergenceError(entity string, iterations int, reason string) error {
	return &ConvergenceError{Entity: entity, Iterations: iterations, Reason: reason}
}

// Error checking helpers
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// ValidationKindOf returns the kind of the first ValidationError in err's chain
func ValidationKindOf(err error) (ValidationKind, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return "", false
}

func IsConvergenceError(err error) bool {
	return errors.Is(err, ErrConvergence)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
