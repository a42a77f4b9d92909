// Package services defines the business logic for the message query layer and
// the reference catalogs. This file centralizes service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// Every concrete error wraps exactly one kind, ErrValidation or ErrNotFound,
// so callers can tell "your input was invalid" apart from "that record no
// longer exists" with errors.Is. Translation into HTTP status codes is done
// in the handler layer.
package services

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrValidation marks caller-supplied data that fails a documented rule.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to a record that does not exist.
	ErrNotFound = errors.New("not found")
)

// Concrete errors.
var (
	// ErrMessageNotFound indicates that no message has the requested id.
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)

	// ErrEventDefinitionNotFound indicates an unknown event definition id.
	ErrEventDefinitionNotFound = fmt.Errorf("event definition %w", ErrNotFound)

	// ErrErrorDefinitionNotFound indicates an unknown error definition id.
	ErrErrorDefinitionNotFound = fmt.Errorf("error definition %w", ErrNotFound)

	// ErrStepNotFound indicates a step id that is not part of the definition.
	ErrStepNotFound = fmt.Errorf("solution step %w", ErrNotFound)

	// ErrDuplicateCode is returned when an event code is already used by
	// another definition.
	ErrDuplicateCode = fmt.Errorf("event code already exists: %w", ErrValidation)
)

// ValidationError describes which field failed and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// Is makes errors.Is(err, ErrValidation) true for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
