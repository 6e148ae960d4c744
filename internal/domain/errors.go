package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity cannot be located.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own the targeted entity.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation is the root of all input validation failures.
	ErrValidation = errors.New("invalid input")
	// ErrConflict is the root of all state conflict failures.
	ErrConflict = errors.New("conflict")

	// ErrDuplicateTitle is returned when an owner already holds a definition with the same title.
	ErrDuplicateTitle = fmt.Errorf("%w: exercise title already in use", ErrConflict)
	// ErrSelfCopy is returned when a user copies a definition they already own.
	ErrSelfCopy = fmt.Errorf("%w: cannot copy an own exercise", ErrConflict)
	// ErrSelfFollow is returned when a user follows or unfollows themselves.
	ErrSelfFollow = fmt.Errorf("%w: cannot follow yourself", ErrConflict)
	// ErrDefinitionInUse is returned when deleting a definition still referenced by a workout.
	ErrDefinitionInUse = fmt.Errorf("%w: exercise is referenced by a workout", ErrConflict)

	// ErrEmptyBody is returned when a message is sent with a blank body.
	ErrEmptyBody = fmt.Errorf("%w: message body is required", ErrValidation)
)

// Invalidf builds a validation error with a caller-facing detail message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// WorkoutValidationError pins a workout validation failure to the offending
// exercise and set position. Positions are 1-based; zero means the failure is
// not tied to that level.
type WorkoutValidationError struct {
	Exercise int
	Set      int
	Detail   string
}

func (e *WorkoutValidationError) Error() string {
	switch {
	case e.Exercise > 0 && e.Set > 0:
		return fmt.Sprintf("invalid input: exercise %d, set %d: %s", e.Exercise, e.Set, e.Detail)
	case e.Exercise > 0:
		return fmt.Sprintf("invalid input: exercise %d: %s", e.Exercise, e.Detail)
	default:
		return fmt.Sprintf("invalid input: %s", e.Detail)
	}
}

func (e *WorkoutValidationError) Unwrap() error {
	return ErrValidation
}
