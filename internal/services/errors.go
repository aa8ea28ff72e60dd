package services

import (
	"errors"
	"fmt"
)

// Error kinds returned by lifecycle operations. Handlers map these to HTTP
// statuses with errors.Is; everything else is treated as an internal error.
var (
	// ErrNotFound means the shift, site or guard does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the acting guard is not assigned to the shift
	ErrForbidden = errors.New("forbidden")

	// ErrConflict means the shift is in the wrong state for the operation,
	// or a store-level uniqueness guarantee rejected the transition
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput means the request payload is missing required data
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransient means a store or transport failure that is safe to retry
	ErrTransient = errors.New("transient failure")
)

// ErrGuardHasActiveShift is the specific conflict raised when a check-in would
// give a guard a second simultaneous active shift. The store surfaces it from
// the partial unique index on shifts(guard_id) WHERE status = 'active'.
var ErrGuardHasActiveShift = fmt.Errorf("%w: guard already has an active shift", ErrConflict)

// IsRetryable reports whether an error should be retried
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
