// Package apperr defines the error taxonomy returned by the booking engine.
// Every business outcome is a value wrapping one of the sentinels below, so
// callers branch with errors.Is and pull details out with errors.As.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrConflict            = errors.New("version conflict")
	ErrAlreadyDecided      = errors.New("plan already decided")
	ErrPartialBinding      = errors.New("partial binding failure")
	ErrPartialRelease      = errors.New("partial release failure")

	// ErrInvariantViolation marks corrupted stored state, such as a
	// counterpart id that points at nothing. It is never patched silently.
	ErrInvariantViolation = errors.New("invariant violation")
)

// NotFound returns an ErrNotFound for the given entity and id.
func NotFound(entity, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, entity, id)
}

// Validation returns an ErrValidation with a message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Denied returns an ErrPermissionDenied explaining the missing capability.
func Denied(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, fmt.Sprintf(format, args...))
}

// Unavailable returns an ErrResourceUnavailable for a resource in the given status.
func Unavailable(id string, status any) error {
	return fmt.Errorf("%w: resource %q is %v", ErrResourceUnavailable, id, status)
}

// AlreadyDecided returns an ErrAlreadyDecided for a plan that left pending.
func AlreadyDecided(planID string, status any) error {
	return fmt.Errorf("%w: plan %q is already %v", ErrAlreadyDecided, planID, status)
}

// Invariant returns an ErrInvariantViolation.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// ConflictError reports an optimistic lock miss: the caller loaded the
// resource at Expected but it is now at Actual. The caller should reload and
// retry.
type ConflictError struct {
	ResourceID string
	Expected   int64
	Actual     int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on resource %q: expected v%d, current v%d; reload and retry",
		e.ResourceID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// PartialFailureError reports a two-resource command that changed one side
// only. Succeeded names the resource whose write went through and the
// version it now carries, so the caller can target a compensating call.
type PartialFailureError struct {
	Op               string
	Succeeded        string
	SucceededVersion int64
	Failed           string
	Cause            error
	sentinel         error
}

// PartialBinding wraps the failure of the counterpart step of a bound booking.
func PartialBinding(succeeded string, version int64, failed string, cause error) *PartialFailureError {
	return &PartialFailureError{
		Op:               "book",
		Succeeded:        succeeded,
		SucceededVersion: version,
		Failed:           failed,
		Cause:            cause,
		sentinel:         ErrPartialBinding,
	}
}

// PartialRelease wraps the failure of the cascaded counterpart release.
func PartialRelease(succeeded string, version int64, failed string, cause error) *PartialFailureError {
	return &PartialFailureError{
		Op:               "release",
		Succeeded:        succeeded,
		SucceededVersion: version,
		Failed:           failed,
		Cause:            cause,
		sentinel:         ErrPartialRelease,
	}
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%v: %s succeeded on %q (now v%d) but failed on %q: %v",
		e.sentinel, e.Op, e.Succeeded, e.SucceededVersion, e.Failed, e.Cause)
}

// Unwrap exposes both the partial-failure sentinel and the underlying cause.
func (e *PartialFailureError) Unwrap() []error {
	return []error{e.sentinel, e.Cause}
}
