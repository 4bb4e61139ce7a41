package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ValidationError indicates the input was rejected before any write.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError indicates a referenced record does not exist within the
// caller's business.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string { return e.Message }

// ConflictError indicates a concurrent or overlapping claim on the same
// resource. It is always raised from the authoritative check, never from a
// stale read.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// TransientError wraps a failure that is safe to retry (timeouts,
// serialization failures).
type TransientError struct {
	Message string
	Err     error
}

func (e *TransientError) Error() string { return e.Message }
func (e *TransientError) Unwrap() error { return e.Err }

// InternalError wraps an unexpected storage failure.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string { return e.Message }
func (e *InternalError) Unwrap() error { return e.Err }

func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func NotFound(resource, format string, args ...any) error {
	return &NotFoundError{Resource: resource, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func Transient(err error, format string, args ...any) error {
	return &TransientError{Message: fmt.Sprintf(format, args...), Err: err}
}

func Internal(err error, format string, args ...any) error {
	return &InternalError{Message: fmt.Sprintf(format, args...), Err: err}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsTransient(err error) bool {
	var e *TransientError
	return errors.As(err, &e)
}

// HTTPStatus maps an error to the status code the outer API layer should use.
func HTTPStatus(err error) int {
	switch {
	case IsValidation(err):
		return 400
	case IsNotFound(err):
		return 404
	case IsConflict(err):
		return 409
	case IsTransient(err):
		return 503
	default:
		return 500
	}
}

// FromDB classifies a storage error. Timeouts and serialization failures are
// retryable; anything else unexpected becomes an InternalError.
func FromDB(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient(err, "%s timed out", op)
	}
	msg := err.Error()
	// SQLSTATE 40001 = serialization_failure, 40P01 = deadlock_detected,
	// 57014 = query_canceled (statement timeout).
	if strings.Contains(msg, "SQLSTATE 40") || strings.Contains(msg, "SQLSTATE 57014") ||
		strings.Contains(msg, "database is locked") {
		return Transient(err, "%s hit a transient storage failure", op)
	}
	return Internal(err, "%s failed", op)
}
