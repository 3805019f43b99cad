package domainerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a typed domain failure carrying a stable code and an HTTP hint so
// the transport layer can map it mechanically.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so sentinel comparisons survive message overrides.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches a cause to a new typed error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Domain failure kinds. Every rule violation the services can produce maps to
// exactly one of these.
var (
	ErrValidation             = New("VALIDATION_ERROR", http.StatusUnprocessableEntity, "validation failed")
	ErrInvalidStateTransition = New("INVALID_STATE_TRANSITION", http.StatusConflict, "invalid submission state transition")
	ErrDeadlinePassed         = New("DEADLINE_PASSED", http.StatusUnprocessableEntity, "the deadline for this assignment has passed")
	ErrMaxAttemptsReached     = New("MAX_ATTEMPTS_REACHED", http.StatusUnprocessableEntity, "maximum number of attempts reached")
	ErrCooldownActive         = New("COOLDOWN_ACTIVE", http.StatusUnprocessableEntity, "cooldown period has not elapsed")
	ErrRetakeNotAllowed       = New("RETAKE_NOT_ALLOWED", http.StatusUnprocessableEntity, "re-take is not enabled for this assignment")
	ErrCircularDependency     = New("CIRCULAR_DEPENDENCY", http.StatusUnprocessableEntity, "prerequisite would create a circular dependency")
	ErrNotFound               = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden              = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrAlreadyGraded          = New("ALREADY_GRADED", http.StatusConflict, "submission has already been graded")
	ErrStorageUnavailable     = New("STORAGE_UNAVAILABLE", http.StatusServiceUnavailable, "storage temporarily unavailable")
)

// Validation builds a VALIDATION_ERROR with a specific message.
func Validation(message string) *Error {
	return New(ErrValidation.Code, ErrValidation.Status, message)
}

// Validationf builds a VALIDATION_ERROR with a formatted message.
func Validationf(format string, args ...interface{}) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// NotFound builds a NOT_FOUND error naming the missing resource.
func NotFound(resource string) *Error {
	return New(ErrNotFound.Code, ErrNotFound.Status, fmt.Sprintf("%s not found", resource))
}

// Forbidden builds a FORBIDDEN error with a specific message.
func Forbidden(message string) *Error {
	return New(ErrForbidden.Code, ErrForbidden.Status, message)
}

// InvalidTransition builds an INVALID_STATE_TRANSITION error naming both states.
func InvalidTransition(from, to string) *Error {
	return New(ErrInvalidStateTransition.Code, ErrInvalidStateTransition.Status,
		fmt.Sprintf("invalid state transition from %s to %s", from, to))
}

// Storage wraps an infrastructure failure as STORAGE_UNAVAILABLE.
func Storage(err error) *Error {
	return Wrap(err, ErrStorageUnavailable.Code, ErrStorageUnavailable.Status, ErrStorageUnavailable.Message)
}

// FromError normalises any error into an *Error. Unknown errors become
// STORAGE_UNAVAILABLE so infra failures never leak raw driver messages.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Storage(err)
}
