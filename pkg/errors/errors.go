package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
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

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned values compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrTooManyRequests    = New("TOO_MANY_REQUESTS", http.StatusTooManyRequests, "rate limit exceeded")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Booking and availability refusals.
var (
	ErrTestNotFound        = New("TEST_NOT_FOUND", http.StatusNotFound, "test not found")
	ErrNotScheduledThisDay = New("NOT_SCHEDULED_THIS_DAY", http.StatusConflict, "test is not scheduled on this day")
	ErrClosedThisDay       = New("CLOSED_THIS_DAY", http.StatusConflict, "test is closed on this day")
	ErrInvalidWindow       = New("INVALID_WINDOW", http.StatusBadRequest, "window does not belong to this test schedule")
	ErrLabClosed           = New("LAB_CLOSED", http.StatusConflict, "lab is closed on this date")
	ErrTestClosed          = New("TEST_CLOSED", http.StatusConflict, "test is unavailable on this date")
	ErrDoctorNotFound      = New("DOCTOR_NOT_FOUND", http.StatusConflict, "no doctor assigned to this test")
	ErrDoctorUnavailable   = New("DOCTOR_UNAVAILABLE", http.StatusConflict, "doctor is unavailable on this date")
	ErrSlotFull            = New("SLOT_FULL", http.StatusConflict, "no seats left in this window")
	ErrConfiguration       = New("CONFIGURATION_ERROR", http.StatusUnprocessableEntity, "schedule is not configured for window generation")
	ErrSessionExpired      = New("SESSION_EXPIRED", http.StatusNotFound, "booking session not found or expired")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
