// Package apperror defines the application's error taxonomy.
//
// Every error a user can see is an *AppError wrapping one of the sentinel
// errors below. Callers classify with errors.Is against the sentinel and read
// the human-readable Message for display. Anything that is NOT an *AppError
// is treated as an unexpected store/internal failure and shown generically.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPrecondition = errors.New("precondition failed")
	ErrPreprocess   = errors.New("preprocess failed")
	ErrUpstream     = errors.New("upstream failed")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: lower-level error kept for logging, never shown
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the optional cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateEmail is the signup failure for an already-registered email.
// The message matches what the user sees on the signup form and never
// echoes the address back.
func DuplicateEmail() *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: "User already exists",
		Field:   "email",
	}
}

// InvalidCredentials is returned for BOTH an unknown email and a wrong
// password. The two cases must stay indistinguishable to the caller.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "Invalid email or password",
	}
}

// Unauthenticated is returned when an action needs a logged-in session.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "Please log in to continue",
	}
}

// NoResumeLoaded is the precondition failure for an assessment requested
// before any résumé was uploaded or selected.
func NoResumeLoaded() *AppError {
	return &AppError{
		Err:     ErrPrecondition,
		Message: "Please upload or load a resume first.",
	}
}

// Preprocess wraps a document-preprocessing failure. kind is one of the
// preprocess package's sentinel errors and stays reachable through errors.Is.
func Preprocess(kind error, message string) *AppError {
	return &AppError{
		Err:     ErrPreprocess,
		Message: message,
		Cause:   kind,
	}
}

// Upstream wraps a failure of an external service (the inference API).
// cause is kept for logs only; the user sees message.
func Upstream(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
		Cause:   cause,
	}
}
