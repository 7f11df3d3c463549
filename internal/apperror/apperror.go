// Package apperror defines the application's error taxonomy.
//
// Services return *AppError values wrapping one of the sentinels below.
// The HTTP layer matches the sentinel with errors.Is to pick a status code
// and sends AppError.Message to the client. Message is always safe to show;
// internal details (SQL text, file paths) stay in the wrapped chain and in logs.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage failure")

	// authentication failures. They are distinct for logging but all
	// surface as 401, see IsUnauthorized.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("expired token")
	ErrUnknownSubject     = errors.New("unknown subject")
)

type AppError struct {
	Err     error             // sentinel
	Message string            // Human-readable error message
	Field   string            // Optional: field causing the error
	Details map[string]string // Optional: per-field messages for validation errors
	Cause   error             // Optional: underlying error, never shown to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Invalid reports a set of field violations. Message is the first violation
// in field order so that clients showing one line still get something useful.
func Invalid(message string, details map[string]string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Details: details,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid email or password",
	}
}

func InvalidToken(cause error) *AppError {
	return &AppError{
		Err:     ErrInvalidToken,
		Message: "Invalid token. Please log in again.",
		Cause:   cause,
	}
}

func ExpiredToken() *AppError {
	return &AppError{
		Err:     ErrExpiredToken,
		Message: "Token expired. Please log in again.",
	}
}

func UnknownSubject() *AppError {
	return &AppError{
		Err:     ErrUnknownSubject,
		Message: "User no longer exists.",
	}
}

// Storage wraps a load or flush failure. The cause is kept for logs only.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: "An internal error occurred",
		Cause:   fmt.Errorf("%s: %w", op, cause),
	}
}

// IsUnauthorized reports whether err is any of the authentication failures.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrUnknownSubject)
}
