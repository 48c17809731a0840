// Package common defines shared constants, sentinel errors and small
// helpers used across client and server layers of EquipSense. Callers
// should use errors.Is to match sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound  = errors.New("not found")
	ErrorDuplicate = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Validation errors (bad or rejected input).
	ErrorValidation = errors.New("validation error")

	// Throttling errors (rate limits, resend cooldowns).
	ErrorTooManyRequests = errors.New("too many requests")

	// Dependency errors (feature not configured or upstream down).
	ErrorUnavailable = errors.New("unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// Error carries a user-facing message together with the sentinel kind it
// belongs to. errors.Is(e, kind) matches through Unwrap, so handlers can
// map the kind to a status code and still surface Message verbatim.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NewError builds an *Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// ValidationError reports per-field validation failures. The Fields map
// uses the request field name as key and one or more messages as value,
// which is the shape API clients expect in 400 responses.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string { return ErrorValidation.Error() }

func (e *ValidationError) Unwrap() error { return ErrorValidation }

// NewValidationError builds a ValidationError with a single field message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// Add appends a message for a field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no field messages were collected.
func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }
