package domain

import (
	"errors"
	"strings"
)

var (
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailInUse         = errors.New("email is already in use")
	ErrRoleNotFound       = errors.New("role is not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("bad credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthenticated    = errors.New("full authentication is required")
	ErrForbidden          = errors.New("access is denied")
	ErrTooManyAttempts    = errors.New("too many failed sign-in attempts")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is the structured result of boundary input validation.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError returns a ValidationError with a single field problem.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add records another field problem.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any field was rejected.
func (e *ValidationError) HasErrors() bool { return e != nil && len(e.Fields) > 0 }

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}
