package domain

import (
	"errors"
	"strings"
)

var (
	ErrLeadNotFound       = errors.New("lead not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTransition  = errors.New("invalid status transition")

	ErrRegistrationDisabled = errors.New("registration is disabled")
)

// FieldViolation is a single field-level validation failure
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in one input
type ValidationError struct {
	Message string
	Details []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Field+": "+d.Message)
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

// NewValidationError wraps violations in a ValidationError
func NewValidationError(message string, details []FieldViolation) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}

// IsValidationError reports whether err is, or wraps, a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
