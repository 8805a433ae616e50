package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUserExists             = errors.New("user already exists")
	ErrUserNotFound           = errors.New("user not found")
	ErrNoOtpFound             = errors.New("no OTP found for this email")
	ErrInvalidOtp             = errors.New("invalid OTP")
	ErrOtpExpired             = errors.New("OTP expired")
	ErrNoPasswordSet          = errors.New("password not set for this account")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailInUse             = errors.New("email is already in use")
	ErrInvalidRefreshToken    = errors.New("invalid or expired refresh token")
	ErrFederatedEmailConflict = errors.New("an account with this email exists and the provider did not verify it")
	ErrIncompleteIdentity     = errors.New("federated identity is missing required fields")
)

// ValidationError reports input rejected by a business rule, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInvalidCredential Kind = "invalid_credential"
	KindAuthorization     Kind = "authorization"
	KindDependency        Kind = "dependency"
)

// KindOf classifies err. Anything unrecognised is a dependency failure.
func KindOf(err error) Kind {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		return KindValidation
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNoOtpFound):
		return KindNotFound
	case errors.Is(err, ErrUserExists), errors.Is(err, ErrEmailInUse), errors.Is(err, ErrFederatedEmailConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidOtp), errors.Is(err, ErrOtpExpired),
		errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrNoPasswordSet):
		return KindInvalidCredential
	case errors.Is(err, ErrInvalidRefreshToken), errors.Is(err, ErrIncompleteIdentity):
		return KindAuthorization
	default:
		return KindDependency
	}
}
