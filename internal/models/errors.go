package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by AppError.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeConflict             = "CONFLICT"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeInternal             = "INTERNAL_ERROR"
)

// ErrNotAuthenticated is returned when a username/password pair does not match a user.
var ErrNotAuthenticated = errors.New("invalid credentials")

// AppError represents a custom application error.
type AppError struct {
	Code    string
	Message string
	// Fields holds per-field validation messages keyed by form field name.
	Fields map[string]string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewNotFoundError(resource string, id any) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewFieldValidationError builds a validation error from per-field messages.
func NewFieldValidationError(fields map[string]string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: "Please correct the errors below.",
		Fields:  fields,
	}
}

func NewConflictError(field, message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewAuthenticationFailedError(message string) *AppError {
	return &AppError{
		Code:    CodeAuthenticationFailed,
		Message: message,
		Err:     ErrNotAuthenticated,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// AsAppError extracts an AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries an AppError with the given code.
func IsCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// StatusFor maps an error to the HTTP status used to report it.
func StatusFor(err error) int {
	if errors.Is(err, ErrNotAuthenticated) {
		return http.StatusUnauthorized
	}
	appErr, ok := AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized, CodeAuthenticationFailed:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
