package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL_ERROR"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeDuplicateUsername  = "DUPLICATE_USERNAME"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInitializing       = "SESSION_INITIALIZING"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
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

// Is matches any AppError carrying the same code, so callers can use
// errors.Is against the sentinel values below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinel conditions surfaced to callers.
var (
	ErrDuplicateEmail      = &AppError{Code: CodeDuplicateEmail, Message: "Email already registered"}
	ErrDuplicateUsername   = &AppError{Code: CodeDuplicateUsername, Message: "Username already taken"}
	ErrInvalidCredentials  = &AppError{Code: CodeInvalidCredentials, Message: "Invalid email or password"}
	ErrUnauthenticated     = &AppError{Code: CodeUnauthorized, Message: "Not signed in"}
	ErrForbidden           = &AppError{Code: CodeForbidden, Message: "Actor does not match the signed-in user"}
	ErrSessionInitializing = &AppError{Code: CodeInitializing, Message: "Session is still loading"}
)

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
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

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal error",
		Err:     err,
	}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeValidation
}
