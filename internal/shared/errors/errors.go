package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates a referenced entity does not exist
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeInvalidState indicates the action violates a state invariant
	ErrorTypeInvalidState ErrorType = "invalid_state"
	// ErrorTypeInsufficientResource indicates not enough turns, credits or cargo space
	ErrorTypeInsufficientResource ErrorType = "insufficient_resource"
	// ErrorTypeUnreachable indicates no edge or path connects two sectors
	ErrorTypeUnreachable ErrorType = "unreachable"
	// ErrorTypeForbidden indicates the edge exists but this actor may not use it
	ErrorTypeForbidden ErrorType = "forbidden"
	// ErrorTypeUnavailable indicates storage retries were exhausted
	ErrorTypeUnavailable ErrorType = "unavailable"
	// ErrorTypeValidation indicates malformed input data
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeUnauthorized indicates authentication failure
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeMethodNotAllowed indicates an unsupported HTTP method
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"
)

// AppError is the base error type for application errors
type AppError struct {
	Type    ErrorType
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

func newf(t ErrorType, format string, args ...any) error {
	return &AppError{Type: t, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf creates a not found error with formatting
func NotFoundf(format string, args ...any) error {
	return newf(ErrorTypeNotFound, format, args...)
}

// InvalidStatef creates an invalid state error with formatting
func InvalidStatef(format string, args ...any) error {
	return newf(ErrorTypeInvalidState, format, args...)
}

// InsufficientResourcef creates an insufficient resource error with formatting
func InsufficientResourcef(format string, args ...any) error {
	return newf(ErrorTypeInsufficientResource, format, args...)
}

// WrapInsufficientResource wraps a typed error so callers can still inspect it
func WrapInsufficientResource(message string, err error) error {
	return &AppError{Type: ErrorTypeInsufficientResource, Message: message, Err: err}
}

// Unreachablef creates an unreachable error with formatting
func Unreachablef(format string, args ...any) error {
	return newf(ErrorTypeUnreachable, format, args...)
}

// Forbiddenf creates a forbidden error with formatting
func Forbiddenf(format string, args ...any) error {
	return newf(ErrorTypeForbidden, format, args...)
}

// WrapUnavailable wraps a storage error whose retries ran out
func WrapUnavailable(message string, err error) error {
	return &AppError{Type: ErrorTypeUnavailable, Message: message, Err: err}
}

// Validation creates a validation error
func Validation(message string) error {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// Validationf creates a validation error with formatting
func Validationf(format string, args ...any) error {
	return newf(ErrorTypeValidation, format, args...)
}

// WrapValidation wraps an error as a validation error
func WrapValidation(message string, err error) error {
	return &AppError{Type: ErrorTypeValidation, Message: message, Err: err}
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) error {
	return &AppError{Type: ErrorTypeUnauthorized, Message: message}
}

// MethodNotAllowed creates a method not allowed error
func MethodNotAllowed(method string) error {
	return &AppError{
		Type:    ErrorTypeMethodNotAllowed,
		Message: fmt.Sprintf("method %s not allowed", method),
	}
}

// GetType returns the error type of an error
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// Is reports whether err carries the given type anywhere in its chain
func Is(err error, t ErrorType) bool {
	return err != nil && GetType(err) == t
}
