// Package errors provides the typed application errors surfaced by the
// storefront client: credential failures, session invalidation, transport
// and navigation problems.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeCredential     ErrorType = "credential_error"
	ErrorTypeSessionInvalid ErrorType = "session_invalid"
	ErrorTypeTransport      ErrorType = "transport_error"
	ErrorTypeNavigation     ErrorType = "navigation_error"
	ErrorTypeValidation     ErrorType = "validation_error"
	ErrorTypeNotConnected   ErrorType = "not_connected"
	ErrorTypeInternal       ErrorType = "internal_error"
)

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error so errors.Is/As can reach it.
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func newError(t ErrorType, code int, message string, details []string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{Type: t, Message: message, Code: code, Details: detail}
}

// NewCredentialError wraps a rejected login or registration. Message is the
// server-provided text, surfaced verbatim.
func NewCredentialError(message string, details ...string) *AppError {
	return newError(ErrorTypeCredential, http.StatusUnauthorized, message, details)
}

func NewSessionInvalidError(message string, details ...string) *AppError {
	return newError(ErrorTypeSessionInvalid, http.StatusUnauthorized, message, details)
}

func NewTransportError(message string, details ...string) *AppError {
	return newError(ErrorTypeTransport, http.StatusBadGateway, message, details)
}

func NewNavigationError(message string, details ...string) *AppError {
	return newError(ErrorTypeNavigation, 0, message, details)
}

func NewValidationError(message string, details ...string) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, details)
}

func NewNotConnectedError(message string, details ...string) *AppError {
	return newError(ErrorTypeNotConnected, http.StatusServiceUnavailable, message, details)
}

func NewInternalError(message string, details ...string) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, details)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

func IsCredentialError(err error) bool     { return isType(err, ErrorTypeCredential) }
func IsSessionInvalidError(err error) bool { return isType(err, ErrorTypeSessionInvalid) }
func IsValidationError(err error) bool     { return isType(err, ErrorTypeValidation) }
func IsNavigationError(err error) bool     { return isType(err, ErrorTypeNavigation) }
