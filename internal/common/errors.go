package common

import (
	"errors"
	"net/http"
)

// Canonical error codes surfaced by the API.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeExternalService   = "EXTERNAL_SERVICE_ERROR"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeInternal          = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ValidationError builds a 422 validation failure.
func ValidationError(message string, err error) *AppError {
	return NewAppError(CodeValidation, message, http.StatusUnprocessableEntity, err)
}

// NotFoundError builds a 404 missing-resource failure.
func NotFoundError(message string, err error) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, err)
}

// ConflictError builds a 409 state-conflict failure.
func ConflictError(message string, err error) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict, err)
}

// InvalidTransitionError builds a 409 for illegal status transitions.
func InvalidTransitionError(message string, err error) *AppError {
	return NewAppError(CodeInvalidTransition, message, http.StatusConflict, err)
}

// ExternalServiceError builds a 502 for upstream collaborator failures.
func ExternalServiceError(message string, err error) *AppError {
	return NewAppError(CodeExternalService, message, http.StatusBadGateway, err)
}

// AsAppError extracts the AppError from a wrapped chain, defaulting to a 500.
func AsAppError(err error) *AppError {
	var target *AppError
	if errors.As(err, &target) {
		return target
	}
	return NewAppError(CodeInternal, "internal error", http.StatusInternalServerError, err)
}
