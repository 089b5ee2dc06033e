package model

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInvalidID         = errors.New("invalid identifier")
	ErrStoreFailure      = errors.New("store operation failed")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrUserGone          = errors.New("user no longer exists")
	ErrPasswordChanged   = errors.New("password changed after token was issued")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidPatch      = errors.New("invalid patch")
	ErrUnknownQueryField = errors.New("unknown query field")
)

type (
	ValidationError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}

	ValidationErrors struct {
		Errors []ValidationError `json:"errors"`
	}

	// InvalidIDError reports a path value that is not a valid document id.
	InvalidIDError struct {
		Path  string
		Value string
	}

	// DuplicateKeyError reports a unique index violation.
	DuplicateKeyError struct {
		Value string
		Cause error
	}

	// AppError is an operational error that is safe to show to clients.
	AppError struct {
		StatusCode int
		Message    string
		cause      error
	}
)

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]ValidationError, 0)}
}

func (v *ValidationErrors) Add(field, message, code string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message, Code: code})
}

func (v *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}

	v.Errors = append(v.Errors, other.Errors...)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// OrNil returns v as an error only when it holds at least one entry.
func (v *ValidationErrors) OrNil() error {
	if !v.HasErrors() {
		return nil
	}

	return v
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		messages = append(messages, e.Message)
	}

	return strings.Join(messages, ". ")
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("Invalid %s: %s", e.Path, e.Value)
}

func (e *InvalidIDError) Is(target error) bool {
	return target == ErrInvalidID
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("Duplicate field value: %s. Please use another value!", e.Value)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Cause
}

func NewAppError(statusCode int, message string) *AppError {
	return &AppError{StatusCode: statusCode, Message: message}
}

// WrapAppError attaches a client facing status and message to cause.
func WrapAppError(cause error, statusCode int, message string) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, cause: cause}
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Status is "fail" for client errors and "error" for server errors.
func (e *AppError) Status() string {
	if e.StatusCode >= http.StatusInternalServerError {
		return "error"
	}

	return "fail"
}
