// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown            = "UNKNOWN_ERROR"
	CodeInvalidInterval    = "INVALID_INTERVAL"
	CodeParentMismatch     = "PARENT_MISMATCH"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeCancelled          = "CANCELLED"
	CodeIncompleteCoverage = "INCOMPLETE_COVERAGE"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeConfigError        = "CONFIG_ERROR"
	CodeStorageError       = "STORAGE_ERROR"
	CodeExportError        = "EXPORT_ERROR"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrInvalidInterval    = New(CodeInvalidInterval, "invalid interval")
	ErrParentMismatch     = New(CodeParentMismatch, "parent mismatch")
	ErrStoreUnavailable   = New(CodeStoreUnavailable, "interval store unavailable")
	ErrCancelled          = New(CodeCancelled, "operation cancelled")
	ErrIncompleteCoverage = New(CodeIncompleteCoverage, "incomplete coverage")
	ErrInvalidInput       = New(CodeInvalidInput, "invalid input")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConfigError        = New(CodeConfigError, "configuration error")
	ErrStorageError       = New(CodeStorageError, "storage error")
	ErrExportError        = New(CodeExportError, "export error")
)

// IsInvalidInterval checks if the error is an invalid interval error.
func IsInvalidInterval(err error) bool {
	return errors.Is(err, ErrInvalidInterval)
}

// IsParentMismatch checks if the error is a parent mismatch error.
func IsParentMismatch(err error) bool {
	return errors.Is(err, ErrParentMismatch)
}

// IsStoreUnavailable checks if the error is a store failure.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsCancelled checks if the error is a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsIncompleteCoverage checks if the error is an incomplete coverage error.
func IsIncompleteCoverage(err error) bool {
	return errors.Is(err, ErrIncompleteCoverage)
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
