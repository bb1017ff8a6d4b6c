// Package errors provides error code definitions for the poscore engine.
package errors

import "fmt"

// ErrorCode identifies a machine-checkable failure kind. Every public
// failure of the engine carries one, alongside a short human-readable
// message.
type ErrorCode string

const (
	// General errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrInvalid  ErrorCode = "INVALID_INPUT"

	// Data layer errors
	ErrValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrNotFound             ErrorCode = "NOT_FOUND"
	ErrStorageUnavailable   ErrorCode = "STORAGE_UNAVAILABLE"
	ErrInitializationFailed ErrorCode = "INITIALIZATION_FAILED"

	// Sync errors
	ErrQueueFull       ErrorCode = "QUEUE_FULL"
	ErrPeerUnavailable ErrorCode = "PEER_UNAVAILABLE"
	ErrSyncFailed      ErrorCode = "SYNC_FAILED"

	// Conflict errors
	ErrConflictNotFound ErrorCode = "CONFLICT_NOT_FOUND"
	ErrConflictResolved ErrorCode = "CONFLICT_ALREADY_RESOLVED"

	// Transaction log errors
	ErrTransactionNotFound ErrorCode = "TRANSACTION_NOT_FOUND"

	// Export/import errors
	ErrExportFailed ErrorCode = "EXPORT_FAILED"
	ErrImportFailed ErrorCode = "IMPORT_FAILED"
)

// AppError represents an engine error with code and message.
type AppError struct {
	Code    ErrorCode
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

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error is of a specific code. Wrapped AppErrors are
// matched on the outermost code only.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the error's code, or ErrInternal for non-AppErrors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrInternal
}
