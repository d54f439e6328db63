package core

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeNotRunning            = "NOT_RUNNING"
	ErrCodeBackendUnavailable    = "BACKEND_UNAVAILABLE"
	ErrCodeDuplicateName         = "DUPLICATE_NAME"
	ErrCodeToolExecutionFailed   = "TOOL_EXECUTION_FAILED"
	ErrCodeNonSerializableResult = "NON_SERIALIZABLE_RESULT"
	ErrCodeInvalidDefinition     = "INVALID_DEFINITION"
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeConfigLoadFailed      = "CONFIG_LOAD_FAILED"
	ErrCodeInvalidConfig         = "INVALID_CONFIG"
)

// AppError carries an error code, a human readable message and an optional cause.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError with the same code, so errors.Is(err, ErrNotFound)
// works for every not-found error regardless of message.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Detail returns the message with the cause appended, without the code prefix.
func (e *AppError) Detail() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Sentinels for errors.Is matching.
var (
	ErrNotFound              = &AppError{Code: ErrCodeNotFound, Message: "not found"}
	ErrNotRunning            = &AppError{Code: ErrCodeNotRunning, Message: "not running"}
	ErrBackendUnavailable    = &AppError{Code: ErrCodeBackendUnavailable, Message: "backend unavailable"}
	ErrDuplicateName         = &AppError{Code: ErrCodeDuplicateName, Message: "duplicate name"}
	ErrToolExecutionFailed   = &AppError{Code: ErrCodeToolExecutionFailed, Message: "tool execution failed"}
	ErrNonSerializableResult = &AppError{Code: ErrCodeNonSerializableResult, Message: "non-serializable result"}
	ErrInvalidDefinition     = &AppError{Code: ErrCodeInvalidDefinition, Message: "invalid definition"}
	ErrInvalidTransition     = &AppError{Code: ErrCodeInvalidTransition, Message: "invalid transition"}
)

// NewAppError creates an application error.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorf creates an application error with a formatted message.
func NewAppErrorf(code string, cause error, format string, args ...any) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// ErrorCode returns the code of the first AppError in err's chain, or "".
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ErrorDetail returns a message suitable for a {detail} response body.
func ErrorDetail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Detail()
	}
	return err.Error()
}

// ErrConfigLoadFailed reports a configuration source that could not be read.
func ErrConfigLoadFailed(configType string, cause error) *AppError {
	return NewAppErrorf(ErrCodeConfigLoadFailed, cause, "failed to load %s configuration", configType)
}

// ErrInvalidConfig reports an invalid configuration value.
func ErrInvalidConfig(field string, reason string) *AppError {
	return NewAppErrorf(ErrCodeInvalidConfig, nil, "invalid configuration for %s: %s", field, reason)
}
