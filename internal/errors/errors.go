package errors

import (
	stderrors "errors"
	"fmt"

	"sensorgrid/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. The code of a wrapped AppError is kept;
// otherwise it is derived from the domain sentinel the error carries.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    codeFor(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeMalformedInput   = "MALFORMED_INPUT"
	CodeUnresolvedSensor = "UNRESOLVED_SENSOR"
	CodeEmptyAggregate   = "EMPTY_AGGREGATE"
	CodeNotFound         = "NOT_FOUND"
	CodeSinkError        = "SINK_ERROR"
	CodeInternalError    = "INTERNAL_ERROR"
)

func codeFor(err error) string {
	switch {
	case stderrors.Is(err, core.ErrConfiguration):
		return CodeConfigInvalid
	case stderrors.Is(err, core.ErrMalformedInput):
		return CodeMalformedInput
	case stderrors.Is(err, core.ErrUnresolvedSensor):
		return CodeUnresolvedSensor
	case stderrors.Is(err, core.ErrEmptyAggregate):
		return CodeEmptyAggregate
	case stderrors.Is(err, core.ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternalError
	}
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return &AppError{
		Code:    CodeConfigInvalid,
		Message: message,
		Cause:   core.ErrConfiguration,
	}
}

func MalformedInput(partition core.PartitionID, cause error) *AppError {
	return &AppError{
		Code:    CodeMalformedInput,
		Message: fmt.Sprintf("partition %s is malformed", partition),
		Cause:   cause,
	}
}

func SinkError(sink string, cause error) *AppError {
	return &AppError{
		Code:    CodeSinkError,
		Message: fmt.Sprintf("%s sink failed", sink),
		Cause:   cause,
	}
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
