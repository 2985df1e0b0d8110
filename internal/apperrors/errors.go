// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors.
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation_error"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeProcessing     ErrorType = "processing_error"
	ErrorTypeDataSource     ErrorType = "data_source_error"
	ErrorTypeResponseFormat ErrorType = "response_format_error"
	ErrorTypeUnauthorized   ErrorType = "unauthorized"
)

// AppError carries a typed failure across layers so the HTTP boundary can
// map it to a distinct user-facing error instead of a generic 500.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
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

// NewAppError creates a typed application error wrapping an optional cause.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     cause,
		Code:    errorCode(errType),
	}
}

// NewValidationError reports invalid caller input.
func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeValidation, message, cause)
}

// NewDataSourceError reports an unreadable or unparseable catalog source.
// Fatal to any catalog-dependent operation; never retried internally.
func NewDataSourceError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeDataSource, message, cause)
}

// NewResponseFormatError reports a model response with missing or
// non-parseable content. Surfaced to the caller; never retried internally.
func NewResponseFormatError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeResponseFormat, message, cause)
}

// NewProcessingError reports a generic internal failure.
func NewProcessingError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeProcessing, message, cause)
}

// NewUnauthorizedError reports a missing or invalid admin credential.
func NewUnauthorizedError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeUnauthorized, message, cause)
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

func IsValidationError(err error) bool     { return isType(err, ErrorTypeValidation) }
func IsDataSourceError(err error) bool     { return isType(err, ErrorTypeDataSource) }
func IsResponseFormatError(err error) bool { return isType(err, ErrorTypeResponseFormat) }
func IsUnauthorizedError(err error) bool   { return isType(err, ErrorTypeUnauthorized) }

func errorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeDataSource:
		return "DATA_SOURCE_ERROR"
	case ErrorTypeResponseFormat:
		return "LLM_RESPONSE_ERROR"
	case ErrorTypeUnauthorized:
		return "UNAUTHORIZED"
	case ErrorTypeProcessing:
		return "PROCESSING_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError wraps err with message, preserving the type of an existing
// AppError in the chain.
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr,
			Code:    appErr.Code,
		}
	}

	return NewAppError(errType, message, err)
}
