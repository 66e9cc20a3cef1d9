package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies every error the vault core surfaces to callers.
type ErrorCode string

const (
	CodeNotFound           ErrorCode = "not_found"
	CodePermissionDenied   ErrorCode = "permission_denied"
	CodeInvalidArgument    ErrorCode = "invalid_argument"
	CodeFailedPrecondition ErrorCode = "failed_precondition"
	CodeResourceExhausted  ErrorCode = "resource_exhausted"
	CodeAlreadyExists      ErrorCode = "already_exists"
	CodeInternal           ErrorCode = "internal"
)

// AppError is the typed error every service returns. Validation and
// access-control failures are raised immediately and never retried; only
// storage transients are retried before surfacing as CodeInternal.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NotFoundf(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func PermissionDeniedf(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodePermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgumentf(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func FailedPreconditionf(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeFailedPrecondition, Message: fmt.Sprintf(format, args...)}
}

func ResourceExhaustedf(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeResourceExhausted, Message: fmt.Sprintf(format, args...)}
}

func AlreadyExistsf(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// Internalf wraps an unexpected backend or database failure.
func Internalf(err error, format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error code to the status the gin layer responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case CodeResourceExhausted:
		return http.StatusInsufficientStorage
	case CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
