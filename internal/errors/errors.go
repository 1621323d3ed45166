// Package errors provides the transport-level error envelope used by the
// webhook server.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// AppError carries an error code, a user-safe message and the HTTP status
// the transport should answer with.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Cause      error  `json:"-"`
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

// WithCause returns a copy of the error carrying the given cause.
func (e *AppError) WithCause(cause error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		HTTPStatus: e.HTTPStatus,
		Cause:      cause,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    msg,
		HTTPStatus: e.HTTPStatus,
		Cause:      e.Cause,
	}
}

// ToJSON renders the error body. Causes are never serialized.
func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(map[string]string{
		"error": e.Message,
	})
	return data
}

// WriteResponse writes the error to an HTTP response.
func (e *AppError) WriteResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus)
	w.Write(e.ToJSON())
}

// Predefined error codes.
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeConfiguration  = "configuration_error"
	CodeInternalError  = "internal_error"
)

// Predefined error instances.
var (
	ErrInvalidRequest = &AppError{
		Code:       CodeInvalidRequest,
		Message:    "Invalid request",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrUnauthorized = &AppError{
		Code:       CodeUnauthorized,
		Message:    "Unauthorized",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrConfiguration = &AppError{
		Code:       CodeConfiguration,
		Message:    "Configuration error",
		HTTPStatus: http.StatusInternalServerError,
	}
	ErrInternal = &AppError{
		Code:       CodeInternalError,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// New creates a new application error.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap attaches a cause to a predefined application error.
func Wrap(err error, appErr *AppError) *AppError {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

// Is reports whether err matches the target application error by code.
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetHTTPStatus extracts the HTTP status from an error, defaulting to 500.
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}
