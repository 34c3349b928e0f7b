package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies an AppError. Handlers turn it into an HTTP status and
// the CLI prints it verbatim.
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Data directory and registry problems
	ErrCodeMalformedData ErrorCode = "MALFORMED_DATA"
	ErrCodeStorage       ErrorCode = "STORAGE_ERROR"

	// Upstream API and GA
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"

	// Outcome report runner
	ErrCodeInvalidState        ErrorCode = "INVALID_STATE"
	ErrCodeOperationInProgress ErrorCode = "OPERATION_IN_PROGRESS"
)

var codeStatus = map[ErrorCode]int{
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeValidationFailed:    http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeOperationInProgress: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeMalformedData:       http.StatusUnprocessableEntity,
	ErrCodeRateLimited:         http.StatusTooManyRequests,
	ErrCodeExternalService:     http.StatusServiceUnavailable,
}

func statusFor(code ErrorCode) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AppError is the error type shared by the stores, use cases and handlers.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusFor(code)}
}

func NewAppErrorWithDetails(code ErrorCode, message, details string) *AppError {
	e := NewAppError(code, message)
	e.Details = details
	return e
}

func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	e := NewAppError(code, message)
	e.Cause = cause
	return e
}

// WrapError attaches code and message to err. An AppError already in the
// chain wins, so the innermost classification is what callers see.
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}
	return NewAppErrorWithCause(code, message, err)
}

func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func HasErrorCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// StatusCode returns the HTTP status an error should be reported with.
func StatusCode(err error) int {
	if appErr := GetAppError(err); appErr != nil && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

func ErrNotFound(what string) *AppError {
	return NewAppError(ErrCodeNotFound, what+" not found")
}

func ErrInvalidInput(field string) *AppError {
	return NewAppError(ErrCodeInvalidInput, "invalid "+field)
}

func ErrMalformedData(path string, cause error) *AppError {
	return NewAppErrorWithCause(ErrCodeMalformedData, "malformed data file "+path, cause)
}

func ErrExternalService(name string, cause error) *AppError {
	return NewAppErrorWithCause(ErrCodeExternalService, name+" request failed", cause)
}

func ErrInternal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return NewAppError(ErrCodeInternal, message)
}

func ErrRateLimited() *AppError {
	return NewAppError(ErrCodeRateLimited, "rate limit exceeded")
}

// ValidationErrors collects config problems so they can be reported at once.
type ValidationErrors []string

// Add records that field failed check. A non-nil value is echoed back.
func (ve *ValidationErrors) Add(field, check string, value interface{}) {
	msg := field + " " + check
	if value != nil {
		msg += fmt.Sprintf(" (got %v)", value)
	}
	*ve = append(*ve, msg)
}

func (ve ValidationErrors) HasErrors() bool { return len(ve) > 0 }

func (ve ValidationErrors) Error() string {
	switch len(ve) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + ve[0]
	default:
		return fmt.Sprintf("validation failed with %d errors: %s", len(ve), strings.Join(ve, "; "))
	}
}

// ToAppError returns nil when nothing was recorded.
func (ve ValidationErrors) ToAppError() *AppError {
	if !ve.HasErrors() {
		return nil
	}
	return NewAppErrorWithDetails(ErrCodeValidationFailed, "invalid configuration", strings.Join(ve, "; "))
}
