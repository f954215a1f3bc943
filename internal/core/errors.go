// internal/core/errors.go
package core

import "fmt"

// Error is a coded error with an optional underlying cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error renders as "[CODE] message", with the cause appended when set.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError attaches a cause to a predefined error, keeping its code.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors, one per failure domain.
var (
	// Data errors
	ErrNoData           = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrInvalidSeries    = &Error{Code: "INVALID_SERIES", Message: "invalid bar series"}
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for analysis"}

	// Provider errors
	ErrProviderFailed   = &Error{Code: "PROVIDER_FAILED", Message: "provider request failed"}
	ErrProviderNotFound = &Error{Code: "PROVIDER_NOT_FOUND", Message: "provider not registered"}

	// Strategy errors
	ErrStrategyFailed   = &Error{Code: "STRATEGY_FAILED", Message: "signal generation failed"}
	ErrStrategyNotFound = &Error{Code: "STRATEGY_NOT_FOUND", Message: "strategy not registered"}

	// Optimizer errors
	ErrGridInvalid   = &Error{Code: "GRID_INVALID", Message: "parameter grid invalid"}
	ErrMetricUnknown = &Error{Code: "METRIC_UNKNOWN", Message: "unknown target metric"}

	// Job errors
	ErrJobNotFound = &Error{Code: "JOB_NOT_FOUND", Message: "job not found"}

	// Auth errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}

	// Request errors
	ErrBadRequest = &Error{Code: "BAD_REQUEST", Message: "malformed request"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
