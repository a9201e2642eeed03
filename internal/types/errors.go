package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Components MUST use these constants instead of
// hardcoded strings so that log queries and tests can match on them.
const (
	// Configuration / data skips. These are logged and treated as
	// "no match / no send"; they never escalate past the component.
	ErrCodeValidationInvalidTimezone ErrorCode = "validation_invalid_timezone"
	ErrCodeChannelNotConfigured      ErrorCode = "channel_not_configured"
	ErrCodeChannelUnknown            ErrorCode = "channel_unknown"

	// Registration conflicts (programming-contract violations at startup).
	ErrCodeConflictDuplicateTrigger ErrorCode = "conflict_duplicate_trigger"
	ErrCodeConflictDuplicateChannel ErrorCode = "conflict_duplicate_channel"

	// Not found. A dispatch job referencing a missing entry is dropped,
	// not retried, since retrying cannot fix a missing referent.
	ErrCodeNotFoundEventLog ErrorCode = "not_found_event_log"
	ErrCodeNotFoundUser     ErrorCode = "not_found_user"

	// Transient dependency failures, eligible for the retry policy.
	ErrCodeInternalDB          ErrorCode = "internal_database_error"
	ErrCodeInternalQueue       ErrorCode = "internal_queue_error"
	ErrCodeUpstreamChannel     ErrorCode = "upstream_channel_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"

	// Everything else.
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// AppError is the application error type carrying a machine-readable code,
// a human-readable message, and an optional wrapped cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewAppError creates an AppError wrapping the given cause (which may be nil).
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) an AppError.
// Returns ErrCodeInternalUnexpected for non-AppError values.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalUnexpected
}

// IsSkipCode reports whether code marks a configuration/data skip: an
// expected "no match / no send" outcome that must not feed the retry policy.
func IsSkipCode(code ErrorCode) bool {
	switch code {
	case ErrCodeValidationInvalidTimezone, ErrCodeChannelNotConfigured:
		return true
	default:
		return false
	}
}

// IsSkip is IsSkipCode applied to the code carried by err.
func IsSkip(err error) bool {
	return IsSkipCode(CodeOf(err))
}
