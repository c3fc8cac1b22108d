package errors

import (
	"fmt"
)

// FetchError is the structured error type for RabbitHole.
// It provides rich context for error handling, logging, and user presentation.
type FetchError struct {
	// Code is the unique error code (e.g., "ERR_301_NETWORK_TIMEOUT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Parse, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with FetchError.
func (e *FetchError) Is(target error) bool {
	if t, ok := target.(*FetchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *FetchError) WithDetail(key, value string) *FetchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *FetchError) WithSuggestion(suggestion string) *FetchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new FetchError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *FetchError {
	return &FetchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a FetchError from an existing error.
// The error's message becomes the FetchError message.
func Wrap(code string, err error) *FetchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *FetchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ParseError creates an upstream payload parsing error.
func ParseError(message string, cause error) *FetchError {
	return New(ErrCodeMalformedPayload, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are typically retryable.
func NetworkError(message string, cause error) *FetchError {
	return New(ErrCodeNetworkTimeout, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *FetchError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *FetchError {
	return New(ErrCodeInternal, message, cause)
}

// UpstreamError creates an error for a non-success upstream HTTP status.
// Server-side statuses (5xx and 429) are marked retryable.
func UpstreamError(status int, url string) *FetchError {
	e := New(ErrCodeUpstreamStatus, fmt.Sprintf("upstream returned status %d", status), nil)
	e.WithDetail("status", fmt.Sprintf("%d", status))
	e.WithDetail("url", url)
	if status == 429 || status >= 500 {
		e.Retryable = true
	}
	return e
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a FetchError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if fe, ok := err.(*FetchError); ok {
		return fe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if fe, ok := err.(*FetchError); ok {
		return fe.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a FetchError.
// Returns empty string if not a FetchError.
func GetCode(err error) string {
	if fe, ok := err.(*FetchError); ok {
		return fe.Code
	}
	return ""
}

// GetCategory extracts the category from a FetchError.
// Returns empty string if not a FetchError.
func GetCategory(err error) Category {
	if fe, ok := err.(*FetchError); ok {
		return fe.Category
	}
	return ""
}
