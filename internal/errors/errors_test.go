package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("original error")

	// When: wrapping with FetchError
	fetchErr := New(ErrCodeMalformedPayload, "reddit listing not JSON", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, fetchErr)
	assert.Equal(t, originalErr, errors.Unwrap(fetchErr))
	assert.True(t, errors.Is(fetchErr, originalErr))
}

func TestFetchError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "parse error",
			code:     ErrCodeMalformedPayload,
			message:  "listing payload truncated",
			expected: "[ERR_201_MALFORMED_PAYLOAD] listing payload truncated",
		},
		{
			name:     "network error",
			code:     ErrCodeNetworkTimeout,
			message:  "request timed out",
			expected: "[ERR_301_NETWORK_TIMEOUT] request timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestFetchError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := New(ErrCodeUpstreamStatus, "medium returned 503", nil)
	err2 := New(ErrCodeUpstreamStatus, "reddit returned 500", nil)

	// Then: they match by code
	assert.True(t, errors.Is(err1, err2))
}

func TestFetchError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	// Given: two errors with different codes
	err1 := New(ErrCodeUpstreamStatus, "upstream failed", nil)
	err2 := New(ErrCodeConfigNotFound, "config not found", nil)

	// Then: they don't match
	assert.False(t, errors.Is(err1, err2))
}

func TestFetchError_WithDetails_AddsContext(t *testing.T) {
	// Given: a base error
	err := New(ErrCodeUpstreamStatus, "upstream failed", nil)

	// When: adding details
	err = err.WithDetail("url", "https://medium.com/feed/tag/golang")
	err = err.WithDetail("status", "503")

	// Then: details are available
	assert.Equal(t, "https://medium.com/feed/tag/golang", err.Details["url"])
	assert.Equal(t, "503", err.Details["status"])
}

func TestFetchError_WithSuggestion_AddsSuggestion(t *testing.T) {
	// Given: a network error
	err := New(ErrCodeNetworkTimeout, "connection timed out", nil)

	// When: adding suggestion
	err = err.WithSuggestion("Check your network connection")

	// Then: suggestion is available
	assert.Equal(t, "Check your network connection", err.Suggestion)
}

func TestFetchError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeAPIKeyMissing, CategoryConfig},
		{ErrCodeMalformedPayload, CategoryParse},
		{ErrCodeUnexpectedFormat, CategoryParse},
		{ErrCodeNetworkTimeout, CategoryNetwork},
		{ErrCodeUpstreamStatus, CategoryNetwork},
		{ErrCodeQueryEmpty, CategoryValidation},
		{ErrCodeQueryTooLong, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{ErrCodeStrategyPanic, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestFetchError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeConfigInvalid, SeverityFatal},
		{ErrCodeStrategyPanic, SeverityFatal},
		{ErrCodeUpstreamStatus, SeverityError},
		{ErrCodeNetworkTimeout, SeverityWarning}, // Retryable, so warning
		{ErrCodeRateLimited, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestFetchError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeNetworkTimeout, true},
		{ErrCodeNetworkUnavailable, true},
		{ErrCodeRateLimited, true},
		{ErrCodeMalformedPayload, false},
		{ErrCodeConfigInvalid, false},
		{ErrCodeCircuitOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesFetchErrorFromError(t *testing.T) {
	// Given: a standard error
	originalErr := errors.New("something went wrong")

	// When: wrapping with a code
	fetchErr := Wrap(ErrCodeInternal, originalErr)

	// Then: creates proper FetchError
	require.NotNil(t, fetchErr)
	assert.Equal(t, ErrCodeInternal, fetchErr.Code)
	assert.Equal(t, "something went wrong", fetchErr.Message)
	assert.Equal(t, originalErr, fetchErr.Cause)
}

func TestConfigError_CreatesConfigCategoryError(t *testing.T) {
	err := ConfigError("invalid yaml syntax", nil)

	assert.Equal(t, CategoryConfig, err.Category)
	assert.Contains(t, err.Code, "CONFIG")
}

func TestParseError_CreatesParseCategoryError(t *testing.T) {
	err := ParseError("cannot decode search payload", nil)

	assert.Equal(t, CategoryParse, err.Category)
}

func TestNetworkError_CreatesRetryableError(t *testing.T) {
	err := NetworkError("connection refused", nil)

	assert.Equal(t, CategoryNetwork, err.Category)
	assert.True(t, err.Retryable)
}

func TestValidationError_CreatesValidationCategoryError(t *testing.T) {
	err := ValidationError("query cannot be empty", nil)

	assert.Equal(t, CategoryValidation, err.Category)
}

func TestUpstreamError_MarksServerStatusesRetryable(t *testing.T) {
	tests := []struct {
		status        int
		wantRetryable bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{404, false},
		{403, false},
	}

	for _, tt := range tests {
		err := UpstreamError(tt.status, "https://en.wikipedia.org/w/api.php")
		assert.Equal(t, tt.wantRetryable, err.Retryable, "status %d", tt.status)
		assert.Equal(t, ErrCodeUpstreamStatus, err.Code)
		assert.Equal(t, "https://en.wikipedia.org/w/api.php", err.Details["url"])
	}
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable FetchError",
			err:      New(ErrCodeNetworkTimeout, "timeout", nil),
			expected: true,
		},
		{
			name:     "non-retryable FetchError",
			err:      New(ErrCodeMalformedPayload, "bad payload", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(ErrCodeNetworkTimeout, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "invalid config",
			err:      New(ErrCodeConfigInvalid, "limits.default exceeds limits.max", nil),
			expected: true,
		},
		{
			name:     "strategy panic",
			err:      New(ErrCodeStrategyPanic, "strategy panicked", nil),
			expected: true,
		},
		{
			name:     "non-fatal error",
			err:      New(ErrCodeUpstreamStatus, "upstream failed", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}
