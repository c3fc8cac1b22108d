package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatJSON_BasicError(t *testing.T) {
	// Given: a FetchError with details
	err := New(ErrCodeUpstreamStatus, "upstream returned status 503", nil).
		WithDetail("url", "https://www.reddit.com/r/golang/search.json").
		WithSuggestion("Retry after the upstream recovers")

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: valid JSON
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	// And: contains expected fields
	assert.Equal(t, ErrCodeUpstreamStatus, result["code"])
	assert.Equal(t, "upstream returned status 503", result["message"])
	assert.Equal(t, string(CategoryNetwork), result["category"])
	assert.Equal(t, string(SeverityError), result["severity"])
	assert.Equal(t, "Retry after the upstream recovers", result["suggestion"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://www.reddit.com/r/golang/search.json", details["url"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	// Given: a standard error
	err := errors.New("generic error")

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: valid JSON with internal error code
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, ErrCodeInternal, result["code"])
	assert.Equal(t, "generic error", result["message"])
}

func TestFormatJSON_NilError(t *testing.T) {
	// When: formatting nil
	data, err := FormatJSON(nil)

	// Then: returns empty result
	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatJSON_WithCause(t *testing.T) {
	// Given: an error with cause
	cause := errors.New("underlying error")
	err := New(ErrCodeInternal, "operation failed", cause)

	// When: formatting as JSON
	data, jsonErr := FormatJSON(err)

	// Then: includes cause
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "underlying error", result["cause"])
}

func TestFormatForLog_FetchError(t *testing.T) {
	// Given: a FetchError with cause, suggestion, and details
	cause := errors.New("dial tcp: i/o timeout")
	err := New(ErrCodeNetworkTimeout, "wikipedia request timed out", cause).
		WithDetail("url", "https://en.wikipedia.org/w/api.php").
		WithSuggestion("Increase http.timeout")

	// When: formatting for log
	attrs := FormatForLog(err)

	// Then: structured attributes are present
	assert.Equal(t, ErrCodeNetworkTimeout, attrs["error_code"])
	assert.Equal(t, "wikipedia request timed out", attrs["message"])
	assert.Equal(t, string(CategoryNetwork), attrs["category"])
	assert.Equal(t, string(SeverityWarning), attrs["severity"])
	assert.Equal(t, true, attrs["retryable"])
	assert.Equal(t, "dial tcp: i/o timeout", attrs["cause"])
	assert.Equal(t, "Increase http.timeout", attrs["suggestion"])
	assert.Equal(t, "https://en.wikipedia.org/w/api.php", attrs["detail_url"])
}

func TestFormatForLog_StandardError(t *testing.T) {
	attrs := FormatForLog(errors.New("plain failure"))

	assert.Equal(t, map[string]any{"error": "plain failure"}, attrs)
}

func TestFormatForLog_NilError(t *testing.T) {
	assert.Nil(t, FormatForLog(nil))
}
