package errors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLIIncludesKindAndHint(t *testing.T) {
	e := New(KindStore, "disk full", nil).WithSuggestion("free up space")
	out := FormatForCLI(e)
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "free up space")
	assert.Contains(t, out, "store")
}

func TestFormatJSONRoundTrips(t *testing.T) {
	e := New(KindFileRead, "permission denied", nil).WithDetail("path", "a.go")
	b, err := FormatJSON(e)
	require.NoError(t, err)

	var decoded jsonError
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "file_read", decoded.Kind)
	assert.Equal(t, "permission denied", decoded.Message)
	assert.Equal(t, "a.go", decoded.Details["path"])
}

func TestFormatForLogIncludesDetails(t *testing.T) {
	e := New(KindConfig, "bad value", nil).WithDetail("key", "index.tab_width")
	attrs := FormatForLog(e)
	assert.Equal(t, "config", attrs["error_kind"])
	assert.Equal(t, "index.tab_width", attrs["detail_key"])
}

func TestFormatNilError(t *testing.T) {
	assert.Empty(t, FormatForCLI(nil))
	assert.Nil(t, FormatForLog(nil))
}
