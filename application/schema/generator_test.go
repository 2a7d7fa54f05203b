//go:build !wasip1

package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema_SimpleStruct(t *testing.T) {
	type SimpleConfig struct {
		Library string `json:"library"`
		Cap     int    `json:"cap,omitempty"`
	}

	schema, err := GenerateSchema(SimpleConfig{})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(schema, &decoded))

	properties, ok := decoded["properties"].(map[string]any)
	require.True(t, ok, "properties should be a map")
	assert.Contains(t, properties, "library")
	assert.Contains(t, properties, "cap")

	required, ok := decoded["required"].([]any)
	require.True(t, ok, "required should be an array")
	assert.Equal(t, []any{"library"}, required)
}

func TestHostConfigSchema(t *testing.T) {
	schema, err := HostConfigSchema()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(schema, &decoded))

	properties, ok := decoded["properties"].(map[string]any)
	require.True(t, ok, "properties should be a map")
	for _, key := range []string{"backend", "library", "log_level", "max_allocation_bytes", "json"} {
		assert.Contains(t, properties, key)
	}

	backend, ok := properties["backend"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"native", "wasm", "inprocess"}, backend["enum"])

	required, ok := decoded["required"].([]any)
	require.True(t, ok)
	assert.Contains(t, required, "backend")
	assert.NotContains(t, required, "library")
}
