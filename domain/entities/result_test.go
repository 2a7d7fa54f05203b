package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_AddFoldsStatus(t *testing.T) {
	r := &Report{Backend: BackendInProcess}

	r.Add(CallResult{Export: "square", Status: ResultStatusSuccess})
	assert.Equal(t, ResultStatusSuccess, r.Status)
	assert.True(t, r.IsSuccess())

	r.Add(CallResult{Export: "sqrt", Status: ResultStatusFailure})
	assert.Equal(t, ResultStatusFailure, r.Status)

	r.Add(CallResult{Export: "invert", Status: ResultStatusSuccess})
	assert.Equal(t, ResultStatusFailure, r.Status, "success must not mask an earlier failure")

	r.Add(CallResult{Export: "length", Status: ResultStatusError, Error: NewErrorDetail("call", "trap")})
	assert.Equal(t, ResultStatusError, r.Status)
	assert.False(t, r.IsSuccess())

	failed := r.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "sqrt", failed[0].Export)
	assert.Equal(t, "length", failed[1].Export)
}

func TestReport_WithMetadata(t *testing.T) {
	start := time.Now()
	end := start.Add(100 * time.Millisecond)
	meta := NewRunMetadata(start, end).WithLibrary("libinterop.so")

	r := (&Report{}).WithMetadata(meta)

	require.NotNil(t, r.Metadata)
	assert.Equal(t, start, r.Metadata.StartTime)
	assert.Equal(t, end, r.Metadata.EndTime)
	assert.Equal(t, 100*time.Millisecond, r.Metadata.Duration)
	assert.Equal(t, "libinterop.so", r.Metadata.Library)
}

func TestErrorDetail_Error(t *testing.T) {
	err := NewErrorDetail("symbol", "export not found").WithCode("toEuler")
	assert.Equal(t, "symbol: export not found [toEuler]", err.Error())

	wrapped := &ErrorDetail{Type: "internal", Message: "outer", Wrapped: NewErrorDetail("load", "inner")}
	assert.Equal(t, "outer: load: inner", wrapped.Error())

	var nilErr *ErrorDetail
	assert.Equal(t, "", nilErr.Error())
}

func TestErrorDetail_WithDetails(t *testing.T) {
	d := NewErrorDetail("memory", "refused").WithDetails(nil)
	assert.Nil(t, d.Details)

	d.WithDetails(map[string]any{"limit": 16}).WithDetails(map[string]any{"length": 28})
	assert.Equal(t, map[string]any{"limit": 16, "length": 28}, d.Details)
}

func TestHostConfigOptions(t *testing.T) {
	cfg := DefaultHostConfig()
	assert.Equal(t, BackendInProcess, cfg.Backend)
	assert.Equal(t, DefaultMaxAllocationBytes, cfg.MaxAllocationBytes)

	for _, opt := range []HostConfigOption{
		WithBackend(BackendWasm),
		WithLibrary("interop.wasm"),
		WithLogLevel(""),
		WithJSON(true),
	} {
		opt(&cfg)
	}

	assert.Equal(t, BackendWasm, cfg.Backend)
	assert.Equal(t, "interop.wasm", cfg.Library)
	assert.Equal(t, "info", cfg.LogLevel, "empty override keeps the previous value")
	assert.True(t, cfg.JSON)
}
