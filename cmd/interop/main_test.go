package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/interop/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Commands(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{name: "no args", args: nil, wantCode: 2, wantErr: "usage:"},
		{name: "unknown", args: []string{"fly"}, wantCode: 2, wantErr: `unknown command "fly"`},
		{name: "help", args: []string{"help"}, wantCode: 0, wantOut: "usage:"},
		{name: "version", args: []string{"version"}, wantCode: 0, wantOut: "interop dev (abi 1)"},
		{name: "schema", args: []string{"schema"}, wantCode: 0, wantOut: `"max_allocation_bytes"`},
		{name: "bad flag", args: []string{"run", "-nope"}, wantCode: 2},
		{name: "bad backend", args: []string{"run", "-backend", "jvm"}, wantCode: 2, wantErr: "Backend"},
		{name: "native without lib", args: []string{"run", "-backend", "native"}, wantCode: 2, wantErr: "Library"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantOut != "" {
				assert.Contains(t, stdout.String(), tt.wantOut)
			}
			if tt.wantErr != "" {
				assert.Contains(t, stderr.String(), tt.wantErr)
			}
		})
	}
}

func TestRun_InProcess(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"run", "-backend", "inprocess"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Hello from the host!\nHello from Go 😎\n")
	assert.Contains(t, out, "This is a test äöü 😎\n")
	assert.Contains(t, out, `Created library string: "The number is 42 äöü 😎"`)
}

func TestRun_JSONReport(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "interop.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("backend: inprocess\njson: true\n"), 0o600))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"run", "-config", cfgPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var report entities.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, entities.ResultStatusSuccess, report.Status)
	assert.Equal(t, entities.BackendInProcess, report.Backend)
	assert.Len(t, report.Calls, 14)
	assert.Contains(t, stderr.String(), "Hello from Go 😎")
}

func TestRun_MissingLibrary(t *testing.T) {
	var stdout, stderr bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing.wasm")
	code := run(context.Background(), []string{"run", "-backend", "wasm", "-lib", missing}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "failed to load library")
}
