//go:build !wasip1

package interop

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/interop/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStruct_HostConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfg       entities.HostConfig
		wantField string
	}{
		{
			name: "defaults",
			cfg:  entities.DefaultHostConfig(),
		},
		{
			name: "native with library",
			cfg:  entities.HostConfig{Backend: "native", Library: "./libinterop.so"},
		},
		{
			name:      "native without library",
			cfg:       entities.HostConfig{Backend: "native"},
			wantField: "Library",
		},
		{
			name:      "wasm without library",
			cfg:       entities.HostConfig{Backend: "wasm"},
			wantField: "Library",
		},
		{
			name:      "unknown backend",
			cfg:       entities.HostConfig{Backend: "jvm", Library: "x"},
			wantField: "Backend",
		},
		{
			name:      "missing backend",
			cfg:       entities.HostConfig{},
			wantField: "Backend",
		},
		{
			name:      "bad log level",
			cfg:       entities.HostConfig{Backend: "inprocess", LogLevel: "trace"},
			wantField: "LogLevel",
		},
		{
			name:      "negative cap",
			cfg:       entities.HostConfig{Backend: "inprocess", MaxAllocationBytes: -1},
			wantField: "MaxAllocationBytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.cfg)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)

			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.wantField, verrs[0].Field())
		})
	}
}

func TestValidator_ImplementsPort(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateStruct(entities.DefaultHostConfig()))
	assert.Error(t, v.ValidateStruct(entities.HostConfig{}))
}
