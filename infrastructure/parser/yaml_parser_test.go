package parser

import (
	"testing"

	"github.com/reglet-dev/interop/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYamlConfigParser_Parse(t *testing.T) {
	base := entities.DefaultHostConfig()

	tests := []struct {
		name    string
		input   string
		want    entities.HostConfig
		wantErr bool
	}{
		{
			name:  "empty keeps base",
			input: "",
			want:  base,
		},
		{
			name:  "whitespace keeps base",
			input: "\n  \n",
			want:  base,
		},
		{
			name:  "overrides set keys only",
			input: "backend: native\nlibrary: ./libinterop.so\n",
			want: entities.HostConfig{
				Backend:            "native",
				Library:            "./libinterop.so",
				LogLevel:           base.LogLevel,
				MaxAllocationBytes: base.MaxAllocationBytes,
			},
		},
		{
			name:    "unknown key",
			input:   "backend: native\nlib: x\n",
			wantErr: true,
		},
		{
			name:    "wrong type",
			input:   "max_allocation_bytes: lots\n",
			wantErr: true,
		},
	}

	p := NewYamlConfigParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse([]byte(tt.input), base)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}
