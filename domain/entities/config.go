package entities

// Backend names accepted in HostConfig.Backend.
const (
	BackendNative    = "native"
	BackendWasm      = "wasm"
	BackendInProcess = "inprocess"
)

// DefaultMaxAllocationBytes caps the bytes the host may hold in outstanding
// library strings at once.
const DefaultMaxAllocationBytes = 1 << 20

// HostConfig controls how the host loads the library and reports the run.
type HostConfig struct {
	// Backend selects the loader: native, wasm or inprocess.
	Backend string `yaml:"backend" json:"backend" validate:"required,oneof=native wasm inprocess" jsonschema:"enum=native,enum=wasm,enum=inprocess"`

	// Library is the path to the shared library or WASM module.
	Library string `yaml:"library" json:"library,omitempty" validate:"required_unless=Backend inprocess"`

	// LogLevel is the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level" json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`

	// MaxAllocationBytes caps bytes held in outstanding string handles.
	MaxAllocationBytes int `yaml:"max_allocation_bytes" json:"max_allocation_bytes,omitempty" validate:"gte=0"`

	// JSON prints the report as JSON instead of text.
	JSON bool `yaml:"json" json:"json,omitempty"`
}

// DefaultHostConfig returns the configuration used when no file is given.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		Backend:            BackendInProcess,
		LogLevel:           "info",
		MaxAllocationBytes: DefaultMaxAllocationBytes,
	}
}

// HostConfigOption is a functional option applied over a HostConfig.
type HostConfigOption func(*HostConfig)

// WithBackend overrides the backend when b is non-empty.
func WithBackend(b string) HostConfigOption {
	return func(c *HostConfig) {
		if b != "" {
			c.Backend = b
		}
	}
}

// WithLibrary overrides the library path when path is non-empty.
func WithLibrary(path string) HostConfigOption {
	return func(c *HostConfig) {
		if path != "" {
			c.Library = path
		}
	}
}

// WithLogLevel overrides the log level when level is non-empty.
func WithLogLevel(level string) HostConfigOption {
	return func(c *HostConfig) {
		if level != "" {
			c.LogLevel = level
		}
	}
}

// WithJSON enables JSON report output.
func WithJSON(enabled bool) HostConfigOption {
	return func(c *HostConfig) {
		if enabled {
			c.JSON = true
		}
	}
}
