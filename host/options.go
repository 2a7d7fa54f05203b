package host

import (
	"io"
	"log/slog"
	"os"

	"github.com/reglet-dev/interop/domain/entities"
)

// loaderConfig holds configuration shared by all loaders.
type loaderConfig struct {
	stdout             io.Writer
	stderr             io.Writer
	logger             *slog.Logger
	maxAllocationBytes int
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		stdout:             os.Stdout,
		stderr:             os.Stderr,
		logger:             slog.Default(),
		maxAllocationBytes: entities.DefaultMaxAllocationBytes,
	}
}

// Option configures a loader.
type Option func(*loaderConfig)

// WithStdout sets where library output goes. The native loader cannot
// redirect a shared library's stdout and ignores it.
func WithStdout(w io.Writer) Option {
	return func(c *loaderConfig) {
		c.stdout = w
	}
}

// WithStderr sets where the WASM guest's stderr goes.
func WithStderr(w io.Writer) Option {
	return func(c *loaderConfig) {
		c.stderr = w
	}
}

// WithLogger sets the logger used for host and replayed library records.
func WithLogger(l *slog.Logger) Option {
	return func(c *loaderConfig) {
		c.logger = l
	}
}

// WithMaxAllocationBytes caps bytes held in outstanding string handles.
// Values <= 0 keep the default.
func WithMaxAllocationBytes(n int) Option {
	return func(c *loaderConfig) {
		if n > 0 {
			c.maxAllocationBytes = n
		}
	}
}

func newLoaderConfig(opts []Option) loaderConfig {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
