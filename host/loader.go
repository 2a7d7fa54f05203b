package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	interop "github.com/reglet-dev/interop"
	"github.com/reglet-dev/interop/domain/entities"
	ierrors "github.com/reglet-dev/interop/domain/errors"
	"github.com/reglet-dev/interop/domain/ports"
	"github.com/reglet-dev/interop/host/registry"
	"github.com/reglet-dev/interop/infrastructure/parser"
)

// ConfigLoader orchestrates the host configuration pipeline: parse over
// defaults, apply overrides, validate.
type ConfigLoader struct {
	parser    ports.ConfigParser
	validator ports.StructValidator
}

// ConfigLoaderOption configures the ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithParser sets a custom configuration parser.
func WithParser(p ports.ConfigParser) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.parser = p
	}
}

// WithValidator sets a custom struct validator.
func WithValidator(v ports.StructValidator) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.validator = v
	}
}

// NewConfigLoader creates a new ConfigLoader with defaults.
func NewConfigLoader(opts ...ConfigLoaderOption) *ConfigLoader {
	l := &ConfigLoader{
		parser:    parser.NewYamlConfigParser(),
		validator: interop.NewValidator(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses raw over DefaultHostConfig, applies overrides in order and
// validates the result. raw may be empty.
func (l *ConfigLoader) Load(raw []byte, overrides ...entities.HostConfigOption) (*entities.HostConfig, error) {
	cfg, err := l.parser.Parse(raw, entities.DefaultHostConfig())
	if err != nil {
		return nil, &ierrors.ConfigError{Err: fmt.Errorf("failed to parse config: %w", err)}
	}
	for _, o := range overrides {
		o(cfg)
	}

	if err := l.validator.ValidateStruct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &ierrors.ConfigError{
				Field: verrs[0].Field(),
				Err:   fmt.Errorf("failed on the %q rule", verrs[0].Tag()),
			}
		}
		return nil, &ierrors.ConfigError{Err: err}
	}
	return cfg, nil
}

// LoadFile reads path and calls Load. An empty path loads defaults.
func (l *ConfigLoader) LoadFile(path string, overrides ...entities.HostConfigOption) (*entities.HostConfig, error) {
	var raw []byte
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, &ierrors.ConfigError{Err: err}
		}
	}
	return l.Load(raw, overrides...)
}

// NewRegistry returns a registry holding the native, wasm and inprocess
// loaders built with opts.
func NewRegistry(opts ...Option) *registry.Registry {
	reg := registry.NewRegistry()
	for _, l := range []ports.Loader{
		NewNativeLoader(opts...),
		NewWasmLoader(opts...),
		NewInProcessLoader(opts...),
	} {
		// Names are distinct constants.
		_ = reg.Register(l)
	}
	return reg
}

// NewLoader returns the loader for a backend name.
func NewLoader(backend string, opts ...Option) (ports.Loader, error) {
	reg := NewRegistry(opts...)
	l, ok := reg.Get(backend)
	if !ok {
		return nil, &ierrors.ConfigError{
			Field: "Backend",
			Err:   fmt.Errorf("unknown backend %q (known: %s)", backend, strings.Join(reg.List(), ", ")),
		}
	}
	return l, nil
}

// Open loads the library described by cfg.
func Open(ctx context.Context, cfg *entities.HostConfig, opts ...Option) (ports.Library, error) {
	opts = append([]Option{WithMaxAllocationBytes(cfg.MaxAllocationBytes)}, opts...)
	loader, err := NewLoader(cfg.Backend, opts...)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, cfg.Library)
}
