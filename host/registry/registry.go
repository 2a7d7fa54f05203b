// Package registry maps backend names to library loaders.
package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/reglet-dev/interop/domain/ports"
)

// registryConfig holds configuration for the Registry.
type registryConfig struct {
	strictMode bool // Fail on duplicate registrations
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		strictMode: true,
	}
}

// RegistryOption configures a Registry instance.
type RegistryOption func(*registryConfig)

// WithStrictMode enables/disables strict mode for duplicate registrations.
// Default is true (fail on duplicates).
func WithStrictMode(enabled bool) RegistryOption {
	return func(c *registryConfig) {
		c.strictMode = enabled
	}
}

// Registry holds one loader per backend name.
type Registry struct {
	config  registryConfig
	loaders sync.Map // map[string]ports.Loader
}

// NewRegistry creates a new Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{config: cfg}
}

// Register adds a loader under its Name.
func (r *Registry) Register(l ports.Loader) error {
	name := l.Name()
	if name == "" {
		return fmt.Errorf("loader has no name")
	}
	if r.config.strictMode {
		if _, loaded := r.loaders.LoadOrStore(name, l); loaded {
			return fmt.Errorf("backend %q already registered", name)
		}
		return nil
	}
	r.loaders.Store(name, l)
	return nil
}

// Get returns the loader registered for name.
func (r *Registry) Get(name string) (ports.Loader, bool) {
	v, ok := r.loaders.Load(name)
	if !ok {
		return nil, false
	}
	return v.(ports.Loader), true
}

// List returns all registered backend names, sorted.
func (r *Registry) List() []string {
	var keys []string
	r.loaders.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	slices.Sort(keys)
	return keys
}
