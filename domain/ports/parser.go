package ports

import "github.com/reglet-dev/interop/domain/entities"

// ConfigParser parses raw configuration bytes into a HostConfig.
type ConfigParser interface {
	// Parse unmarshals data over base and returns the merged configuration.
	Parse(data []byte, base entities.HostConfig) (*entities.HostConfig, error)
}
