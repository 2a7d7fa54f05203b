package parser

import (
	"bytes"
	"fmt"

	"github.com/reglet-dev/interop/domain/entities"
	"github.com/reglet-dev/interop/domain/ports"
	"gopkg.in/yaml.v3"
)

// YamlConfigParser implements ConfigParser for YAML.
type YamlConfigParser struct{}

// NewYamlConfigParser creates a new YamlConfigParser.
func NewYamlConfigParser() ports.ConfigParser {
	return &YamlConfigParser{}
}

// Parse unmarshals YAML bytes over base. Keys absent from data keep their
// base values; unknown keys are rejected.
func (p *YamlConfigParser) Parse(data []byte, base entities.HostConfig) (*entities.HostConfig, error) {
	cfg := base
	if len(bytes.TrimSpace(data)) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	return &cfg, nil
}
