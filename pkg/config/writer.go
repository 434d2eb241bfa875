package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked up by the CLI.
const DefaultConfigFile = "continuity.yaml"

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# Continuity Configuration

log:
  level: info
  format: text

server:
  host: localhost
  port: 8080
  mode: release

store:
  driver: badger
  uri: ./continuity_db
  # driver: neo4j
  # uri: bolt://localhost:7687
  # username: neo4j
  # password: your-password (or set NEO4J_PASSWORD env var)

scheduler:
  enabled: true
  interval: 300

gateway:
  enabled: true

circuit_breaker:
  enabled: false
  ready_to_trip_ratio: 0.6
`

// WriteDefault writes a default config file into dir, refusing to
// overwrite an existing one.
func WriteDefault(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configFile := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Write marshals cfg to YAML and writes it into dir.
func Write(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	configFile := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(configFile, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
