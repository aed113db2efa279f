// Package config loads and validates the server configuration.
//
// DESIGN: Configuration comes from a YAML file with ${VAR:-default}
// environment expansion, so deployments can keep one checked-in file and
// vary secrets and toggles per environment. Server settings are validated
// strictly; observability settings follow the component's own policy of
// clamping out-of-range values to documented bounds instead of failing
// startup.
//
// FILES:
//   - config.go: Root Config struct, Load(), Validate()
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tvendorhq/tvendor/internal/audit"
	"github.com/tvendorhq/tvendor/internal/logging"
	"github.com/tvendorhq/tvendor/internal/observability"
)

// Config is the root configuration for the tvendor server.
type Config struct {
	Server        ServerConfig         `yaml:"server"`        // HTTP server settings
	Logging       logging.Config       `yaml:"logging"`       // Structured log settings
	Observability observability.Config `yaml:"observability"` // Metrics, alerts, exposition
	Audit         audit.Config         `yaml:"audit"`         // Change audit trail
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // Port to listen on
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Max time to read request
	WriteTimeout time.Duration `yaml:"write_timeout"` // Max time to write response
}

// Server defaults applied when the config omits them.
const (
	defaultPort         = 8080
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second
)

// expandEnvWithDefaults expands environment variables with support for
// default values. Supports both ${VAR} and ${VAR:-default} syntax.
func expandEnvWithDefaults(s string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML bytes. Defaults are laid
// down first so the document only needs to state what differs; present keys
// override, absent keys keep their defaults.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvWithDefaults(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Observability clamps rather than fails: telemetry settings out of
	// range must not stop the server from coming up.
	cfg.Observability.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when keys are absent.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         defaultPort,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Observability: observability.DefaultConfig(),
	}
}

// Validate checks the strict (non-clamping) parts of the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required when audit is enabled")
	}
	return nil
}
