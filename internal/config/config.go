// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the SMTP test server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultListen is the address string used when none is configured.
const defaultListen = "127.0.0.1:2525"

// Config holds the complete application configuration.
type Config struct {
	SMTP    SMTPConfig    `yaml:"smtp"`
	Logging LoggingConfig `yaml:"logging"`
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	// Listen is an address string: [user:password@]host[:port].
	Listen string `yaml:"listen"`

	// Strict rejects clients that try to log in when Listen carries no
	// credentials.
	Strict bool `yaml:"strict"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Address parses SMTP.Listen.
func (c *Config) Address() (Address, error) {
	addr, err := ParseAddress(c.SMTP.Listen)
	if err != nil {
		return Address{}, fmt.Errorf("invalid listen address %q: %w", c.SMTP.Listen, err)
	}
	return addr, nil
}

func (c *Config) applyDefaults() {
	c.SMTP.Listen = defaultListen
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("SMTP_LISTEN"); v != "" {
		c.SMTP.Listen = v
	}
	if v := os.Getenv("SMTP_STRICT"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_STRICT %q: %w", v, err)
		}
		c.SMTP.Strict = strict
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}
