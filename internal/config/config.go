// Package config loads and validates the application configuration from an
// optional YAML file plus environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultTimezone is the reference timezone for date-window queries.
const DefaultTimezone = "Asia/Shanghai"

// DefaultStatsBaseURL is the statistics provider endpoint.
const DefaultStatsBaseURL = "https://v3.football.api-sports.io"

// Config holds all configuration for the application.
type Config struct {
	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Model is the LLM model identifier, or "mock"/"mock:<scenario.yaml>"
	// for scripted runs
	Model string `yaml:"model"`

	// AnthropicAPIKey authenticates against the Anthropic API.
	// Environment override: ANTHROPIC_API_KEY
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// Timezone is the reference timezone for today/tomorrow queries
	Timezone string `yaml:"timezone"`

	// Postgres configures the fixture catalog connection
	Postgres PostgresConfig `yaml:"postgres"`

	// Stats configures the football statistics provider
	Stats StatsConfig `yaml:"stats"`

	// TranscriptDir is where session transcripts are written.
	// Empty means ~/.touchline/sessions
	TranscriptDir string `yaml:"transcript_dir"`
}

// PostgresConfig describes the fixture catalog connection. Either a full
// DSN or the discrete host fields; the DSN wins when both are set.
type PostgresConfig struct {
	// DSN is a lib/pq connection string.
	// Environment override: POSTGRES_DSN
	DSN string `yaml:"dsn"`

	// Discrete fields, composed into a DSN when no DSN is given.
	// Environment overrides: POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB,
	// POSTGRES_USER, POSTGRES_PASSWORD
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// StatsConfig describes the statistics provider.
type StatsConfig struct {
	// BaseURL of the provider API.
	// Environment override: APIFOOTBALL_BASE_URL
	BaseURL string `yaml:"base_url"`

	// APIKey for the provider.
	// Environment override: APIFOOTBALL_API_KEY
	APIKey string `yaml:"api_key"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Model:    "claude-sonnet-4-5-20250929",
		Timezone: DefaultTimezone,
		Postgres: PostgresConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		Stats: StatsConfig{
			BaseURL: DefaultStatsBaseURL,
		},
	}
}

// Validate checks that the configuration is usable for a chat session.
func (c *Config) Validate() error {
	if c.Timezone == "" {
		return NewConfigError("timezone must not be empty")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return NewConfigError(fmt.Sprintf("invalid timezone %q: %v", c.Timezone, err))
	}
	if c.Model == "" {
		return NewConfigError("model must not be empty")
	}
	if !c.MockModel() && c.AnthropicAPIKey == "" {
		return NewConfigError("anthropic_api_key must be set (or ANTHROPIC_API_KEY exported) unless model is mock")
	}
	if c.DSN() == "" {
		return NewConfigError("postgres connection must be configured via dsn or host/database fields")
	}
	if c.Stats.BaseURL == "" {
		return NewConfigError("stats base_url must not be empty")
	}
	if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
		return NewConfigError("postgres port must be between 1 and 65535")
	}
	return nil
}

// MockModel reports whether the configured model is the scripted provider.
func (c *Config) MockModel() bool {
	return c.Model == "mock" || strings.HasPrefix(c.Model, "mock:")
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DSN returns the effective Postgres connection string: the explicit DSN if
// set, otherwise one composed from the discrete fields. Empty when neither
// is configured.
func (c *Config) DSN() string {
	if c.Postgres.DSN != "" {
		return c.Postgres.DSN
	}
	if c.Postgres.Host == "" || c.Postgres.Database == "" {
		return ""
	}

	parts := []string{
		fmt.Sprintf("host=%s", c.Postgres.Host),
		fmt.Sprintf("port=%d", c.Postgres.Port),
		fmt.Sprintf("dbname=%s", c.Postgres.Database),
	}
	if c.Postgres.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", c.Postgres.User))
	}
	if c.Postgres.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", c.Postgres.Password))
	}
	if c.Postgres.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", c.Postgres.SSLMode))
	}
	return strings.Join(parts, " ")
}

// applyEnv overlays credential environment variables. Environment always
// wins over the file so secrets stay out of config files.
func (c *Config) applyEnv() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AnthropicAPIKey = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			c.Postgres.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		c.Postgres.Database = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		c.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("APIFOOTBALL_BASE_URL"); v != "" {
		c.Stats.BaseURL = v
	}
	if v := os.Getenv("APIFOOTBALL_API_KEY"); v != "" {
		c.Stats.APIKey = v
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	return e.message
}
