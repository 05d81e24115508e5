package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all graft configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Interpreted source units
	Script ScriptConfig `yaml:"script"`

	// Refresh cycle defaults
	Refresh RefreshConfig `yaml:"refresh"`

	// Filesystem watcher
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// RefreshConfig configures refresh cycles.
type RefreshConfig struct {
	// Mutate selects in-place reconciliation. False replaces definitions outright.
	Mutate bool `yaml:"mutate" json:"mutate"`
	// Timeout bounds a single refresh cycle ("0" or empty disables it).
	Timeout string `yaml:"timeout" json:"timeout,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "graft",
		Version: "0.3.0",

		Script: DefaultScriptConfig(),

		Refresh: RefreshConfig{
			Mutate:  true,
			Timeout: "30s",
		},

		Watch: DefaultWatchConfig(),

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("GRAFT_SCRIPT_DIR"); dir != "" {
		c.Script.Dir = dir
	}
	if dir := os.Getenv("GRAFT_ARTIFACT_DIR"); dir != "" {
		c.Script.ArtifactDir = dir
	}
	if level := os.Getenv("GRAFT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
		if strings.EqualFold(level, "debug") {
			c.Logging.DebugMode = true
		}
	}
	if d := os.Getenv("GRAFT_DEBOUNCE"); d != "" {
		c.Watch.Debounce = d
	}
}

// GetRefreshTimeout returns the refresh timeout as a duration. Zero means none.
func (c *Config) GetRefreshTimeout() time.Duration {
	if c.Refresh.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Refresh.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetDebounce returns the watcher debounce window as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// GetPollInterval returns how often the watcher flushes its debounce map.
func (c *Config) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.Watch.PollInterval)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// ValidFormats lists the supported log encodings.
var ValidFormats = []string{"text", "json"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Script.Extension != "" && !strings.HasPrefix(c.Script.Extension, ".") {
		return fmt.Errorf("script extension must start with a dot: %q", c.Script.Extension)
	}

	if c.Logging.Format != "" {
		valid := false
		for _, f := range ValidFormats {
			if c.Logging.Format == f {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid log format: %s (valid: %v)", c.Logging.Format, ValidFormats)
		}
	}

	for _, field := range []struct{ name, value string }{
		{"refresh.timeout", c.Refresh.Timeout},
		{"watch.debounce", c.Watch.Debounce},
		{"watch.poll_interval", c.Watch.PollInterval},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid %s: %w", field.name, err)
		}
	}

	return nil
}
