// Package config handles configuration loading and validation for the twff
// tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the tool configuration. TOML is the primary format; files with
// a .yaml/.yml extension are also accepted.
type Config struct {
	Validation ValidationConfig `toml:"validation" yaml:"validation"`
	Recorder   RecorderConfig   `toml:"recorder" yaml:"recorder"`
	Signing    SigningConfig    `toml:"signing" yaml:"signing"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
}

// ValidationConfig controls the schema validator.
type ValidationConfig struct {
	// Strict reports unknown meta fields and out-of-enum values.
	Strict bool `toml:"strict" yaml:"strict"`
	// CheckOffsets enables the advisory position-offset check.
	CheckOffsets bool `toml:"check_offsets" yaml:"check_offsets"`
}

// RecorderConfig controls the file-watching recorder.
type RecorderConfig struct {
	// Debounce is how long changes settle before a checkpoint, e.g. "2s".
	Debounce string `toml:"debounce" yaml:"debounce"`
	// JournalPath is the SQLite session journal location.
	JournalPath string `toml:"journal_path" yaml:"journal_path"`
}

// SigningConfig controls container signing.
type SigningConfig struct {
	// KeyPath is an Ed25519 private key file (raw seed or OpenSSH).
	KeyPath string `toml:"key_path" yaml:"key_path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // text, json
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Validation: ValidationConfig{CheckOffsets: true},
		Recorder: RecorderConfig{
			Debounce:    "2s",
			JournalPath: filepath.Join(home, ".twff", "journal.db"),
		},
		Logging: LoggingConfig{Level: "warn", Format: "text"},
	}
}

// Load reads a configuration file over the defaults. A missing path
// returns the defaults unchanged; environment overrides always apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment overrides, highest precedence.
func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("TWFF_STRICT"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Validation.Strict = b
		}
	}
	if v, ok := os.LookupEnv("TWFF_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv("TWFF_SIGNING_KEY"); ok {
		c.Signing.KeyPath = v
	}
	if v, ok := os.LookupEnv("TWFF_JOURNAL"); ok {
		c.Recorder.JournalPath = v
	}
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}
	if c.Recorder.Debounce != "" {
		if _, err := time.ParseDuration(c.Recorder.Debounce); err != nil {
			return fmt.Errorf("config: invalid debounce: %w", err)
		}
	}
	return nil
}

// DebounceDuration returns the parsed recorder debounce.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Recorder.Debounce)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}
