// Package config handles configuration loading and validation for extsort.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidTOML     ConfigErrorType = "INVALID_TOML"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
	WriteFailed     ConfigErrorType = "WRITE_FAILED"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		if e.Message != "" {
			return fmt.Sprintf("configuration file not readable: %s: %s", e.Path, e.Message)
		}
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidTOML:
		return fmt.Sprintf("invalid TOML in configuration file %s: %s", e.Path, e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	case WriteFailed:
		return fmt.Sprintf("failed to write configuration file %s: %s", e.Path, e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Logging contains configuration for diagnostic log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Journal contains configuration for the run journal.
type Journal struct {
	Path string `toml:"path"`
}

// Enabled reports whether a journal path is configured.
func (j Journal) Enabled() bool {
	return strings.TrimSpace(j.Path) != ""
}

// Watch contains settings for watch mode.
type Watch struct {
	DebounceMs        int      `toml:"debounce_ms"`
	StableThresholdMs int      `toml:"stable_threshold_ms"`
	IgnorePatterns    []string `toml:"ignore_patterns"`
}

// Lock controls the exclusive-access lock on the root directory.
type Lock struct {
	Enabled bool `toml:"enabled"`
}

// Config holds all settings for extsort.
type Config struct {
	Root    string  `toml:"root"`
	Prefix  string  `toml:"prefix"`
	DryRun  bool    `toml:"dry_run"`
	Logging Logging `toml:"logging"`
	Journal Journal `toml:"journal"`
	Watch   Watch   `toml:"watch"`
	Lock    Lock    `toml:"lock"`
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validFormats = map[string]bool{"text": true, "console": true, "json": true}
)

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return validationError("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return validationError("logging.format must be text or json (got %q)", c.Logging.Format)
	}
	if c.Watch.DebounceMs < 0 {
		return validationError("watch.debounce_ms cannot be negative")
	}
	if c.Watch.StableThresholdMs < 0 {
		return validationError("watch.stable_threshold_ms cannot be negative")
	}
	for i, pattern := range c.Watch.IgnorePatterns {
		if strings.TrimSpace(pattern) == "" {
			return validationError("watch.ignore_patterns[%d] cannot be empty", i)
		}
		if _, err := filepath.Match(pattern, ""); err != nil {
			return validationError("watch.ignore_patterns[%d] is not a valid glob: %v", i, err)
		}
	}
	return nil
}

func validationError(format string, args ...interface{}) error {
	return &ConfigError{
		Type:    ValidationError,
		Message: fmt.Sprintf(format, args...),
	}
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/extsort/config.toml")
}

// Load reads, normalizes and validates the configuration at path.
// An empty path selects DefaultConfigPath; a missing default file yields the
// built-in defaults, while a missing explicit path is an error. It returns
// the resolved path and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, "", false, err
		}
		path = defaultPath
	} else {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, "", false, err
		}
		path = expanded
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return nil, path, false, &ConfigError{Type: FileNotFound, Path: path, Err: err}
			}
			return &cfg, path, false, nil
		}
		return nil, path, false, &ConfigError{Type: FileNotFound, Path: path, Message: err.Error(), Err: err}
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, path, true, &ConfigError{Type: InvalidTOML, Path: path, Message: err.Error(), Err: err}
	}

	if err := cfg.normalize(); err != nil {
		return nil, path, true, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, path, true, err
	}

	return &cfg, path, true, nil
}

// normalize trims values and expands paths.
func (c *Config) normalize() error {
	var err error
	if c.Root, err = ExpandPath(strings.TrimSpace(c.Root)); err != nil {
		return fmt.Errorf("root: %w", err)
	}
	if c.Journal.Path, err = ExpandPath(strings.TrimSpace(c.Journal.Path)); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Watch.IgnorePatterns == nil {
		c.Watch.IgnorePatterns = DefaultIgnorePatterns()
	}
	return nil
}

// ExpandPath expands a leading "~" and cleans the path. Empty stays empty.
// Relative paths stay relative so progress output mirrors what the user typed.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	expanded, err := homedir.Expand(pathValue)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", pathValue, err)
	}
	return filepath.Clean(expanded), nil
}

// Save serializes and writes a configuration to the given path.
func Save(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return &ConfigError{Type: InvalidTOML, Path: path, Message: err.Error(), Err: err}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &ConfigError{Type: WriteFailed, Path: path, Message: err.Error(), Err: err}
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &ConfigError{Type: WriteFailed, Path: path, Message: err.Error(), Err: err}
	}
	return nil
}

// Encode returns the TOML encoding of cfg.
func Encode(cfg *Config) (string, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CreateSample writes the commented sample configuration to path.
// It refuses to overwrite an existing file.
func CreateSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return &ConfigError{Type: WriteFailed, Path: path, Message: "file already exists"}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &ConfigError{Type: WriteFailed, Path: path, Message: err.Error(), Err: err}
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return &ConfigError{Type: WriteFailed, Path: path, Message: err.Error(), Err: err}
	}
	return nil
}
