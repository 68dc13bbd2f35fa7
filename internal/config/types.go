// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is the sentinel wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned for an unknown LogLevel.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError collects every field error found by Config.Validate.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the decoded configuration.
	Config struct {
		// StorageDir holds modules.toml. Empty selects DefaultStorageDir.
		StorageDir string `json:"storage_dir" mapstructure:"storage_dir"`
		// Clean discards the persisted module store on start.
		Clean bool `json:"clean" mapstructure:"clean"`
		// Dev configures development mode class path and overlay roots.
		Dev DevConfig `json:"dev" mapstructure:"dev"`
		// Connect is snapshotted into the negotiator settings.
		Connect map[string]string `json:"connect" mapstructure:"connect"`
		// SystemPackages satisfy Import-Package entries without an exporter.
		SystemPackages []string `json:"system_packages" mapstructure:"system_packages"`
		// Log configures the CLI logger.
		Log LogConfig `json:"log" mapstructure:"log"`
	}

	// DevConfig is only applied when Enabled is set.
	DevConfig struct {
		Enabled   bool        `json:"enabled" mapstructure:"enabled"`
		ClassPath []string    `json:"classpath" mapstructure:"classpath"`
		Modules   []DevModule `json:"modules" mapstructure:"modules"`
	}

	// DevModule maps a module symbolic name to overlay roots.
	DevModule struct {
		SymbolicName string   `json:"symbolic_name" mapstructure:"symbolic_name"`
		Roots        []string `json:"roots" mapstructure:"roots"`
	}

	LogConfig struct {
		Level      LogLevel `json:"level" mapstructure:"level"`
		TraceHooks bool     `json:"trace_hooks" mapstructure:"trace_hooks"`
	}
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Dev: DevConfig{
			ClassPath: []string{},
			Modules:   []DevModule{},
		},
		Connect:        map[string]string{},
		SystemPackages: []string{"java.lang", "java.util", "java.io", "java.net"},
		Log:            LogConfig{Level: LogLevelInfo},
	}
}

func (l LogLevel) String() string { return string(l) }

// Validate returns nil for a known level and InvalidLogLevelError otherwise.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Validate checks the constraints environment overrides can break after the
// schema has already accepted the file.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Log.Level.Validate(); err != nil {
		errs = append(errs, err)
	}
	for i, pkg := range c.SystemPackages {
		if strings.TrimSpace(pkg) == "" {
			errs = append(errs, fmt.Errorf("system_packages[%d]: blank package name", i))
		}
	}
	for i, entry := range c.Dev.ClassPath {
		if strings.TrimSpace(entry) == "" {
			errs = append(errs, fmt.Errorf("dev.classpath[%d]: blank entry", i))
		}
	}
	seen := make(map[string]int, len(c.Dev.Modules))
	for i, m := range c.Dev.Modules {
		if strings.TrimSpace(m.SymbolicName) == "" {
			errs = append(errs, fmt.Errorf("dev.modules[%d]: blank symbolic name", i))
			continue
		}
		if first, dup := seen[m.SymbolicName]; dup {
			errs = append(errs, fmt.Errorf("dev.modules[%d]: duplicate symbolic name %q (same as dev.modules[%d])", i, m.SymbolicName, first))
			continue
		}
		seen[m.SymbolicName] = i
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// OverlayRoots returns the dev module roots keyed by symbolic name.
func (c *Config) OverlayRoots() map[string][]string {
	out := make(map[string][]string, len(c.Dev.Modules))
	for _, m := range c.Dev.Modules {
		out[m.SymbolicName] = append(out[m.SymbolicName], m.Roots...)
	}
	return out
}

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
