// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/invowk/modhost/internal/cueutil"
	"github.com/invowk/modhost/internal/issue"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "modhost"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides: log.level is MODHOST_LOG_LEVEL.
	EnvPrefix = "MODHOST"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the modhost configuration directory using platform
// conventions: %APPDATA% on Windows, ~/Library/Application Support on macOS
// and $XDG_CONFIG_HOME (default ~/.config) elsewhere.
//
//nolint:revive // ConfigDir reads better than Dir for external callers
func ConfigDir() (string, error) {
	base, err := platformDir("APPDATA", filepath.Join("Library", "Application Support"), "XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}

// DefaultStorageDir returns where the module store lives when storage_dir is
// unset: %LOCALAPPDATA% on Windows, ~/Library/Application Support on macOS and
// $XDG_DATA_HOME (default ~/.local/share) elsewhere.
func DefaultStorageDir() (string, error) {
	base, err := platformDir("LOCALAPPDATA", filepath.Join("Library", "Application Support"), "XDG_DATA_HOME", filepath.Join(".local", "share"))
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName, "storage"), nil
}

// StorageDir returns cfg.StorageDir, or DefaultStorageDir when it is empty.
func StorageDir(cfg *Config) (string, error) {
	if cfg.StorageDir != "" {
		return cfg.StorageDir, nil
	}
	return DefaultStorageDir()
}

func platformDir(windowsEnv, darwinRel, xdgEnv, xdgRel string) (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv(windowsEnv); dir != "" {
			return dir, nil
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, darwinRel), nil
	default:
		if dir := os.Getenv(xdgEnv); dir != "" {
			return dir, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, xdgRel), nil
	}
}

// Path returns the config file a Load with opts would read. found is false
// when no file exists and defaults apply; path is then where `config init`
// would create one.
func Path(opts LoadOptions) (path string, found bool, err error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, fileExists(opts.ConfigFilePath), nil
	}

	dir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", false, err
	}
	path = filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(path) {
		return path, true, nil
	}

	local := ConfigFileName + "." + ConfigFileExt
	if opts.BaseDir != "" {
		local = filepath.Join(opts.BaseDir, local)
	}
	if fileExists(local) {
		return local, true, nil
	}
	return path, false, nil
}

// loadWithOptions performs option-driven config loading without caching.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("storage_dir", defaults.StorageDir)
	v.SetDefault("clean", defaults.Clean)
	v.SetDefault("dev.enabled", defaults.Dev.Enabled)
	v.SetDefault("dev.classpath", defaults.Dev.ClassPath)
	v.SetDefault("dev.modules", defaults.Dev.Modules)
	v.SetDefault("connect", defaults.Connect)
	v.SetDefault("system_packages", defaults.SystemPackages)
	v.SetDefault("log.level", string(defaults.Log.Level))
	v.SetDefault("log.trace_hooks", defaults.Log.TraceHooks)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, found, err := Path(opts)
	if err != nil {
		return nil, "", err
	}

	if opts.ConfigFilePath != "" && !found {
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'modhost config show' to see the default configuration").
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	resolved := ""
	if found {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the configuration schema").
				Wrap(err).
				BuildError()
		}
		resolved = path
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolved).
			WithSuggestion("Check " + EnvPrefix + "_* environment variables").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolved, nil
}

func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper validates path against #Config and merges the result over
// the defaults already registered in v.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	values, err := cueutil.Decode(configSchema, data, "#Config", path)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(values); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration into dir ("" selects
// ConfigDir) unless a file already exists. It returns the file path and
// whether it was created.
func CreateDefaultConfig(dir string) (string, bool, error) {
	dir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}

	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, true, nil
}

// GenerateCUE renders cfg as a config.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modhost configuration file\n\n")

	if cfg.StorageDir != "" {
		fmt.Fprintf(&sb, "storage_dir: %q\n", cfg.StorageDir)
	}
	fmt.Fprintf(&sb, "clean: %v\n", cfg.Clean)

	sb.WriteString("\ndev: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.Dev.Enabled)
	if len(cfg.Dev.ClassPath) > 0 {
		fmt.Fprintf(&sb, "\tclasspath: %s\n", cueList(cfg.Dev.ClassPath))
	}
	if len(cfg.Dev.Modules) > 0 {
		sb.WriteString("\tmodules: [\n")
		for _, m := range cfg.Dev.Modules {
			fmt.Fprintf(&sb, "\t\t{symbolic_name: %q, roots: %s},\n", m.SymbolicName, cueList(m.Roots))
		}
		sb.WriteString("\t]\n")
	}
	sb.WriteString("}\n")

	if len(cfg.Connect) > 0 {
		sb.WriteString("\nconnect: {\n")
		for _, k := range sortedKeys(cfg.Connect) {
			fmt.Fprintf(&sb, "\t%q: %q\n", k, cfg.Connect[k])
		}
		sb.WriteString("}\n")
	}

	fmt.Fprintf(&sb, "\nsystem_packages: %s\n", cueList(cfg.SystemPackages))

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	fmt.Fprintf(&sb, "\ttrace_hooks: %v\n", cfg.Log.TraceHooks)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
