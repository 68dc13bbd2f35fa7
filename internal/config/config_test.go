// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/invowk/modhost/internal/issue"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Log.Level != LogLevelInfo {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Dev.Enabled || cfg.Clean || cfg.Log.TraceHooks {
		t.Error("boolean defaults should be false")
	}
	if !slices.Contains(cfg.SystemPackages, "java.lang") {
		t.Errorf("SystemPackages = %v, want java.lang", cfg.SystemPackages)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir, BaseDir: dir})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty", path)
	}
	if cfg.Log.Level != LogLevelInfo || len(cfg.SystemPackages) != len(DefaultConfig().SystemPackages) {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeConfig(t, dir, `
storage_dir: "/var/lib/modhost"
dev: {
	enabled: true
	classpath: ["target/classes"]
	modules: [{symbolic_name: "org.acme.tb1", roots: ["bin", "gen"]}]
}
connect: {profile: "local"}
log: level: "debug"
`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path != want {
		t.Errorf("resolved path = %q, want %q", path, want)
	}
	if cfg.StorageDir != "/var/lib/modhost" {
		t.Errorf("StorageDir = %q", cfg.StorageDir)
	}
	if !cfg.Dev.Enabled || !slices.Equal(cfg.Dev.ClassPath, []string{"target/classes"}) {
		t.Errorf("Dev = %+v", cfg.Dev)
	}
	roots := cfg.OverlayRoots()
	if !slices.Equal(roots["org.acme.tb1"], []string{"bin", "gen"}) {
		t.Errorf("OverlayRoots() = %v", roots)
	}
	if cfg.Connect["profile"] != "local" {
		t.Errorf("Connect = %v", cfg.Connect)
	}
	if cfg.Log.Level != LogLevelDebug {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	// untouched keys keep their defaults
	if !slices.Equal(cfg.SystemPackages, DefaultConfig().SystemPackages) {
		t.Errorf("SystemPackages = %v", cfg.SystemPackages)
	}
}

func TestLoadLocalFallback(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	want := writeConfig(t, base, `clean: true`)

	cfg, path, err := loadWithOptions(context.Background(), LoadOptions{ConfigDirPath: t.TempDir(), BaseDir: base})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path != want || !cfg.Clean {
		t.Errorf("path = %q clean = %v", path, cfg.Clean)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		mention string
	}{
		{"syntax", `log: {`, "config.cue"},
		{"unknown field", `colour: "red"`, "colour"},
		{"bad level", `log: level: "loud"`, "log.level"},
		{"bad package", `system_packages: ["java..lang"]`, "system_packages"},
		{"module without name", `dev: modules: [{roots: ["bin"]}]`, ""},
		{"uppercase connect key", `connect: {Profile: "x"}`, "Profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeConfig(t, dir, tt.body)

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error %T is not an ActionableError", err)
			}
			if tt.mention != "" && !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("error %q does not mention %q", err, tt.mention)
			}
		})
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: missing})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("Load() error = %v, want not found", err)
	}
}

func TestLoadCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MODHOST_LOG_LEVEL", "warn")
	t.Setenv("MODHOST_DEV_ENABLED", "true")
	t.Setenv("MODHOST_STORAGE_DIR", "/tmp/store")

	dir := t.TempDir()
	writeConfig(t, dir, `log: level: "debug"`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != LogLevelWarn {
		t.Errorf("Log.Level = %q, want warn from environment", cfg.Log.Level)
	}
	if !cfg.Dev.Enabled || cfg.StorageDir != "/tmp/store" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadEnvInvalidLevel(t *testing.T) {
	t.Setenv("MODHOST_LOG_LEVEL", "chatty")

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir(), BaseDir: t.TempDir()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestGenerateCUERoundTrip(t *testing.T) {
	t.Parallel()

	in := DefaultConfig()
	in.StorageDir = "/data/modules"
	in.Dev = DevConfig{
		Enabled:   true,
		ClassPath: []string{"out"},
		Modules: []DevModule{
			{SymbolicName: "org.a", Roots: []string{"bin"}},
			{SymbolicName: "org.b", Roots: []string{"x", "y"}},
		},
	}
	in.Connect = map[string]string{"profile": "ci", "timeout": "5s"}
	in.Log = LogConfig{Level: LogLevelError, TraceHooks: true}

	dir := t.TempDir()
	writeConfig(t, dir, GenerateCUE(in))

	out, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load(GenerateCUE()) error = %v", err)
	}
	if out.StorageDir != in.StorageDir || out.Log != in.Log || !out.Dev.Enabled {
		t.Errorf("round trip = %+v", out)
	}
	if len(out.Dev.Modules) != 2 || out.Dev.Modules[1].SymbolicName != "org.b" || !slices.Equal(out.Dev.Modules[1].Roots, []string{"x", "y"}) {
		t.Errorf("Dev.Modules = %+v", out.Dev.Modules)
	}
	if out.Connect["timeout"] != "5s" || len(out.Connect) != 2 {
		t.Errorf("Connect = %v", out.Connect)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested")
	path, created, err := CreateDefaultConfig(dir)
	if err != nil || !created {
		t.Fatalf("CreateDefaultConfig() = %q, %v, %v", path, created, err)
	}
	if _, created, _ = CreateDefaultConfig(dir); created {
		t.Error("second CreateDefaultConfig() overwrote the file")
	}

	got, found, err := Path(LoadOptions{ConfigDirPath: dir})
	if err != nil || !found || got != path {
		t.Errorf("Path() = %q, %v, %v", got, found, err)
	}
	if _, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir}); err != nil {
		t.Errorf("generated default config does not load: %v", err)
	}
}

func TestStorageDir(t *testing.T) {
	t.Parallel()

	got, err := StorageDir(&Config{StorageDir: "/x"})
	if err != nil || got != "/x" {
		t.Errorf("StorageDir() = %q, %v", got, err)
	}
	got, err = StorageDir(&Config{})
	if err != nil || !strings.HasSuffix(got, filepath.Join(AppName, "storage")) {
		t.Errorf("StorageDir() default = %q, %v", got, err)
	}
}
