// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/invowk/modhost/internal/config"
	"github.com/invowk/modhost/internal/framework"
	"github.com/invowk/modhost/pkg/connect"
	"github.com/invowk/modhost/pkg/content/overlay"
	"github.com/invowk/modhost/pkg/resolverhook"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and builds its framework through it.
	App struct {
		Config  ConfigProvider
		Factory connect.Factory
		Hooks   *resolverhook.Table
		stdout  io.Writer
		stderr  io.Writer
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults; Factory stays nil, leaving content to the
	// filesystem.
	Dependencies struct {
		Config  ConfigProvider
		Factory connect.Factory
		Hooks   *resolverhook.Table
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// globalFlags are the persistent root flags. Zero values defer to the
	// configuration.
	globalFlags struct {
		configFile string
		storageDir string
		logLevel   string
		verbose    bool
		clean      bool
		dev        bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Hooks == nil {
		deps.Hooks = resolverhook.NewTable()
	}
	return &App{
		Config:  deps.Config,
		Factory: deps.Factory,
		Hooks:   deps.Hooks,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
}

// loadConfig loads the configuration and applies flag overrides.
func (a *App) loadConfig(ctx context.Context, flags *globalFlags) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configFile})
	if err != nil {
		return nil, err
	}
	if flags.storageDir != "" {
		cfg.StorageDir = flags.storageDir
	}
	if flags.logLevel != "" {
		cfg.Log.Level = config.LogLevel(flags.logLevel)
		if err := cfg.Log.Level.Validate(); err != nil {
			return nil, err
		}
	}
	if flags.clean {
		cfg.Clean = true
	}
	if flags.dev {
		cfg.Dev.Enabled = true
	}
	return cfg, nil
}

func (a *App) newLogger(cfg *config.Config) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName})
	level, err := log.ParseLevel(string(cfg.Log.Level))
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// frameworkOptions maps configuration onto framework options.
func (a *App) frameworkOptions(cfg *config.Config, logger *log.Logger) ([]framework.Option, error) {
	storage, err := config.StorageDir(cfg)
	if err != nil {
		return nil, err
	}
	opts := []framework.Option{
		framework.WithStorageDir(storage),
		framework.WithClean(cfg.Clean),
		framework.WithSettings(cfg.Connect),
		framework.WithSystemPackages(cfg.SystemPackages...),
		framework.WithHookRegistry(a.Hooks),
		framework.WithHookTracing(cfg.Log.TraceHooks),
		framework.WithLogger(logger),
	}
	if a.Factory != nil {
		opts = append(opts, framework.WithFactory(a.Factory))
	}
	if cfg.Dev.Enabled {
		opts = append(opts,
			framework.WithOverlay(overlay.MapRoots(cfg.OverlayRoots())),
			framework.WithDevClassPath(cfg.Dev.ClassPath...),
		)
	}
	return opts, nil
}

// withFramework starts a framework for the duration of fn and closes it
// afterwards. A close failure is reported only when fn succeeded.
func (a *App) withFramework(ctx context.Context, flags *globalFlags, fn func(*framework.Framework) error) (err error) {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		return err
	}
	opts, err := a.frameworkOptions(cfg, a.newLogger(cfg))
	if err != nil {
		return err
	}

	fw := framework.New(opts...)
	if err := fw.Start(ctx); err != nil {
		_ = fw.Close()
		return err
	}
	defer func() {
		if closeErr := fw.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(fw)
}

// lookupModule accepts a module id or the location it was installed from.
func lookupModule(fw *framework.Framework, ref string) (*framework.Module, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if m, ok := fw.Module(framework.ModuleID(id)); ok {
			return m, nil
		}
	}
	if m, ok := fw.ModuleAt(framework.Location(ref)); ok {
		return m, nil
	}
	if abs, err := filepath.Abs(ref); err == nil {
		if m, ok := fw.ModuleAt(framework.Location(abs)); ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", ref, framework.ErrModuleNotFound)
}

func lookupModules(fw *framework.Framework, refs []string) ([]*framework.Module, error) {
	mods := make([]*framework.Module, 0, len(refs))
	for _, ref := range refs {
		m, err := lookupModule(fw, ref)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// normalizeLocation makes filesystem locations absolute so that the same
// module is found from any working directory. Connect locations that are not
// paths pass through unchanged.
func normalizeLocation(ref string) framework.Location {
	if _, err := os.Stat(ref); err != nil {
		return framework.Location(ref)
	}
	abs, err := filepath.Abs(ref)
	if err != nil {
		return framework.Location(ref)
	}
	return framework.Location(abs)
}
