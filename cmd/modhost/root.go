// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand builds the command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "modhost",
		Short: "Host pluggable module content",
		Long: TitleStyle.Render("modhost") + SubtitleStyle.Render(" - host pluggable module content") + `

modhost installs modules from directories, zip archives or a connect
negotiator, serves their entries through a chain of content wrappers and
resolves their package wiring with pluggable resolver hooks.

` + SubtitleStyle.Render("Examples:") + `
  modhost install ./build/acme          Install a directory module
  modhost list                          List installed modules
  modhost entries 1 org/acme -r         List entries below org/acme
  modhost cat 1 META-INF/MANIFEST.MF    Print an entry
  modhost resolve                       Resolve every installed module
  modhost --dev watch                   Reload directory modules on change`,
		SilenceUsage: true,
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/modhost/config.cue)")
	pf.StringVar(&flags.storageDir, "storage-dir", "", "module store directory (overrides storage_dir)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides log.level)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "show error chains and remediation guides")
	pf.BoolVar(&flags.clean, "clean", false, "discard the persisted module store before starting")
	pf.BoolVar(&flags.dev, "dev", false, "enable development mode (overlay roots and dev class path)")

	root.AddCommand(
		newInstallCommand(app, flags),
		newListCommand(app, flags),
		newUpdateCommand(app, flags),
		newUninstallCommand(app, flags),
		newResolveCommand(app, flags),
		newEntriesCommand(app, flags),
		newFindCommand(app, flags),
		newCatCommand(app, flags),
		newWatchCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return root
}

// Execute runs the CLI and exits with its status. It is called by main.main.
func Execute() {
	os.Exit(Main())
}

// Main runs the CLI against os.Args and returns the process exit code.
func Main() int {
	app := NewApp(Dependencies{})
	root := NewRootCommand(app)
	return run(context.Background(), root)
}

func run(ctx context.Context, root *cobra.Command) int {
	err := fang.Execute(
		ctx,
		root,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			verbose, _ := root.PersistentFlags().GetBool("verbose")
			renderError(w, styles, err, verbose)
		}),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
