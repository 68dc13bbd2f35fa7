// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/invowk/modhost/internal/framework"
	"github.com/invowk/modhost/internal/watch"

	"github.com/spf13/cobra"
)

func newWatchCommand(app *App, flags *globalFlags) *cobra.Command {
	var (
		patterns []string
		ignore   []string
	)
	cmd := &cobra.Command{
		Use:   "watch [module]...",
		Short: "Reload directory modules when their files change",
		Long: `Watch directory-backed modules (all of them by default) and update and
resolve a module again whenever its files change. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withFramework(cmd.Context(), flags, func(fw *framework.Framework) error {
				mods := fw.Modules()
				if len(args) > 0 {
					var err error
					if mods, err = lookupModules(fw, args); err != nil {
						return err
					}
				}
				targets := watch.ModuleTargets(mods)
				if len(targets) == 0 {
					return fmt.Errorf("no directory modules to watch")
				}

				reloader := &watch.Reloader{
					Framework: fw,
					Reloaded: func(m *framework.Module, report *framework.ResolveReport) {
						state := SuccessStyle.Render("resolved")
						if len(report.Resolved) == 0 {
							state = WarningStyle.Render("unresolved")
						}
						fmt.Fprintf(app.stdout, "%s %s revision %s %s\n", SuccessStyle.Render("reloaded"), KeyStyle.Render(m.ID().String()), m.Current().ID(), state)
					},
				}
				w, err := watch.New(watch.Config{
					Targets:  targets,
					Patterns: patterns,
					Ignore:   ignore,
					OnChange: reloader.OnChange,
					Logger:   fw.Logger(),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(app.stdout, "%s %d module(s)\n", TitleStyle.Render("watching"), len(targets))
				return w.Run(cmd.Context())
			})
		},
	}
	cmd.Flags().StringSliceVar(&patterns, "pattern", nil, "glob patterns selecting files that trigger a reload")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "glob patterns for files that never trigger a reload")
	return cmd
}
