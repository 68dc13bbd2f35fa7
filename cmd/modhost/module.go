// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/invowk/modhost/internal/framework"
	"github.com/invowk/modhost/pkg/resolverhook"

	"github.com/spf13/cobra"
)

func newInstallCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "install <location>...",
		Short: "Install modules from directories, archives or connect locations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withFramework(cmd.Context(), flags, func(fw *framework.Framework) error {
				for _, arg := range args {
					m, err := fw.Install(cmd.Context(), normalizeLocation(arg))
					if err != nil {
						return err
					}
					fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render("installed"), KeyStyle.Render(m.ID().String()), describe(m))
				}
				return nil
			})
		},
	}
}

func newListCommand(app *App, flags *globalFlags) *cobra.Command {
	var resolve bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withFramework(cmd.Context(), flags, func(fw *framework.Framework) error {
				if resolve {
					if _, err := fw.Resolve(cmd.Context()); err != nil {
						return err
					}
				}
				mods := fw.Modules()
				if len(mods) == 0 {
					fmt.Fprintln(app.stdout, SubtitleStyle.Render("(no modules installed)"))
					return nil
				}
				for _, m := range mods {
					printModule(app.stdout, m)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&resolve, "resolve", "r", false, "resolve modules before listing")
	return cmd
}

func newUpdateCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "update <module>...",
		Short: "Rebind modules to fresh content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withFramework(cmd.Context(), flags, func(fw *framework.Framework) error {
				mods, err := lookupModules(fw, args)
				if err != nil {
					return err
				}
				for _, m := range mods {
					if err := fw.Update(cmd.Context(), m); err != nil {
						return err
					}
					fmt.Fprintf(app.stdout, "%s %s revision %s\n", SuccessStyle.Render("updated"), KeyStyle.Render(m.ID().String()), m.Current().ID())
				}
				return nil
			})
		},
	}
}

func newUninstallCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall <module>...",
		Aliases: []string{"rm"},
		Short:   "Uninstall modules",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withFramework(cmd.Context(), flags, func(fw *framework.Framework) error {
				mods, err := lookupModules(fw, args)
				if err != nil {
					return err
				}
				for _, m := range mods {
					if err := fw.Uninstall(cmd.Context(), m); err != nil {
						return err
					}
					fmt.Fprintf(app.stdout, "%s %s %s\n", WarningStyle.Render("uninstalled"), KeyStyle.Render(m.ID().String()), m.Location())
				}
				return nil
			})
		},
	}
}

func newResolveCommand(app *App, flags *globalFlags) *cobra.Command {
	var exclude []string
	cmd := &cobra.Command{
		Use:   "resolve [module]...",
		Short: "Resolve module wiring",
		Long: `Resolve the given modules, or every installed module.

Each module's Require-Module and Import-Package entries must be provided by
another resolvable module or by the configured system packages. The command
exits with status 1 when any module stays unresolved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(exclude) > 0 {
				h := app.Hooks.Register("modhost.exclude", excludeHook(exclude))
				defer h.Unregister()
			}
			return app.withFramework(cmd.Context(), flags, func(fw *framework.Framework) error {
				mods, err := lookupModules(fw, args)
				if err != nil {
					return err
				}
				report, err := fw.Resolve(cmd.Context(), mods...)
				if err != nil {
					return err
				}
				for _, m := range report.Resolved {
					fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render("resolved"), KeyStyle.Render(m.ID().String()), describe(m))
				}
				for _, u := range report.Unresolved {
					fmt.Fprintf(app.stdout, "%s %s %s: %s\n", ErrorStyle.Render("unresolved"), KeyStyle.Render(u.Module.ID().String()), describe(u.Module), u.Reason)
				}
				if len(report.Unresolved) > 0 {
					return &ExitError{Code: 1, Err: errUnresolved}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "symbolic names kept out of resolution by a resolver hook")
	return cmd
}

// excludeHook keeps modules with the given symbolic names from resolving.
func excludeHook(names []string) resolverhook.Hook {
	return resolverhook.Funcs{
		OnFilterResolvable: func(c *resolverhook.Candidates[resolverhook.Revision]) error {
			c.RemoveFunc(func(r resolverhook.Revision) bool {
				name, ok := r.SymbolicName()
				return ok && slices.Contains(names, name)
			})
			return nil
		},
	}
}

// describe renders "name version (location)", or just the location for
// modules without a symbolic name.
func describe(m *framework.Module) string {
	rev := m.Current()
	if rev == nil {
		return m.Location().String()
	}
	name, ok := rev.SymbolicName()
	if !ok {
		return SubtitleStyle.Render(m.Location().String())
	}
	version, err := rev.Headers().Version()
	if err != nil {
		return fmt.Sprintf("%s %s", name, SubtitleStyle.Render("("+m.Location().String()+")"))
	}
	return fmt.Sprintf("%s %s %s", name, version, SubtitleStyle.Render("("+m.Location().String()+")"))
}

func printModule(w io.Writer, m *framework.Module) {
	source, gen := "-", "-"
	if rev := m.Current(); rev != nil {
		source = rev.Source().String()
		gen = rev.ID()
	}
	fmt.Fprintf(w, "%-4s %-11s %-8s %-6s %s\n", KeyStyle.Render(m.ID().String()), m.State(), source, gen, describe(m))
}
