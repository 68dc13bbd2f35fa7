// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/invowk/modhost/internal/framework"
	"github.com/invowk/modhost/pkg/content"

	"github.com/spf13/cobra"
)

func newEntriesCommand(app *App, flags *globalFlags) *cobra.Command {
	var recurse bool
	cmd := &cobra.Command{
		Use:   "entries <module> [path]",
		Short: "List entry paths of a module",
		Long: `List the entry paths directly below path (default: the module root).
Directories end in "/". A missing path prints nothing and exits with status 1;
an empty directory prints nothing and succeeds.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 2 {
				path = args[1]
			}
			return app.withFramework(cmd.Context(), flags, func(fw *framework.Framework) error {
				m, err := lookupModule(fw, args[0])
				if err != nil {
					return err
				}
				names, ok, err := m.EntryPaths(path, recurse)
				if err != nil {
					return err
				}
				if !ok {
					return &ExitError{Code: 1, Err: fmt.Errorf("no entries at %q in module %s", path, m.ID())}
				}
				for _, n := range names {
					fmt.Fprintln(app.stdout, n)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recurse, "recursive", "r", false, "include entries of sub-directories")
	return cmd
}

func newFindCommand(app *App, flags *globalFlags) *cobra.Command {
	var recurse bool
	cmd := &cobra.Command{
		Use:   "find <module> <path> <pattern>",
		Short: "Find entries whose name matches a glob pattern",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withFramework(cmd.Context(), flags, func(fw *framework.Framework) error {
				m, err := lookupModule(fw, args[0])
				if err != nil {
					return err
				}
				names, ok, err := m.Find(args[1], args[2], recurse)
				if err != nil {
					return err
				}
				if !ok {
					return &ExitError{Code: 1, Err: fmt.Errorf("no entries at %q in module %s", args[1], m.ID())}
				}
				for _, n := range names {
					fmt.Fprintln(app.stdout, n)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recurse, "recursive", "r", false, "search sub-directories")
	return cmd
}

func newCatCommand(app *App, flags *globalFlags) *cobra.Command {
	var resource bool
	cmd := &cobra.Command{
		Use:   "cat <module> <path>",
		Short: "Print the bytes of a module entry",
		Long: `Print the bytes of a module entry. With --resource the name is looked up
the way the module's class loader would: through the connect loader when the
content supplies one, otherwise along the module class path.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withFramework(cmd.Context(), flags, func(fw *framework.Framework) error {
				m, err := lookupModule(fw, args[0])
				if err != nil {
					return err
				}
				var e content.Entry
				if resource {
					e, err = m.Resource(args[1])
				} else {
					e, err = m.Entry(args[1])
				}
				if err != nil {
					return err
				}
				if e == nil {
					return &ExitError{Code: 1, Err: fmt.Errorf("entry %q not found in module %s", args[1], m.ID())}
				}
				data, err := content.ReadAll(e)
				if err != nil {
					return err
				}
				_, err = app.stdout.Write(data)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&resource, "resource", false, "look the name up along the class path")
	return cmd
}
