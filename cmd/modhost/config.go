// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/invowk/modhost/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCommand(app *App, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the configuration file",
	}
	cmd.AddCommand(
		newConfigShowCommand(app, flags),
		newConfigPathCommand(app, flags),
		newConfigInitCommand(app),
	)
	return cmd
}

func newConfigShowCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return err
		},
	}
}

func newConfigPathCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the path of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, found, err := config.Path(config.LoadOptions{ConfigFilePath: flags.configFile})
			if err != nil {
				return err
			}
			if found {
				fmt.Fprintln(app.stdout, path)
			} else {
				fmt.Fprintf(app.stdout, "%s %s\n", path, WarningStyle.Render("(not created, defaults apply)"))
			}
			return nil
		},
	}
}

func newConfigInitCommand(app *App) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, created, err := config.CreateDefaultConfig(dir)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("exists"), path)
				return nil
			}
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("created"), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to write config.cue into (default is the config directory)")
	return cmd
}
