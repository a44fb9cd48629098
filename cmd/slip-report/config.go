package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/alma-slip-report/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the slip-report config file",
	}
	cmd.AddCommand(newConfigInitCmd(a), newConfigSetDeskCmd(a))
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to the config file",
		Long: `init writes the effective settings (defaults, environment and flags) to the
config file. The API key and Redis password are never written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(a.cfgPath)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to update it)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Save(a.cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s wrote %s\n", color.GreenString("✓"), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "update an existing config file")
	return cmd
}

func newConfigSetDeskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "set-desk LIBRARY DESK",
		Short:   "Set a library's default circulation desk",
		Example: "  slip-report config set-desk MAIN RES_DESK",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(a.cfgPath)
			if err := config.SetLibraryDesk(path, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s default desk of %s is now %s\n", color.GreenString("✓"), args[0], args[1])
			return nil
		},
	}
}
