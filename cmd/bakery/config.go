// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bakery-cli/internal/config"
	"bakery-cli/pkg/types"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage bakery configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return &ExitError{Code: types.ExitCode(1), Err: err}
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return &ExitError{Code: types.ExitCode(1), Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateDefaultConfig(); err != nil {
				return &ExitError{Code: types.ExitCode(1), Err: err}
			}
			dir, err := config.ConfigDir()
			if err != nil {
				return &ExitError{Code: types.ExitCode(1), Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓ ")+"wrote "+
				CmdStyle.Render(filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt)))
			return nil
		},
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}
