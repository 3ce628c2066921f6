// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bakery-cli/internal/issue"
	"bakery-cli/pkg/bakefile"
	"bakery-cli/pkg/types"
)

var (
	initName  string
	initForce bool

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a starter bakefile.cue in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd)
		},
	}
)

func init() {
	initCmd.Flags().StringVar(&initName, "name", "backtest-runner", "recipe name for the generated file")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing "+bakefile.DefaultFileName)
}

func runInit(cmd *cobra.Command) error {
	path := bakefile.DefaultFileName
	if _, err := os.Stat(path); err == nil && !initForce {
		return &ExitError{Code: types.ExitCode(1), Err: issue.NewErrorContext().
			WithOperation("write starter recipe").
			WithResource(path).
			WithSuggestion("Pass --force to overwrite the existing file").
			Wrap(fmt.Errorf("%s already exists", path)).
			BuildError()}
	}

	if err := os.WriteFile(path, []byte(bakefile.GenerateSample(initName)), 0o644); err != nil {
		return &ExitError{Code: types.ExitCode(1), Err: fmt.Errorf("write %s: %w", path, err)}
	}

	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓ ")+"wrote "+CmdStyle.Render(path))
	fmt.Fprintln(cmd.OutOrStdout(), "Edit the payload paths, then run "+CmdStyle.Render("bakery bake"))
	return nil
}
