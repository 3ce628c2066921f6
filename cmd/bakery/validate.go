// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bakery-cli/internal/bake"
	"bakery-cli/pkg/types"
)

var (
	validateFile string

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate a recipe without building anything",
		Long: `Validate a bakefile.cue recipe: parse it against the schema, check
the dependency manifest, resolve payload sources, and run the ordering
checks on the resulting build plan. Nothing is built.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd)
		},
	}
)

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "recipe file (default ./bakefile.cue)")
}

func runValidate(cmd *cobra.Command) error {
	bf, err := loadRecipe(validateFile)
	if err != nil {
		return &ExitError{Code: types.ExitCode(1), Err: err}
	}

	baker := bake.NewBaker(nil, nil)
	plan, _, err := baker.Plan(bf)
	if err != nil {
		return &ExitError{Code: types.ExitCode(1), Err: planError(bf.FilePath, err)}
	}

	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓ ")+CmdStyle.Render(bf.FilePath)+" is valid")
	if verbose {
		fmt.Fprintln(cmd.OutOrStdout(), VerboseStyle.Render(
			fmt.Sprintf("  %d build steps, %d run-time mounts", len(plan.Steps), len(plan.Mounts))))
	}
	return nil
}
