// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bakery-cli/internal/bake"
	"bakery-cli/internal/issue"
	"bakery-cli/internal/verify"
	"bakery-cli/pkg/types"
)

var (
	verifyFile  string
	verifyImage string

	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Check a baked image against its recipe",
		Long: `Check that a baked image matches its recipe: the offline flag and
declared environment are present, the entrypoint and user are what the
recipe asked for, and every baked payload is readable from inside a
throwaway container running as the recipe's user.

The image tag is taken from --image, or from the receipt written next
to the recipe by a previous bake.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd)
		},
	}
)

func init() {
	verifyCmd.Flags().StringVarP(&verifyFile, "file", "f", "", "recipe file (default ./bakefile.cue)")
	verifyCmd.Flags().StringVar(&verifyImage, "image", "", "image tag to verify (default from the receipt)")
}

func runVerify(cmd *cobra.Command) error {
	ctx := cmd.Context()

	bf, err := loadRecipe(verifyFile)
	if err != nil {
		return &ExitError{Code: types.ExitCode(1), Err: err}
	}

	imageTag := verifyImage
	if imageTag == "" {
		receiptPath := bake.ReceiptPathFor(bf)
		receipt, err := bake.ReadReceipt(receiptPath)
		if err != nil {
			return &ExitError{Code: types.ExitCode(1), Err: issue.NewErrorContext().
				WithOperation("resolve image tag").
				WithResource(receiptPath).
				WithSuggestion("Run 'bakery bake' first so a receipt exists").
				WithSuggestion("Or pass the image tag explicitly with --image").
				Wrap(err).
				BuildError()}
		}
		imageTag = receipt.ImageTag
	}

	verifier, err := verify.New(ctx)
	if err != nil {
		return &ExitError{Code: types.ExitCode(1), Err: issue.NewErrorContext().
			WithOperation("connect to container daemon").
			WithSuggestion("Check that the Docker daemon is running and reachable").
			Wrap(err).
			BuildError()}
	}
	defer verifier.Close()

	report, err := verifier.Verify(ctx, bf, imageTag)
	if err != nil {
		return &ExitError{Code: types.ExitCode(1), Err: issue.NewErrorContext().
			WithOperation("verify image").
			WithResource(imageTag).
			Wrap(err).
			BuildError()}
	}

	printReport(cmd, report)
	if !report.OK() {
		return &ExitError{Code: types.ExitCode(1), Err: fmt.Errorf(
			"%w: image %s failed %d of %d checks",
			verify.ErrChecksFailed, imageTag, len(report.Failed()), len(report.Checks))}
	}
	return nil
}

func printReport(cmd *cobra.Command, report *verify.Report) {
	fmt.Fprintln(cmd.OutOrStdout(), TitleStyle.Render("Verification of ")+CmdStyle.Render(report.ImageTag))
	for _, c := range report.Checks {
		mark := SuccessStyle.Render("✓")
		if !c.OK {
			mark = ErrorStyle.Render("✗")
		}
		line := fmt.Sprintf("  %s %s", mark, c.Name)
		if c.Detail != "" && (!c.OK || verbose) {
			line += VerboseStyle.Render(" (" + c.Detail + ")")
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
}
