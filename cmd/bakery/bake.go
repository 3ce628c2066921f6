// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"bakery-cli/internal/bake"
	"bakery-cli/internal/config"
	"bakery-cli/internal/issue"
	"bakery-cli/pkg/types"
)

var (
	bakeFile        string
	bakePlanOnly    bool
	bakeNoCache     bool
	bakeReceiptPath string
	bakeSkipReceipt bool

	bakeCmd = &cobra.Command{
		Use:   "bake",
		Short: "Build the container image for a recipe",
		Long: `Build the container image described by a bakefile.cue recipe.

The bake pipeline validates the dependency manifest, computes the build
plan, renders a Dockerfile, stages a temporary build context, drives the
container engine, and writes a YAML receipt next to the recipe. With
--plan the pipeline stops after rendering and prints the plan and
Dockerfile instead of building.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBake(cmd)
		},
	}
)

func init() {
	bakeCmd.Flags().StringVarP(&bakeFile, "file", "f", "", "recipe file (default ./bakefile.cue)")
	bakeCmd.Flags().BoolVar(&bakePlanOnly, "plan", false, "print the build plan and Dockerfile without building")
	bakeCmd.Flags().BoolVar(&bakeNoCache, "no-cache", false, "ignore cached images and the engine layer cache")
	bakeCmd.Flags().StringVar(&bakeReceiptPath, "receipt", "", "write the receipt to this path instead of next to the recipe")
	bakeCmd.Flags().BoolVar(&bakeSkipReceipt, "skip-receipt", false, "do not write a receipt")
}

func runBake(cmd *cobra.Command) error {
	ctx := cmd.Context()

	bf, err := loadRecipe(bakeFile)
	if err != nil {
		return &ExitError{Code: types.ExitCode(1), Err: err}
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		// Already warned during init; proceed with defaults.
		cfg = config.DefaultConfig()
	}

	if bakePlanOnly {
		baker := bake.NewBaker(nil, nil)
		plan, dockerfile, err := baker.Plan(bf)
		if err != nil {
			return &ExitError{Code: types.ExitCode(1), Err: planError(bf.FilePath, err)}
		}
		fmt.Fprintln(cmd.OutOrStdout(), TitleStyle.Render("Build plan for ")+CmdStyle.Render(bf.Name))
		for _, line := range plan.Describe() {
			fmt.Fprintln(cmd.OutOrStdout(), "  "+line)
		}
		for _, m := range plan.Mounts {
			fmt.Fprintln(cmd.OutOrStdout(), VerboseStyle.Render(
				fmt.Sprintf("  mount at run time: %s -> %s", m.Source, m.Dest)))
		}
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), TitleStyle.Render("Dockerfile"))
		fmt.Fprint(cmd.OutOrStdout(), dockerfile)
		return nil
	}

	eng, err := resolveEngine(ctx, cfg)
	if err != nil {
		return &ExitError{Code: types.ExitCode(1), Err: err}
	}

	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	stageDir := ""
	if dir, err := config.CacheDir(cfg); err == nil {
		stageDir = filepath.Join(dir, "contexts")
	} else {
		logger.Debug("cache dir unavailable, staging in temp", "err", err)
	}

	baker := bake.NewBaker(eng, logger)
	res, err := baker.Bake(ctx, bf, bake.Options{
		NoCache:     bakeNoCache,
		ReceiptPath: bakeReceiptPath,
		SkipReceipt: bakeSkipReceipt,
		StageDir:    stageDir,
	})
	if err != nil {
		return &ExitError{Code: types.ExitCode(1), Err: issue.NewErrorContext().
			WithOperation("bake image").
			WithResource(bf.FilePath).
			WithSuggestion("Run with --plan to inspect the generated Dockerfile").
			WithSuggestion("Run with --no-cache to rule out a stale cached layer").
			Wrap(err).
			BuildError()}
	}

	if res.FromCache {
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓ ")+"reused cached image "+CmdStyle.Render(res.ImageTag))
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓ ")+"baked image "+CmdStyle.Render(res.ImageTag))
	}
	if verbose {
		fmt.Fprintln(cmd.OutOrStdout(), VerboseStyle.Render("  cache key: "+res.CacheKey))
	}
	return nil
}

func planError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("compute build plan").
		WithResource(path).
		WithSuggestion("Check the dependency manifest referenced by the recipe").
		Wrap(err).
		BuildError()
}
