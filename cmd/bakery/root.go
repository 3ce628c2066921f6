// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for bakery.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"bakery-cli/internal/config"
	"bakery-cli/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "bakery",
		Short: "Bake agent-runner container images from declarative recipes",
		Long: TitleStyle.Render("bakery") + SubtitleStyle.Render(" - recipe-driven container image baking") + `

bakery turns a declarative recipe (a 'bakefile.cue' in CUE format) into
a built, verified container image: it generates a Dockerfile, stages a
build context, drives Docker or Podman, and records a build receipt.
Recipes package a runner script, an agent module, a data payload, and
an optional model prefetch that makes the image offline-ready.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Run 'bakery init' to create a starter bakefile.cue
  2. Adjust payload paths and options in the recipe
  3. Bake the image with: bakery bake

` + SubtitleStyle.Render("Examples:") + `
  bakery bake               Build the image for ./bakefile.cue
  bakery bake --plan        Print the build plan and Dockerfile, build nothing
  bakery validate           Check the recipe without building
  bakery verify             Probe a baked image for readiness
  bakery config show        Show current configuration`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/bakery/config.cue)")

	rootCmd.AddCommand(bakeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		renderIssue(os.Stderr, err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFilePath(cfgFile)
	}

	cfg, err := config.Load(context.Background())
	if err != nil {
		// Config errors surface as warnings; commands fall back to defaults.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}

	// Apply verbose from config if not set via flag
	if cfg != nil && !verbose {
		verbose = cfg.UI.Verbose
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}
