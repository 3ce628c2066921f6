// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"bakery-cli/internal/config"
	"bakery-cli/internal/container"
	"bakery-cli/internal/issue"
	"bakery-cli/pkg/bakefile"
	"bakery-cli/pkg/platform"
)

// loadRecipe resolves and parses the recipe file: the explicit path when
// given, otherwise bakefile.cue in the current directory. Recipe fields
// the file leaves unset are filled from the configured defaults.
func loadRecipe(path string) (*bakefile.Bakefile, error) {
	if path == "" {
		path = bakefile.DefaultFileName
	}
	if _, err := os.Stat(path); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load recipe").
			WithResource(path).
			WithSuggestion("Run 'bakery init' to create a starter bakefile.cue").
			WithSuggestion("Use --file to point at a recipe in another directory").
			Wrap(fmt.Errorf("recipe not found: %w", err)).
			BuildError()
	}

	bf, err := bakefile.Parse(path, bakefile.WithDefaults(recipeDefaults()))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse recipe").
			WithResource(path).
			WithSuggestion("Check that the file contains valid CUE syntax").
			WithSuggestion("Verify the fields against 'bakery init' output").
			Wrap(err).
			BuildError()
	}
	return bf, nil
}

// recipeDefaults maps the configured recipe defaults into the parser's
// shape. A failed config load falls back to the built-in defaults.
func recipeDefaults() bakefile.Defaults {
	cfg, err := config.Load(context.Background())
	if err != nil || cfg == nil {
		return bakefile.Defaults{}
	}
	return bakefile.Defaults{
		Base:    cfg.Defaults.Base,
		Workdir: cfg.Defaults.Workdir,
		User: bakefile.UserSpec{
			Name: cfg.Defaults.User.Name,
			UID:  cfg.Defaults.User.UID,
		},
	}
}

// resolveEngine turns the configured engine preference into a live engine,
// with actionable suggestions when none responds.
func resolveEngine(ctx context.Context, cfg *config.Config) (container.Engine, error) {
	pref := container.EngineAuto
	if cfg != nil {
		pref = container.EngineType(cfg.ContainerEngine)
	}

	eng, err := container.NewEngine(ctx, pref)
	if err != nil {
		ec := issue.NewErrorContext().
			WithOperation("detect container engine").
			WithSuggestion("Install Docker or Podman and ensure the daemon is running").
			WithSuggestion("Set container_engine in the bakery config to pick one explicitly")
		if sandbox := platform.DetectSandbox(); sandbox != platform.SandboxNone {
			ec = ec.WithSuggestion(fmt.Sprintf(
				"Running inside a %s sandbox; the engine socket may need to be exposed to it", sandbox))
		}
		return nil, ec.Wrap(err).BuildError()
	}
	return eng, nil
}
