// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"errors"
	"fmt"
	"path/filepath"

	"bakery-cli/pkg/bakefile"
)

// ErrPayloadMissing indicates a payload source path does not exist on the
// host before any engine work started.
var ErrPayloadMissing = errors.New("payload source missing")

// FileProvider supplies one payload to the image, either by baking it
// into the build context or by deferring it to a run-time mount. The
// plan logic treats both the same way.
type FileProvider interface {
	// Name identifies the payload (runner, agent, data, symbols).
	Name() string
	// Contribute yields the payload's plan step (baked) or its run-time
	// mount spec (mounted). Exactly one of the two is non-nil.
	Contribute(bf *bakefile.Bakefile) (*Step, *MountSpec)
	// Stage materializes the payload into the build context. Mount
	// providers only check the source exists.
	Stage(recipeDir, contextDir string) error
}

// PayloadProviders derives the provider set from a validated recipe.
// Runner and symbols are always baked; agent and data honor their
// per-payload provide mode.
func PayloadProviders(bf *bakefile.Bakefile) []FileProvider {
	providers := []FileProvider{
		&bakedProvider{name: "runner", source: bf.Runner, dest: bf.RunnerDest()},
	}
	if bf.Symbols != "" {
		providers = append(providers,
			&bakedProvider{name: "symbols", source: bf.Symbols, dest: bf.SymbolsDest()})
	}
	providers = append(providers,
		payloadProvider("agent", bf.Agent, bf.AgentDest()),
		payloadProvider("data", bf.Data, bf.DataDest()),
	)
	return providers
}

func payloadProvider(name string, spec bakefile.PayloadSpec, dest string) FileProvider {
	if spec.IsBaked() {
		return &bakedProvider{name: name, source: spec.Source, dest: dest}
	}
	return &mountProvider{name: name, source: spec.Source, dest: dest}
}

// bakedProvider copies its payload into the build context and emits a
// COPY step.
type bakedProvider struct {
	name   string
	source string
	dest   string
}

func (p *bakedProvider) Name() string { return p.name }

func (p *bakedProvider) Contribute(*bakefile.Bakefile) (*Step, *MountSpec) {
	return &Step{
		Kind: StepCopyPayload,
		Desc: fmt.Sprintf("copy %s (%s) to %s", p.name, p.source, p.dest),
		Args: []string{contextPath(p.source), p.dest},
	}, nil
}

func (p *bakedProvider) Stage(recipeDir, contextDir string) error {
	src := resolveSource(recipeDir, p.source)
	dst := filepath.Join(contextDir, contextPath(p.source))
	if err := copyPath(src, dst); err != nil {
		return fmt.Errorf("stage %s payload: %w", p.name, err)
	}
	return nil
}

// mountProvider contributes nothing to the Dockerfile; the payload is
// bound in at run time and only recorded in the receipt.
type mountProvider struct {
	name   string
	source string
	dest   string
}

func (p *mountProvider) Name() string { return p.name }

func (p *mountProvider) Contribute(*bakefile.Bakefile) (*Step, *MountSpec) {
	return nil, &MountSpec{Source: p.source, Dest: p.dest}
}

// Stage is a no-op for mounts. The source only has to exist when the
// container runs; the receipt records it as pending.
func (p *mountProvider) Stage(string, string) error { return nil }

func resolveSource(recipeDir, source string) string {
	if filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(recipeDir, source)
}
