// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"errors"
	"testing"

	"bakery-cli/pkg/bakefile"
)

const minimalRecipe = `
name: "backtest-runner"
`

const prefetchRecipe = `
name: "backtest-runner"
prefetch: {
	script: "huggingface.py"
}
`

func mustParse(t *testing.T, src string) *bakefile.Bakefile {
	t.Helper()
	bf, err := bakefile.ParseBytes([]byte(src), "bakefile.cue")
	if err != nil {
		t.Fatalf("ParseBytes() error: %v", err)
	}
	return bf
}

func kinds(p *Plan) []StepKind {
	out := make([]StepKind, 0, len(p.Steps))
	for _, s := range p.Steps {
		out = append(out, s.Kind)
	}
	return out
}

func TestNewPlanOrdering(t *testing.T) {
	t.Parallel()

	bf := mustParse(t, minimalRecipe)
	plan, err := NewPlan(bf, PayloadProviders(bf))
	if err != nil {
		t.Fatalf("NewPlan() error: %v", err)
	}

	want := []StepKind{
		StepBaseImage,
		StepInstallDeps,
		StepCopyPayload, // runner
		StepCopyPayload, // agent
		StepCopyPayload, // data
		StepCreateUser,
		StepPermissions,
		StepSwitchUser,
		StepEntrypoint,
	}
	got := kinds(plan)
	if len(got) != len(want) {
		t.Fatalf("plan kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %s, want %s", i, got[i], want[i])
		}
	}
	if plan.OfflineDeclared() {
		t.Error("OfflineDeclared() = true without prefetch")
	}
}

func TestNewPlanPrefetchPlacement(t *testing.T) {
	t.Parallel()

	bf := mustParse(t, prefetchRecipe)
	plan, err := NewPlan(bf, PayloadProviders(bf))
	if err != nil {
		t.Fatalf("NewPlan() error: %v", err)
	}

	got := kinds(plan)
	// Prefetch sits directly after dependency install, before any payload
	// copy; the offline flag directly follows the prefetch.
	for i, k := range got {
		if k == StepPrefetch {
			if got[i-1] != StepInstallDeps {
				t.Errorf("step before prefetch = %s, want %s", got[i-1], StepInstallDeps)
			}
			if got[i+1] != StepOfflineFlag {
				t.Errorf("step after prefetch = %s, want %s", got[i+1], StepOfflineFlag)
			}
		}
		if k == StepCopyPayload {
			if !plan.OfflineDeclared() {
				t.Fatal("OfflineDeclared() = false with prefetch")
			}
			break
		}
	}
}

func TestNewPlanWidenOrdersChmodBeforeUseradd(t *testing.T) {
	t.Parallel()

	bf := mustParse(t, `
name: "backtest-runner"
permissions: "widen"
`)
	plan, err := NewPlan(bf, PayloadProviders(bf))
	if err != nil {
		t.Fatalf("NewPlan() error: %v", err)
	}

	got := kinds(plan)
	permIdx, userIdx := -1, -1
	for i, k := range got {
		switch k {
		case StepPermissions:
			permIdx = i
		case StepCreateUser:
			userIdx = i
		}
	}
	if permIdx == -1 || userIdx == -1 {
		t.Fatalf("plan lacks permissions or create-user step: %v", got)
	}
	if permIdx > userIdx {
		t.Errorf("widen policy: permissions step at %d after create-user at %d", permIdx, userIdx)
	}
}

func TestNewPlanMountPayloadsSkipCopy(t *testing.T) {
	t.Parallel()

	bf := mustParse(t, `
name: "backtest-runner"
agent: {source: "agent", provide: "mount"}
data: {source: "data", provide: "mount"}
`)
	plan, err := NewPlan(bf, PayloadProviders(bf))
	if err != nil {
		t.Fatalf("NewPlan() error: %v", err)
	}

	copies := 0
	for _, k := range kinds(plan) {
		if k == StepCopyPayload {
			copies++
		}
	}
	if copies != 1 { // runner only
		t.Errorf("copy steps = %d, want 1", copies)
	}
	if len(plan.Mounts) != 2 {
		t.Fatalf("mounts = %v, want 2 entries", plan.Mounts)
	}
	if plan.Mounts[0].Dest != "/workspace/agent" {
		t.Errorf("agent mount dest = %q, want /workspace/agent", plan.Mounts[0].Dest)
	}
}

func TestVerifyOrderRejections(t *testing.T) {
	t.Parallel()

	base := Step{Kind: StepBaseImage, Args: []string{"python:3.11-slim", "/workspace"}}
	switchUser := Step{Kind: StepSwitchUser, Args: []string{"runner"}}
	entry := Step{Kind: StepEntrypoint, Args: []string{"python", "runner.py"}}

	tests := []struct {
		name    string
		steps   []Step
		wantErr error
	}{
		{
			name: "privileged step after user switch",
			steps: []Step{
				base, switchUser,
				{Kind: StepInstallDeps, Args: []string{"requirements.txt"}},
				entry,
			},
			wantErr: ErrPrivilegedAfterSwitch,
		},
		{
			name: "extra run after user switch",
			steps: []Step{
				base, switchUser,
				{Kind: StepExtraRun, Args: []string{"apt-get install -y gcc"}},
				entry,
			},
			wantErr: ErrPrivilegedAfterSwitch,
		},
		{
			name:    "missing user switch",
			steps:   []Step{base, entry},
			wantErr: ErrMissingStep,
		},
		{
			name:    "missing entrypoint",
			steps:   []Step{base, switchUser},
			wantErr: ErrMissingStep,
		},
		{
			name:    "base image not first",
			steps:   []Step{switchUser, base, entry},
			wantErr: ErrMissingStep,
		},
		{
			name:    "duplicate user switch",
			steps:   []Step{base, switchUser, switchUser, entry},
			wantErr: ErrDuplicateStep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &Plan{Steps: tt.steps}
			err := p.VerifyOrder()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyOrder() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifyOrderOfflineFlagNeedsPrefetch(t *testing.T) {
	t.Parallel()

	p := &Plan{Steps: []Step{
		{Kind: StepBaseImage, Args: []string{"python:3.11-slim", "/workspace"}},
		{Kind: StepOfflineFlag},
		{Kind: StepSwitchUser, Args: []string{"runner"}},
		{Kind: StepEntrypoint, Args: []string{"python", "runner.py"}},
	}}
	if err := p.VerifyOrder(); err == nil {
		t.Error("VerifyOrder() = nil for offline flag without prefetch")
	}
}

func TestStepPrivileged(t *testing.T) {
	t.Parallel()

	privileged := []StepKind{StepInstallDeps, StepPrefetch, StepExtraRun, StepPermissions, StepCreateUser}
	unprivileged := []StepKind{StepBaseImage, StepOfflineFlag, StepCopyPayload, StepEnv, StepSwitchUser, StepEntrypoint}

	for _, k := range privileged {
		if !(Step{Kind: k}).Privileged() {
			t.Errorf("Privileged(%s) = false, want true", k)
		}
	}
	for _, k := range unprivileged {
		if (Step{Kind: k}).Privileged() {
			t.Errorf("Privileged(%s) = true, want false", k)
		}
	}
}
