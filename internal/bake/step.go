// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"errors"
	"fmt"
	"path"
	"sort"

	"bakery-cli/pkg/bakefile"
)

var (
	// ErrPrivilegedAfterSwitch indicates a plan placed a privileged step
	// after the switch to the unprivileged user.
	ErrPrivilegedAfterSwitch = errors.New("privileged step after user switch")
	// ErrDuplicateStep indicates a step kind appears more than once where
	// only one occurrence is allowed.
	ErrDuplicateStep = errors.New("duplicate plan step")
	// ErrMissingStep indicates a plan lacks a mandatory step.
	ErrMissingStep = errors.New("missing plan step")
)

// StepKind identifies a build plan step.
type StepKind string

const (
	StepBaseImage   StepKind = "base-image"
	StepInstallDeps StepKind = "install-deps"
	StepPrefetch    StepKind = "prefetch"
	StepOfflineFlag StepKind = "offline-flag"
	StepCopyPayload StepKind = "copy-payload"
	StepExtraRun    StepKind = "extra-run"
	StepEnv         StepKind = "env"
	StepPermissions StepKind = "permissions"
	StepCreateUser  StepKind = "create-user"
	StepSwitchUser  StepKind = "switch-user"
	StepEntrypoint  StepKind = "entrypoint"
)

// Step is one ordered unit of the build plan. Args carry kind-specific
// detail used by the Dockerfile renderer and the receipt.
type Step struct {
	Kind StepKind
	// Desc is a one-line human description shown in --plan output and
	// recorded in the receipt.
	Desc string
	// Args carries renderer inputs; meaning depends on Kind.
	Args []string
}

// Privileged reports whether the step requires root inside the build.
// Copying files, declaring environment and declaring the entrypoint are
// metadata operations; everything that installs, downloads, or changes
// ownership is privileged.
func (s Step) Privileged() bool {
	switch s.Kind {
	case StepInstallDeps, StepPrefetch, StepExtraRun, StepPermissions, StepCreateUser:
		return true
	default:
		return false
	}
}

// Plan is the ordered list of steps for one bake.
type Plan struct {
	Steps []Step
	// Mounts are run-time bind specs contributed by mount-mode payloads.
	// They are not rendered into the Dockerfile; the receipt records them.
	Mounts []MountSpec
}

// MountSpec describes a payload the image expects at run time instead of
// baking in.
type MountSpec struct {
	Source string `yaml:"source"`
	Dest   string `yaml:"dest"`
}

// NewPlan derives the build plan from a validated recipe. Step order is
// fixed: base image, dependency install, optional prefetch then offline
// flag, payload copies, extra run steps, env, permission handling, user
// creation, user switch, entrypoint.
func NewPlan(bf *bakefile.Bakefile, providers []FileProvider) (*Plan, error) {
	p := &Plan{}

	p.add(StepBaseImage, fmt.Sprintf("base image %s, workdir %s", bf.Base, bf.Workdir),
		bf.Base, bf.Workdir)

	p.add(StepInstallDeps, fmt.Sprintf("install dependencies from %s", bf.Manifest),
		bf.Manifest)

	if bf.HasPrefetch() {
		p.add(StepPrefetch, fmt.Sprintf("prefetch models via %s into %s",
			bf.Prefetch.Script, bf.Prefetch.CacheDir),
			bf.Prefetch.Script, bf.Prefetch.CacheDir)
		p.add(StepOfflineFlag, "declare offline mode (HF_HUB_OFFLINE=1)")
	}

	for _, prov := range providers {
		step, mount := prov.Contribute(bf)
		if step != nil {
			p.Steps = append(p.Steps, *step)
		}
		if mount != nil {
			p.Mounts = append(p.Mounts, *mount)
		}
	}

	for _, cmd := range bf.ExtraRun {
		p.add(StepExtraRun, fmt.Sprintf("run %q", cmd), cmd)
	}

	for _, kv := range envPairs(bf.Env) {
		p.add(StepEnv, fmt.Sprintf("set %s", kv), kv)
	}

	switch bf.Permissions {
	case bakefile.PermissionsWiden:
		p.add(StepPermissions, fmt.Sprintf("widen permissions on %s", bf.Workdir),
			string(bakefile.PermissionsWiden), bf.Workdir)
		p.add(StepCreateUser, fmt.Sprintf("create user %s (uid %d)", bf.User.Name, bf.User.UID),
			bf.User.Name, fmt.Sprintf("%d", bf.User.UID))
	case bakefile.PermissionsChown:
		p.add(StepCreateUser, fmt.Sprintf("create user %s (uid %d)", bf.User.Name, bf.User.UID),
			bf.User.Name, fmt.Sprintf("%d", bf.User.UID))
		p.add(StepPermissions, fmt.Sprintf("chown %s to %s", bf.Workdir, bf.User.Name),
			string(bakefile.PermissionsChown), bf.Workdir, bf.User.Name)
	default:
		return nil, fmt.Errorf("unknown permission policy %q", bf.Permissions)
	}

	p.add(StepSwitchUser, fmt.Sprintf("switch to user %s", bf.User.Name), bf.User.Name)

	entry := bf.DefaultEntrypoint()
	p.add(StepEntrypoint, fmt.Sprintf("entrypoint %v", entry), entry...)

	if err := p.VerifyOrder(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Plan) add(kind StepKind, desc string, args ...string) {
	p.Steps = append(p.Steps, Step{Kind: kind, Desc: desc, Args: args})
}

// VerifyOrder enforces the plan's structural rules: exactly one base
// image step first, exactly one user switch, no privileged step after
// the switch, and the offline flag only directly after a prefetch.
func (p *Plan) VerifyOrder() error {
	if len(p.Steps) == 0 || p.Steps[0].Kind != StepBaseImage {
		return fmt.Errorf("%w: plan must start with the base image step", ErrMissingStep)
	}

	switched := false
	seenOnce := map[StepKind]bool{}
	for i, s := range p.Steps {
		switch s.Kind {
		case StepBaseImage, StepSwitchUser, StepEntrypoint, StepInstallDeps,
			StepPrefetch, StepOfflineFlag, StepCreateUser:
			if seenOnce[s.Kind] {
				return fmt.Errorf("%w: %s", ErrDuplicateStep, s.Kind)
			}
			seenOnce[s.Kind] = true
		}

		if s.Kind == StepOfflineFlag {
			if i == 0 || p.Steps[i-1].Kind != StepPrefetch {
				return fmt.Errorf("offline flag step must directly follow a prefetch step")
			}
		}

		if switched && s.Privileged() {
			return fmt.Errorf("%w: %s", ErrPrivilegedAfterSwitch, s.Kind)
		}
		if s.Kind == StepSwitchUser {
			switched = true
		}
	}

	if !seenOnce[StepSwitchUser] {
		return fmt.Errorf("%w: %s", ErrMissingStep, StepSwitchUser)
	}
	if !seenOnce[StepEntrypoint] {
		return fmt.Errorf("%w: %s", ErrMissingStep, StepEntrypoint)
	}
	return nil
}

// OfflineDeclared reports whether the plan bakes the offline flag in.
func (p *Plan) OfflineDeclared() bool {
	for _, s := range p.Steps {
		if s.Kind == StepOfflineFlag {
			return true
		}
	}
	return false
}

// Describe returns the numbered step list for --plan output.
func (p *Plan) Describe() []string {
	out := make([]string, 0, len(p.Steps))
	for i, s := range p.Steps {
		out = append(out, fmt.Sprintf("%2d. [%s] %s", i+1, s.Kind, s.Desc))
	}
	return out
}

func envPairs(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return pairs
}

// contextPath maps a recipe-relative source to its name inside the build
// context.
func contextPath(source string) string {
	return path.Base(path.Clean(source))
}
