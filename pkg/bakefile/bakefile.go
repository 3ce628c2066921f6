// SPDX-License-Identifier: MPL-2.0

package bakefile

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"bakery-cli/pkg/types"
)

const (
	// ProvideBake copies a payload into the image at build time.
	ProvideBake ProvideMode = "bake"
	// ProvideMount leaves a payload to a run-time volume mount.
	ProvideMount ProvideMode = "mount"

	// PermissionsWiden recursively widens permissions on the workdir
	// (chmod -R a+rwX) so any later-assigned user can use the tree.
	// Coarse and deliberately not a security boundary.
	PermissionsWiden PermissionPolicy = "widen"
	// PermissionsChown transfers ownership of the workdir to the
	// unprivileged runtime user.
	PermissionsChown PermissionPolicy = "chown"

	// DefaultFileName is the conventional recipe file name.
	DefaultFileName = "bakefile.cue"

	// AgentDir is the payload subdirectory for the agent module.
	AgentDir = "agent"
	// DataDir is the payload subdirectory for the data payload.
	DataDir = "data"
	// ResultsDir is the run-time results directory. Always supplied via
	// mount; never baked.
	ResultsDir = "results"
)

var (
	// ErrInvalidProvideMode is the sentinel error wrapped by InvalidProvideModeError.
	ErrInvalidProvideMode = errors.New("invalid provide mode")
	// ErrInvalidPermissionPolicy is the sentinel error wrapped by InvalidPermissionPolicyError.
	ErrInvalidPermissionPolicy = errors.New("invalid permission policy")
)

type (
	// ProvideMode selects how a payload reaches the container: baked into
	// the image or mounted at run time. The build plan is agnostic to the
	// choice; it only changes which provider handles the payload.
	ProvideMode string

	// InvalidProvideModeError is returned when a ProvideMode is not recognized.
	InvalidProvideModeError struct {
		Value ProvideMode
	}

	// PermissionPolicy selects how the working tree is made usable by the
	// unprivileged runtime user before the identity switch.
	PermissionPolicy string

	// InvalidPermissionPolicyError is returned when a PermissionPolicy is not recognized.
	InvalidPermissionPolicyError struct {
		Value PermissionPolicy
	}

	// PayloadSpec declares an externally supplied payload (agent module,
	// data directory). The build procedure treats payload contents as opaque.
	PayloadSpec struct {
		// Source is the payload path on the host, relative to the bakefile.
		Source string `json:"source"`
		// Provide selects baked-copy or run-time mount supply.
		Provide ProvideMode `json:"provide"`
	}

	// PrefetchSpec declares the optional model-prefetch step. Its presence
	// gates the one-way offline switch: after a successful prefetch the
	// image carries HF_HUB_OFFLINE=1 and the runtime never fetches the
	// artifacts again.
	PrefetchSpec struct {
		// Script is the prefetch script path, relative to the bakefile.
		Script string `json:"script"`
		// CacheDir is the directory the script populates, relative to the
		// workdir.
		CacheDir string `json:"cache_dir"`
	}

	// UserSpec declares the unprivileged runtime identity.
	UserSpec struct {
		Name string       `json:"name"`
		UID  types.UserID `json:"uid"`
	}

	// Bakefile is a parsed recipe. Field semantics mirror the CUE schema
	// in bakefile_schema.cue.
	Bakefile struct {
		Name        string            `json:"name"`
		Tag         string            `json:"tag,omitempty"`
		Base        string            `json:"base"`
		Workdir     string            `json:"workdir"`
		Manifest    string            `json:"manifest"`
		Runner      string            `json:"runner"`
		Agent       PayloadSpec       `json:"agent"`
		Data        PayloadSpec       `json:"data"`
		Symbols     string            `json:"symbols,omitempty"`
		Prefetch    *PrefetchSpec     `json:"prefetch,omitempty"`
		User        UserSpec          `json:"user"`
		Permissions PermissionPolicy  `json:"permissions"`
		Env         map[string]string `json:"env,omitempty"`
		Entrypoint  []string          `json:"entrypoint,omitempty"`
		ExtraRun    []string          `json:"extra_run,omitempty"`

		// FilePath is where the recipe was loaded from. Source paths in the
		// recipe resolve relative to its directory.
		FilePath string `json:"-"`
	}
)

// String returns the string representation of the ProvideMode.
func (m ProvideMode) String() string { return string(m) }

// Validate returns an error if the ProvideMode is not one of the defined modes.
func (m ProvideMode) Validate() error {
	switch m {
	case ProvideBake, ProvideMount:
		return nil
	default:
		return &InvalidProvideModeError{Value: m}
	}
}

// Error implements the error interface.
func (e *InvalidProvideModeError) Error() string {
	return fmt.Sprintf("invalid provide mode %q (valid: bake, mount)", e.Value)
}

// Unwrap returns ErrInvalidProvideMode so callers can use errors.Is for programmatic detection.
func (e *InvalidProvideModeError) Unwrap() error { return ErrInvalidProvideMode }

// String returns the string representation of the PermissionPolicy.
func (p PermissionPolicy) String() string { return string(p) }

// Validate returns an error if the PermissionPolicy is not one of the defined policies.
func (p PermissionPolicy) Validate() error {
	switch p {
	case PermissionsWiden, PermissionsChown:
		return nil
	default:
		return &InvalidPermissionPolicyError{Value: p}
	}
}

// Error implements the error interface.
func (e *InvalidPermissionPolicyError) Error() string {
	return fmt.Sprintf("invalid permission policy %q (valid: widen, chown)", e.Value)
}

// Unwrap returns ErrInvalidPermissionPolicy so callers can use errors.Is for programmatic detection.
func (e *InvalidPermissionPolicyError) Unwrap() error { return ErrInvalidPermissionPolicy }

// IsBaked reports whether the payload is copied into the image.
func (p PayloadSpec) IsBaked() bool { return p.Provide == ProvideBake }

// RunnerDest returns the runner script destination inside the image.
func (b *Bakefile) RunnerDest() string {
	return path.Join(b.Workdir, path.Base(b.Runner))
}

// AgentDest returns the agent payload destination inside the image.
func (b *Bakefile) AgentDest() string {
	return path.Join(b.Workdir, AgentDir)
}

// DataDest returns the data payload destination inside the image.
func (b *Bakefile) DataDest() string {
	return path.Join(b.Workdir, DataDir)
}

// SymbolsDest returns the symbols file destination inside the image,
// or "" when no symbols file is declared.
func (b *Bakefile) SymbolsDest() string {
	if b.Symbols == "" {
		return ""
	}
	return path.Join(b.Workdir, path.Base(b.Symbols))
}

// ResultsDest returns the run-time results directory inside the image.
func (b *Bakefile) ResultsDest() string {
	return path.Join(b.Workdir, ResultsDir)
}

// DefaultEntrypoint returns the command the image runs when the recipe
// declares no entrypoint override. The operator may still override it
// entirely at container start.
func (b *Bakefile) DefaultEntrypoint() []string {
	if len(b.Entrypoint) > 0 {
		return b.Entrypoint
	}
	return []string{"python", path.Base(b.Runner)}
}

// HasPrefetch reports whether a model-prefetch step is declared.
func (b *Bakefile) HasPrefetch() bool { return b.Prefetch != nil }

// Dir returns the directory the recipe was loaded from. Relative source
// paths in the recipe resolve against it.
func (b *Bakefile) Dir() string {
	if b.FilePath == "" {
		return "."
	}
	return filepath.Dir(b.FilePath)
}
