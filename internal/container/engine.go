// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

var (
	// ErrEngineNotAvailable indicates the requested container engine binary
	// was not found on PATH or its daemon did not respond.
	ErrEngineNotAvailable = errors.New("container engine not available")
	// ErrUnsupportedEngine indicates an engine name outside the supported set.
	ErrUnsupportedEngine = errors.New("unsupported container engine")
	// ErrBuildFailed indicates a non-zero exit from an image build.
	ErrBuildFailed = errors.New("image build failed")
	// ErrRunFailed indicates the engine failed to start or run a container.
	ErrRunFailed = errors.New("container run failed")
)

// EngineType identifies a supported container engine.
type EngineType string

const (
	EngineDocker EngineType = "docker"
	EnginePodman EngineType = "podman"
	// EngineAuto selects the first available engine, preferring Docker.
	EngineAuto EngineType = "auto"
)

// Validate checks that the engine type is one of the supported values.
func (e EngineType) Validate() error {
	switch e {
	case EngineDocker, EnginePodman, EngineAuto:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedEngine, string(e))
	}
}

// BuildOptions describes an image build request.
type BuildOptions struct {
	// ContextDir is the build context directory containing the Dockerfile.
	ContextDir string
	// DockerfilePath is the path to the Dockerfile, relative to ContextDir
	// or absolute. Empty means ContextDir/Dockerfile.
	DockerfilePath string
	// Tag is the image tag to apply.
	Tag string
	// NoCache disables the engine's layer cache.
	NoCache bool
	// BuildArgs are passed through as --build-arg KEY=VALUE.
	BuildArgs map[string]string
	// Pull forces a pull of the base image.
	Pull bool
}

// RunOptions describes a container run request.
type RunOptions struct {
	// Image is the image reference to run.
	Image string
	// Name is an optional container name.
	Name string
	// User overrides the image's USER, in uid[:gid] or name form.
	User string
	// Entrypoint overrides the image entrypoint when non-nil. An empty
	// non-nil slice clears the entrypoint.
	Entrypoint []string
	// Cmd is the command and arguments to run.
	Cmd []string
	// Env holds KEY=VALUE environment entries.
	Env []string
	// Volumes holds host:container[:mode] bind mount specs.
	Volumes []string
	// WorkDir sets the working directory inside the container.
	WorkDir string
	// Remove requests --rm so the container is deleted on exit.
	Remove bool
	// Network selects the network mode; "none" isolates the container.
	Network string
}

// RunResult captures the outcome of a container run.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Engine is the interface the bake and verify paths drive container
// engines through.
type Engine interface {
	// Type reports which engine this is.
	Type() EngineType
	// IsAvailable reports whether the engine binary exists and responds.
	IsAvailable(ctx context.Context) bool
	// Build builds an image from a staged context.
	Build(ctx context.Context, opts BuildOptions) error
	// Run runs a container to completion and returns its result.
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
	// ImageExists reports whether an image with the given tag exists locally.
	ImageExists(ctx context.Context, tag string) (bool, error)
	// RemoveImage removes a local image by tag.
	RemoveImage(ctx context.Context, tag string) error
}

// NewEngine returns an engine of the requested type. EngineAuto probes
// Docker first, then Podman, returning ErrEngineNotAvailable when neither
// responds.
func NewEngine(ctx context.Context, engineType EngineType) (Engine, error) {
	if err := engineType.Validate(); err != nil {
		return nil, err
	}
	switch engineType {
	case EngineDocker:
		return NewDockerEngine(), nil
	case EnginePodman:
		return NewPodmanEngine(), nil
	default:
		return AutoDetectEngine(ctx)
	}
}

// AutoDetectEngine probes for an available engine, preferring Docker.
func AutoDetectEngine(ctx context.Context) (Engine, error) {
	candidates := []Engine{NewDockerEngine(), NewPodmanEngine()}
	for _, eng := range candidates {
		if eng.IsAvailable(ctx) {
			return eng, nil
		}
	}
	return nil, fmt.Errorf("%w: neither docker nor podman responded", ErrEngineNotAvailable)
}

// binaryOnPath reports whether name resolves via PATH lookup.
func binaryOnPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
