// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"bakery-cli/pkg/platform"
)

// ExecCommandFunc creates the command a CLI engine runs. Tests inject a
// fake to capture arguments without touching a real engine.
type ExecCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// volumeFormatter lets an engine rewrite bind mount specs before they are
// passed to the CLI (Podman appends SELinux labels).
type volumeFormatter func(spec string) string

// runArgsTransformer lets an engine append engine-specific flags to a
// `run` invocation (Podman rootless user namespace handling).
type runArgsTransformer func(args []string, opts RunOptions) []string

// BaseCLIEngine implements Engine by shelling out to an engine binary.
// Docker and Podman differ only in binary name, volume labeling, and
// run-flag quirks, so both embed this type.
type BaseCLIEngine struct {
	engineType   EngineType
	binary       string
	execCommand  ExecCommandFunc
	formatVolume volumeFormatter
	transformRun runArgsTransformer
}

func newBaseCLIEngine(engineType EngineType, binary string) *BaseCLIEngine {
	return &BaseCLIEngine{
		engineType:   engineType,
		binary:       binary,
		execCommand:  exec.CommandContext,
		formatVolume: func(spec string) string { return spec },
		transformRun: func(args []string, _ RunOptions) []string { return args },
	}
}

// SetExecCommand replaces the command factory. Intended for tests.
func (e *BaseCLIEngine) SetExecCommand(fn ExecCommandFunc) {
	e.execCommand = fn
}

// Type implements Engine.
func (e *BaseCLIEngine) Type() EngineType { return e.engineType }

// IsAvailable implements Engine. It requires both the binary on PATH and
// a responding daemon, checked via `version`. Inside a Flatpak or Snap
// sandbox the PATH check is skipped: the binary lives on the host and is
// only reachable through the spawn wrapper.
func (e *BaseCLIEngine) IsAvailable(ctx context.Context) bool {
	if !platform.IsInSandbox() && !binaryOnPath(e.binary) {
		return false
	}
	cmd := e.hostCommand(ctx, "version", "--format", "{{.Client.Version}}")
	return cmd.Run() == nil
}

// hostCommand builds an engine invocation. When the process runs inside
// an application sandbox the engine binary lives on the host, so the
// invocation is routed through the sandbox's host-spawn wrapper.
func (e *BaseCLIEngine) hostCommand(ctx context.Context, args ...string) *exec.Cmd {
	sandbox := platform.DetectSandbox()
	if spawn := platform.SpawnCommandFor(sandbox); spawn != "" {
		wrapped := append(platform.SpawnArgsFor(sandbox), e.binary)
		return e.execCommand(ctx, spawn, append(wrapped, args...)...)
	}
	return e.execCommand(ctx, e.binary, args...)
}

// BuildArgs assembles the argument list for an image build.
func (e *BaseCLIEngine) BuildArgs(opts BuildOptions) []string {
	args := []string{"build"}
	if opts.Tag != "" {
		args = append(args, "-t", opts.Tag)
	}
	if opts.DockerfilePath != "" {
		args = append(args, "-f", opts.DockerfilePath)
	}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	if opts.Pull {
		args = append(args, "--pull")
	}
	if len(opts.BuildArgs) > 0 {
		keys := make([]string, 0, len(opts.BuildArgs))
		for k := range opts.BuildArgs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, opts.BuildArgs[k]))
		}
	}
	contextDir := opts.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	return append(args, filepath.Clean(contextDir))
}

// RunArgs assembles the argument list for a container run.
func (e *BaseCLIEngine) RunArgs(opts RunOptions) []string {
	args := []string{"run"}
	if opts.Remove {
		args = append(args, "--rm")
	}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	if opts.User != "" {
		args = append(args, "--user", opts.User)
	}
	if opts.WorkDir != "" {
		args = append(args, "--workdir", opts.WorkDir)
	}
	if opts.Network != "" {
		args = append(args, "--network", opts.Network)
	}
	for _, env := range opts.Env {
		args = append(args, "--env", env)
	}
	for _, vol := range opts.Volumes {
		args = append(args, "--volume", e.formatVolume(vol))
	}
	if opts.Entrypoint != nil {
		if len(opts.Entrypoint) == 0 {
			args = append(args, "--entrypoint", "")
		} else {
			args = append(args, "--entrypoint", opts.Entrypoint[0])
		}
	}
	args = e.transformRun(args, opts)
	args = append(args, opts.Image)
	if opts.Entrypoint != nil && len(opts.Entrypoint) > 1 {
		args = append(args, opts.Entrypoint[1:]...)
	}
	return append(args, opts.Cmd...)
}

// Build implements Engine.
func (e *BaseCLIEngine) Build(ctx context.Context, opts BuildOptions) error {
	cmd := e.hostCommand(ctx, e.BuildArgs(opts)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v: %s", ErrBuildFailed, e.binary, err, lastLines(stderr.String(), 20))
	}
	return nil
}

// Run implements Engine. The container runs to completion; a non-zero
// container exit is reported in the result, not as an error.
func (e *BaseCLIEngine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	cmd := e.hostCommand(ctx, e.RunArgs(opts)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	result := &RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !isExitError(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s: %v", ErrRunFailed, e.binary, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// ImageExists implements Engine via `image inspect`.
func (e *BaseCLIEngine) ImageExists(ctx context.Context, tag string) (bool, error) {
	cmd := e.hostCommand(ctx, "image", "inspect", "--format", "{{.Id}}", tag)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if isExitError(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("image inspect %s: %w", tag, err)
	}
	return true, nil
}

// RemoveImage implements Engine.
func (e *BaseCLIEngine) RemoveImage(ctx context.Context, tag string) error {
	cmd := e.hostCommand(ctx, "image", "rm", "--force", tag)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("image rm %s: %v: %s", tag, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func isExitError(err error, target **exec.ExitError) bool {
	return errors.As(err, target)
}

// lastLines trims build output down to the tail that usually carries the
// actual failure.
func lastLines(s string, n int) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
