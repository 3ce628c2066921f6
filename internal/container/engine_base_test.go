// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"os/exec"
	"slices"
	"testing"

	"bakery-cli/pkg/platform"
)

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	eng := newBaseCLIEngine(EngineDocker, "docker")

	tests := []struct {
		name string
		opts BuildOptions
		want []string
	}{
		{
			name: "minimal",
			opts: BuildOptions{ContextDir: "/tmp/ctx", Tag: "bakery-baked:abc"},
			want: []string{"build", "-t", "bakery-baked:abc", "/tmp/ctx"},
		},
		{
			name: "no cache with dockerfile",
			opts: BuildOptions{
				ContextDir:     "/tmp/ctx",
				DockerfilePath: "/tmp/ctx/Dockerfile",
				Tag:            "img:1",
				NoCache:        true,
			},
			want: []string{"build", "-t", "img:1", "-f", "/tmp/ctx/Dockerfile", "--no-cache", "/tmp/ctx"},
		},
		{
			name: "build args sorted",
			opts: BuildOptions{
				ContextDir: ".",
				BuildArgs:  map[string]string{"ZED": "2", "ALPHA": "1"},
			},
			want: []string{"build", "--build-arg", "ALPHA=1", "--build-arg", "ZED=2", "."},
		},
		{
			name: "pull",
			opts: BuildOptions{ContextDir: ".", Pull: true},
			want: []string{"build", "--pull", "."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := eng.BuildArgs(tt.opts)
			if !slices.Equal(got, tt.want) {
				t.Errorf("BuildArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunArgs(t *testing.T) {
	t.Parallel()

	eng := newBaseCLIEngine(EngineDocker, "docker")

	tests := []struct {
		name string
		opts RunOptions
		want []string
	}{
		{
			name: "image and cmd only",
			opts: RunOptions{Image: "img:1", Cmd: []string{"python", "runner.py"}},
			want: []string{"run", "img:1", "python", "runner.py"},
		},
		{
			name: "user and network none",
			opts: RunOptions{
				Image:   "img:1",
				User:    "1000:1000",
				Network: "none",
				Remove:  true,
			},
			want: []string{"run", "--rm", "--user", "1000:1000", "--network", "none", "img:1"},
		},
		{
			name: "entrypoint override with args",
			opts: RunOptions{
				Image:      "img:1",
				Entrypoint: []string{"sh", "-c"},
				Cmd:        []string{"test -r /workspace/runner.py"},
			},
			want: []string{"run", "--entrypoint", "sh", "img:1", "-c", "test -r /workspace/runner.py"},
		},
		{
			name: "cleared entrypoint",
			opts: RunOptions{Image: "img:1", Entrypoint: []string{}, Cmd: []string{"ls"}},
			want: []string{"run", "--entrypoint", "", "img:1", "ls"},
		},
		{
			name: "env volumes workdir",
			opts: RunOptions{
				Image:   "img:1",
				Env:     []string{"HF_HUB_OFFLINE=1"},
				Volumes: []string{"/host/data:/workspace/data:ro"},
				WorkDir: "/workspace",
			},
			want: []string{
				"run", "--workdir", "/workspace", "--env", "HF_HUB_OFFLINE=1",
				"--volume", "/host/data:/workspace/data:ro", "img:1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := eng.RunArgs(tt.opts)
			if !slices.Equal(got, tt.want) {
				t.Errorf("RunArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineTypeValidate(t *testing.T) {
	t.Parallel()

	for _, valid := range []EngineType{EngineDocker, EnginePodman, EngineAuto} {
		if err := valid.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", valid, err)
		}
	}
	if err := EngineType("containerd").Validate(); err == nil {
		t.Error("Validate(containerd) = nil, want error")
	}
}

func TestLastLines(t *testing.T) {
	t.Parallel()

	if got := lastLines("a\nb\nc\nd", 2); got != "c\nd" {
		t.Errorf("lastLines() = %q, want %q", got, "c\nd")
	}
	if got := lastLines("a\nb", 5); got != "a\nb" {
		t.Errorf("lastLines() = %q, want %q", got, "a\nb")
	}
}

func TestHostCommandUnsandboxed(t *testing.T) {
	t.Parallel()

	if platform.IsInSandbox() {
		t.Skip("running inside an application sandbox")
	}

	eng := newBaseCLIEngine(EngineDocker, "docker")

	var gotName string
	var gotArgs []string
	eng.SetExecCommand(func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotName = name
		gotArgs = args
		return exec.CommandContext(ctx, "true")
	})

	_ = eng.hostCommand(context.Background(), "version")

	if gotName != "docker" {
		t.Errorf("command name = %q, want %q", gotName, "docker")
	}
	if !slices.Equal(gotArgs, []string{"version"}) {
		t.Errorf("command args = %v, want [version]", gotArgs)
	}
}
