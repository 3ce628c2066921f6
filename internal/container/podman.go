// SPDX-License-Identifier: MPL-2.0

package container

import (
	"os"
	"strings"
)

// PodmanEngine drives builds and runs through the podman CLI. Podman needs
// two adjustments over the shared CLI engine: SELinux relabeling on bind
// mounts, and user namespace mapping when running rootless with --user.
type PodmanEngine struct {
	*BaseCLIEngine
}

// NewPodmanEngine returns a Podman-backed engine.
func NewPodmanEngine() *PodmanEngine {
	eng := &PodmanEngine{BaseCLIEngine: newBaseCLIEngine(EnginePodman, "podman")}
	eng.formatVolume = addSELinuxLabel
	eng.transformRun = podmanRunArgs
	return eng
}

// isSELinuxEnforcing reports whether SELinux is present and enforcing,
// which is when Podman bind mounts need a relabel flag.
func isSELinuxEnforcing() bool {
	data, err := os.ReadFile("/sys/fs/selinux/enforce")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}

// addSELinuxLabel appends the :z shared relabel flag to a bind mount spec
// when SELinux is enforcing and no label is already present.
func addSELinuxLabel(spec string) string {
	if !isSELinuxEnforcing() {
		return spec
	}
	if strings.HasSuffix(spec, ":z") || strings.HasSuffix(spec, ":Z") ||
		strings.HasSuffix(spec, ",z") || strings.HasSuffix(spec, ",Z") {
		return spec
	}
	parts := strings.Split(spec, ":")
	if len(parts) >= 3 {
		return spec + ",z"
	}
	return spec + ":z"
}

// podmanRunArgs keeps host file ownership usable inside rootless containers
// when mounts are present and no explicit user override was requested.
func podmanRunArgs(args []string, opts RunOptions) []string {
	if os.Geteuid() != 0 && len(opts.Volumes) > 0 && opts.User == "" {
		args = append(args, "--userns=keep-id")
	}
	return args
}
