// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"os"
	"sync"
)

// SandboxType identifies the application sandbox wrapping the current
// process, if any.
type SandboxType string

const (
	// SandboxNone means no sandbox was detected.
	SandboxNone SandboxType = ""
	// SandboxFlatpak means the process runs inside a Flatpak sandbox.
	SandboxFlatpak SandboxType = "flatpak"
	// SandboxSnap means the process runs inside a Snap sandbox.
	SandboxSnap SandboxType = "snap"
)

// detectOnce caches detection for the process lifetime; the sandbox
// cannot change while the process runs.
//
// INVARIANT: detectSandboxFrom must not panic. sync.OnceValue re-raises
// a panic on every subsequent call, which would turn one bad lookup into
// a persistent crash.
var detectOnce = sync.OnceValue(func() SandboxType {
	return detectSandboxFrom(os.Getenv, statFile)
})

// DetectSandbox reports which application sandbox, if any, the current
// process is running in. The first call performs the detection; later
// calls return the cached result.
func DetectSandbox() SandboxType {
	return detectOnce()
}

// IsInSandbox reports whether the current process is sandboxed.
func IsInSandbox() bool {
	return DetectSandbox() != SandboxNone
}

// SpawnCommandFor returns the wrapper binary that executes a command on
// the host from inside the given sandbox, or "" when none is needed.
// A sandboxed bakery reaches the host's container engine through this
// wrapper.
func SpawnCommandFor(st SandboxType) string {
	switch st {
	case SandboxFlatpak:
		return "flatpak-spawn"
	case SandboxSnap:
		return "snap"
	default:
		return ""
	}
}

// SpawnArgsFor returns the arguments to place before the actual command
// when spawning through the wrapper returned by SpawnCommandFor.
func SpawnArgsFor(st SandboxType) []string {
	switch st {
	case SandboxFlatpak:
		return []string{"--host"}
	case SandboxSnap:
		return []string{"run", "--shell"}
	default:
		return nil
	}
}

// detectSandboxFrom takes the env and stat lookups as parameters so tests
// can inject behavior without touching process state.
func detectSandboxFrom(lookupEnv func(string) string, statFile func(string) error) SandboxType {
	// Flatpak always mounts /.flatpak-info into the sandbox.
	if err := statFile("/.flatpak-info"); err == nil {
		return SandboxFlatpak
	}
	// Snap sets SNAP_NAME for every snap.
	if lookupEnv("SNAP_NAME") != "" {
		return SandboxSnap
	}
	return SandboxNone
}

func statFile(path string) error {
	_, err := os.Stat(path)
	return err
}
