// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"testing"
)

func TestDetectSandboxFrom(t *testing.T) {
	t.Parallel()

	errNotFound := errors.New("not found")

	tests := []struct {
		name        string
		snapName    string
		flatpakInfo bool
		want        SandboxType
	}{
		{
			name: "no indicators",
			want: SandboxNone,
		},
		{
			name:        "flatpak info file present",
			flatpakInfo: true,
			want:        SandboxFlatpak,
		},
		{
			name:     "snap env set",
			snapName: "bakery",
			want:     SandboxSnap,
		},
		{
			name:        "flatpak takes precedence over snap",
			snapName:    "bakery",
			flatpakInfo: true,
			want:        SandboxFlatpak,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lookupEnv := func(key string) string {
				if key == "SNAP_NAME" {
					return tt.snapName
				}
				return ""
			}
			stat := func(path string) error {
				if path == "/.flatpak-info" && tt.flatpakInfo {
					return nil
				}
				return errNotFound
			}

			got := detectSandboxFrom(lookupEnv, stat)
			if got != tt.want {
				t.Errorf("detectSandboxFrom() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpawnCommandFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sandbox SandboxType
		want    string
	}{
		{SandboxNone, ""},
		{SandboxFlatpak, "flatpak-spawn"},
		{SandboxSnap, "snap"},
		{SandboxType("unknown"), ""},
	}

	for _, tt := range tests {
		if got := SpawnCommandFor(tt.sandbox); got != tt.want {
			t.Errorf("SpawnCommandFor(%q) = %q, want %q", tt.sandbox, got, tt.want)
		}
	}
}

func TestSpawnArgsFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sandbox SandboxType
		want    []string
	}{
		{SandboxNone, nil},
		{SandboxFlatpak, []string{"--host"}},
		{SandboxSnap, []string{"run", "--shell"}},
	}

	for _, tt := range tests {
		got := SpawnArgsFor(tt.sandbox)
		if len(got) != len(tt.want) {
			t.Errorf("SpawnArgsFor(%q) = %v, want %v", tt.sandbox, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SpawnArgsFor(%q)[%d] = %q, want %q", tt.sandbox, i, got[i], tt.want[i])
			}
		}
	}
}

func TestIsInSandboxConsistent(t *testing.T) {
	t.Parallel()

	if IsInSandbox() != (DetectSandbox() != SandboxNone) {
		t.Error("IsInSandbox() inconsistent with DetectSandbox()")
	}
}
