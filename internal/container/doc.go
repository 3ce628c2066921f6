// SPDX-License-Identifier: MPL-2.0

// Package container provides an abstraction layer for container engines
// (Docker/Podman). The bake orchestrator drives image builds through the
// Engine interface; the verify command additionally runs containers from
// the baked image. Both engines shell out to the engine CLI with an
// injectable command factory so tests never need a daemon.
package container
