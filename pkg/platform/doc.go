// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities:
// OS name constants for runtime.GOOS comparisons and detection of
// application sandboxes (Flatpak, Snap) that restrict access to the
// host's container engine socket.
package platform
