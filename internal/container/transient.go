// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"bakery-cli/pkg/types"
)

// IsTransientError reports whether an engine failure is worth retrying:
// daemon hiccups, registry pulls, and the engine's own 125/126 exit codes.
// Context cancellation is never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := types.ExitCode(exitErr.ExitCode())
		if code.IsTransient() {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// transientMarkers are substrings of engine errors that indicate a
// temporary condition rather than a broken build.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"timed out",
	"temporarily unavailable",
	"tls handshake",
	"i/o error",
	"too many requests",
	"service unavailable",
	"cannot connect to the docker daemon",
	"error pulling image",
}
