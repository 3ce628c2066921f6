// SPDX-License-Identifier: MPL-2.0

// Package verify checks a baked image against its recipe: the offline
// flag matches the declared prefetch, the command line is the expected
// runner invocation, and every baked payload is readable by the
// unprivileged user the image runs as. It talks to the Docker API
// directly so probes run inside a real container started from the image.
package verify
