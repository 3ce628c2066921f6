// SPDX-License-Identifier: MPL-2.0

// Package bakefile defines the recipe format for bakery images.
//
// A bakefile (conventionally bakefile.cue) declares everything needed to
// provision a runner image: the dependency manifest, the runner entrypoint
// script, the agent and data payloads, an optional model-prefetch script,
// the unprivileged runtime identity, and the permission policy applied to
// the working tree before the identity switch.
//
// Recipes are written in CUE and validated in two layers: the embedded CUE
// schema catches structural and type errors with precise field paths, and
// Go-level validation covers the rules the schema cannot express (shell
// syntax of extra build steps, payload supply-mode combinations).
package bakefile
