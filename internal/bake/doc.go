// SPDX-License-Identifier: MPL-2.0

// Package bake turns a parsed recipe into a built container image. The
// pipeline is: validate the dependency manifest, compute a build plan of
// ordered steps, render the plan as a Dockerfile, stage a temp build
// context with a content-derived cache key, drive the container engine,
// and write a YAML receipt recording the outcome.
//
// The plan keeps one hard ordering rule: every privileged step (package
// install, prefetch, permission changes, user creation) happens before
// the switch to the unprivileged user. VerifyOrder rejects any plan that
// violates this before a single byte of Dockerfile is emitted.
package bake
