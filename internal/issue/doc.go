// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error infrastructure: a catalog of
// known failure modes with markdown help texts rendered via glamour, and
// ActionableError, a structured error type carrying the failed operation,
// the resource involved, and fix suggestions.
package issue
