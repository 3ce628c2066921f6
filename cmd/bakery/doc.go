// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for bakery.
//
// This package implements the Cobra command hierarchy for the bakery CLI:
// the root command plus subcommands for baking images, validating recipes,
// verifying baked images, generating starter recipes, and managing
// configuration.
package cmd
