// SPDX-License-Identifier: MPL-2.0

package bakefile

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"bakery-cli/pkg/types"
)

var (
	// ErrInvalidBakefile is the sentinel error wrapped by InvalidBakefileError.
	ErrInvalidBakefile = errors.New("invalid bakefile")
	// ErrInvalidShellStep is the sentinel error wrapped by InvalidShellStepError.
	ErrInvalidShellStep = errors.New("invalid shell step")
)

type (
	// InvalidBakefileError is returned when a parsed Bakefile fails Go-level
	// validation. It collects field-level errors for inspection.
	InvalidBakefileError struct {
		FilePath  string
		FieldErrs []error
	}

	// InvalidShellStepError is returned when an extra_run step is not valid
	// POSIX shell syntax. These steps become RUN instructions verbatim, so
	// a syntax error here would otherwise only surface mid-build.
	InvalidShellStepError struct {
		Step  string
		Index int
		Cause error
	}
)

// Error implements the error interface.
func (e *InvalidBakefileError) Error() string {
	return fmt.Sprintf("%s: %d validation error(s)", e.FilePath, len(e.FieldErrs))
}

// Unwrap returns ErrInvalidBakefile so callers can use errors.Is for programmatic detection.
func (e *InvalidBakefileError) Unwrap() error { return ErrInvalidBakefile }

// Format returns a multi-line description of every field error.
func (e *InvalidBakefileError) Format() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	for _, err := range e.FieldErrs {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Error implements the error interface.
func (e *InvalidShellStepError) Error() string {
	return fmt.Sprintf("extra_run[%d]: not valid shell syntax: %v", e.Index, e.Cause)
}

// Unwrap returns ErrInvalidShellStep so callers can use errors.Is for programmatic detection.
func (e *InvalidShellStepError) Unwrap() error { return ErrInvalidShellStep }

// validate applies the Go-level validation layer on top of the CUE schema.
// The schema already guarantees structure and types; this layer checks the
// typed value constraints and the shell syntax of extra build steps.
func (b *Bakefile) validate() error {
	var errs []error

	if err := types.FilesystemPath(b.Manifest).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("manifest: %w", err))
	}
	if err := types.FilesystemPath(b.Runner).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("runner: %w", err))
	}
	if err := b.User.UID.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("user.uid: %w", err))
	}
	if err := b.Permissions.Validate(); err != nil {
		errs = append(errs, err)
	}

	for _, payload := range []struct {
		field string
		spec  PayloadSpec
	}{
		{"agent", b.Agent},
		{"data", b.Data},
	} {
		if err := types.FilesystemPath(payload.spec.Source).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s.source: %w", payload.field, err))
		}
		if err := payload.spec.Provide.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", payload.field, err))
		}
	}

	if b.Prefetch != nil {
		if err := types.FilesystemPath(b.Prefetch.Script).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("prefetch.script: %w", err))
		}
	}

	errs = append(errs, validateShellSteps(b.ExtraRun)...)

	if len(errs) > 0 {
		return &InvalidBakefileError{FilePath: b.FilePath, FieldErrs: errs}
	}
	return nil
}

// validateShellSteps parses each extra_run step with mvdan/sh to reject
// malformed shell before it ever reaches a RUN instruction.
func validateShellSteps(steps []string) []error {
	var errs []error
	parser := syntax.NewParser()
	for i, step := range steps {
		if _, err := parser.Parse(strings.NewReader(step), fmt.Sprintf("extra_run[%d]", i)); err != nil {
			errs = append(errs, &InvalidShellStepError{Step: step, Index: i, Cause: err})
		}
	}
	return errs
}
