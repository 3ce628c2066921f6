// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"bakery-cli/internal/bake"
	"bakery-cli/internal/config"
	"bakery-cli/internal/container"
	"bakery-cli/internal/issue"
	"bakery-cli/internal/verify"
	"bakery-cli/pkg/bakefile"
)

// issueFor maps a failure to its catalog entry. The more specific
// sentinels are matched before the generic filesystem ones.
func issueFor(err error) (issue.Id, bool) {
	switch {
	case errors.Is(err, bake.ErrManifestEmpty), errors.Is(err, bake.ErrManifestMalformed):
		return issue.ManifestInvalidId, true
	case errors.Is(err, bake.ErrPayloadMissing):
		return issue.PayloadMissingId, true
	case errors.Is(err, bake.ErrPrefetchFailed):
		return issue.PrefetchFailedId, true
	case errors.Is(err, container.ErrBuildFailed):
		return issue.BuildFailedId, true
	case errors.Is(err, container.ErrEngineNotAvailable),
		errors.Is(err, container.ErrUnsupportedEngine),
		errors.Is(err, verify.ErrDaemonUnavailable):
		return issue.ContainerEngineNotFoundId, true
	case errors.Is(err, verify.ErrChecksFailed):
		return issue.VerifyFailedId, true
	case errors.Is(err, bakefile.ErrInvalidBakefile), errors.Is(err, bakefile.ErrInvalidShellStep):
		return issue.BakefileParseErrorId, true
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId, true
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId, true
	case errors.Is(err, fs.ErrNotExist):
		return issue.BakefileNotFoundId, true
	default:
		return 0, false
	}
}

// renderIssue writes the rendered catalog entry for err to w, if one
// applies. The short error line still goes through the normal path;
// this adds the longer remediation text beneath it.
func renderIssue(w io.Writer, err error) {
	id, ok := issueFor(err)
	if !ok {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render(issueStyle())
	if renderErr != nil {
		return
	}
	fmt.Fprint(w, rendered)
}

// issueStyle picks the glamour style from the configured color scheme.
func issueStyle() string {
	cfg, err := config.Load(context.Background())
	if err != nil || cfg == nil {
		return "dark"
	}
	if cfg.UI.ColorScheme == config.ColorSchemeLight {
		return "light"
	}
	return "dark"
}
