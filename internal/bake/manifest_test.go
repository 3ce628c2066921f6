// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"errors"
	"path/filepath"
	"testing"

	"bakery-cli/internal/testutil"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requirements.txt")
	testutil.MustWriteFile(t, path, content)
	return path
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	path := writeManifest(t, `
# core
backtrader==1.9.78.123
pandas>=2.0
transformers[torch]  # model runtime
--extra-index-url https://example.invalid/simple
matplotlib
`)

	m, err := ParseManifest(path)
	if err != nil {
		t.Fatalf("ParseManifest() error: %v", err)
	}
	if len(m.Requirements) != 5 {
		t.Fatalf("requirements = %d, want 5", len(m.Requirements))
	}
	if !m.Has("backtrader") {
		t.Error("Has(backtrader) = false")
	}
	if !m.Has("Transformers") {
		t.Error("Has(Transformers) = false, want case-insensitive match")
	}
	if m.Has("torch") {
		t.Error("Has(torch) = true, extras should not register as requirements")
	}
}

func TestParseManifestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "empty file", content: "", wantErr: ErrManifestEmpty},
		{name: "only comments", content: "# nothing here\n\n# still nothing\n", wantErr: ErrManifestEmpty},
		{name: "malformed line", content: "backtrader\n===bogus===\n", wantErr: ErrManifestMalformed},
		{name: "leading separator", content: "_private\n", wantErr: ErrManifestMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseManifest(writeManifest(t, tt.content))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseManifest() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseManifestMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := ParseManifest(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("ParseManifest() = nil for missing file")
	}
}

func TestNormalizeDistName(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"Backtrader", "backtrader"},
		{"ruamel.yaml", "ruamel-yaml"},
		{"typing_extensions", "typing-extensions"},
		{"a--b__c..d", "a-b-c-d"},
	}
	for _, tt := range tests {
		if got := normalizeDistName(tt.in); got != tt.want {
			t.Errorf("normalizeDistName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
