// SPDX-License-Identifier: MPL-2.0

package bakefile

import (
	"errors"
	"strings"
	"testing"
)

const minimalRecipe = `name: "backtest-runner"`

func TestParseBytes_Defaults(t *testing.T) {
	t.Parallel()

	bf, err := ParseBytes([]byte(minimalRecipe), "bakefile.cue")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	if bf.Base != "python:3.11-slim" {
		t.Errorf("Base = %q, want default python:3.11-slim", bf.Base)
	}
	if bf.Workdir != "/workspace" {
		t.Errorf("Workdir = %q, want default /workspace", bf.Workdir)
	}
	if bf.Manifest != "requirements.txt" {
		t.Errorf("Manifest = %q, want default requirements.txt", bf.Manifest)
	}
	if bf.Runner != "runner.py" {
		t.Errorf("Runner = %q, want default runner.py", bf.Runner)
	}
	if bf.Agent.Source != "agent" || bf.Agent.Provide != ProvideBake {
		t.Errorf("Agent = %+v, want baked default", bf.Agent)
	}
	if bf.User.Name != "runner" || bf.User.UID != 1000 {
		t.Errorf("User = %+v, want runner/1000 default", bf.User)
	}
	if bf.Permissions != PermissionsChown {
		t.Errorf("Permissions = %q, want default chown", bf.Permissions)
	}
	if bf.HasPrefetch() {
		t.Error("HasPrefetch() = true for recipe without prefetch")
	}
	if bf.FilePath != "bakefile.cue" {
		t.Errorf("FilePath = %q, want bakefile.cue", bf.FilePath)
	}
}

func TestParseBytes_FullRecipe(t *testing.T) {
	t.Parallel()

	recipe := `
name: "backtest-runner"
tag:  "backtest-runner:v3"
base: "python:3.12-bookworm"
workdir: "/app"
symbols: "symbols.txt"
prefetch: {script: "prefetch.py", cache_dir: "models"}
data: {source: "data", provide: "mount"}
user: {name: "agent", uid: 1100}
permissions: "widen"
env: {PYTHONUNBUFFERED: "1"}
entrypoint: ["python", "runner.py", "--json"]
extra_run: ["mkdir -p /app/results"]
`
	bf, err := ParseBytes([]byte(recipe), "bakefile.cue")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	if bf.Tag != "backtest-runner:v3" {
		t.Errorf("Tag = %q, want explicit tag", bf.Tag)
	}
	if !bf.HasPrefetch() || bf.Prefetch.Script != "prefetch.py" {
		t.Errorf("Prefetch = %+v, want prefetch.py", bf.Prefetch)
	}
	if bf.Prefetch.CacheDir != "models" {
		t.Errorf("Prefetch.CacheDir = %q, want models", bf.Prefetch.CacheDir)
	}
	if bf.Data.IsBaked() {
		t.Error("Data.IsBaked() = true, want mount mode")
	}
	if bf.Permissions != PermissionsWiden {
		t.Errorf("Permissions = %q, want widen", bf.Permissions)
	}
	if got := bf.AgentDest(); got != "/app/agent" {
		t.Errorf("AgentDest() = %q, want /app/agent", got)
	}
	if got := bf.RunnerDest(); got != "/app/runner.py" {
		t.Errorf("RunnerDest() = %q, want /app/runner.py", got)
	}
	if got := bf.SymbolsDest(); got != "/app/symbols.txt" {
		t.Errorf("SymbolsDest() = %q, want /app/symbols.txt", got)
	}
	if got := bf.DefaultEntrypoint(); len(got) != 3 || got[2] != "--json" {
		t.Errorf("DefaultEntrypoint() = %v, want recipe override", got)
	}
}

func TestParseBytes_WithDefaults(t *testing.T) {
	t.Parallel()

	d := Defaults{
		Base:    "python:3.12-bookworm",
		Workdir: "/srv/backtest",
		User:    UserSpec{Name: "analyst", UID: 2000},
	}

	bf, err := ParseBytes([]byte(minimalRecipe), "bakefile.cue", WithDefaults(d))
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if bf.Base != "python:3.12-bookworm" {
		t.Errorf("Base = %q, want configured default", bf.Base)
	}
	if bf.Workdir != "/srv/backtest" {
		t.Errorf("Workdir = %q, want configured default", bf.Workdir)
	}
	if bf.User.Name != "analyst" || bf.User.UID != 2000 {
		t.Errorf("User = %+v, want configured default", bf.User)
	}
}

func TestParseBytes_RecipeWinsOverDefaults(t *testing.T) {
	t.Parallel()

	recipe := `
name: "backtest-runner"
base: "python:3.11-alpine"
user: {name: "runner", uid: 1500}
`
	d := Defaults{Base: "python:3.12-bookworm", User: UserSpec{Name: "analyst", UID: 2000}}

	bf, err := ParseBytes([]byte(recipe), "bakefile.cue", WithDefaults(d))
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if bf.Base != "python:3.11-alpine" {
		t.Errorf("Base = %q, recipe value lost to defaults", bf.Base)
	}
	if bf.User.Name != "runner" || bf.User.UID != 1500 {
		t.Errorf("User = %+v, recipe value lost to defaults", bf.User)
	}
	// Workdir is unset in both; the built-in default applies.
	if bf.Workdir != DefaultWorkdir {
		t.Errorf("Workdir = %q, want %q", bf.Workdir, DefaultWorkdir)
	}
}

func TestParseBytes_SchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		recipe string
	}{
		{"missing name", `base: "python:3.11-slim"`},
		{"uppercase name", `name: "Backtest"`},
		{"relative workdir", `name: "x", workdir: "workspace"`},
		{"zero uid", `name: "x", user: {name: "runner", uid: 0}`},
		{"bad provide mode", `name: "x", agent: {source: "agent", provide: "symlink"}`},
		{"bad permission policy", `name: "x", permissions: "setuid"`},
		{"empty prefetch script", `name: "x", prefetch: {script: ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseBytes([]byte(tt.recipe), "bakefile.cue"); err == nil {
				t.Errorf("ParseBytes(%q) = nil error, want schema violation", tt.recipe)
			}
		})
	}
}

func TestParseBytes_ShellSyntaxError(t *testing.T) {
	t.Parallel()

	recipe := `
name: "backtest-runner"
extra_run: ["mkdir -p /workspace/results", "if [ -d data then fi"]
`
	_, err := ParseBytes([]byte(recipe), "bakefile.cue")
	if err == nil {
		t.Fatal("ParseBytes() = nil error, want shell syntax error")
	}

	var bfErr *InvalidBakefileError
	if !errors.As(err, &bfErr) {
		t.Fatalf("error type = %T, want *InvalidBakefileError", err)
	}
	if !errors.Is(err, ErrInvalidShellStep) {
		t.Error("error does not wrap ErrInvalidShellStep")
	}
	if !strings.Contains(bfErr.Format(), "extra_run[1]") {
		t.Errorf("Format() = %q, does not point at the bad step", bfErr.Format())
	}
}

func TestDefaultEntrypoint_FromRunner(t *testing.T) {
	t.Parallel()

	bf, err := ParseBytes([]byte(`name: "x", runner: "scripts/run_backtest.py"`), "bakefile.cue")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	got := bf.DefaultEntrypoint()
	want := []string{"python", "run_backtest.py"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("DefaultEntrypoint() = %v, want %v", got, want)
	}
}

func TestGenerateSample_Parses(t *testing.T) {
	t.Parallel()

	sample := GenerateSample("backtest-runner")
	bf, err := ParseBytes([]byte(sample), "bakefile.cue")
	if err != nil {
		t.Fatalf("generated sample does not parse: %v", err)
	}
	if bf.Name != "backtest-runner" {
		t.Errorf("sample Name = %q, want backtest-runner", bf.Name)
	}
}
