// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"strings"
	"testing"

	"bakery-cli/pkg/bakefile"
)

func mustParse(t *testing.T, src string) *bakefile.Bakefile {
	t.Helper()
	bf, err := bakefile.ParseBytes([]byte(src), "bakefile.cue")
	if err != nil {
		t.Fatalf("ParseBytes() error: %v", err)
	}
	return bf
}

func TestProbePaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		recipe string
		want   []string
	}{
		{
			name:   "defaults bake everything",
			recipe: `name: "r"`,
			want:   []string{"/workspace/runner.py", "/workspace/agent", "/workspace/data"},
		},
		{
			name: "mounted payloads skipped",
			recipe: `
name: "r"
agent: {source: "agent", provide: "mount"}
data: {source: "data", provide: "mount"}
`,
			want: []string{"/workspace/runner.py"},
		},
		{
			name: "symbols included when declared",
			recipe: `
name: "r"
symbols: "symbols.txt"
`,
			want: []string{"/workspace/runner.py", "/workspace/symbols.txt", "/workspace/agent", "/workspace/data"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := probePaths(mustParse(t, tt.recipe))
			if len(got) != len(tt.want) {
				t.Fatalf("probePaths() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("path %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCheckImageConfig(t *testing.T) {
	t.Parallel()

	v := &Verifier{}

	t.Run("prefetch image fully conforming", func(t *testing.T) {
		t.Parallel()
		bf := mustParse(t, `
name: "r"
prefetch: {script: "huggingface.py"}
`)
		report := &Report{}
		v.checkImageConfig(report, bf,
			[]string{"PATH=/usr/bin", OfflineEnv},
			[]string{"python", "runner.py"},
			"runner")
		if !report.OK() {
			t.Errorf("report not OK: %+v", report.Failed())
		}
	})

	t.Run("offline flag missing despite prefetch", func(t *testing.T) {
		t.Parallel()
		bf := mustParse(t, `
name: "r"
prefetch: {script: "huggingface.py"}
`)
		report := &Report{}
		v.checkImageConfig(report, bf,
			[]string{"PATH=/usr/bin"},
			[]string{"python", "runner.py"},
			"runner")
		failed := report.Failed()
		if len(failed) != 1 || failed[0].Name != "offline-flag" {
			t.Errorf("Failed() = %+v, want single offline-flag failure", failed)
		}
	})

	t.Run("offline flag present without prefetch", func(t *testing.T) {
		t.Parallel()
		bf := mustParse(t, `name: "r"`)
		report := &Report{}
		v.checkImageConfig(report, bf,
			[]string{OfflineEnv},
			[]string{"python", "runner.py"},
			"runner")
		failed := report.Failed()
		if len(failed) != 1 || failed[0].Name != "offline-flag" {
			t.Errorf("Failed() = %+v, want single offline-flag failure", failed)
		}
	})

	t.Run("wrong cmd and user", func(t *testing.T) {
		t.Parallel()
		bf := mustParse(t, `name: "r"`)
		report := &Report{}
		v.checkImageConfig(report, bf,
			nil,
			[]string{"bash"},
			"root")
		if report.OK() {
			t.Fatal("report OK with wrong cmd and user")
		}
		names := make([]string, 0, 2)
		for _, c := range report.Failed() {
			names = append(names, c.Name)
		}
		joined := strings.Join(names, ",")
		if !strings.Contains(joined, "cmd") || !strings.Contains(joined, "user") {
			t.Errorf("failed checks = %v, want cmd and user", names)
		}
	})

	t.Run("declared env present", func(t *testing.T) {
		t.Parallel()
		bf := mustParse(t, `
name: "r"
env: {PYTHONUNBUFFERED: "1", TZ: "UTC"}
`)
		report := &Report{}
		v.checkImageConfig(report, bf,
			[]string{"PATH=/usr/bin", "PYTHONUNBUFFERED=1", "TZ=UTC"},
			[]string{"python", "runner.py"},
			"runner")
		if !report.OK() {
			t.Errorf("report not OK: %+v", report.Failed())
		}
	})

	t.Run("declared env missing", func(t *testing.T) {
		t.Parallel()
		bf := mustParse(t, `
name: "r"
env: {PYTHONUNBUFFERED: "1"}
`)
		report := &Report{}
		v.checkImageConfig(report, bf,
			[]string{"PATH=/usr/bin"},
			[]string{"python", "runner.py"},
			"runner")
		failed := report.Failed()
		if len(failed) != 1 || failed[0].Name != "env:PYTHONUNBUFFERED" {
			t.Errorf("Failed() = %+v, want single env:PYTHONUNBUFFERED failure", failed)
		}
	})

	t.Run("declared env wrong value", func(t *testing.T) {
		t.Parallel()
		bf := mustParse(t, `
name: "r"
env: {TZ: "UTC"}
`)
		report := &Report{}
		v.checkImageConfig(report, bf,
			[]string{"TZ=Europe/Berlin"},
			[]string{"python", "runner.py"},
			"runner")
		failed := report.Failed()
		if len(failed) != 1 || failed[0].Name != "env:TZ" {
			t.Errorf("Failed() = %+v, want single env:TZ failure", failed)
		}
	})

	t.Run("numeric user accepted", func(t *testing.T) {
		t.Parallel()
		bf := mustParse(t, `name: "r"`)
		report := &Report{}
		v.checkImageConfig(report, bf, nil, []string{"python", "runner.py"}, "1000")
		for _, c := range report.Checks {
			if c.Name == "user" && !c.OK {
				t.Errorf("user check failed for numeric uid: %s", c.Detail)
			}
		}
	})
}

func TestReportOK(t *testing.T) {
	t.Parallel()

	r := &Report{}
	if !r.OK() {
		t.Error("empty report not OK")
	}
	r.add("a", true, "")
	r.add("b", false, "nope")
	if r.OK() {
		t.Error("report OK with a failed check")
	}
	if got := r.Failed(); len(got) != 1 || got[0].Name != "b" {
		t.Errorf("Failed() = %+v", got)
	}
}
