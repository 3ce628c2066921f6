// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	// ErrManifestEmpty indicates a manifest with no installable entries.
	ErrManifestEmpty = errors.New("dependency manifest is empty")
	// ErrManifestMalformed indicates an entry pip would reject.
	ErrManifestMalformed = errors.New("dependency manifest is malformed")
)

// Requirement is one installable entry from a pip requirements file.
type Requirement struct {
	// Name is the distribution name, without extras or version spec.
	Name string
	// Raw is the full line as written.
	Raw string
	// Line is the 1-based line number in the manifest.
	Line int
}

// Manifest is a parsed pip requirements file.
type Manifest struct {
	Path         string
	Requirements []Requirement
}

// requirementPattern accepts a PEP 508 distribution name with optional
// extras, version specifiers, and environment markers. Pip option lines
// and include directives are handled separately.
var requirementPattern = regexp.MustCompile(
	`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?(\[[A-Za-z0-9,._ -]+\])?\s*([<>=!~]=?[^;]*)?(;.*)?$`)

var requirementName = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?`)

// ParseManifest reads and validates the requirements file at path. An
// unreadable, empty, or malformed manifest fails the bake before any
// engine work.
func ParseManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	m := &Manifest{Path: path}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		line = stripComment(line)
		if line == "" {
			continue
		}
		// Pip options (--index-url, -r includes) pass through unchecked;
		// resolving includes is pip's job.
		if strings.HasPrefix(line, "-") {
			m.Requirements = append(m.Requirements, Requirement{Name: line, Raw: line, Line: lineNo})
			continue
		}
		if !requirementPattern.MatchString(line) {
			return nil, fmt.Errorf("%w: line %d: %q", ErrManifestMalformed, lineNo, line)
		}
		m.Requirements = append(m.Requirements, Requirement{
			Name: requirementName.FindString(line),
			Raw:  line,
			Line: lineNo,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(m.Requirements) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrManifestEmpty, path)
	}
	return m, nil
}

// Has reports whether the manifest names the given distribution.
func (m *Manifest) Has(name string) bool {
	for _, r := range m.Requirements {
		if strings.EqualFold(normalizeDistName(r.Name), normalizeDistName(name)) {
			return true
		}
	}
	return false
}

// normalizeDistName applies PEP 503 name normalization: runs of dots,
// dashes and underscores compare equal.
func normalizeDistName(name string) string {
	var b strings.Builder
	prevSep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			prevSep = true
			continue
		}
		if prevSep {
			b.WriteByte('-')
			prevSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripComment(line string) string {
	if i := strings.Index(line, " #"); i >= 0 {
		line = line[:i]
	}
	if strings.HasPrefix(line, "#") {
		return ""
	}
	return strings.TrimSpace(line)
}
