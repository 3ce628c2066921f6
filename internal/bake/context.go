// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"bakery-cli/pkg/bakefile"
)

// CachedImageRepo is the local repository cache-keyed images are tagged
// under when the recipe declares no explicit tag of its own.
const CachedImageRepo = "bakery-baked"

// StagedContext is a temporary build context ready to hand to the engine.
type StagedContext struct {
	// Dir is the context directory; it contains the Dockerfile and every
	// baked payload.
	Dir string
	// DockerfilePath is Dir/Dockerfile.
	DockerfilePath string
}

// Cleanup removes the staged directory. Safe to call more than once.
func (s *StagedContext) Cleanup() {
	if s.Dir != "" {
		_ = os.RemoveAll(s.Dir)
		s.Dir = ""
	}
}

// StageContext materializes the build context: Dockerfile, dependency
// manifest, prefetch script, and every baked payload, copied flat into a
// fresh directory under stageRoot (the system temp directory when empty).
// Missing baked sources and context-name collisions fail here, before the
// engine is invoked.
func StageContext(bf *bakefile.Bakefile, providers []FileProvider, dockerfile, stageRoot string) (*StagedContext, error) {
	recipeDir := bf.Dir()

	if err := checkContextNames(bf, providers); err != nil {
		return nil, err
	}

	if stageRoot != "" {
		if err := os.MkdirAll(stageRoot, 0o755); err != nil {
			return nil, fmt.Errorf("create stage root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(stageRoot, "bakery-context-*")
	if err != nil {
		return nil, fmt.Errorf("create build context: %w", err)
	}
	staged := &StagedContext{Dir: dir, DockerfilePath: filepath.Join(dir, DockerfileName)}

	cleanup := func(err error) (*StagedContext, error) {
		staged.Cleanup()
		return nil, err
	}

	if err := os.WriteFile(staged.DockerfilePath, []byte(dockerfile), 0o644); err != nil {
		return cleanup(fmt.Errorf("write Dockerfile: %w", err))
	}

	manifestSrc := resolveSource(recipeDir, bf.Manifest)
	if err := copyPath(manifestSrc, filepath.Join(dir, contextPath(bf.Manifest))); err != nil {
		return cleanup(fmt.Errorf("stage manifest: %w", err))
	}

	if bf.HasPrefetch() {
		scriptSrc := resolveSource(recipeDir, bf.Prefetch.Script)
		if err := copyPath(scriptSrc, filepath.Join(dir, contextPath(bf.Prefetch.Script))); err != nil {
			return cleanup(fmt.Errorf("stage prefetch script: %w", err))
		}
	}

	for _, prov := range providers {
		if err := prov.Stage(recipeDir, dir); err != nil {
			return cleanup(err)
		}
	}

	return staged, nil
}

// ErrContextCollision indicates two staged sources flatten to the same
// name inside the build context, so one would silently overwrite the
// other.
var ErrContextCollision = errors.New("build context name collision")

// checkContextNames rejects recipes whose staged sources collide once
// flattened by basename. The Dockerfile itself claims its name too.
func checkContextNames(bf *bakefile.Bakefile, providers []FileProvider) error {
	claimed := map[string]string{DockerfileName: "the generated Dockerfile"}

	claim := func(source, what string) error {
		name := contextPath(source)
		if prev, ok := claimed[name]; ok {
			return fmt.Errorf("%w: %s and %s both stage as %q", ErrContextCollision, prev, what, name)
		}
		claimed[name] = what
		return nil
	}

	if err := claim(bf.Manifest, fmt.Sprintf("manifest (%s)", bf.Manifest)); err != nil {
		return err
	}
	if bf.HasPrefetch() {
		if err := claim(bf.Prefetch.Script, fmt.Sprintf("prefetch script (%s)", bf.Prefetch.Script)); err != nil {
			return err
		}
	}
	for _, prov := range providers {
		baked, ok := prov.(*bakedProvider)
		if !ok {
			continue
		}
		if err := claim(baked.source, fmt.Sprintf("%s payload (%s)", baked.name, baked.source)); err != nil {
			return err
		}
	}
	return nil
}

// CacheKey derives a deterministic key over everything that influences
// the image: the rendered Dockerfile, the manifest, the prefetch script,
// and every baked payload's content. Identical inputs always rebuild to
// the same key, so a matching local image can be reused as-is.
func CacheKey(bf *bakefile.Bakefile, dockerfile string) (string, error) {
	recipeDir := bf.Dir()
	h := sha256.New()

	fmt.Fprintf(h, "dockerfile\x00%s\x00", dockerfile)

	inputs := []string{bf.Manifest, bf.Runner}
	if bf.Symbols != "" {
		inputs = append(inputs, bf.Symbols)
	}
	if bf.HasPrefetch() {
		inputs = append(inputs, bf.Prefetch.Script)
	}
	if bf.Agent.IsBaked() {
		inputs = append(inputs, bf.Agent.Source)
	}
	if bf.Data.IsBaked() {
		inputs = append(inputs, bf.Data.Source)
	}
	sort.Strings(inputs)

	for _, input := range inputs {
		fmt.Fprintf(h, "input\x00%s\x00", input)
		if err := hashPath(h, resolveSource(recipeDir, input)); err != nil {
			return "", fmt.Errorf("hash %s: %w", input, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// CachedImageTag converts a cache key into the local image tag.
func CachedImageTag(cacheKey string) string {
	short := cacheKey
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("%s:%s", CachedImageRepo, short)
}

// hashPath feeds a file's content, or a directory's relative paths and
// contents in sorted order, into w.
func hashPath(w io.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return hashFile(w, "", path)
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		return hashFile(w, filepath.ToSlash(rel), p)
	})
}

func hashFile(w io.Writer, rel, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Fprintf(w, "file\x00%s\x00", rel)
	if _, err := io.Copy(w, f); err != nil {
		return err
	}
	_, err = fmt.Fprint(w, "\x00")
	return err
}

// copyPath copies a file or directory tree.
func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrPayloadMissing, src)
		}
		return err
	}
	if info.IsDir() {
		return copyDir(src, dst)
	}
	return copyFile(src, dst, info.Mode())
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(p, target, info.Mode())
	})
}
