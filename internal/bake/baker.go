// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"bakery-cli/internal/container"
	"bakery-cli/pkg/bakefile"
)

// ErrPrefetchFailed indicates the engine build failed while running the
// model-prefetch script. The offline flag is only set after a successful
// prefetch, so no partially-cached image ever carries it.
var ErrPrefetchFailed = errors.New("model prefetch failed")

// Options tunes one bake run.
type Options struct {
	// NoCache skips the cache-key image lookup and disables the engine's
	// layer cache.
	NoCache bool
	// ReceiptPath overrides where the receipt is written. Empty means
	// next to the recipe.
	ReceiptPath string
	// SkipReceipt suppresses receipt writing entirely.
	SkipReceipt bool
	// StageDir is the parent directory for staged build contexts. Empty
	// means the system temp directory.
	StageDir string
}

// Result reports a completed bake.
type Result struct {
	ImageTag  string
	CacheKey  string
	FromCache bool
	Receipt   *Receipt
}

// Baker drives the full pipeline for a recipe against one engine.
type Baker struct {
	engine container.Engine
	logger *log.Logger
	retry  container.RetryConfig
}

// NewBaker returns a Baker bound to an engine. A nil logger silences
// progress output.
func NewBaker(engine container.Engine, logger *log.Logger) *Baker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Baker{
		engine: engine,
		logger: logger,
		retry:  container.DefaultRetryConfig(),
	}
}

// Plan computes the build plan and rendered Dockerfile for a recipe
// without touching the engine. The bake --plan path uses this directly.
func (b *Baker) Plan(bf *bakefile.Bakefile) (*Plan, string, error) {
	if _, err := ParseManifest(resolveSource(bf.Dir(), bf.Manifest)); err != nil {
		return nil, "", err
	}

	providers := PayloadProviders(bf)
	plan, err := NewPlan(bf, providers)
	if err != nil {
		return nil, "", fmt.Errorf("compute plan: %w", err)
	}

	dockerfile, err := RenderDockerfile(bf, plan)
	if err != nil {
		return nil, "", fmt.Errorf("render Dockerfile: %w", err)
	}
	return plan, dockerfile, nil
}

// Bake runs the whole pipeline: manifest validation, plan, Dockerfile,
// cache-key lookup, context staging, engine build, receipt. Any failure
// aborts the run; no receipt is written and no image tag is reported.
func (b *Baker) Bake(ctx context.Context, bf *bakefile.Bakefile, opts Options) (*Result, error) {
	plan, dockerfile, err := b.Plan(bf)
	if err != nil {
		return nil, err
	}

	cacheKey, err := CacheKey(bf, dockerfile)
	if err != nil {
		return nil, fmt.Errorf("compute cache key: %w", err)
	}

	cachedTag := CachedImageTag(cacheKey)
	imageTag := bf.Tag
	if imageTag == "" {
		imageTag = cachedTag
	}

	// An existing image only proves it was built from the current inputs
	// when its tag encodes the cache key. An explicit recipe tag could
	// point at an image built from anything, so it always rebuilds.
	fromCache := false
	if !opts.NoCache && imageTag == cachedTag {
		exists, err := b.engine.ImageExists(ctx, imageTag)
		if err != nil {
			return nil, fmt.Errorf("check image cache: %w", err)
		}
		if exists {
			b.logger.Info("reusing cached image", "tag", imageTag, "key", cacheKey[:12])
			fromCache = true
		}
	}

	if !fromCache {
		providers := PayloadProviders(bf)
		staged, err := StageContext(bf, providers, dockerfile, opts.StageDir)
		if err != nil {
			return nil, err
		}
		defer staged.Cleanup()

		b.logger.Info("building image",
			"recipe", bf.Name, "tag", imageTag, "engine", string(b.engine.Type()))

		buildOpts := container.BuildOptions{
			ContextDir:     staged.Dir,
			DockerfilePath: staged.DockerfilePath,
			Tag:            imageTag,
			NoCache:        opts.NoCache,
		}
		err = container.RetryWithBackoff(ctx, b.retry, func() error {
			return b.engine.Build(ctx, buildOpts)
		})
		if err != nil {
			return nil, classifyBuildError(bf, err)
		}
		b.logger.Info("image built", "tag", imageTag)
	}

	result := &Result{ImageTag: imageTag, CacheKey: cacheKey, FromCache: fromCache}

	if !opts.SkipReceipt {
		receiptPath := opts.ReceiptPath
		if receiptPath == "" {
			receiptPath = ReceiptPathFor(bf)
		}
		receipt := NewReceipt(bf, plan, imageTag, cacheKey, string(b.engine.Type()), fromCache)
		if err := receipt.Write(receiptPath); err != nil {
			return nil, err
		}
		result.Receipt = receipt
		b.logger.Debug("receipt written", "path", receiptPath)
	}

	return result, nil
}

// classifyBuildError tags an engine failure that happened inside the
// prefetch step. The engine error carries the tail of the build output,
// which names the failing RUN command.
func classifyBuildError(bf *bakefile.Bakefile, err error) error {
	if bf.HasPrefetch() && strings.Contains(err.Error(), bf.Prefetch.Script) {
		return fmt.Errorf("%w: %w", ErrPrefetchFailed, err)
	}
	return err
}
