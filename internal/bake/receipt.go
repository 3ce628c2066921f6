// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"bakery-cli/pkg/bakefile"
)

// DefaultReceiptName is the receipt file written next to the recipe.
const DefaultReceiptName = "bakery-receipt.yaml"

// Receipt records the outcome of one successful bake. It is the durable
// record of cross-build state: which image the recipe produced, whether
// the image was declared offline-ready, and which payloads still have to
// be mounted when the image runs. A failed bake never writes one.
type Receipt struct {
	Recipe    string    `yaml:"recipe"`
	ImageTag  string    `yaml:"image_tag"`
	CacheKey  string    `yaml:"cache_key"`
	Engine    string    `yaml:"engine"`
	BakedAt   time.Time `yaml:"baked_at"`
	FromCache bool      `yaml:"from_cache"`

	// Offline reports whether HF_HUB_OFFLINE=1 is baked into the image.
	// True only when a prefetch was declared and its step succeeded.
	Offline bool `yaml:"offline"`

	// Steps is the human-readable plan that produced the image.
	Steps []string `yaml:"steps"`

	// PendingMounts are payloads the image expects at run time.
	PendingMounts []MountSpec `yaml:"pending_mounts,omitempty"`

	// ResultsDir is where the runner writes its output inside the image.
	ResultsDir string `yaml:"results_dir"`

	// User is the unprivileged identity the image runs as.
	User string `yaml:"user"`
}

// NewReceipt assembles the receipt for a completed bake.
func NewReceipt(bf *bakefile.Bakefile, plan *Plan, imageTag, cacheKey, engine string, fromCache bool) *Receipt {
	return &Receipt{
		Recipe:        bf.FilePath,
		ImageTag:      imageTag,
		CacheKey:      cacheKey,
		Engine:        engine,
		BakedAt:       time.Now().UTC(),
		FromCache:     fromCache,
		Offline:       plan.OfflineDeclared(),
		Steps:         plan.Describe(),
		PendingMounts: plan.Mounts,
		ResultsDir:    resultsHint(bf.Workdir),
		User:          fmt.Sprintf("%s:%d", bf.User.Name, bf.User.UID),
	}
}

// Write serializes the receipt to path as YAML.
func (r *Receipt) Write(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}

// ReadReceipt loads a previously written receipt.
func ReadReceipt(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	var r Receipt
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode receipt %s: %w", path, err)
	}
	return &r, nil
}

// ReceiptPathFor returns the default receipt location for a recipe.
func ReceiptPathFor(bf *bakefile.Bakefile) string {
	return filepath.Join(bf.Dir(), DefaultReceiptName)
}
