// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"sync"
)

// configDirOverride allows tests to override the config directory.
// This is necessary because os.UserHomeDir() doesn't reliably respect
// the HOME environment variable on all platforms (e.g., macOS in CI).
var configDirOverride string

// globalConfigFilePath is the --config flag value; it forces loading from
// a specific file for the rest of the process.
var globalConfigFilePath string

var (
	cachedConfig   *Config
	cachedPath     string
	cachedConfigMu sync.Mutex
)

// Reset clears test overrides and the load cache. Call from test cleanup
// to restore defaults.
func Reset() {
	cachedConfigMu.Lock()
	defer cachedConfigMu.Unlock()
	configDirOverride = ""
	globalConfigFilePath = ""
	cachedConfig = nil
	cachedPath = ""
}

// SetConfigDirOverride sets a custom config directory path.
// This is primarily intended for testing to bypass os.UserHomeDir() which
// doesn't reliably respect the HOME env var on all platforms (e.g., macOS in CI).
func SetConfigDirOverride(dir string) {
	cachedConfigMu.Lock()
	defer cachedConfigMu.Unlock()
	configDirOverride = dir
	cachedConfig = nil
	cachedPath = ""
}

// SetConfigFilePath forces subsequent Load calls to read the given file.
// The root command wires the --config flag through this.
func SetConfigFilePath(path string) {
	cachedConfigMu.Lock()
	defer cachedConfigMu.Unlock()
	globalConfigFilePath = path
	cachedConfig = nil
	cachedPath = ""
}

// Load returns the process-wide configuration, loading it on first use
// and caching the result.
func Load(ctx context.Context) (*Config, error) {
	cfg, _, err := LoadWithPath(ctx)
	return cfg, err
}

// LoadWithPath is Load plus the path of the config file that was read
// ("" when only defaults applied).
func LoadWithPath(ctx context.Context) (*Config, string, error) {
	cachedConfigMu.Lock()
	defer cachedConfigMu.Unlock()

	if cachedConfig != nil {
		return cachedConfig, cachedPath, nil
	}

	cfg, path, err := loadWithOptions(ctx, LoadOptions{ConfigFilePath: globalConfigFilePath})
	if err != nil {
		return nil, "", err
	}
	cachedConfig = cfg
	cachedPath = path
	return cfg, path, nil
}
