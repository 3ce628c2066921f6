// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions carries explicit inputs for a single load, bypassing the
// process-wide overrides in global.go.
type LoadOptions struct {
	// ConfigFilePath forces a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath replaces the platform config directory lookup when set.
	ConfigDirPath string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

// NewProvider returns the file-backed configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

type fileProvider struct{}

func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
