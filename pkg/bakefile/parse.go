// SPDX-License-Identifier: MPL-2.0

package bakefile

import (
	_ "embed"
	"fmt"
	"os"

	"bakery-cli/pkg/cueutil"
)

//go:embed bakefile_schema.cue
var bakefileSchema string

// ParseOption customizes recipe parsing.
type ParseOption func(*parseOptions)

type parseOptions struct {
	defaults Defaults
}

// WithDefaults supplies configured recipe defaults for fields the file
// leaves unset. Without it the built-in defaults apply.
func WithDefaults(d Defaults) ParseOption {
	return func(o *parseOptions) {
		o.defaults = d
	}
}

// Parse reads and parses a bakefile from the given path.
func Parse(path string, opts ...ParseOption) (*Bakefile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bakefile at %s: %w", path, err)
	}

	return ParseBytes(data, path, opts...)
}

// ParseBytes parses bakefile content from bytes.
// Uses cueutil.ParseAndDecodeString for the 3-step CUE parsing flow:
// compile schema, compile user data, validate and decode. Fields the
// recipe leaves unset are then filled from the defaults before
// Go-level validation runs.
func ParseBytes(data []byte, path string, opts ...ParseOption) (*Bakefile, error) {
	var po parseOptions
	for _, opt := range opts {
		opt(&po)
	}

	result, err := cueutil.ParseAndDecodeString[Bakefile](
		bakefileSchema,
		data,
		"#Bakefile",
		cueutil.WithFilename(path),
	)
	if err != nil {
		return nil, err
	}

	bf := result.Value
	bf.FilePath = path
	bf.applyDefaults(po.defaults)

	// Go-level validation for rules the schema cannot express
	if err := bf.validate(); err != nil {
		return nil, err
	}

	return bf, nil
}
