package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/idunn/cryptarch/internal/fileutil"
)

// Config holds the runtime configuration assembled from flags and environment.
type Config struct {
	// Common flags
	Key        string   `validate:"required_without=KeyFile,excluded_with=KeyFile"`
	KeyFile    string   `mapstructure:"key-file"`
	Filter     []string `mapstructure:"filter"`
	FilterFrom string   `mapstructure:"filter-from"`
	Recurse    bool
	Quiet      bool
	Delete     bool
	Stats      bool

	// Command-specific flags
	Decrypt bool

	// Positional arguments
	Target      string `validate:"required"`
	Destination string `validate:"required"`
}

// Validate validates the configuration against the struct tags.
func (c Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	return nil
}

// Passphrase returns the keystream source: the --key value, or the contents
// of the --key-file.
func (c Config) Passphrase() (string, error) {
	if c.KeyFile != "" {
		return fileutil.ReadPassphrase(c.KeyFile)
	}

	return c.Key, nil
}
