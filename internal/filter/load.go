// Package filter loads extension filter patterns for file resolution.
package filter

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// LoadPatterns reads a JSONC file and returns the parsed filter patterns.
func LoadPatterns(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from user-supplied config
	if err != nil {
		return nil, fmt.Errorf("reading patterns file %q: %w", path, err)
	}

	clean := jsonc.ToJSONInPlace(data)

	var patterns []string
	if err := json.Unmarshal(clean, &patterns); err != nil {
		return nil, fmt.Errorf("parsing patterns file %q: %w", path, err)
	}

	return patterns, nil
}

// Merge combines flag-provided patterns with patterns loaded from an optional
// pattern file.
func Merge(patterns []string, fromFile string) ([]string, error) {
	merged := append([]string{}, patterns...)

	if fromFile == "" {
		return merged, nil
	}

	loaded, err := LoadPatterns(fromFile)
	if err != nil {
		return nil, err
	}

	return append(merged, loaded...), nil
}
