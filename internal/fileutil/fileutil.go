// Package fileutil provides shared file operation helpers.
package fileutil

import (
	"fmt"
	"os"
	"strings"
)

const dirPerm = 0o750

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}

	return nil
}

// ReplaceFile moves src into place at dst, deleting any pre-existing file first.
func ReplaceFile(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("removing existing %q: %w", dst, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking %q: %w", dst, err)
	}

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %q to %q: %w", src, dst, err)
	}

	return nil
}

// ReadPassphrase reads a passphrase from a file, trimming surrounding whitespace.
func ReadPassphrase(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from user-supplied config
	if err != nil {
		return "", fmt.Errorf("reading passphrase file %q: %w", path, err)
	}

	return strings.TrimSpace(string(data)), nil
}
