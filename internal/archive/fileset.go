package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/idunn/cryptarch/pkg/extmatch"
)

// FileDescriptor describes one file selected for archiving.
type FileDescriptor struct {
	// Path is the file's path on disk, as resolved from the target.
	Path string

	// RelPath is the path relative to the resolution root, with forward slashes.
	RelPath string

	// Size is the file size in bytes at resolution time.
	Size int64
}

// FileSet is the ordered result of resolving a target path. Descriptors keep
// directory listing order; the archive writer serializes them in this order.
type FileSet struct {
	// Root is the directory relative paths are computed against: the target
	// itself if it is a directory, else the target's parent.
	Root string

	// Files are the resolved descriptors, read-only after resolution.
	Files []FileDescriptor
}

// Resolve expands a target path into a FileSet.
//
// A single file resolves to itself regardless of the filter. A directory is
// listed (recursively when recurse is set) and filtered by matcher against
// each file's base name. A missing target returns ErrPathNotFound. An empty
// resolution is not an error; check Empty.
func Resolve(target string, recurse bool, matcher *extmatch.Matcher) (*FileSet, error) {
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrPathNotFound, target)
		}

		return nil, fmt.Errorf("stat %q: %w", target, err)
	}

	if !info.IsDir() {
		return &FileSet{
			Root: filepath.Dir(target),
			Files: []FileDescriptor{{
				Path:    target,
				RelPath: filepath.Base(target),
				Size:    info.Size(),
			}},
		}, nil
	}

	set := &FileSet{Root: target}

	if recurse {
		err = set.walk(matcher)
	} else {
		err = set.list(matcher)
	}

	if err != nil {
		return nil, err
	}

	return set, nil
}

// Empty reports whether resolution selected no files.
func (s *FileSet) Empty() bool {
	return len(s.Files) == 0
}

// TotalSize returns the summed size of all resolved files.
func (s *FileSet) TotalSize() int64 {
	var total int64

	for _, fd := range s.Files {
		total += fd.Size
	}

	return total
}

// list collects matching files from the top level of the root only.
func (s *FileSet) list(matcher *extmatch.Matcher) error {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return fmt.Errorf("listing %q: %w", s.Root, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !matcher.Match(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %q: %w", entry.Name(), err)
		}

		s.Files = append(s.Files, FileDescriptor{
			Path:    filepath.Join(s.Root, entry.Name()),
			RelPath: entry.Name(),
			Size:    info.Size(),
		})
	}

	return nil
}

// walk collects matching files from the whole tree under the root.
func (s *FileSet) walk(matcher *extmatch.Matcher) error {
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !matcher.Match(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %q: %w", path, err)
		}

		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return fmt.Errorf("relative path for %q: %w", path, err)
		}

		s.Files = append(s.Files, FileDescriptor{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Size:    info.Size(),
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %q: %w", s.Root, err)
	}

	return nil
}
