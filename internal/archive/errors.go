package archive

import "errors"

var (
	// ErrPathNotFound is returned when the target path is neither a file nor a directory.
	ErrPathNotFound = errors.New("path not found")
	// ErrNoFiles is returned when resolution produced an empty file set.
	// Callers decide whether this aborts the run.
	ErrNoFiles = errors.New("no files identified")
	// ErrTruncated is returned when the archive ends before a declared length
	// is consumed, or a decoded quantity is not plausible. A wrong key is
	// indistinguishable from corruption and surfaces the same way.
	ErrTruncated = errors.New("truncated or corrupt archive")
)
