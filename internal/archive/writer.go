package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"github.com/idunn/cryptarch/internal/keystream"
)

// Pack serializes the file set into a single encrypted, compressed archive at
// destPath. Entries are written sequentially in resolution order.
//
// The first per-file failure is logged and aborts the remaining entries; a
// partially written archive is removed so no broken output is left behind.
func Pack(set *FileSet, key *keystream.Key, destPath string, rep Reporter) error {
	key.Reset()

	out, err := os.Create(destPath) //nolint:gosec // destination comes from user-supplied config
	if err != nil {
		return fmt.Errorf("creating archive %q: %w", destPath, err)
	}

	if err := packTo(out, set, key, rep); err != nil {
		out.Close()         //nolint:gosec,errcheck // best-effort cleanup
		os.Remove(destPath) //nolint:gosec,errcheck // best-effort cleanup

		return err
	}

	if err := out.Close(); err != nil {
		os.Remove(destPath) //nolint:gosec,errcheck // best-effort cleanup

		return fmt.Errorf("closing archive %q: %w", destPath, err)
	}

	return nil
}

// packTo writes the archive body: entry count, then one entry per file.
// Compression is the outer layer; every byte handed to it is already encrypted.
func packTo(dst io.Writer, set *FileSet, key *keystream.Key, rep Reporter) error {
	zw := lz4.NewWriter(dst)
	enc := &encoder{w: zw, key: key}

	if err := enc.writeInt32(int32(len(set.Files))); err != nil { //nolint:gosec // counts fit int32
		return fmt.Errorf("writing entry count: %w", err)
	}

	var step float64
	if len(set.Files) > 0 {
		step = 1.0 / float64(len(set.Files))
	}

	for _, fd := range set.Files {
		if err := writeEntry(enc, fd); err != nil {
			rep.Logf("failed to archive %q: %v", fd.Path, err)

			return fmt.Errorf("archiving %q: %w", fd.Path, err)
		}

		rep.Step(step)
		rep.Logf("archived %q (%d bytes)", fd.RelPath, fd.Size)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("flushing compressed stream: %w", err)
	}

	return nil
}

// writeEntry writes one file's record: relative path, declared size, payload.
func writeEntry(enc *encoder, fd FileDescriptor) error {
	f, err := os.Open(filepath.Clean(fd.Path))
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer f.Close()

	if err := enc.writeString(fd.RelPath); err != nil {
		return err
	}

	if err := enc.writeInt64(fd.Size); err != nil {
		return err
	}

	// Exactly fd.Size bytes go on the wire; a file that shrank since
	// resolution fails here rather than corrupting the entry framing.
	if err := enc.copyFrom(f, fd.Size); err != nil {
		return err
	}

	return nil
}
