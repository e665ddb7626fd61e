package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"github.com/idunn/cryptarch/internal/fileutil"
	"github.com/idunn/cryptarch/internal/keystream"
)

// stagedFile pairs a decoded temporary file with its final destination.
type stagedFile struct {
	tmp   string
	final string
	rel   string
}

// Unpack decodes the archive at archivePath into destRoot.
//
// Each entry is first decoded into a temporary file inside destRoot; staged
// files are moved to their final paths only after the whole stream decoded
// cleanly. A decode failure removes every staged file, leaving no partial
// output. A failure to move one staged file is logged and marks the operation
// unsuccessful, but the remaining relocations are still attempted.
func Unpack(archivePath string, key *keystream.Key, destRoot string, rep Reporter) error {
	key.Reset()

	in, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrPathNotFound, archivePath)
		}

		return fmt.Errorf("opening archive %q: %w", archivePath, err)
	}
	defer in.Close()

	if err := fileutil.EnsureDir(destRoot); err != nil {
		return err
	}

	staged, err := stageAll(in, key, destRoot, rep)
	if err != nil {
		for _, s := range staged {
			os.Remove(s.tmp) //nolint:gosec,errcheck // best-effort rollback
		}

		return err
	}

	return relocate(staged, rep)
}

// stageAll decodes every entry into a staging file. This phase accounts for
// 75% of the reported progress, split evenly across entries.
func stageAll(in *os.File, key *keystream.Key, destRoot string, rep Reporter) ([]stagedFile, error) {
	dec := &decoder{r: lz4.NewReader(in), key: key}

	count, err := dec.readInt32()
	if err != nil {
		return nil, fmt.Errorf("reading entry count: %w", err)
	}

	if count < 0 {
		return nil, fmt.Errorf("%w: negative entry count", ErrTruncated)
	}

	var (
		staged []stagedFile
		step   float64
	)

	if count > 0 {
		step = 0.75 / float64(count)
	}

	for i := 0; i < int(count); i++ {
		s, err := stageEntry(dec, destRoot)
		if err != nil {
			rep.Logf("failed to decode entry %d: %v", i, err)

			return staged, fmt.Errorf("decoding entry %d: %w", i, err)
		}

		staged = append(staged, s)
		rep.Step(step)
	}

	return staged, nil
}

// stageEntry decodes one entry into a fresh temporary file inside destRoot.
func stageEntry(dec *decoder, destRoot string) (stagedFile, error) {
	raw, err := dec.readString()
	if err != nil {
		return stagedFile{}, err
	}

	rel := filepath.FromSlash(raw)
	if !filepath.IsLocal(rel) {
		return stagedFile{}, fmt.Errorf("%w: unsafe entry path %q", ErrTruncated, raw)
	}

	size, err := dec.readInt64()
	if err != nil {
		return stagedFile{}, err
	}

	if size < 0 {
		return stagedFile{}, fmt.Errorf("%w: negative payload length %d", ErrTruncated, size)
	}

	tmp, err := os.CreateTemp(destRoot, ".cryptarch-*")
	if err != nil {
		return stagedFile{}, fmt.Errorf("creating staging file: %w", err)
	}

	if err := dec.copyTo(tmp, size); err != nil {
		tmp.Close()           //nolint:gosec,errcheck // best-effort cleanup
		os.Remove(tmp.Name()) //nolint:gosec,errcheck // best-effort cleanup

		return stagedFile{}, err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) //nolint:gosec,errcheck // best-effort cleanup

		return stagedFile{}, fmt.Errorf("closing staging file: %w", err)
	}

	return stagedFile{
		tmp:   tmp.Name(),
		final: filepath.Join(destRoot, rel),
		rel:   raw,
	}, nil
}

// relocate commits staged files to their final paths. This phase accounts for
// the remaining 25% of progress. Individual failures do not stop the loop.
func relocate(staged []stagedFile, rep Reporter) error {
	if len(staged) == 0 {
		return nil
	}

	step := 0.25 / float64(len(staged))

	var failed int

	for _, s := range staged {
		if err := place(s); err != nil {
			rep.Logf("failed to restore %q: %v", s.rel, err)
			os.Remove(s.tmp) //nolint:gosec,errcheck // best-effort cleanup

			failed++
		} else {
			rep.Logf("restored %q", s.rel)
		}

		rep.Step(step)
	}

	if failed > 0 {
		return fmt.Errorf("restoring archive: %d file(s) could not be moved into place", failed)
	}

	return nil
}

// place moves one staged file to its final path, replacing any existing file.
func place(s stagedFile) error {
	if err := fileutil.EnsureDir(filepath.Dir(s.final)); err != nil {
		return err
	}

	return fileutil.ReplaceFile(s.tmp, s.final)
}
