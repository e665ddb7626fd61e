package archive_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pierrec/lz4/v4"

	"github.com/idunn/cryptarch/internal/archive"
	"github.com/idunn/cryptarch/internal/keystream"
	"github.com/idunn/cryptarch/pkg/extmatch"
)

// testReporter records progress steps and transcript messages.
type testReporter struct {
	mu    sync.Mutex
	steps []float64
	logs  []string
}

func (r *testReporter) Step(delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps = append(r.steps, delta)
}

func (r *testReporter) Logf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, fmt.Sprintf(format, args...))
}

func (r *testReporter) total() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sum float64
	for _, s := range r.steps {
		sum += s
	}

	return sum
}

// writeTree materializes a map of relative path → content under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))

		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("mkdir for %q: %v", rel, err)
		}

		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %q: %v", rel, err)
		}
	}
}

// matchAll compiles a match-everything filter.
func matchAll(t *testing.T) *extmatch.Matcher {
	t.Helper()

	matcher, err := extmatch.NewMatcher(nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	return matcher
}

// resolve is a test shorthand around archive.Resolve.
func resolve(t *testing.T, target string, recurse bool) *archive.FileSet {
	t.Helper()

	set, err := archive.Resolve(target, recurse, matchAll(t))
	if err != nil {
		t.Fatalf("Resolve(%q): %v", target, err)
	}

	return set
}

// stagingLeftovers returns any staging temp files left under dir.
func stagingLeftovers(t *testing.T, dir string) []string {
	t.Helper()

	leftovers, err := filepath.Glob(filepath.Join(dir, ".cryptarch-*"))
	if err != nil {
		t.Fatalf("globbing staging files: %v", err)
	}

	return leftovers
}

func TestPackUnpackRoundTrip(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	files := map[string]string{
		"a.txt":   "hello",
		"b/c.txt": "world",
	}
	writeTree(t, src, files)

	archivePath := filepath.Join(t.TempDir(), "out.car")
	dest := t.TempDir()

	packRep := &testReporter{}
	if err := archive.Pack(resolve(t, src, true), keystream.Derive("secret"), archivePath, packRep); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	// The archive is a standard LZ4 frame wrapping the encrypted payload.
	head := make([]byte, 4)
	f, err := os.Open(archivePath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}

	if _, err := f.Read(head); err != nil {
		t.Fatalf("read archive head: %v", err)
	}
	f.Close()

	if !bytes.Equal(head, []byte{0x04, 0x22, 0x4d, 0x18}) {
		t.Errorf("archive does not start with an LZ4 frame magic: % x", head)
	}

	unpackRep := &testReporter{}
	if err := archive.Unpack(archivePath, keystream.Derive("secret"), dest, unpackRep); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	for rel, want := range files {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("reading restored %q: %v", rel, err)
		}

		if string(got) != want {
			t.Errorf("restored %q = %q, want %q", rel, got, want)
		}
	}

	if leftovers := stagingLeftovers(t, dest); len(leftovers) != 0 {
		t.Errorf("staging files left behind: %v", leftovers)
	}

	if total := packRep.total(); math.Abs(total-1) > 1e-9 {
		t.Errorf("pack progress steps sum to %v, want 1", total)
	}

	if total := unpackRep.total(); math.Abs(total-1) > 1e-9 {
		t.Errorf("unpack progress steps sum to %v, want 1", total)
	}
}

func TestPackUnpackEmptyPassphrase(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"plain.bin": "\x00\x01\x02zero-key data"})

	archivePath := filepath.Join(t.TempDir(), "out.car")
	dest := t.TempDir()

	if err := archive.Pack(resolve(t, src, false), keystream.Derive(""), archivePath, &testReporter{}); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	if err := archive.Unpack(archivePath, keystream.Derive(""), dest, &testReporter{}); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "plain.bin"))
	if err != nil {
		t.Fatalf("reading restored file: %v", err)
	}

	if string(got) != "\x00\x01\x02zero-key data" {
		t.Errorf("restored content mismatch: %q", got)
	}
}

func TestUnpackWrongKey(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "hello", "b.txt": "world"})

	archivePath := filepath.Join(t.TempDir(), "out.car")
	dest := t.TempDir()

	if err := archive.Pack(resolve(t, src, false), keystream.Derive("secret"), archivePath, &testReporter{}); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	err := archive.Unpack(archivePath, keystream.Derive("wrong"), dest, &testReporter{})
	if !errors.Is(err, archive.ErrTruncated) {
		t.Fatalf("Unpack with wrong key = %v, want ErrTruncated", err)
	}

	entries, readErr := os.ReadDir(dest)
	if readErr != nil {
		t.Fatalf("reading destination: %v", readErr)
	}

	if len(entries) != 0 {
		t.Errorf("destination not empty after failed decode: %v", entries)
	}
}

// TestUnpackTruncated crafts an archive whose declared payload length exceeds
// the bytes actually present and verifies decode fails cleanly.
func TestUnpackTruncated(t *testing.T) {
	t.Parallel()

	archivePath := filepath.Join(t.TempDir(), "broken.car")
	dest := t.TempDir()

	out, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	key := keystream.Derive("secret")
	zw := lz4.NewWriter(out)

	emit := func(p []byte) {
		key.Encrypt(p)

		if _, err := zw.Write(p); err != nil {
			t.Fatalf("writing crafted stream: %v", err)
		}
	}

	num32 := func(v int32) []byte {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v))

		return b
	}

	emit(num32(1)) // one entry

	rel := "a.txt"
	emit(num32(int32(len(rel))))

	units := make([]byte, 2*len(rel))
	for i, r := range rel {
		binary.BigEndian.PutUint16(units[2*i:], uint16(r))
	}
	emit(units)

	size := make([]byte, 8)
	binary.BigEndian.PutUint64(size, 100) // declares 100 payload bytes
	emit(size)

	emit([]byte("hello")) // but only 5 are present

	if err := zw.Close(); err != nil {
		t.Fatalf("closing lz4 writer: %v", err)
	}

	if err := out.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}

	err = archive.Unpack(archivePath, keystream.Derive("secret"), dest, &testReporter{})
	if !errors.Is(err, archive.ErrTruncated) {
		t.Fatalf("Unpack of truncated archive = %v, want ErrTruncated", err)
	}

	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatalf("reading destination: %v", err)
	}

	if len(entries) != 0 {
		t.Errorf("destination not empty after truncated decode: %v", entries)
	}
}

// TestPackRollback deletes a source file between resolution and packing; the
// failed pack must not leave a destination archive behind.
func TestPackRollback(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"keep.txt": "kept", "gone.txt": "doomed"})

	set := resolve(t, src, false)
	if len(set.Files) != 2 {
		t.Fatalf("resolved %d files, want 2", len(set.Files))
	}

	if err := os.Remove(filepath.Join(src, "gone.txt")); err != nil {
		t.Fatalf("removing source file: %v", err)
	}

	archivePath := filepath.Join(t.TempDir(), "out.car")

	rep := &testReporter{}
	if err := archive.Pack(set, keystream.Derive("secret"), archivePath, rep); err == nil {
		t.Fatal("Pack succeeded despite missing source file")
	}

	if _, err := os.Stat(archivePath); !os.IsNotExist(err) {
		t.Errorf("partial archive left behind: stat err = %v", err)
	}

	rep.mu.Lock()
	defer rep.mu.Unlock()

	if len(rep.logs) == 0 {
		t.Error("per-file failure was not logged")
	}
}

// TestRelocationIndependence blocks one staged file's final path and verifies
// the other files are still moved while the operation reports failure.
func TestRelocationIndependence(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"x.txt": "movable", "sub/y.txt": "blocked"})

	archivePath := filepath.Join(t.TempDir(), "out.car")
	dest := t.TempDir()

	if err := archive.Pack(resolve(t, src, true), keystream.Derive("secret"), archivePath, &testReporter{}); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	// A plain file where the "sub" directory must go makes that relocation fail.
	if err := os.WriteFile(filepath.Join(dest, "sub"), []byte("in the way"), 0o600); err != nil {
		t.Fatalf("blocking sub: %v", err)
	}

	err := archive.Unpack(archivePath, keystream.Derive("secret"), dest, &testReporter{})
	if err == nil {
		t.Fatal("Unpack succeeded despite blocked relocation")
	}

	got, readErr := os.ReadFile(filepath.Join(dest, "x.txt"))
	if readErr != nil {
		t.Fatalf("unblocked file was not restored: %v", readErr)
	}

	if string(got) != "movable" {
		t.Errorf("restored x.txt = %q, want %q", got, "movable")
	}

	if leftovers := stagingLeftovers(t, dest); len(leftovers) != 0 {
		t.Errorf("staging files left behind: %v", leftovers)
	}
}

// TestUnpackReplacesExisting verifies a pre-existing file at a final path is
// overwritten by the restored one.
func TestUnpackReplacesExisting(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "fresh"})

	archivePath := filepath.Join(t.TempDir(), "out.car")
	dest := t.TempDir()

	if err := archive.Pack(resolve(t, src, false), keystream.Derive("secret"), archivePath, &testReporter{}); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dest, "a.txt"), []byte("stale"), 0o600); err != nil {
		t.Fatalf("seeding stale file: %v", err)
	}

	if err := archive.Unpack(archivePath, keystream.Derive("secret"), dest, &testReporter{}); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatalf("reading restored file: %v", err)
	}

	if string(got) != "fresh" {
		t.Errorf("restored a.txt = %q, want %q", got, "fresh")
	}
}
