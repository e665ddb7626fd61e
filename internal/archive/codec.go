package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/idunn/cryptarch/internal/keystream"
)

// maxPathUnits bounds decoded path lengths. A length beyond it means the
// stream is corrupt or the key is wrong; failing early avoids absurd
// allocations before the inevitable out-of-range read.
const maxPathUnits = 32 * 1024

// Reporter receives progress and transcript updates from a running pack or
// unpack. The operation layer implements it; the codec never blocks on it.
type Reporter interface {
	// Step advances the completion fraction by delta (clamped to [0, 1]).
	Step(delta float64)

	// Logf queues a transcript message for the polling side.
	Logf(format string, args ...any)
}

// encoder writes encrypted quantities to the compression layer.
type encoder struct {
	w       io.Writer
	key     *keystream.Key
	scratch [8]byte
}

// emit encrypts p in place and writes it out.
func (e *encoder) emit(p []byte) error {
	e.key.Encrypt(p)

	if _, err := e.w.Write(p); err != nil {
		return fmt.Errorf("writing archive stream: %w", err)
	}

	return nil
}

func (e *encoder) writeInt32(v int32) error {
	binary.BigEndian.PutUint32(e.scratch[:4], uint32(v))

	return e.emit(e.scratch[:4])
}

func (e *encoder) writeInt64(v int64) error {
	binary.BigEndian.PutUint64(e.scratch[:8], uint64(v))

	return e.emit(e.scratch[:8])
}

// writeString writes the code-unit count followed by the string's UTF-16 code
// units, two bytes each, accumulated in a bounded working buffer.
func (e *encoder) writeString(s string) error {
	units := utf16.Encode([]rune(s))

	if err := e.writeInt32(int32(len(units))); err != nil { //nolint:gosec // path lengths are tiny
		return err
	}

	buf, _ := bufferPool.Get().([]byte) //nolint:errcheck // pool only holds []byte
	defer bufferPool.Put(buf)           //nolint:staticcheck // slice reuse is intended

	n := 0

	for _, unit := range units {
		if n+2 > len(buf) {
			if err := e.emit(buf[:n]); err != nil {
				return err
			}

			n = 0
		}

		binary.BigEndian.PutUint16(buf[n:], unit)
		n += 2
	}

	if n == 0 {
		return nil
	}

	return e.emit(buf[:n])
}

// copyFrom streams exactly size bytes from r, encrypting chunk by chunk.
func (e *encoder) copyFrom(r io.Reader, size int64) error {
	buf, _ := bufferPool.Get().([]byte) //nolint:errcheck // pool only holds []byte
	defer bufferPool.Put(buf)           //nolint:staticcheck // slice reuse is intended

	remaining := size

	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}

		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return fmt.Errorf("reading payload: %w", err)
		}

		if err := e.emit(buf[:n]); err != nil {
			return err
		}

		remaining -= n
	}

	return nil
}

// decoder reads encrypted quantities from the decompression layer.
type decoder struct {
	r       io.Reader
	key     *keystream.Key
	scratch [8]byte
}

// fill reads len(p) bytes and decrypts them in place. Hitting end-of-stream
// before the read completes is a truncation failure.
func (d *decoder) fill(p []byte) error {
	if _, err := io.ReadFull(d.r, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: stream ended mid-quantity", ErrTruncated)
		}

		return fmt.Errorf("reading archive stream: %w", err)
	}

	d.key.Decrypt(p)

	return nil
}

func (d *decoder) readInt32() (int32, error) {
	if err := d.fill(d.scratch[:4]); err != nil {
		return 0, err
	}

	return int32(binary.BigEndian.Uint32(d.scratch[:4])), nil //nolint:gosec // two's complement round trip
}

func (d *decoder) readInt64() (int64, error) {
	if err := d.fill(d.scratch[:8]); err != nil {
		return 0, err
	}

	return int64(binary.BigEndian.Uint64(d.scratch[:8])), nil //nolint:gosec // two's complement round trip
}

// readString reads a code-unit count and the corresponding UTF-16 code units.
func (d *decoder) readString() (string, error) {
	count, err := d.readInt32()
	if err != nil {
		return "", err
	}

	if count < 0 || count > maxPathUnits {
		return "", fmt.Errorf("%w: implausible path length %d", ErrTruncated, count)
	}

	raw := make([]byte, 2*count)
	if err := d.fill(raw); err != nil {
		return "", err
	}

	units := make([]uint16, count)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(raw[2*i:])
	}

	return string(utf16.Decode(units)), nil
}

// copyTo streams exactly size bytes into w, decrypting chunk by chunk.
func (d *decoder) copyTo(w io.Writer, size int64) error {
	buf, _ := bufferPool.Get().([]byte) //nolint:errcheck // pool only holds []byte
	defer bufferPool.Put(buf)           //nolint:staticcheck // slice reuse is intended

	remaining := size

	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}

		if err := d.fill(buf[:n]); err != nil {
			return err
		}

		if _, err := w.Write(buf[:n]); err != nil {
			return fmt.Errorf("writing payload: %w", err)
		}

		remaining -= n
	}

	return nil
}
