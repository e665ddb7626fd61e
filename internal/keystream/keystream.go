// Package keystream implements the additive stream cipher that obfuscates
// every byte of an archive.
//
// The key material is derived from a passphrase and applied as a repeating
// sequence of byte offsets. This is obfuscation, not authenticated encryption:
// decrypting with the wrong key silently produces garbage.
package keystream

import "unicode/utf16"

// Key is the derived key material plus a cyclic cursor into it.
//
// A Key is owned by a single archive operation; it is not safe for
// concurrent use.
type Key struct {
	material []byte
	cursor   int
}

// Derive builds a Key from a passphrase.
//
// Each character of the passphrase contributes the non-zero bytes of its
// UTF-16 code unit, high byte first. ASCII characters therefore contribute a
// single byte each. An empty passphrase yields a zero-length key, which makes
// the cipher the identity transform.
func Derive(passphrase string) *Key {
	units := utf16.Encode([]rune(passphrase))

	material := make([]byte, 0, 2*len(units))

	for _, unit := range units {
		if hi := byte(unit >> 8); hi != 0 {
			material = append(material, hi)
		}

		if lo := byte(unit); lo != 0 {
			material = append(material, lo)
		}
	}

	return &Key{material: material}
}

// Len returns the length of the derived key material.
func (k *Key) Len() int {
	return len(k.material)
}

// Next returns the key byte at the cursor and advances the cursor cyclically.
// A zero-length key always returns 0.
func (k *Key) Next() byte {
	if len(k.material) == 0 {
		return 0
	}

	b := k.material[k.cursor]
	k.cursor = (k.cursor + 1) % len(k.material)

	return b
}

// Reset rewinds the cursor to the start of the key material.
func (k *Key) Reset() {
	k.cursor = 0
}

// Encrypt adds the keystream to each byte of buf in place, wrapping mod 256.
func (k *Key) Encrypt(buf []byte) {
	if len(k.material) == 0 {
		return
	}

	for i := range buf {
		buf[i] += k.Next()
	}
}

// Decrypt subtracts the keystream from each byte of buf in place. It is the
// exact inverse of Encrypt and consumes the keystream in the same order, so
// both cursors must start at the same position for a given stream.
func (k *Key) Decrypt(buf []byte) {
	if len(k.material) == 0 {
		return
	}

	for i := range buf {
		buf[i] -= k.Next()
	}
}
