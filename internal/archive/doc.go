// Package archive implements the streaming archive codec: packing a resolved
// set of files into a single encrypted, compressed stream and unpacking that
// stream back into files.
//
// The wire layout is an LZ4 frame wrapping an encrypted byte sequence:
// a big-endian int32 entry count, then per entry the relative path length
// (int32), the path as 2-byte code units, the payload length (int64) and the
// payload bytes. Encryption is the inner layer and compression the outer one;
// the ordering is part of the format and must not change.
package archive
