package bitstream

import "github.com/cespare/xxhash/v2"

// Fingerprint returns a cheap content hash of the buffer's packed bytes,
// used by container round-trip tests to compare two tracks' raw bit
// content without a byte-for-byte diff. It is not part of the
// sector-index staleness mechanism, which always uses the dirty flag per
// spec rather than a content hash.
func (b *Buffer) Fingerprint() uint64 {
	return xxhash.Sum64(b.bits)
}
