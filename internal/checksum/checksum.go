// Package checksum derives the 32-bit lookup key stored in a note's csum
// column. The key buckets notes by sort field for duplicate detection;
// collisions are tolerated, non-determinism is not.
package checksum

import (
	"crypto/sha256"
	"encoding/binary"
)

// Func computes a checksum over the UTF-8 bytes of a sort field. It must
// be pure: no time, no process state, identical output across runs.
type Func func(sortField string) uint32

// SHA256Head is the default checksum: the big-endian uint32 formed by
// the first four bytes of the SHA-256 digest of the sort field.
func SHA256Head(sortField string) uint32 {
	sum := sha256.Sum256([]byte(sortField))
	return binary.BigEndian.Uint32(sum[:4])
}

// ByteSum sums the UTF-8 bytes of the sort field, masked to 32 bits.
// It matches collections written by older tooling that used a plain
// byte sum; prefer SHA256Head for new collections.
func ByteSum(sortField string) uint32 {
	var sum uint64
	for _, b := range []byte(sortField) {
		sum += uint64(b)
	}
	return uint32(sum & 0xFFFFFFFF)
}
