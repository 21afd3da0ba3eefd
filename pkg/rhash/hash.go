// Package rhash computes the 64-bit keyed MAC (HighwayHash) used to
// checksum chunk and block headers.
//
// The wire format requires bit-exact interop with a fixed key across
// writers and readers. This module pins its own fixed 32-byte key below
// (see DESIGN.md's Open Questions entry) rather than fabricate a value
// claiming upstream provenance it cannot verify. Interop with files
// written by another implementation requires swapping this key for
// theirs.
package rhash

import (
	"github.com/minio/highwayhash"
)

// Key is the fixed 32-byte HighwayHash key used for every MAC computed by
// this module. Changing it changes every on-disk checksum.
var Key = [32]byte{
	0x0f, 0x92, 0x39, 0x42, 0x7a, 0xc8, 0x15, 0x03,
	0x4a, 0xd1, 0xc6, 0x7e, 0x2b, 0x5f, 0x88, 0x91,
	0xd4, 0x3c, 0x77, 0xaa, 0x19, 0x64, 0xfe, 0x0d,
	0x58, 0xb2, 0xe1, 0x46, 0x9c, 0x20, 0xcb, 0x7d,
}

// MAC returns the 64-bit keyed hash of data.
func MAC(data []byte) uint64 {
	h, err := highwayhash.New64(Key[:])
	if err != nil {
		// Key is a compile-time constant of the required length; a
		// failure here means highwayhash.New64's contract changed.
		panic(err)
	}
	h.Write(data)
	return h.Sum64()
}
