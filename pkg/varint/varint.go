// Package varint implements unsigned LEB128 varint and little-endian
// fixed-width integer primitives used throughout the chunk and record
// encodings.
package varint

import (
	"encoding/binary"
	"io"

	"github.com/riegeli-go/riegeli/pkg/riegelierr"
)

// MaxLen64 is the maximum number of bytes a varint-encoded uint64 occupies.
const MaxLen64 = 10

// PutUvarint appends the LEB128 encoding of v to buf and returns the
// extended slice.
func PutUvarint(buf []byte, v uint64) []byte {
	var tmp [MaxLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// Len returns the number of bytes needed to encode v as a varint.
func Len(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Uvarint decodes a varint from the start of buf, returning the value and
// the number of bytes consumed. n <= 0 signals failure: 0 means buf is too
// short, a negative value -n-1 means the encoding overflowed 64 bits at
// byte n.
func Uvarint(buf []byte) (uint64, int) {
	return binary.Uvarint(buf)
}

// ReadUvarint reads a varint from r, one byte at a time. It returns
// riegelierr.DataLoss if the stream ends mid-varint or the encoding exceeds
// MaxLen64 bytes.
func ReadUvarint(r io.ByteReader) (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < MaxLen64; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				return 0, riegelierr.Wrap(riegelierr.DataLoss, "truncated varint", err)
			}
			return 0, err
		}
		if b < 0x80 {
			if i == MaxLen64-1 && b > 1 {
				return 0, riegelierr.New(riegelierr.DataLoss, "varint overflows 64 bits")
			}
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, riegelierr.New(riegelierr.DataLoss, "varint longer than 10 bytes")
}

// PutUint64 writes v as a little-endian fixed-width 8-byte value.
func PutUint64(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}

// Uint64 reads a little-endian fixed-width 8-byte value.
func Uint64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

// PutUint32 writes v as a little-endian fixed-width 4-byte value.
func PutUint32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// Uint32 reads a little-endian fixed-width 4-byte value.
func Uint32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}
