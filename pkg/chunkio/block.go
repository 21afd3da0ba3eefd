// Package chunkio implements the block-framed chunk stream: chunks are
// written back-to-back into a file, but every BlockSize-byte physical
// block additionally carries a BlockHeader so readers can align, skip
// corrupt regions, and seek directly to the chunk containing an arbitrary
// byte offset.
package chunkio

import (
	"github.com/riegeli-go/riegeli/pkg/chunkenc"
	"github.com/riegeli-go/riegeli/pkg/rhash"
	"github.com/riegeli-go/riegeli/pkg/riegelierr"
	"github.com/riegeli-go/riegeli/pkg/varint"
)

// BlockHeaderSize is the fixed size of a BlockHeader.
const BlockHeaderSize = chunkenc.BlockHeaderSize

// BlockSize is the fixed physical block size every block header boundary
// aligns to.
const BlockSize = chunkenc.BlockSize

// BlockHeader begins every BlockSize-aligned block, including the first
// one at offset 0:
//
//	header_hash (u64) | previous_chunk (u64) | next_chunk (u64)
//
// previous_chunk and next_chunk are byte offsets (file-relative) of the
// chunk headers straddling this block boundary, letting a reader resynced
// mid-block find its way to a chunk boundary without a linear scan.
type BlockHeader struct {
	HeaderHash    uint64
	PreviousChunk uint64
	NextChunk     uint64
}

// Encode serializes h into a BlockHeaderSize-byte buffer.
func (h BlockHeader) Encode() []byte {
	buf := make([]byte, BlockHeaderSize)
	varint.PutUint64(buf[8:16], h.PreviousChunk)
	varint.PutUint64(buf[16:24], h.NextChunk)
	hash := rhash.MAC(buf[8:24])
	varint.PutUint64(buf[0:8], hash)
	return buf
}

// DecodeBlockHeader parses and verifies a BlockHeaderSize-byte buffer.
func DecodeBlockHeader(buf []byte) (BlockHeader, error) {
	if len(buf) < BlockHeaderSize {
		return BlockHeader{}, riegelierr.New(riegelierr.DataLoss, "truncated block header")
	}
	gotHash := varint.Uint64(buf[0:8])
	wantHash := rhash.MAC(buf[8:24])
	if gotHash != wantHash {
		return BlockHeader{}, riegelierr.New(riegelierr.DataLoss, "block header hash mismatch")
	}
	return BlockHeader{
		HeaderHash:    gotHash,
		PreviousChunk: varint.Uint64(buf[8:16]),
		NextChunk:     varint.Uint64(buf[16:24]),
	}, nil
}

// blockBoundary reports whether offset falls exactly on a BlockSize
// boundary, i.e. whether a BlockHeader is expected there.
func blockBoundary(offset int64) bool {
	return offset%BlockSize == 0
}

// bytesToNextBlockBoundary returns how many bytes remain before offset
// reaches the next BlockSize boundary.
func bytesToNextBlockBoundary(offset int64) int64 {
	rem := offset % BlockSize
	if rem == 0 {
		return 0
	}
	return BlockSize - rem
}
