package chunkenc

import (
	"fmt"

	"github.com/riegeli-go/riegeli/pkg/chain"
	"github.com/riegeli-go/riegeli/pkg/rhash"
	"github.com/riegeli-go/riegeli/pkg/riegelierr"
	"github.com/riegeli-go/riegeli/pkg/varint"
)

// Header is the 40-byte fixed header preceding every chunk's data (spec
// §3):
//
//	header_hash (u64) | data_size (u64) | data_hash (u64) |
//	chunk_type (u8) | num_records (u56) | decoded_data_size (u64)
//
// All integers are little-endian. HeaderHash MACs the remaining 32 bytes;
// DataHash MACs the data payload.
type Header struct {
	HeaderHash       uint64
	DataSize         uint64
	DataHash         uint64
	ChunkType        Type
	NumRecords       uint64 // 56 bits
	DecodedDataSize  uint64
}

// Chunk is a (Header, data) pair: a framed, checksummed batch of records.
type Chunk struct {
	Header Header
	Data   *chain.Chain
}

// Encode serializes h into a HeaderSize-byte buffer, computing HeaderHash
// from the other fields.
func (h Header) Encode() ([]byte, error) {
	if h.NumRecords > maxNumRecords {
		return nil, riegelierr.New(riegelierr.InvalidArgument,
			fmt.Sprintf("num_records %d exceeds 56-bit range", h.NumRecords))
	}
	buf := make([]byte, HeaderSize)
	varint.PutUint64(buf[8:16], h.DataSize)
	varint.PutUint64(buf[16:24], h.DataHash)
	buf[24] = byte(h.ChunkType)
	putUint56(buf[25:32], h.NumRecords)
	varint.PutUint64(buf[32:40], h.DecodedDataSize)
	headerHash := rhash.MAC(buf[8:40])
	varint.PutUint64(buf[0:8], headerHash)
	return buf, nil
}

// DecodeHeader parses and verifies a HeaderSize-byte buffer, returning a
// riegelierr.DataLoss error if the header hash does not verify (spec
// invariant I2).
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, riegelierr.New(riegelierr.DataLoss, "truncated chunk header")
	}
	gotHash := varint.Uint64(buf[0:8])
	wantHash := rhash.MAC(buf[8:40])
	if gotHash != wantHash {
		return Header{}, riegelierr.New(riegelierr.DataLoss, "chunk header hash mismatch")
	}
	return Header{
		HeaderHash:      gotHash,
		DataSize:        varint.Uint64(buf[8:16]),
		DataHash:        varint.Uint64(buf[16:24]),
		ChunkType:       Type(buf[24]),
		NumRecords:      getUint56(buf[25:32]),
		DecodedDataSize: varint.Uint64(buf[32:40]),
	}, nil
}

// VerifyData reports whether data's MAC matches h.DataHash (spec invariant
// I3).
func (h Header) VerifyData(data []byte) error {
	if rhash.MAC(data) != h.DataHash {
		return riegelierr.New(riegelierr.DataLoss, "chunk data hash mismatch")
	}
	return nil
}

func putUint56(buf []byte, v uint64) {
	for i := 0; i < 7; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

func getUint56(buf []byte) uint64 {
	var v uint64
	for i := 0; i < 7; i++ {
		v |= uint64(buf[i]) << (8 * i)
	}
	return v
}

// NewHeader builds a Header for a data payload, computing DataHash and
// DataSize from it.
func NewHeader(chunkType Type, numRecords uint64, decodedDataSize uint64, data []byte) Header {
	return Header{
		DataSize:        uint64(len(data)),
		DataHash:        rhash.MAC(data),
		ChunkType:       chunkType,
		NumRecords:      numRecords,
		DecodedDataSize: decodedDataSize,
	}
}

func chainFromBytes(data []byte) *chain.Chain {
	return chain.New(data)
}
