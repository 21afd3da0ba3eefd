package records

import (
	"github.com/riegeli-go/riegeli/pkg/chain"
	"github.com/riegeli-go/riegeli/pkg/chunkenc"
	"github.com/riegeli-go/riegeli/pkg/compression"
)

// EncodeMetadata builds the FileMetadata chunk: a one-record transposed
// chunk carrying recordType, a descriptor of the records that follow
// (typically a serialized descriptor message). The container does not
// interpret its meaning, but recordType must parse as protobuf wire
// format, since the transposed codec decomposes it by field; otherwise
// encoding fails with DataLoss. A Writer emits this chunk at most once,
// immediately after the file signature chunk.
func EncodeMetadata(recordType []byte, opts compression.Options) (chunkenc.Header, *chain.Chain, error) {
	header, data, err := chunkenc.EncodeTranspose([][]byte{recordType}, opts)
	if err != nil {
		return chunkenc.Header{}, nil, err
	}
	header.ChunkType = chunkenc.FileMetadata
	return header, data, nil
}

// DecodeMetadata extracts the record type descriptor from a FileMetadata
// chunk's header and data.
func DecodeMetadata(header chunkenc.Header, data []byte) ([]byte, error) {
	dec, err := chunkenc.DecodeTranspose(header, data, chunkenc.AllFields())
	if err != nil {
		return nil, err
	}
	return dec.Record(0)
}
