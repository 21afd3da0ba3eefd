package chunkenc

import (
	"github.com/riegeli-go/riegeli/pkg/chain"
	"github.com/riegeli-go/riegeli/pkg/compression"
	"github.com/riegeli-go/riegeli/pkg/rbytes"
	"github.com/riegeli-go/riegeli/pkg/riegelierr"
	"github.com/riegeli-go/riegeli/pkg/varint"
)

// EncodeSimple builds a Simple chunk's Header and compressed Data from a
// batch of records: a varint record count, one varint cumulative end
// offset per record, then the concatenated record bytes, all compressed
// together.
func EncodeSimple(records [][]byte, opts compression.Options) (Header, *chain.Chain, error) {
	var w rbytes.Writer
	w.Write(varint.PutUvarint(nil, uint64(len(records))))

	var end uint64
	for _, rec := range records {
		end += uint64(len(rec))
		w.Write(varint.PutUvarint(nil, end))
	}
	for _, rec := range records {
		w.Write(rec)
	}

	decodedSize := uint64(w.Len())
	compressed, err := compression.Compress(w.Bytes(), opts)
	if err != nil {
		return Header{}, nil, err
	}
	header := NewHeader(Simple, uint64(len(records)), decodedSize, compressed)
	return header, chainFromBytes(compressed), nil
}

// SimpleDecoder provides random-access decode of a Simple chunk's records.
type SimpleDecoder struct {
	ends    []uint64 // cumulative end offsets, len == NumRecords
	records []byte   // concatenated record bytes
}

// DecodeSimple decompresses and validates a Simple chunk's data per spec
// §4.3's failure conditions: non-monotone offsets, a final offset that
// does not equal the payload length, or a truncated varint all yield
// riegelierr.DataLoss.
func DecodeSimple(header Header, data []byte) (*SimpleDecoder, error) {
	inner, err := compression.Decompress(data)
	if err != nil {
		return nil, err
	}
	if uint64(len(inner)) != header.DecodedDataSize {
		return nil, riegelierr.New(riegelierr.DataLoss, "simple chunk: decoded size mismatch")
	}

	r := rbytes.NewBytesReader(inner)
	numRecords, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, riegelierr.Wrap(riegelierr.DataLoss, "simple chunk: record count", err)
	}
	if numRecords != header.NumRecords {
		return nil, riegelierr.New(riegelierr.DataLoss, "simple chunk: record count mismatch with header")
	}

	ends := make([]uint64, numRecords)
	var prev uint64
	for i := range ends {
		end, err := varint.ReadUvarint(r)
		if err != nil {
			return nil, riegelierr.Wrap(riegelierr.DataLoss, "simple chunk: end offset", err)
		}
		if end < prev {
			return nil, riegelierr.New(riegelierr.DataLoss, "simple chunk: non-monotone end offsets")
		}
		ends[i] = end
		prev = end
	}

	records, _ := r.ReadN(r.Len())
	if numRecords > 0 && ends[numRecords-1] != uint64(len(records)) {
		return nil, riegelierr.New(riegelierr.DataLoss, "simple chunk: final offset does not match payload length")
	}
	if numRecords == 0 && len(records) != 0 {
		return nil, riegelierr.New(riegelierr.DataLoss, "simple chunk: trailing bytes with zero records")
	}

	return &SimpleDecoder{ends: ends, records: records}, nil
}

// NumRecords returns the number of records in the chunk.
func (d *SimpleDecoder) NumRecords() int { return len(d.ends) }

// Record returns the byte range for record i without copying.
func (d *SimpleDecoder) Record(i int) ([]byte, error) {
	if i < 0 || i >= len(d.ends) {
		return nil, riegelierr.New(riegelierr.InvalidArgument, "simple chunk: record index out of range")
	}
	begin := uint64(0)
	if i > 0 {
		begin = d.ends[i-1]
	}
	return d.records[begin:d.ends[i]], nil
}
