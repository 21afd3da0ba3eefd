package chunkenc

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/riegeli-go/riegeli/pkg/chain"
	"github.com/riegeli-go/riegeli/pkg/compression"
	"github.com/riegeli-go/riegeli/pkg/rbytes"
	"github.com/riegeli-go/riegeli/pkg/riegelierr"
	"github.com/riegeli-go/riegeli/pkg/varint"
)

func riegelierrDataLoss(msg string) error {
	return riegelierr.New(riegelierr.DataLoss, msg)
}

// maxNestingDepth bounds recursion into nested messages and groups, in
// both the encoder and the decoder's tag-tree parse (spec §4.4 edge case:
// pathological deeply-nested input must fail closed rather than blow the
// stack).
const maxNestingDepth = 100

// fieldKind classifies a dictionary entry beyond the raw protobuf wire
// type: BytesType is ambiguous between an opaque byte string and an
// embedded message, so the transpose codec splits it into two kinds
// decided per occurrence by whether the bytes parse as a message.
type fieldKind uint8

const (
	kindVarint fieldKind = iota
	kindFixed32
	kindFixed64
	kindBytes   // opaque string/bytes leaf
	kindMessage // length-delimited embedded message
	kindGroup   // start/end-delimited group
)

// tagEntry is one row of the transpose dictionary: a field occurrence
// shape, identified by its field number, kind, and the dictionary index
// of its parent occurrence (-1 at the record root). The same (parent,
// field number) pair may own two entries with different kinds when the
// same field path carries a message in some records and a scalar in
// others: schema drift.
type tagEntry struct {
	Num    int32
	Kind   fieldKind
	Parent int
}

// dictAccum accumulates one dictionary entry's per-occurrence values in
// encounter order during encoding.
type dictAccum struct {
	entry   tagEntry
	values  [][]byte // kindVarint/Fixed32/Fixed64/Bytes: raw value bytes
	lengths []uint64 // kindBytes only: content length
}

type transposeEncoder struct {
	dict      []tagEntry
	dictIndex map[tagEntry]int
	accum     []*dictAccum
	tags      rbytes.Writer // global preorder tag stream
	recCounts []uint64      // per-record top-level tag count
}

func (e *transposeEncoder) intern(entry tagEntry) int {
	if idx, ok := e.dictIndex[entry]; ok {
		return idx
	}
	idx := len(e.dict)
	e.dict = append(e.dict, entry)
	e.accum = append(e.accum, &dictAccum{entry: entry})
	e.dictIndex[entry] = idx
	return idx
}

// encodeFields walks fields (already parsed) and appends their tag-stream
// and value-buffer contributions. It returns the number of top-level
// entries it wrote to the tag stream.
func (e *transposeEncoder) encodeFields(fields []protoField, parent int, depth int) (int, error) {
	if depth > maxNestingDepth {
		return 0, errMaxDepth
	}
	count := 0
	for _, f := range fields {
		switch f.Wire {
		case protowire.VarintType:
			idx := e.intern(tagEntry{f.Num, kindVarint, parent})
			e.tags.Write(varint.PutUvarint(nil, uint64(idx)))
			acc := e.accum[idx]
			acc.values = append(acc.values, f.Raw)
		case protowire.Fixed32Type:
			idx := e.intern(tagEntry{f.Num, kindFixed32, parent})
			e.tags.Write(varint.PutUvarint(nil, uint64(idx)))
			acc := e.accum[idx]
			acc.values = append(acc.values, f.Raw)
		case protowire.Fixed64Type:
			idx := e.intern(tagEntry{f.Num, kindFixed64, parent})
			e.tags.Write(varint.PutUvarint(nil, uint64(idx)))
			acc := e.accum[idx]
			acc.values = append(acc.values, f.Raw)
		case protowire.BytesType:
			if children, ok := parseMessageFields(f.Raw); ok && depth+1 <= maxNestingDepth {
				idx := e.intern(tagEntry{f.Num, kindMessage, parent})
				e.tags.Write(varint.PutUvarint(nil, uint64(idx)))
				e.tags.Write(varint.PutUvarint(nil, uint64(len(children))))
				if _, err := e.encodeFields(children, idx, depth+1); err != nil {
					return 0, err
				}
			} else {
				idx := e.intern(tagEntry{f.Num, kindBytes, parent})
				e.tags.Write(varint.PutUvarint(nil, uint64(idx)))
				acc := e.accum[idx]
				acc.values = append(acc.values, f.Raw)
				acc.lengths = append(acc.lengths, uint64(len(f.Raw)))
			}
		case protowire.StartGroupType:
			children, ok := parseMessageFields(f.Raw)
			if !ok {
				return 0, riegelierrDataLoss("transpose: malformed group content")
			}
			idx := e.intern(tagEntry{f.Num, kindGroup, parent})
			e.tags.Write(varint.PutUvarint(nil, uint64(idx)))
			e.tags.Write(varint.PutUvarint(nil, uint64(len(children))))
			if _, err := e.encodeFields(children, idx, depth+1); err != nil {
				return 0, err
			}
		default:
			return 0, riegelierrDataLoss("transpose: unknown or reserved wire type")
		}
		count++
	}
	return count, nil
}

// EncodeTranspose builds a Transposed chunk's Header and compressed Data
// from a batch of protobuf-encoded records: each record's
// wire-format fields are decomposed by field path into per-path value and
// length buffers, plus a shared preorder tag-shape stream and a
// per-record boundary stream. All of these are concatenated into one body,
// which is compressed as a whole.
func EncodeTranspose(records [][]byte, opts compression.Options) (Header, *chain.Chain, error) {
	enc := &transposeEncoder{dictIndex: make(map[tagEntry]int)}
	for _, rec := range records {
		fields, ok := parseMessageFields(rec)
		if !ok {
			return Header{}, nil, riegelierrDataLoss("transpose: record is not a valid protobuf message")
		}
		n, err := enc.encodeFields(fields, -1, 0)
		if err != nil {
			return Header{}, nil, err
		}
		enc.recCounts = append(enc.recCounts, uint64(n))
	}

	var body rbytes.Writer

	// Dictionary: count, then (num, kind, parent) triples.
	body.Write(varint.PutUvarint(nil, uint64(len(enc.dict))))
	for _, e := range enc.dict {
		body.Write(varint.PutUvarint(nil, uint64(e.Num)))
		body.WriteByte(byte(e.Kind))
		body.Write(varint.PutUvarint(nil, uint64(e.Parent+1))) // 0 means root (-1)
	}

	// Record-boundary stream: per-record top-level tag counts.
	body.Write(varint.PutUvarint(nil, uint64(len(enc.recCounts))))
	for _, c := range enc.recCounts {
		body.Write(varint.PutUvarint(nil, c))
	}

	// Tag-shape stream.
	tagBytes := enc.tags.Bytes()
	body.Write(varint.PutUvarint(nil, uint64(len(tagBytes))))
	body.Write(tagBytes)

	// Per-dictionary-entry value/length buffers, serialized in reverse
	// occurrence order so a decoder that visits occurrences in reverse
	// preorder (required by the backward-writer reconstruction, see
	// transpose_decode.go) can read each buffer strictly forward.
	for _, acc := range enc.accum {
		switch acc.entry.Kind {
		case kindVarint, kindFixed32, kindFixed64:
			body.Write(varint.PutUvarint(nil, uint64(len(acc.values))))
			for i := len(acc.values) - 1; i >= 0; i-- {
				body.Write(acc.values[i])
			}
		case kindBytes:
			body.Write(varint.PutUvarint(nil, uint64(len(acc.values))))
			for i := len(acc.values) - 1; i >= 0; i-- {
				body.Write(varint.PutUvarint(nil, acc.lengths[i]))
			}
			for i := len(acc.values) - 1; i >= 0; i-- {
				body.Write(acc.values[i])
			}
		case kindMessage, kindGroup:
			// No stored values; content is derived recursively.
		}
	}

	decodedSize := uint64(body.Len())
	compressed, err := compression.Compress(body.Bytes(), opts)
	if err != nil {
		return Header{}, nil, err
	}
	header := NewHeader(Transposed, uint64(len(records)), decodedSize, compressed)
	return header, chainFromBytes(compressed), nil
}
