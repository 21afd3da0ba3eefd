// Package records implements the Riegeli record-stream API: Reader and
// Writer present a file as a sequence of opaque byte-string records, built
// on top of pkg/chunkio's chunk framing and pkg/chunkenc's chunk codecs.
package records

// Position identifies a record by the byte offset of the chunk containing
// it and that record's index within the chunk. Two positions compare by
// (ChunkBegin, RecordIndex) lexicographically.
type Position struct {
	ChunkBegin  int64
	RecordIndex int
}

// Less reports whether p sorts before q.
func (p Position) Less(q Position) bool {
	if p.ChunkBegin != q.ChunkBegin {
		return p.ChunkBegin < q.ChunkBegin
	}
	return p.RecordIndex < q.RecordIndex
}

// SkippedRegion describes a byte range a Reader jumped over while
// recovering from corruption.
type SkippedRegion struct {
	Begin int64
	End   int64
}
