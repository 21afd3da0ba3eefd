package records

import (
	"errors"
	"io"

	"github.com/riegeli-go/riegeli/pkg/chunkenc"
	"github.com/riegeli-go/riegeli/pkg/chunkio"
	"github.com/riegeli-go/riegeli/pkg/riegelierr"
	"github.com/riegeli-go/riegeli/pkg/rlog"
)

// Reader reads records sequentially from a file, decoding whichever
// chunk codec (simple or transposed) each chunk was written with.
type Reader struct {
	cr         *chunkio.ChunkReader
	projection chunkenc.FieldProjection

	// RecordType holds the FileMetadata chunk's descriptor bytes, if the
	// file carried one; nil otherwise.
	RecordType []byte

	chunkStart int64
	chunkType  chunkenc.Type
	simple     *chunkenc.SimpleDecoder
	transposed *chunkenc.TransposeDecoder
	numInChunk int
	idx        int

	// bodyPending is set when a seek has located a record-carrying chunk
	// and read only its header (chunkStart/chunkType/numInChunk are valid)
	// without decoding its body. The reader is left positioned at the
	// chunk's start; ReadRecord decodes the body on first use.
	bodyPending bool
}

// NewReader opens r as a record file, validating the file signature and
// transparently consuming an optional FileMetadata chunk.
func NewReader(r io.ReadSeeker, projection chunkenc.FieldProjection) (*Reader, error) {
	cr, err := chunkio.NewChunkReader(r)
	if err != nil {
		return nil, err
	}
	if err := cr.CheckFileFormat(); err != nil {
		return nil, err
	}
	if _, _, err := cr.ReadChunk(); err != nil { // consume the signature chunk
		return nil, err
	}
	rr := &Reader{cr: cr, projection: projection}
	if err := rr.maybeReadMetadata(); err != nil {
		return nil, err
	}
	return rr, nil
}

func (rr *Reader) maybeReadMetadata() error {
	header, err := rr.cr.PullChunkHeader()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if header.ChunkType != chunkenc.FileMetadata {
		return nil
	}
	chunk, _, err := rr.cr.ReadChunk()
	if err != nil {
		return err
	}
	recordType, err := DecodeMetadata(chunk.Header, chunk.Data.Flatten())
	if err != nil {
		return err
	}
	rr.RecordType = recordType
	return nil
}

// advanceChunk reads chunks until it finds one carrying records (skipping
// any Padding chunks), decoding it with the codec its header declares.
func (rr *Reader) advanceChunk() error {
	for {
		chunk, start, err := rr.cr.ReadChunk()
		if err != nil {
			return err
		}
		if chunk.Header.ChunkType == chunkenc.Padding {
			continue
		}
		if err := rr.decodeChunkBody(chunk, start); err != nil {
			return err
		}
		rr.idx = 0
		return nil
	}
}

// decodeChunkBody decodes an already-read chunk's body with the codec its
// header declares and installs it as the current chunk.
func (rr *Reader) decodeChunkBody(chunk chunkenc.Chunk, start int64) error {
	switch chunk.Header.ChunkType {
	case chunkenc.Simple:
		dec, err := chunkenc.DecodeSimple(chunk.Header, chunk.Data.Flatten())
		if err != nil {
			return err
		}
		rr.simple, rr.transposed = dec, nil
		rr.numInChunk = dec.NumRecords()
	case chunkenc.Transposed:
		dec, err := chunkenc.DecodeTranspose(chunk.Header, chunk.Data.Flatten(), rr.projection)
		if err != nil {
			return err
		}
		rr.transposed, rr.simple = dec, nil
		rr.numInChunk = dec.NumRecords()
	default:
		return riegelierr.New(riegelierr.DataLoss, "record stream: unexpected chunk type "+chunk.Header.ChunkType.String())
	}
	rr.chunkStart, rr.chunkType = start, chunk.Header.ChunkType
	rr.bodyPending = false
	return nil
}

// ReadRecord returns the next record and its position, or io.EOF once the
// file is exhausted.
func (rr *Reader) ReadRecord() ([]byte, Position, error) {
	if rr.bodyPending {
		chunk, start, err := rr.cr.ReadChunk()
		if err != nil {
			return nil, Position{}, err
		}
		if err := rr.decodeChunkBody(chunk, start); err != nil {
			return nil, Position{}, err
		}
	}
	for rr.idx >= rr.numInChunk || (rr.simple == nil && rr.transposed == nil) {
		if err := rr.advanceChunk(); err != nil {
			return nil, Position{}, err
		}
	}
	pos := Position{ChunkBegin: rr.chunkStart, RecordIndex: rr.idx}
	var rec []byte
	var err error
	if rr.simple != nil {
		rec, err = rr.simple.Record(rr.idx)
	} else {
		rec, err = rr.transposed.Record(rr.idx)
	}
	if err != nil {
		return nil, Position{}, err
	}
	rr.idx++
	return rec, pos, nil
}

// Pos returns the current position: the start of the chunk most recently
// read (or sought) and the index of the next record within it. Before the
// first chunk is read, or once the current chunk is exhausted, the next
// ReadRecord call returns a position in a later chunk instead.
func (rr *Reader) Pos() Position {
	return Position{ChunkBegin: rr.chunkStart, RecordIndex: rr.idx}
}

// SeekToPosition repositions the reader so the next ReadRecord call
// returns the record at pos. Seeking to record index 0 only reads the
// target chunk's header, not its body: the chunk is decoded lazily on the
// next ReadRecord call. This also supports seeking to pos.ChunkBegin ==
// end of file with RecordIndex 0: no chunk exists there, and the next
// ReadRecord call reports io.EOF, exactly as continued sequential reading
// would have.
func (rr *Reader) SeekToPosition(pos Position) error {
	start, err := rr.cr.SeekToChunkContaining(pos.ChunkBegin)
	if err != nil {
		return err
	}
	rr.simple, rr.transposed = nil, nil
	rr.bodyPending = false

	if pos.RecordIndex == 0 {
		header, err := rr.cr.PullChunkHeader()
		if err != nil {
			if errors.Is(err, io.EOF) {
				rr.chunkStart, rr.chunkType = start, 0
				rr.numInChunk, rr.idx = 0, 0
				return nil
			}
			return err
		}
		if header.ChunkType == chunkenc.Simple || header.ChunkType == chunkenc.Transposed {
			rr.chunkStart, rr.chunkType = start, header.ChunkType
			rr.numInChunk, rr.idx = int(header.NumRecords), 0
			rr.bodyPending = true
			return nil
		}
	}

	if err := rr.advanceChunk(); err != nil {
		return err
	}
	if pos.RecordIndex < 0 || pos.RecordIndex > rr.numInChunk {
		return riegelierr.New(riegelierr.InvalidArgument, "record stream: record index out of range for chunk")
	}
	rr.idx = pos.RecordIndex
	return nil
}

// Recover skips forward past a corrupted region, up to maxScan bytes,
// until it finds the next structurally valid chunk header. The next
// ReadRecord call returns the first record of that chunk.
func (rr *Reader) Recover(maxScan int64) (SkippedRegion, error) {
	skipped, err := rr.cr.Recover(maxScan)
	if err != nil {
		rlog.RecoverAttempted(*rlog.L(), rr.cr.Pos(), rr.cr.Pos(), err)
		return SkippedRegion{}, err
	}
	rr.simple, rr.transposed = nil, nil
	rr.numInChunk, rr.idx = 0, 0
	rr.bodyPending = false
	rlog.RecoverAttempted(*rlog.L(), skipped.Begin, skipped.End, nil)
	return SkippedRegion{Begin: skipped.Begin, End: skipped.End}, nil
}
