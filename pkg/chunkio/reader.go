package chunkio

import (
	"errors"
	"io"

	"github.com/riegeli-go/riegeli/pkg/chain"
	"github.com/riegeli-go/riegeli/pkg/chunkenc"
	"github.com/riegeli-go/riegeli/pkg/riegelierr"
)

// SkippedRegion describes a byte range a reader jumped over while
// recovering from corruption.
type SkippedRegion struct {
	Begin int64
	End   int64
}

// ChunkReader reads chunks from an io.ReadSeeker, transparently skipping
// the BlockHeader records interleaved at every BlockSize boundary.
type ChunkReader struct {
	r   io.ReadSeeker
	pos int64
}

// NewChunkReader creates a ChunkReader starting at r's current position.
func NewChunkReader(r io.ReadSeeker) (*ChunkReader, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return &ChunkReader{r: r, pos: pos}, nil
}

func (cr *ChunkReader) seekPhysical(pos int64) error {
	if _, err := cr.r.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	cr.pos = pos
	return nil
}

// Pos returns the reader's current logical/physical byte offset (they
// coincide at chunk boundaries, the only positions this type exposes).
func (cr *ChunkReader) Pos() int64 { return cr.pos }

// readInterleaved reads exactly n logical bytes, transparently consuming
// and validating any BlockHeader encountered along the way. It returns
// io.EOF, unwrapped, only when zero bytes were available right at the
// start (a clean end of file at a chunk boundary); every other failure is
// returned as-is for the caller to classify.
func (cr *ChunkReader) readInterleaved(n int) ([]byte, error) {
	buf := make([]byte, 0, n)
	for len(buf) < n {
		if blockBoundary(cr.pos) {
			hdr := make([]byte, BlockHeaderSize)
			m, err := io.ReadFull(cr.r, hdr)
			if err != nil {
				if m == 0 && len(buf) == 0 {
					return buf, io.EOF
				}
				return buf, err
			}
			if _, err := DecodeBlockHeader(hdr); err != nil {
				return buf, err
			}
			cr.pos += BlockHeaderSize
		}
		toBoundary := bytesToNextBlockBoundary(cr.pos)
		want := n - len(buf)
		if int64(want) > toBoundary {
			want = int(toBoundary)
		}
		chunk := make([]byte, want)
		m, err := io.ReadFull(cr.r, chunk)
		cr.pos += int64(m)
		buf = append(buf, chunk[:m]...)
		if err != nil {
			if m == 0 && len(buf) == 0 {
				return buf, io.EOF
			}
			return buf, err
		}
	}
	return buf, nil
}

// ReadChunk reads and validates the next chunk, returning its physical
// start offset. It returns io.EOF when there is no further chunk.
func (cr *ChunkReader) ReadChunk() (chunkenc.Chunk, int64, error) {
	chunkStart := cr.pos
	headerBuf, err := cr.readInterleaved(chunkenc.HeaderSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return chunkenc.Chunk{}, chunkStart, io.EOF
		}
		return chunkenc.Chunk{}, chunkStart, wrapTruncation("truncated chunk header", err)
	}
	header, err := chunkenc.DecodeHeader(headerBuf)
	if err != nil {
		return chunkenc.Chunk{}, chunkStart, err
	}
	dataBuf, err := cr.readInterleaved(int(header.DataSize))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return chunkenc.Chunk{}, chunkStart, wrapTruncation("truncated chunk data", io.ErrUnexpectedEOF)
		}
		return chunkenc.Chunk{}, chunkStart, wrapTruncation("truncated chunk data", err)
	}
	if err := header.VerifyData(dataBuf); err != nil {
		return chunkenc.Chunk{}, chunkStart, err
	}
	return chunkenc.Chunk{Header: header, Data: chain.New(dataBuf)}, chunkStart, nil
}

func wrapTruncation(msg string, err error) error {
	var rerr *riegelierr.Error
	if errors.As(err, &rerr) {
		return rerr
	}
	return riegelierr.Wrap(riegelierr.DataLoss, msg, err)
}

// PullChunkHeader returns the next chunk's header without advancing the
// reader past it.
func (cr *ChunkReader) PullChunkHeader() (chunkenc.Header, error) {
	saved := cr.pos
	headerBuf, err := cr.readInterleaved(chunkenc.HeaderSize)
	cr.pos = saved
	if _, serr := cr.r.Seek(saved, io.SeekStart); serr != nil {
		return chunkenc.Header{}, serr
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return chunkenc.Header{}, io.EOF
		}
		return chunkenc.Header{}, wrapTruncation("truncated chunk header", err)
	}
	return chunkenc.DecodeHeader(headerBuf)
}

// chunkEndOffset reads (and discards) the chunk starting at the reader's
// current position, returning the logical offset immediately after it.
// It returns io.EOF, unwrapped, when no chunk begins here because this is
// a clean end of file — distinct from a chunk header or body truncated
// mid-write, which is DataLoss.
func (cr *ChunkReader) chunkEndOffset() (int64, error) {
	headerBuf, err := cr.readInterleaved(chunkenc.HeaderSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, wrapTruncation("truncated chunk header", err)
	}
	header, err := chunkenc.DecodeHeader(headerBuf)
	if err != nil {
		return 0, err
	}
	if _, err := cr.readInterleaved(int(header.DataSize)); err != nil {
		return 0, wrapTruncation("truncated chunk data", err)
	}
	return cr.pos, nil
}

// SeekToChunkContaining repositions the reader at the start of the chunk
// whose byte range contains offset, using the enclosing block's
// previous_chunk pointer as a starting candidate and scanning forward
// chunk-by-chunk from there until the containing chunk is found. offset
// may also name the position exactly at end of file, where no chunk
// begins: this is a supported seek target (the next read reports io.EOF)
// rather than an error, since callers walking positions returned during
// sequential reading may legitimately land there.
func (cr *ChunkReader) SeekToChunkContaining(offset int64) (int64, error) {
	blockStart := (offset / BlockSize) * BlockSize
	if err := cr.seekPhysical(blockStart); err != nil {
		return 0, err
	}
	hdrBuf := make([]byte, BlockHeaderSize)
	if _, err := io.ReadFull(cr.r, hdrBuf); err != nil {
		return 0, wrapTruncation("truncated block header", err)
	}
	bh, err := DecodeBlockHeader(hdrBuf)
	if err != nil {
		return 0, err
	}
	cr.pos = blockStart + BlockHeaderSize

	candidate := int64(bh.PreviousChunk)
	if candidate == 0 {
		candidate = blockStart + BlockHeaderSize
	}

	for {
		if err := cr.seekPhysical(candidate); err != nil {
			return 0, err
		}
		end, err := cr.chunkEndOffset()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if offset != candidate {
					return 0, riegelierr.New(riegelierr.InvalidArgument, "chunk stream: seek offset past end of file")
				}
				if err := cr.seekPhysical(candidate); err != nil {
					return 0, err
				}
				return candidate, nil
			}
			return 0, err
		}
		if offset < end {
			if err := cr.seekPhysical(candidate); err != nil {
				return 0, err
			}
			return candidate, nil
		}
		candidate = end
	}
}

// Recover scans forward from the reader's current position, up to
// maxScan bytes, for the next position at which a structurally valid
// chunk header begins (its header_hash verifies). On success it
// repositions the reader there and returns the skipped range.
func (cr *ChunkReader) Recover(maxScan int64) (SkippedRegion, error) {
	start := cr.pos
	limit := start + maxScan
	for candidate := start; candidate < limit; candidate++ {
		if candidate%BlockSize < BlockHeaderSize {
			continue
		}
		if cr.tryHeaderAt(candidate) {
			if err := cr.seekPhysical(candidate); err != nil {
				return SkippedRegion{}, err
			}
			return SkippedRegion{Begin: start, End: candidate}, nil
		}
	}
	return SkippedRegion{}, riegelierr.New(riegelierr.DataLoss, "recovery: no valid chunk header found within scan limit")
}

func (cr *ChunkReader) tryHeaderAt(physicalPos int64) bool {
	if _, err := cr.r.Seek(physicalPos, io.SeekStart); err != nil {
		return false
	}
	saved := cr.pos
	cr.pos = physicalPos
	buf, err := cr.readInterleaved(chunkenc.HeaderSize)
	cr.pos = saved
	if err != nil {
		return false
	}
	_, err = chunkenc.DecodeHeader(buf)
	return err == nil
}

// CheckFileFormat verifies the file begins with a well-formed initial
// block header followed by a FileSignature chunk, leaving the reader
// positioned at the start of the file.
func (cr *ChunkReader) CheckFileFormat() error {
	if err := cr.seekPhysical(0); err != nil {
		return err
	}
	hdrBuf := make([]byte, BlockHeaderSize)
	if _, err := io.ReadFull(cr.r, hdrBuf); err != nil {
		return riegelierr.Wrap(riegelierr.DataLoss, "not a riegeli file: truncated initial block header", err)
	}
	if _, err := DecodeBlockHeader(hdrBuf); err != nil {
		return err
	}
	cr.pos = BlockHeaderSize
	chunk, _, err := cr.ReadChunk()
	if err != nil {
		return riegelierr.Wrap(riegelierr.DataLoss, "not a riegeli file: invalid first chunk", err)
	}
	if chunk.Header.ChunkType != chunkenc.FileSignature {
		return riegelierr.New(riegelierr.DataLoss, "not a riegeli file: missing file signature chunk")
	}
	return cr.seekPhysical(0)
}
