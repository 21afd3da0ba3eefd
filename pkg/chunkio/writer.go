package chunkio

import (
	"io"

	"github.com/riegeli-go/riegeli/pkg/chunkenc"
)

// WriterOptions configures a ChunkWriter.
type WriterOptions struct {
	// PadToBlockBoundary, if set, makes Close emit a Padding chunk (if
	// needed) so the file ends exactly on a BlockSize boundary. This is
	// useful for files meant to be concatenated or memory-mapped in
	// block-sized units.
	PadToBlockBoundary bool
}

// ChunkWriter writes chunks to an io.WriteSeeker, threading in BlockHeader
// records at every BlockSize boundary. Because a block header's
// next_chunk field is only known once the following chunk starts, writes
// go through a fixed-size placeholder first and are backpatched via Seek
// once the real value is known — the same seek-back-and-patch idiom used
// throughout this codebase's binary encoders.
type ChunkWriter struct {
	w   io.WriteSeeker
	opts WriterOptions

	pos                   int64
	lastChunkHeaderOffset int64
	pendingBlockHeaders   []pendingBlockHeader
}

type pendingBlockHeader struct {
	offset   int64
	previous uint64
}

// NewChunkWriter creates a ChunkWriter starting at w's current position,
// which must be 0 for a fresh file (resuming a partially written file is
// not supported; see DESIGN.md).
func NewChunkWriter(w io.WriteSeeker, opts WriterOptions) (*ChunkWriter, error) {
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	cw := &ChunkWriter{w: w, opts: opts, pos: pos, lastChunkHeaderOffset: -1}
	if pos == 0 {
		if err := cw.writeInitialBlockHeader(); err != nil {
			return nil, err
		}
	}
	return cw, nil
}

func (cw *ChunkWriter) writeInitialBlockHeader() error {
	bh := BlockHeader{PreviousChunk: 0, NextChunk: 0}
	buf := bh.Encode()
	if _, err := cw.w.Write(buf); err != nil {
		return err
	}
	cw.pendingBlockHeaders = append(cw.pendingBlockHeaders, pendingBlockHeader{offset: cw.pos, previous: 0})
	cw.pos += int64(len(buf))
	return nil
}

// ensureBlockHeaderAtBoundary writes a placeholder BlockHeader if cw.pos
// currently sits on a BlockSize boundary, returning the offset it wrote
// at (or -1 if none was needed).
func (cw *ChunkWriter) ensureBlockHeaderAtBoundary() (int64, error) {
	if !blockBoundary(cw.pos) {
		return -1, nil
	}
	bh := BlockHeader{PreviousChunk: uint64(cw.lastChunkHeaderOffset), NextChunk: 0}
	buf := bh.Encode()
	off := cw.pos
	if _, err := cw.w.Write(buf); err != nil {
		return -1, err
	}
	cw.pendingBlockHeaders = append(cw.pendingBlockHeaders, pendingBlockHeader{offset: off, previous: uint64(cw.lastChunkHeaderOffset)})
	cw.pos += int64(len(buf))
	return off, nil
}

// writeInterleaved writes data (logical chunk bytes) to the file,
// inserting BlockHeader records whenever cw.pos crosses a BlockSize
// boundary. It returns the physical offsets of any block headers it
// inserted, so a caller that must backpatch bytes it already wrote (see
// padToBoundary) can skip over them.
func (cw *ChunkWriter) writeInterleaved(data []byte) ([]int64, error) {
	var inserted []int64
	for len(data) > 0 {
		off, err := cw.ensureBlockHeaderAtBoundary()
		if err != nil {
			return inserted, err
		}
		if off >= 0 {
			inserted = append(inserted, off)
		}
		toBoundary := bytesToNextBlockBoundary(cw.pos)
		n := len(data)
		if int64(n) > toBoundary {
			n = int(toBoundary)
		}
		if _, err := cw.w.Write(data[:n]); err != nil {
			return inserted, err
		}
		cw.pos += int64(n)
		data = data[n:]
	}
	return inserted, nil
}

// rewriteLogicalSpan overwrites bytes previously written starting at
// logicalStart with newBytes, skipping over the block headers physically
// interleaved within that span (as reported by writeInterleaved), and
// restores the writer's position to the append point afterward.
func (cw *ChunkWriter) rewriteLogicalSpan(logicalStart int64, embedded []int64, newBytes []byte) error {
	pos := logicalStart
	data := newBytes
	for _, hOff := range embedded {
		n := int(hOff - pos)
		if n > 0 {
			if err := cw.writeAt(pos, data[:n]); err != nil {
				return err
			}
			data = data[n:]
		}
		pos = hOff + BlockHeaderSize
	}
	if len(data) > 0 {
		if err := cw.writeAt(pos, data); err != nil {
			return err
		}
	}
	_, err := cw.w.Seek(cw.pos, io.SeekStart)
	return err
}

func (cw *ChunkWriter) writeAt(offset int64, data []byte) error {
	if _, err := cw.w.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	_, err := cw.w.Write(data)
	return err
}

func (cw *ChunkWriter) backpatchPending(nextChunk int64) error {
	for _, p := range cw.pendingBlockHeaders {
		bh := BlockHeader{PreviousChunk: p.previous, NextChunk: uint64(nextChunk)}
		if err := cw.writeAt(p.offset, bh.Encode()); err != nil {
			return err
		}
	}
	cw.pendingBlockHeaders = cw.pendingBlockHeaders[:0]
	_, err := cw.w.Seek(cw.pos, io.SeekStart)
	return err
}

// Pos returns the writer's current logical byte offset, i.e. where the
// next chunk header would start.
func (cw *ChunkWriter) Pos() int64 { return cw.pos }

// WriteChunk appends chunk to the file.
func (cw *ChunkWriter) WriteChunk(chunk chunkenc.Chunk) error {
	if len(cw.pendingBlockHeaders) > 0 {
		if err := cw.backpatchPending(cw.pos); err != nil {
			return err
		}
	}
	chunkStart := cw.pos
	cw.lastChunkHeaderOffset = chunkStart

	headerBuf, err := chunk.Header.Encode()
	if err != nil {
		return err
	}
	if _, err := cw.writeInterleaved(headerBuf); err != nil {
		return err
	}
	if chunk.Data != nil && chunk.Data.Size() > 0 {
		if _, err := cw.writeInterleaved(chunk.Data.Flatten()); err != nil {
			return err
		}
	}
	return nil
}

// padToBoundary emits a Padding chunk sized to bring the file exactly to
// the next BlockSize boundary, if it is not already aligned.
func (cw *ChunkWriter) padToBoundary() error {
	if blockBoundary(cw.pos) {
		return nil
	}
	if len(cw.pendingBlockHeaders) > 0 {
		if err := cw.backpatchPending(cw.pos); err != nil {
			return err
		}
	}
	chunkStart := cw.pos
	cw.lastChunkHeaderOffset = chunkStart

	placeholder, err := chunkenc.Header{ChunkType: chunkenc.Padding}.Encode()
	if err != nil {
		return err
	}
	embedded, err := cw.writeInterleaved(placeholder)
	if err != nil {
		return err
	}

	dataLen := bytesToNextBlockBoundary(cw.pos)
	data := make([]byte, dataLen)
	header := chunkenc.NewHeader(chunkenc.Padding, 0, uint64(dataLen), data)
	finalBuf, err := header.Encode()
	if err != nil {
		return err
	}
	if err := cw.rewriteLogicalSpan(chunkStart, embedded, finalBuf); err != nil {
		return err
	}

	_, err = cw.writeInterleaved(data)
	return err
}

// Flush backpatches every outstanding block header so the file is
// self-consistent if read right now, without closing the writer.
func (cw *ChunkWriter) Flush() error {
	return cw.backpatchPending(cw.pos)
}

// Close finalizes the file: it optionally pads to a block boundary, then
// backpatches any still-pending block headers with a next_chunk sentinel
// of 0 (no chunk header may legitimately start at file offset 0, so 0
// unambiguously marks "no further chunk").
func (cw *ChunkWriter) Close() error {
	if cw.opts.PadToBlockBoundary {
		if err := cw.padToBoundary(); err != nil {
			return err
		}
	}
	return cw.backpatchPending(0)
}
