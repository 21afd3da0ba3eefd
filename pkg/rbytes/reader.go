// Package rbytes provides the pull/push buffered byte-I/O primitives the
// chunk codec layer needs over in-memory byte ropes: a Reader exposes
// contiguous read-only views without copying across block
// boundaries where possible, and a Writer/BackwardWriter expose growable
// write targets. The chunk-framing layer (pkg/chunkio) instead reads and
// writes directly against io.Reader/io.Writer/io.Seeker, since those
// stdlib interfaces already are "uniform buffered byte I/O with cursor
// pointers" for a real file — building a parallel abstraction there would
// duplicate bufio for no benefit.
package rbytes

import "io"

// Reader is a pull-based byte source over an in-memory buffer. Pull
// returns a contiguous slice starting at the current cursor; Skip advances
// the cursor past bytes the caller has consumed. Unlike a C++ pull
// protocol, the returned slice is not invalidated by the next Pull call —
// callers may retain it only as long as they do not mutate the underlying
// Chain, which this package never does.
type Reader interface {
	io.Reader
	io.ByteReader

	// Pull returns the bytes from the current cursor to the end of the
	// buffer, and reports whether at least minLength bytes are available.
	// It does not advance the cursor.
	Pull(minLength int) (data []byte, ok bool)

	// ReadN returns exactly n bytes starting at the cursor and advances
	// past them, or ok=false if fewer than n bytes remain (the cursor is
	// left unchanged in that case).
	ReadN(n int) (data []byte, ok bool)

	// Skip advances the cursor by n bytes. n must not exceed Len().
	Skip(n int)

	// Pos returns the current cursor offset from the start of the buffer.
	Pos() int64

	// Len returns the number of bytes remaining after the cursor.
	Len() int
}

// BytesReader is a Reader backed by a single contiguous byte slice. It
// implements both the Chain-backed case (via NewChainReader, which
// flattens once up front) and the plain-slice case.
type BytesReader struct {
	data []byte
	pos  int
}

// NewBytesReader returns a Reader over data. data is not copied; the
// caller must not mutate it while the Reader is in use.
func NewBytesReader(data []byte) *BytesReader {
	return &BytesReader{data: data}
}

func (r *BytesReader) Pull(minLength int) ([]byte, bool) {
	rest := r.data[r.pos:]
	return rest, len(rest) >= minLength
}

func (r *BytesReader) ReadN(n int) ([]byte, bool) {
	if len(r.data)-r.pos < n {
		return nil, false
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, true
}

func (r *BytesReader) Skip(n int) {
	r.pos += n
}

func (r *BytesReader) Pos() int64 { return int64(r.pos) }

// SliceAbsolute returns the bytes between two cursor positions previously
// observed via Pos, without advancing the cursor. Both bounds must lie
// within [0, len(data)].
func (r *BytesReader) SliceAbsolute(start, end int64) []byte {
	return r.data[start:end]
}

func (r *BytesReader) Len() int { return len(r.data) - r.pos }

func (r *BytesReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func (r *BytesReader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

var _ Reader = (*BytesReader)(nil)
