package rbytes

import (
	"bytes"

	"github.com/riegeli-go/riegeli/pkg/chain"
)

// Writer is a growable forward byte sink. It wraps bytes.Buffer rather
// than reinventing it, and adds Chain() to hand the result to the Chain
// substrate; Chain() always copies the written bytes.
type Writer struct {
	buf bytes.Buffer
}

func (w *Writer) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *Writer) WriteByte(b byte) error { return w.buf.WriteByte(b) }

// Chain returns a Chain holding a copy of the written bytes.
func (w *Writer) Chain() *chain.Chain { return chain.New(w.buf.Bytes()) }

// Bytes returns the written bytes without copying. The caller must not
// retain the slice past the next Write call.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// BackwardWriter accumulates bytes that are logically written from high
// addresses toward low addresses: each Write call's bytes end up
// positioned before (at a lower offset than) all previously written bytes.
// The transpose decoder uses this to rebuild records: it writes a
// message's content before the length prefix that precedes it, since
// that length is only known once the content has been written.
//
// Chain.Prepend already concatenates in prepend order into one rope (each
// call copies the bytes and rebuilds the block list); BackwardWriter is a
// thin Write/WriteByte veneer over it — a prepend buffer is the right
// model for data whose total length is only known once encoding finishes.
type BackwardWriter struct {
	c chain.Chain
}

func (w *BackwardWriter) Write(p []byte) (int, error) {
	w.c.Prepend(p)
	return len(p), nil
}

func (w *BackwardWriter) WriteByte(b byte) error {
	w.c.Prepend([]byte{b})
	return nil
}

// Chain returns the assembled forward-order Chain.
func (w *BackwardWriter) Chain() *chain.Chain { return &w.c }

// Len returns the number of bytes written so far.
func (w *BackwardWriter) Len() int { return w.c.Size() }

// PushableBackwardWriter adds a scratch span on top of BackwardWriter: Push
// reserves a buffer the caller fills in forward order (e.g. while encoding
// a multi-byte value whose length is only known once encoding finishes),
// Commit prepends the filled portion. The scratch buffer is an explicit
// reusable slice rather than a raw pointer into the underlying chain, so
// no caller can observe or alias the chain's interior storage.
type PushableBackwardWriter struct {
	bw      BackwardWriter
	scratch []byte
}

// Push returns a scratch buffer of exactly minLength bytes for the caller
// to fill. The buffer is only valid until the next Push call.
func (w *PushableBackwardWriter) Push(minLength int) []byte {
	if cap(w.scratch) < minLength {
		w.scratch = make([]byte, minLength)
	} else {
		w.scratch = w.scratch[:minLength]
	}
	return w.scratch
}

// Commit prepends buf — normally the slice returned by the most recent
// Push call, possibly truncated to the portion actually used.
func (w *PushableBackwardWriter) Commit(buf []byte) {
	w.bw.Write(buf)
}

// Chain returns the assembled forward-order Chain.
func (w *PushableBackwardWriter) Chain() *chain.Chain { return w.bw.Chain() }

// Len returns the number of bytes written so far.
func (w *PushableBackwardWriter) Len() int { return w.bw.Len() }
