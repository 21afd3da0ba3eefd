package records

import (
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/riegeli-go/riegeli/pkg/chain"
	"github.com/riegeli-go/riegeli/pkg/chunkenc"
	"github.com/riegeli-go/riegeli/pkg/chunkio"
	"github.com/riegeli-go/riegeli/pkg/compression"
	"github.com/riegeli-go/riegeli/pkg/riegelierr"
	"github.com/riegeli-go/riegeli/pkg/rlog"
)

// WriterOptions configures a Writer's chunk-closer policy and codec
// choice.
type WriterOptions struct {
	// Chunkio configures the underlying block-framed chunk writer.
	Chunkio chunkio.WriterOptions
	// Compression controls the data compression applied to every chunk.
	Compression compression.Options
	// Transpose selects the transposed chunk codec instead of the simple
	// one. Simple is cheaper to encode; transpose generally compresses
	// better for structured, field-homogeneous records.
	Transpose bool
	// MaxRecordsPerChunk closes the current chunk once it holds this many
	// buffered records. Zero selects a default.
	MaxRecordsPerChunk int
	// MaxChunkBytes closes the current chunk once its buffered record
	// bytes reach this size. Zero selects a default.
	MaxChunkBytes uint64
	// Concurrency bounds how many chunks WriteRecords may encode at once.
	// Zero selects a default.
	Concurrency int
	// RecordType, if non-nil, is written as a FileMetadata chunk
	// immediately after the file signature.
	RecordType []byte
}

func (o WriterOptions) withDefaults() WriterOptions {
	if o.MaxRecordsPerChunk <= 0 {
		o.MaxRecordsPerChunk = 1 << 16
	}
	if o.MaxChunkBytes == 0 {
		o.MaxChunkBytes = 1 << 20
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	return o
}

// Writer appends records to a file. It batches records into chunks
// according to WriterOptions' closer policy and flushes them through a
// chunkio.ChunkWriter.
type Writer struct {
	cw   *chunkio.ChunkWriter
	opts WriterOptions

	buf      [][]byte
	bufBytes uint64
	closed   bool
}

// NewWriter creates a Writer over w, writing the mandatory file signature
// chunk (and an optional FileMetadata chunk) immediately.
func NewWriter(w io.WriteSeeker, opts WriterOptions) (*Writer, error) {
	opts = opts.withDefaults()
	cw, err := chunkio.NewChunkWriter(w, opts.Chunkio)
	if err != nil {
		return nil, err
	}
	sig := chunkenc.Chunk{Header: chunkenc.NewHeader(chunkenc.FileSignature, 0, 0, nil)}
	if err := cw.WriteChunk(sig); err != nil {
		return nil, err
	}
	wr := &Writer{cw: cw, opts: opts}
	if opts.RecordType != nil {
		header, data, err := EncodeMetadata(opts.RecordType, opts.Compression)
		if err != nil {
			return nil, err
		}
		if err := cw.WriteChunk(chunkenc.Chunk{Header: header, Data: data}); err != nil {
			return nil, err
		}
	}
	return wr, nil
}

// WriteRecord buffers rec, then closes and flushes the current chunk
// (including rec) if it has reached MaxRecordsPerChunk records or
// MaxChunkBytes bytes.
func (w *Writer) WriteRecord(rec []byte) error {
	if w.closed {
		return riegelierr.New(riegelierr.InvalidArgument, "write to closed writer")
	}
	w.buf = append(w.buf, rec)
	w.bufBytes += uint64(len(rec))
	if len(w.buf) >= w.opts.MaxRecordsPerChunk || w.bufBytes >= w.opts.MaxChunkBytes {
		return w.flushChunk()
	}
	return nil
}

func (w *Writer) flushChunk() error {
	if len(w.buf) == 0 {
		return nil
	}
	header, data, err := w.encodeChunk(w.buf)
	if err != nil {
		return err
	}
	numRecords := uint64(len(w.buf))
	w.buf = nil
	w.bufBytes = 0
	offset := w.cw.Pos()
	if err := w.cw.WriteChunk(chunkenc.Chunk{Header: header, Data: data}); err != nil {
		return err
	}
	rlog.ChunkWritten(*rlog.L(), header.ChunkType.String(), offset, numRecords, header.DataSize)
	return nil
}

func (w *Writer) encodeChunk(records [][]byte) (chunkenc.Header, *chain.Chain, error) {
	if w.opts.Transpose {
		return chunkenc.EncodeTranspose(records, w.opts.Compression)
	}
	return chunkenc.EncodeSimple(records, w.opts.Compression)
}

type encodedChunk struct {
	header chunkenc.Header
	data   *chain.Chain
}

// WriteRecords appends records in bulk. It splits records into
// MaxRecordsPerChunk/MaxChunkBytes-sized batches and encodes those batches
// concurrently, bounded by Concurrency — encoding (which includes
// compression) is typically the bottleneck — then appends the resulting
// chunks to the file strictly in their original order, since the
// underlying chunk writer is append-only.
func (w *Writer) WriteRecords(records [][]byte) error {
	if w.closed {
		return riegelierr.New(riegelierr.InvalidArgument, "write to closed writer")
	}
	if err := w.flushChunk(); err != nil {
		return err
	}

	batches := w.splitBatches(records)
	encoded := make([]encodedChunk, len(batches))

	g := new(errgroup.Group)
	g.SetLimit(w.opts.Concurrency)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			header, data, err := w.encodeChunk(batch)
			if err != nil {
				return err
			}
			encoded[i] = encodedChunk{header: header, data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, ec := range encoded {
		offset := w.cw.Pos()
		if err := w.cw.WriteChunk(chunkenc.Chunk{Header: ec.header, Data: ec.data}); err != nil {
			return err
		}
		rlog.ChunkWritten(*rlog.L(), ec.header.ChunkType.String(), offset, uint64(len(batches[i])), ec.header.DataSize)
	}
	return nil
}

func (w *Writer) splitBatches(records [][]byte) [][][]byte {
	var batches [][][]byte
	var cur [][]byte
	var curBytes uint64
	for _, rec := range records {
		if len(cur) > 0 && (len(cur) >= w.opts.MaxRecordsPerChunk || curBytes+uint64(len(rec)) > w.opts.MaxChunkBytes) {
			batches = append(batches, cur)
			cur = nil
			curBytes = 0
		}
		cur = append(cur, rec)
		curBytes += uint64(len(rec))
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// Flush closes and writes out any buffered chunk, and backpatches
// outstanding block headers, without preventing further writes.
func (w *Writer) Flush() error {
	if err := w.flushChunk(); err != nil {
		return err
	}
	return w.cw.Flush()
}

// Close flushes any buffered records and finalizes the file. Close is
// idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if err := w.flushChunk(); err != nil {
		return err
	}
	w.closed = true
	return w.cw.Close()
}
