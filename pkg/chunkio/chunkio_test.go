package chunkio

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/riegeli-go/riegeli/pkg/chunkenc"
	"github.com/riegeli-go/riegeli/pkg/compression"
)

// memFile is a minimal in-memory io.ReadWriteSeeker, standing in for an
// os.File in tests.
type memFile struct {
	data []byte
	pos  int64
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.pos + offset
	case io.SeekEnd:
		abs = int64(len(f.data)) + offset
	}
	f.pos = abs
	return abs, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	end := f.pos + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[f.pos:end], p)
	f.pos = end
	return len(p), nil
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func fileSignatureChunk() chunkenc.Chunk {
	return chunkenc.Chunk{Header: chunkenc.NewHeader(chunkenc.FileSignature, 0, 0, nil)}
}

func simpleChunk(t *testing.T, records [][]byte) chunkenc.Chunk {
	t.Helper()
	header, data, err := chunkenc.EncodeSimple(records, compression.Options{Type: compression.None})
	if err != nil {
		t.Fatalf("EncodeSimple: %v", err)
	}
	return chunkenc.Chunk{Header: header, Data: data}
}

func TestWriteReadRoundTrip(t *testing.T) {
	f := &memFile{}
	w, err := NewChunkWriter(f, WriterOptions{})
	if err != nil {
		t.Fatalf("NewChunkWriter: %v", err)
	}
	chunks := []chunkenc.Chunk{
		fileSignatureChunk(),
		simpleChunk(t, [][]byte{[]byte("a"), []byte("bb")}),
		simpleChunk(t, [][]byte{[]byte("ccc")}),
	}
	for _, c := range chunks {
		if err := w.WriteChunk(c); err != nil {
			t.Fatalf("WriteChunk: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	r, err := NewChunkReader(f)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	if err := r.CheckFileFormat(); err != nil {
		t.Fatalf("CheckFileFormat: %v", err)
	}

	for i, want := range chunks {
		got, _, err := r.ReadChunk()
		if err != nil {
			t.Fatalf("ReadChunk(%d): %v", i, err)
		}
		if got.Header.ChunkType != want.Header.ChunkType {
			t.Errorf("chunk %d type = %v, want %v", i, got.Header.ChunkType, want.Header.ChunkType)
		}
		if got.Header.NumRecords != want.Header.NumRecords {
			t.Errorf("chunk %d NumRecords = %d, want %d", i, got.Header.NumRecords, want.Header.NumRecords)
		}
	}
	if _, _, err := r.ReadChunk(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadChunk at end: err = %v, want io.EOF", err)
	}
}

func TestWriteReadAcrossManyBlockBoundaries(t *testing.T) {
	f := &memFile{}
	w, err := NewChunkWriter(f, WriterOptions{})
	if err != nil {
		t.Fatalf("NewChunkWriter: %v", err)
	}
	if err := w.WriteChunk(fileSignatureChunk()); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}

	var want [][]byte
	for i := 0; i < 2000; i++ {
		rec := bytes.Repeat([]byte{byte(i)}, 100)
		want = append(want, rec)
	}
	if err := w.WriteChunk(simpleChunk(t, want)); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(f.data) < 2*BlockSize {
		t.Fatalf("test did not exercise multiple block boundaries: file is %d bytes", len(f.data))
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	r, err := NewChunkReader(f)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	if _, _, err := r.ReadChunk(); err != nil {
		t.Fatalf("ReadChunk(signature): %v", err)
	}
	got, _, err := r.ReadChunk()
	if err != nil {
		t.Fatalf("ReadChunk(simple): %v", err)
	}
	dec, err := chunkenc.DecodeSimple(got.Header, got.Data.Flatten())
	if err != nil {
		t.Fatalf("DecodeSimple: %v", err)
	}
	for i, rec := range want {
		gotRec, err := dec.Record(i)
		if err != nil {
			t.Fatalf("Record(%d): %v", i, err)
		}
		if !bytes.Equal(gotRec, rec) {
			t.Errorf("Record(%d) mismatch", i)
		}
	}
}

func TestPadToBlockBoundary(t *testing.T) {
	f := &memFile{}
	w, err := NewChunkWriter(f, WriterOptions{PadToBlockBoundary: true})
	if err != nil {
		t.Fatalf("NewChunkWriter: %v", err)
	}
	if err := w.WriteChunk(fileSignatureChunk()); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := w.WriteChunk(simpleChunk(t, [][]byte{[]byte("x")})); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(f.data)%BlockSize != 0 {
		t.Fatalf("file length %d is not block-aligned", len(f.data))
	}
}

func TestSeekToChunkContaining(t *testing.T) {
	f := &memFile{}
	w, err := NewChunkWriter(f, WriterOptions{})
	if err != nil {
		t.Fatalf("NewChunkWriter: %v", err)
	}
	if err := w.WriteChunk(fileSignatureChunk()); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	var second [][]byte
	for i := 0; i < 2000; i++ {
		second = append(second, bytes.Repeat([]byte{'z'}, 100))
	}
	secondStart := int64(0)
	{
		// Record where the second chunk begins by inspecting the writer's
		// position before writing it.
		// NewChunkWriter wrote the initial block header already (24 bytes),
		// and WriteChunk for the signature chunk adds HeaderSize bytes.
		secondStart = int64(BlockHeaderSize + chunkenc.HeaderSize)
	}
	if err := w.WriteChunk(simpleChunk(t, second)); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	r, err := NewChunkReader(f)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	// Target an offset well inside the second (large) chunk's data,
	// past at least one block boundary.
	target := secondStart + BlockSize + 10
	got, err := r.SeekToChunkContaining(target)
	if err != nil {
		t.Fatalf("SeekToChunkContaining: %v", err)
	}
	if got != secondStart {
		t.Errorf("SeekToChunkContaining(%d) = %d, want %d", target, got, secondStart)
	}
}

func TestRecoverAfterCorruption(t *testing.T) {
	f := &memFile{}
	w, err := NewChunkWriter(f, WriterOptions{})
	if err != nil {
		t.Fatalf("NewChunkWriter: %v", err)
	}
	sigChunk := fileSignatureChunk()
	helloChunk := simpleChunk(t, [][]byte{[]byte("hello")})
	worldChunk := simpleChunk(t, [][]byte{[]byte("world")})

	firstChunkStart := int64(BlockHeaderSize) + int64(chunkenc.HeaderSize) + int64(sigChunk.Header.DataSize)
	secondChunkStart := firstChunkStart + int64(chunkenc.HeaderSize) + int64(helloChunk.Header.DataSize)

	if err := w.WriteChunk(sigChunk); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := w.WriteChunk(helloChunk); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := w.WriteChunk(worldChunk); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Corrupt a byte inside the first chunk's header.
	f.data[firstChunkStart] ^= 0xFF

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	r, err := NewChunkReader(f)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	if _, _, err := r.ReadChunk(); err != nil {
		t.Fatalf("ReadChunk(signature): %v", err)
	}
	if _, _, err := r.ReadChunk(); err == nil {
		t.Fatalf("ReadChunk over corrupted header: expected error")
	}
	skipped, err := r.Recover(4 * BlockSize)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if skipped.End != secondChunkStart {
		t.Errorf("Recover skipped to %d, want %d", skipped.End, secondChunkStart)
	}
	got, _, err := r.ReadChunk()
	if err != nil {
		t.Fatalf("ReadChunk after recover: %v", err)
	}
	dec, err := chunkenc.DecodeSimple(got.Header, got.Data.Flatten())
	if err != nil {
		t.Fatalf("DecodeSimple: %v", err)
	}
	rec, err := dec.Record(0)
	if err != nil {
		t.Fatalf("Record(0): %v", err)
	}
	if string(rec) != "world" {
		t.Errorf("Record(0) = %q, want %q", rec, "world")
	}
}

func TestCheckFileFormatRejectsGarbage(t *testing.T) {
	f := &memFile{data: []byte("not a riegeli file at all, just text")}
	r, err := NewChunkReader(f)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	if err := r.CheckFileFormat(); err == nil {
		t.Fatalf("CheckFileFormat: expected error on garbage input")
	}
}
