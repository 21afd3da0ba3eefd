package rbytes

import (
	"testing"

	"github.com/riegeli-go/riegeli/pkg/chain"
)

func TestBytesReaderPullAndReadN(t *testing.T) {
	r := NewBytesReader([]byte("hello world"))

	data, ok := r.Pull(5)
	if !ok || string(data[:5]) != "hello" {
		t.Fatalf("Pull(5) = %q, %v", data, ok)
	}

	got, ok := r.ReadN(5)
	if !ok || string(got) != "hello" {
		t.Fatalf("ReadN(5) = %q, %v", got, ok)
	}
	if r.Pos() != 5 {
		t.Fatalf("Pos() = %d, want 5", r.Pos())
	}

	r.Skip(1) // the space
	rest, ok := r.ReadN(r.Len())
	if !ok || string(rest) != "world" {
		t.Fatalf("ReadN(rest) = %q, %v", rest, ok)
	}

	if _, ok := r.ReadN(1); ok {
		t.Fatalf("ReadN(1) at EOF should fail")
	}
}

func TestChainReaderFlattensOnce(t *testing.T) {
	c := &chain.Chain{}
	c.Append([]byte("foo"))
	c.Append([]byte("bar"))

	r := NewChainReader(c)
	data, ok := r.ReadN(6)
	if !ok || string(data) != "foobar" {
		t.Fatalf("ReadN(6) = %q, %v", data, ok)
	}
}

func TestWriterChain(t *testing.T) {
	var w Writer
	w.Write([]byte("abc"))
	w.WriteByte('d')
	c := w.Chain()
	if got, want := c.String(), "abcd"; got != want {
		t.Fatalf("Writer.Chain() = %q, want %q", got, want)
	}
}

func TestBackwardWriterPrependsInReverse(t *testing.T) {
	var w BackwardWriter
	w.Write([]byte("world"))
	w.Write([]byte(" "))
	w.Write([]byte("hello"))

	if got, want := w.Chain().String(), "hello world"; got != want {
		t.Fatalf("BackwardWriter.Chain() = %q, want %q", got, want)
	}
}

func TestPushableBackwardWriter(t *testing.T) {
	var w PushableBackwardWriter
	buf := w.Push(3)
	copy(buf, "xyz")
	w.Commit(buf)

	buf2 := w.Push(2)
	copy(buf2, "ab")
	w.Commit(buf2)

	if got, want := w.Chain().String(), "abxyz"; got != want {
		t.Fatalf("PushableBackwardWriter.Chain() = %q, want %q", got, want)
	}
}
