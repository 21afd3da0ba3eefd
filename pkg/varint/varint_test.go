package varint

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/riegeli-go/riegeli/pkg/riegelierr"
)

func TestPutUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<64 - 1}
	for _, v := range values {
		buf := PutUvarint(nil, v)
		got, n := Uvarint(buf)
		if n <= 0 {
			t.Fatalf("Uvarint(%v): n=%d", buf, n)
		}
		if got != v {
			t.Errorf("Uvarint roundtrip: got %d, want %d", got, v)
		}
		if n != Len(v) {
			t.Errorf("Len(%d) = %d, consumed %d", v, Len(v), n)
		}
	}
}

func TestReadUvarintTruncated(t *testing.T) {
	// A varint that announces more bytes than are present.
	buf := []byte{0x80, 0x80}
	r := bufio.NewReader(bytes.NewReader(buf))
	_, err := ReadUvarint(r)
	if err == nil {
		t.Fatalf("ReadUvarint: expected error on truncated varint")
	}
	if !riegelierr.Is(err, riegelierr.DataLoss) {
		t.Errorf("ReadUvarint error kind = %v, want DataLoss", err)
	}
}

func TestReadUvarintEOF(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader(nil))
	if _, err := ReadUvarint(r); err == nil {
		t.Fatalf("ReadUvarint: expected an error on empty input")
	}
}

func TestFixedWidth(t *testing.T) {
	buf := make([]byte, 8)
	PutUint64(buf, 0x0102030405060708)
	if got := Uint64(buf); got != 0x0102030405060708 {
		t.Errorf("Uint64 roundtrip = %x", got)
	}

	buf32 := make([]byte, 4)
	PutUint32(buf32, 0xaabbccdd)
	if got := Uint32(buf32); got != 0xaabbccdd {
		t.Errorf("Uint32 roundtrip = %x", got)
	}
}
