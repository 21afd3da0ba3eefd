package chunkenc

import (
	"bytes"
	"testing"

	"github.com/riegeli-go/riegeli/pkg/compression"
	"github.com/riegeli-go/riegeli/pkg/riegelierr"
)

func TestSimpleRoundTrip(t *testing.T) {
	records := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}

	header, data, err := EncodeSimple(records, compression.Options{Type: compression.None})
	if err != nil {
		t.Fatalf("EncodeSimple: %v", err)
	}
	if header.NumRecords != 3 {
		t.Fatalf("NumRecords = %d, want 3", header.NumRecords)
	}

	dec, err := DecodeSimple(header, data.Flatten())
	if err != nil {
		t.Fatalf("DecodeSimple: %v", err)
	}
	if dec.NumRecords() != 3 {
		t.Fatalf("dec.NumRecords() = %d, want 3", dec.NumRecords())
	}
	for i, want := range records {
		got, err := dec.Record(i)
		if err != nil {
			t.Fatalf("Record(%d): %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Record(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestSimpleRoundTripCompressed(t *testing.T) {
	records := make([][]byte, 0, 100)
	for i := 0; i < 100; i++ {
		records = append(records, bytes.Repeat([]byte("x"), 200))
	}
	header, data, err := EncodeSimple(records, compression.Options{Type: compression.Zstd})
	if err != nil {
		t.Fatalf("EncodeSimple: %v", err)
	}
	dec, err := DecodeSimple(header, data.Flatten())
	if err != nil {
		t.Fatalf("DecodeSimple: %v", err)
	}
	for i := range records {
		got, err := dec.Record(i)
		if err != nil {
			t.Fatalf("Record(%d): %v", i, err)
		}
		if !bytes.Equal(got, records[i]) {
			t.Errorf("Record(%d) mismatch", i)
		}
	}
}

func TestSimpleEmpty(t *testing.T) {
	header, data, err := EncodeSimple(nil, compression.Options{Type: compression.None})
	if err != nil {
		t.Fatalf("EncodeSimple: %v", err)
	}
	dec, err := DecodeSimple(header, data.Flatten())
	if err != nil {
		t.Fatalf("DecodeSimple: %v", err)
	}
	if dec.NumRecords() != 0 {
		t.Fatalf("NumRecords() = %d, want 0", dec.NumRecords())
	}
}

func TestSimpleNonMonotoneOffsetsRejected(t *testing.T) {
	header, data, err := EncodeSimple([][]byte{[]byte("a"), []byte("b")}, compression.Options{Type: compression.None})
	if err != nil {
		t.Fatalf("EncodeSimple: %v", err)
	}
	raw := data.Flatten()
	// Corrupt: compression type byte at raw[0] is None(0), payload follows
	// at raw[1:]: varint(2) then two varint end-offsets [1, 2]. Swap the
	// offsets to make them non-monotone.
	inner := raw[1:]
	inner[1], inner[2] = inner[2], inner[1]
	if _, err := DecodeSimple(header, raw); err == nil {
		t.Fatalf("DecodeSimple: expected error for non-monotone offsets")
	} else if !riegelierr.Is(err, riegelierr.DataLoss) {
		t.Errorf("error kind = %v, want DataLoss", err)
	}
}
