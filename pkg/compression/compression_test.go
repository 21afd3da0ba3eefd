package compression

import (
	"bytes"
	"testing"

	"github.com/riegeli-go/riegeli/pkg/riegelierr"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)

	for _, typ := range []Type{None, Brotli, Zstd, Snappy} {
		t.Run(typ.String(), func(t *testing.T) {
			payload, err := Compress(data, Options{Type: typ})
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			got, err := Decompress(payload)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Fatalf("round trip mismatch for %v", typ)
			}
		})
	}
}

func TestCompressNoneIsUncompressed(t *testing.T) {
	data := []byte("hello")
	payload, err := Compress(data, Options{Type: None})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if got, want := len(payload), len(data)+1; got != want {
		t.Fatalf("None payload length = %d, want %d (no size varint)", got, want)
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 200) // varint(200) = [0xC8, 0x01]
	payload, err := Compress(data, Options{Type: Zstd})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if payload[1] != 0xC8 || payload[2] != 0x01 {
		t.Fatalf("unexpected varint encoding %x %x, test assumption broken", payload[1], payload[2])
	}
	// Bump the declared size from 200 to 201 without changing the varint's
	// byte length, so the zstd frame itself still decodes cleanly but the
	// length check fails.
	payload[1] = 0xC9
	if _, err := Decompress(payload); err == nil {
		t.Fatalf("Decompress: expected size-mismatch error")
	} else if !riegelierr.Is(err, riegelierr.DataLoss) {
		t.Errorf("Decompress error kind = %v, want DataLoss", err)
	}
}

func TestDecompressEmptyPayload(t *testing.T) {
	if _, err := Decompress(nil); !riegelierr.Is(err, riegelierr.DataLoss) {
		t.Fatalf("Decompress(nil) error = %v, want DataLoss", err)
	}
}
