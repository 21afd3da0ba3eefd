// Package compression implements the uniform compressor/decompressor
// variant over {None, Brotli, Zstd, Snappy} used by both chunk codecs.
//
// A compressed payload is: one compression-type byte, then — unless the
// type is None — a varint encoding the uncompressed size, then the
// compressed bytes. The size varint is not passed to any decoder: each
// decoder reads to the end of its input, and Decompress then verifies the
// decompressed length matches the varint exactly, turning a mismatch into
// a DataLoss error.
package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/riegeli-go/riegeli/pkg/riegelierr"
	"github.com/riegeli-go/riegeli/pkg/varint"
)

// Type is the one-byte compression-type tag stored in a chunk payload.
type Type byte

const (
	None   Type = 0
	Brotli Type = 1
	Zstd   Type = 2
	Snappy Type = 3
)

func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Brotli:
		return "Brotli"
	case Zstd:
		return "Zstd"
	case Snappy:
		return "Snappy"
	default:
		return fmt.Sprintf("Type(%d)", byte(t))
	}
}

// Options configures a single Compress call.
type Options struct {
	Type Type
	// Level is the compression effort, in the compressor's own scale.
	// Zero means "use that compressor's default".
	Level int
	// WindowLog bounds the Brotli sliding window (0 means default).
	WindowLog int
}

// Compress encodes data per opts and returns the tagged payload described
// above.
func Compress(data []byte, opts Options) ([]byte, error) {
	out := make([]byte, 0, len(data)/2+16)
	out = append(out, byte(opts.Type))
	if opts.Type == None {
		return append(out, data...), nil
	}
	out = varint.PutUvarint(out, uint64(len(data)))

	var body bytes.Buffer
	switch opts.Type {
	case Brotli:
		quality := opts.Level
		if quality == 0 {
			quality = brotli.DefaultCompression
		}
		w := brotli.NewWriterOptions(&body, brotli.WriterOptions{
			Quality: quality,
			LGWin:   opts.WindowLog,
		})
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("brotli compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("brotli compress: close: %w", err)
		}
	case Zstd:
		level := zstd.SpeedDefault
		switch {
		case opts.Level <= 0:
			level = zstd.SpeedDefault
		case opts.Level == 1:
			level = zstd.SpeedFastest
		case opts.Level <= 3:
			level = zstd.SpeedBetterCompression
		default:
			level = zstd.SpeedBestCompression
		}
		enc, err := zstd.NewWriter(&body, zstd.WithEncoderLevel(level))
		if err != nil {
			return nil, fmt.Errorf("zstd compress: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return nil, fmt.Errorf("zstd compress: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("zstd compress: close: %w", err)
		}
	case Snappy:
		body.Write(snappy.Encode(nil, data))
	default:
		return nil, riegelierr.New(riegelierr.InvalidArgument, fmt.Sprintf("unknown compression type: %d", opts.Type))
	}
	return append(out, body.Bytes()...), nil
}

// Decompress parses a payload produced by Compress and returns the
// original bytes. A length mismatch or malformed compressed stream yields
// a riegelierr.DataLoss error.
func Decompress(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, riegelierr.New(riegelierr.DataLoss, "empty compressed payload: missing compression-type byte")
	}
	typ := Type(payload[0])
	rest := payload[1:]
	if typ == None {
		return rest, nil
	}

	size, n := varint.Uvarint(rest)
	if n <= 0 {
		return nil, riegelierr.New(riegelierr.DataLoss, "malformed uncompressed-size varint")
	}
	rest = rest[n:]

	var data []byte
	var err error
	switch typ {
	case Brotli:
		data, err = io.ReadAll(brotli.NewReader(bytes.NewReader(rest)))
		if err != nil {
			return nil, riegelierr.Wrap(riegelierr.DataLoss, "brotli decompress", err)
		}
	case Zstd:
		dec, derr := zstd.NewReader(bytes.NewReader(rest))
		if derr != nil {
			return nil, riegelierr.Wrap(riegelierr.DataLoss, "zstd decompress", derr)
		}
		data, err = io.ReadAll(dec)
		dec.Close()
		if err != nil {
			return nil, riegelierr.Wrap(riegelierr.DataLoss, "zstd decompress", err)
		}
	case Snappy:
		data, err = snappy.Decode(nil, rest)
		if err != nil {
			return nil, riegelierr.Wrap(riegelierr.DataLoss, "snappy decompress", err)
		}
	default:
		return nil, riegelierr.New(riegelierr.DataLoss, fmt.Sprintf("unknown compression type: %d", typ))
	}

	if uint64(len(data)) != size {
		return nil, riegelierr.New(riegelierr.DataLoss, fmt.Sprintf(
			"decompressed size mismatch: got %d, declared %d", len(data), size))
	}
	return data, nil
}
