package chunkenc

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/riegeli-go/riegeli/pkg/compression"
)

func buildFlatMessage(id uint64, name string) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.VarintType)
	buf = protowire.AppendVarint(buf, id)
	buf = protowire.AppendTag(buf, 2, protowire.BytesType)
	buf = protowire.AppendString(buf, name)
	return buf
}

func buildNestedMessage(id uint64, inner []byte) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.VarintType)
	buf = protowire.AppendVarint(buf, id)
	buf = protowire.AppendTag(buf, 2, protowire.BytesType)
	buf = protowire.AppendBytes(buf, inner)
	return buf
}

func TestTransposeRoundTripFlat(t *testing.T) {
	records := [][]byte{
		buildFlatMessage(1, "a"),
		buildFlatMessage(2, "bb"),
		buildFlatMessage(3, "ccc"),
	}
	header, data, err := EncodeTranspose(records, compression.Options{Type: compression.None})
	if err != nil {
		t.Fatalf("EncodeTranspose: %v", err)
	}
	dec, err := DecodeTranspose(header, data.Flatten(), AllFields())
	if err != nil {
		t.Fatalf("DecodeTranspose: %v", err)
	}
	if dec.NumRecords() != 3 {
		t.Fatalf("NumRecords() = %d, want 3", dec.NumRecords())
	}
	for i, want := range records {
		got, err := dec.Record(i)
		if err != nil {
			t.Fatalf("Record(%d): %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Record(%d) = %x, want %x", i, got, want)
		}
	}
}

func TestTransposeRoundTripNestedCompressed(t *testing.T) {
	records := make([][]byte, 0, 100)
	for i := 0; i < 100; i++ {
		inner := buildFlatMessage(uint64(i), "repeated-payload")
		records = append(records, buildNestedMessage(uint64(i), inner))
	}
	header, data, err := EncodeTranspose(records, compression.Options{Type: compression.Zstd})
	if err != nil {
		t.Fatalf("EncodeTranspose: %v", err)
	}
	dec, err := DecodeTranspose(header, data.Flatten(), AllFields())
	if err != nil {
		t.Fatalf("DecodeTranspose: %v", err)
	}
	for i, want := range records {
		got, err := dec.Record(i)
		if err != nil {
			t.Fatalf("Record(%d): %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Record(%d) mismatch", i)
		}
	}
}

func TestTransposeFieldProjectionOmitsExcludedField(t *testing.T) {
	records := [][]byte{buildFlatMessage(42, "hello")}
	header, data, err := EncodeTranspose(records, compression.Options{Type: compression.None})
	if err != nil {
		t.Fatalf("EncodeTranspose: %v", err)
	}

	// Project only field 1 (id); field 2 (name) must be entirely absent,
	// identical to a record that never had field 2 set.
	dec, err := DecodeTranspose(header, data.Flatten(), NewFieldProjection([]int32{1}))
	if err != nil {
		t.Fatalf("DecodeTranspose: %v", err)
	}
	got, err := dec.Record(0)
	if err != nil {
		t.Fatalf("Record(0): %v", err)
	}
	want := protowire.AppendVarint(protowire.AppendTag(nil, 1, protowire.VarintType), 42)
	if !bytes.Equal(got, want) {
		t.Errorf("Record(0) = %x, want %x", got, want)
	}
}

func TestTransposeFieldProjectionOnNestedMessage(t *testing.T) {
	inner := buildFlatMessage(7, "nested-name")
	records := [][]byte{buildNestedMessage(99, inner)}
	header, data, err := EncodeTranspose(records, compression.Options{Type: compression.None})
	if err != nil {
		t.Fatalf("EncodeTranspose: %v", err)
	}

	dec, err := DecodeTranspose(header, data.Flatten(), NewFieldProjection([]int32{1}))
	if err != nil {
		t.Fatalf("DecodeTranspose: %v", err)
	}
	got, err := dec.Record(0)
	if err != nil {
		t.Fatalf("Record(0): %v", err)
	}
	want := protowire.AppendVarint(protowire.AppendTag(nil, 1, protowire.VarintType), 99)
	if !bytes.Equal(got, want) {
		t.Errorf("Record(0) = %x, want %x (submessage should be fully excluded)", got, want)
	}
}

func TestTransposeSchemaDriftSameFieldMessageAndScalar(t *testing.T) {
	// Field 2 is a valid nested message in one record but an opaque byte
	// string (not a valid message) in another.
	valid := buildNestedMessage(1, buildFlatMessage(5, "x"))
	scalar := buildFlatMessage(2, "plain-string") // field 2 here is BytesType but its bytes ("plain-string") do not parse as a message
	records := [][]byte{valid, scalar}

	header, data, err := EncodeTranspose(records, compression.Options{Type: compression.None})
	if err != nil {
		t.Fatalf("EncodeTranspose: %v", err)
	}
	dec, err := DecodeTranspose(header, data.Flatten(), AllFields())
	if err != nil {
		t.Fatalf("DecodeTranspose: %v", err)
	}
	for i, want := range records {
		got, err := dec.Record(i)
		if err != nil {
			t.Fatalf("Record(%d): %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Record(%d) = %x, want %x", i, got, want)
		}
	}
}

func TestTransposeGroupRoundTrip(t *testing.T) {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.StartGroupType)
	buf = protowire.AppendTag(buf, 2, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 123)
	buf = protowire.AppendTag(buf, 1, protowire.EndGroupType)

	records := [][]byte{buf}
	header, data, err := EncodeTranspose(records, compression.Options{Type: compression.None})
	if err != nil {
		t.Fatalf("EncodeTranspose: %v", err)
	}
	dec, err := DecodeTranspose(header, data.Flatten(), AllFields())
	if err != nil {
		t.Fatalf("DecodeTranspose: %v", err)
	}
	got, err := dec.Record(0)
	if err != nil {
		t.Fatalf("Record(0): %v", err)
	}
	if !bytes.Equal(got, buf) {
		t.Errorf("Record(0) = %x, want %x", got, buf)
	}
}

func TestTransposeEmpty(t *testing.T) {
	header, data, err := EncodeTranspose(nil, compression.Options{Type: compression.None})
	if err != nil {
		t.Fatalf("EncodeTranspose: %v", err)
	}
	dec, err := DecodeTranspose(header, data.Flatten(), AllFields())
	if err != nil {
		t.Fatalf("DecodeTranspose: %v", err)
	}
	if dec.NumRecords() != 0 {
		t.Fatalf("NumRecords() = %d, want 0", dec.NumRecords())
	}
}
