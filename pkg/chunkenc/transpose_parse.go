package chunkenc

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/riegeli-go/riegeli/pkg/riegelierr"
)

// protoField is one top-level tag/value occurrence within a message-shaped
// byte string. For BytesType and StartGroupType, Raw holds the inner
// content only (the group's Raw excludes its start/end delimiter tags).
type protoField struct {
	Num  int32
	Wire protowire.Type
	Raw  []byte
}

// parseMessageFields parses data as a flat sequence of protobuf fields,
// recursing into (but not flattening) groups. It returns ok=false if data
// does not parse cleanly as a sequence of valid tag/value pairs consuming
// every byte — the signal the transpose encoder uses to decide whether a
// length-delimited field is an embedded message or an opaque byte string:
// schema-agnostic message/scalar disambiguation.
func parseMessageFields(data []byte) ([]protoField, bool) {
	var fields []protoField
	for len(data) > 0 {
		number, wire, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, false
		}
		num := int32(number)
		data = data[n:]
		switch wire {
		case protowire.VarintType:
			_, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, false
			}
			fields = append(fields, protoField{num, wire, data[:n]})
			data = data[n:]
		case protowire.Fixed64Type:
			if len(data) < 8 {
				return nil, false
			}
			fields = append(fields, protoField{num, wire, data[:8]})
			data = data[8:]
		case protowire.Fixed32Type:
			if len(data) < 4 {
				return nil, false
			}
			fields = append(fields, protoField{num, wire, data[:4]})
			data = data[4:]
		case protowire.BytesType:
			val, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, false
			}
			fields = append(fields, protoField{num, wire, val})
			data = data[n:]
		case protowire.StartGroupType:
			inner, n, ok := consumeGroup(data, num)
			if !ok {
				return nil, false
			}
			fields = append(fields, protoField{num, wire, inner})
			data = data[n:]
		default:
			return nil, false
		}
	}
	return fields, true
}

// consumeGroup scans a StartGroupType tag's content (data begins just
// after the start tag) up to and including its matching EndGroupType tag
// for the same field number. It returns the inner bytes (excluding both
// delimiter tags) and the total number of bytes consumed, including the
// end tag.
func consumeGroup(data []byte, num int32) (inner []byte, consumed int, ok bool) {
	pos := 0
	depth := 0
	for pos < len(data) {
		number2, w2, tn := protowire.ConsumeTag(data[pos:])
		if tn < 0 {
			return nil, 0, false
		}
		n2 := int32(number2)
		if w2 == protowire.EndGroupType && depth == 0 {
			if n2 != num {
				return nil, 0, false
			}
			return data[:pos], pos + tn, true
		}
		pos += tn
		switch w2 {
		case protowire.VarintType:
			_, vn := protowire.ConsumeVarint(data[pos:])
			if vn < 0 {
				return nil, 0, false
			}
			pos += vn
		case protowire.Fixed64Type:
			if len(data)-pos < 8 {
				return nil, 0, false
			}
			pos += 8
		case protowire.Fixed32Type:
			if len(data)-pos < 4 {
				return nil, 0, false
			}
			pos += 4
		case protowire.BytesType:
			_, vn := protowire.ConsumeBytes(data[pos:])
			if vn < 0 {
				return nil, 0, false
			}
			pos += vn
		case protowire.StartGroupType:
			depth++
		case protowire.EndGroupType:
			if depth == 0 {
				return nil, 0, false
			}
			depth--
		default:
			return nil, 0, false
		}
	}
	return nil, 0, false
}

var errMaxDepth = riegelierr.New(riegelierr.DataLoss, "transpose: message nesting exceeds maximum depth")
