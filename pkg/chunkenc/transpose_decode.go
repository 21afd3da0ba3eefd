package chunkenc

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/riegeli-go/riegeli/pkg/compression"
	"github.com/riegeli-go/riegeli/pkg/rbytes"
	"github.com/riegeli-go/riegeli/pkg/riegelierr"
	"github.com/riegeli-go/riegeli/pkg/varint"
)

// tagNode is one occurrence of a dictionary entry within the decoded tag
// tree: a preorder node with, for container kinds, its own children in
// original (forward) order. ValueIdx is this occurrence's resolved index
// into its dictionary entry's value buffer, assigned once for the whole
// chunk at decode time so that Record can be called for any index in any
// order: -1 for kindMessage/kindGroup, which have no value buffer.
type tagNode struct {
	DictIdx  int
	ValueIdx int
	Children []tagNode
}

// dictCursor holds one dictionary entry's decoded value buffer, plus the
// bookkeeping used while resolving tagNode.ValueIdx across the whole
// chunk. Because values are serialized in reverse occurrence order (see
// EncodeTranspose) and occurrences are visited in reverse preorder, a
// plain forward index assigned during that single resolve pass lines up
// correctly; once resolved, value lookup never advances a cursor again.
type dictCursor struct {
	entry     tagEntry
	values    [][]byte
	lengths   []uint64
	nextValue int
}

// TransposeDecoder provides random-access decode of a Transposed chunk's
// records, honoring an optional FieldProjection.
type TransposeDecoder struct {
	dict       []tagEntry
	paths      [][]int32 // full field-number path per dictionary index
	cursors    []*dictCursor
	records    [][]tagNode
	projection FieldProjection
}

// DecodeTranspose decompresses and parses a Transposed chunk's data,
// returning a decoder that can materialize records under the given
// projection. Malformed dictionaries, tag streams, or value buffers all
// yield riegelierr.DataLoss.
func DecodeTranspose(header Header, data []byte, projection FieldProjection) (*TransposeDecoder, error) {
	inner, err := compression.Decompress(data)
	if err != nil {
		return nil, err
	}
	if uint64(len(inner)) != header.DecodedDataSize {
		return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: decoded size mismatch")
	}
	r := rbytes.NewBytesReader(inner)

	numEntries, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, riegelierr.Wrap(riegelierr.DataLoss, "transpose chunk: dictionary count", err)
	}
	dict := make([]tagEntry, numEntries)
	for i := range dict {
		num, err := varint.ReadUvarint(r)
		if err != nil {
			return nil, riegelierr.Wrap(riegelierr.DataLoss, "transpose chunk: dictionary field number", err)
		}
		kindByte, ok := r.ReadN(1)
		if !ok {
			return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: truncated dictionary kind")
		}
		kind := fieldKind(kindByte[0])
		if kind > kindGroup {
			return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: unknown dictionary kind")
		}
		parentPlusOne, err := varint.ReadUvarint(r)
		if err != nil {
			return nil, riegelierr.Wrap(riegelierr.DataLoss, "transpose chunk: dictionary parent", err)
		}
		parent := int(parentPlusOne) - 1
		if parent < -1 || parent >= i {
			return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: dictionary parent out of range")
		}
		dict[i] = tagEntry{Num: int32(num), Kind: kind, Parent: parent}
	}

	numRecords, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, riegelierr.Wrap(riegelierr.DataLoss, "transpose chunk: record count", err)
	}
	if numRecords != header.NumRecords {
		return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: record count mismatch with header")
	}
	recCounts := make([]uint64, numRecords)
	for i := range recCounts {
		c, err := varint.ReadUvarint(r)
		if err != nil {
			return nil, riegelierr.Wrap(riegelierr.DataLoss, "transpose chunk: record boundary", err)
		}
		recCounts[i] = c
	}

	tagLen, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, riegelierr.Wrap(riegelierr.DataLoss, "transpose chunk: tag stream length", err)
	}
	tagBytes, ok := r.ReadN(int(tagLen))
	if !ok {
		return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: truncated tag stream")
	}

	cursors := make([]*dictCursor, numEntries)
	for i, e := range dict {
		cursors[i] = &dictCursor{entry: e}
	}
	for _, acc := range cursors {
		switch acc.entry.Kind {
		case kindVarint, kindFixed32, kindFixed64:
			n, err := varint.ReadUvarint(r)
			if err != nil {
				return nil, riegelierr.Wrap(riegelierr.DataLoss, "transpose chunk: value count", err)
			}
			acc.values = make([][]byte, n)
			for i := range acc.values {
				v, ok := readScalarValue(r, acc.entry.Kind)
				if !ok {
					return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: truncated value buffer")
				}
				acc.values[i] = v
			}
		case kindBytes:
			n, err := varint.ReadUvarint(r)
			if err != nil {
				return nil, riegelierr.Wrap(riegelierr.DataLoss, "transpose chunk: length count", err)
			}
			acc.lengths = make([]uint64, n)
			for i := range acc.lengths {
				l, err := varint.ReadUvarint(r)
				if err != nil {
					return nil, riegelierr.Wrap(riegelierr.DataLoss, "transpose chunk: value length", err)
				}
				acc.lengths[i] = l
			}
			acc.values = make([][]byte, n)
			for i, l := range acc.lengths {
				v, ok := r.ReadN(int(l))
				if !ok {
					return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: truncated bytes buffer")
				}
				acc.values[i] = v
			}
		}
	}
	if r.Len() != 0 {
		return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: trailing bytes after value buffers")
	}

	tr := rbytes.NewBytesReader(tagBytes)
	dec := &TransposeDecoder{dict: dict, cursors: cursors, projection: projection}
	dec.paths = make([][]int32, numEntries)
	for i, e := range dict {
		if e.Parent < 0 {
			dec.paths[i] = []int32{e.Num}
		} else {
			p := append(append([]int32{}, dec.paths[e.Parent]...), e.Num)
			dec.paths[i] = p
		}
	}

	dec.records = make([][]tagNode, numRecords)
	for i, c := range recCounts {
		nodes, err := parseTagNodes(tr, dict, int(c), 0)
		if err != nil {
			return nil, err
		}
		dec.records[i] = nodes
	}
	if tr.Len() != 0 {
		return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: trailing bytes in tag stream")
	}

	// Resolve every occurrence's value-buffer index once, visiting records
	// from last to first and each record's nodes in reverse preorder: the
	// exact reverse of the encoder's occurrence order, which is the order
	// the value buffers were serialized in. This makes Record(i)
	// independent of call order: the random-access reads a seek needs do
	// not depend on having first visited any other record.
	for i := len(dec.records) - 1; i >= 0; i-- {
		if err := resolveNodeIndices(dec.records[i], cursors); err != nil {
			return nil, err
		}
	}
	for _, c := range cursors {
		if c.nextValue != len(c.values) {
			return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: value buffer not fully consumed")
		}
	}

	return dec, nil
}

// resolveNodeIndices assigns each node's ValueIdx by walking nodes in the
// same reverse order emitNodes visits them, advancing dictCursor.nextValue
// once per value-bearing occurrence, so the assignment does not depend on
// when or in what order Record is later called.
func resolveNodeIndices(nodes []tagNode, cursors []*dictCursor) error {
	for i := len(nodes) - 1; i >= 0; i-- {
		if err := resolveNodeIndex(&nodes[i], cursors); err != nil {
			return err
		}
	}
	return nil
}

func resolveNodeIndex(node *tagNode, cursors []*dictCursor) error {
	cur := cursors[node.DictIdx]
	switch cur.entry.Kind {
	case kindVarint, kindFixed32, kindFixed64, kindBytes:
		if cur.nextValue >= len(cur.values) {
			return riegelierr.New(riegelierr.DataLoss, "transpose chunk: value buffer exhausted")
		}
		node.ValueIdx = cur.nextValue
		cur.nextValue++
		return nil
	case kindMessage, kindGroup:
		node.ValueIdx = -1
		return resolveNodeIndices(node.Children, cursors)
	}
	return riegelierr.New(riegelierr.Internal, "transpose chunk: unreachable dictionary kind")
}

func readScalarValue(r *rbytes.BytesReader, kind fieldKind) ([]byte, bool) {
	switch kind {
	case kindFixed32:
		return r.ReadN(4)
	case kindFixed64:
		return r.ReadN(8)
	default: // kindVarint
		start := r.Pos()
		if _, err := varint.ReadUvarint(r); err != nil {
			return nil, false
		}
		end := r.Pos()
		// Re-slice the already-consumed bytes; BytesReader guarantees a
		// stable backing array.
		return r.SliceAbsolute(start, end), true
	}
}

func parseTagNodes(r *rbytes.BytesReader, dict []tagEntry, count int, depth int) ([]tagNode, error) {
	if depth > maxNestingDepth {
		return nil, errMaxDepth
	}
	nodes := make([]tagNode, count)
	for i := 0; i < count; i++ {
		idx64, err := varint.ReadUvarint(r)
		if err != nil {
			return nil, riegelierr.Wrap(riegelierr.DataLoss, "transpose chunk: tag stream entry", err)
		}
		idx := int(idx64)
		if idx < 0 || idx >= len(dict) {
			return nil, riegelierr.New(riegelierr.DataLoss, "transpose chunk: tag stream references unknown dictionary entry")
		}
		node := tagNode{DictIdx: idx}
		switch dict[idx].Kind {
		case kindMessage, kindGroup:
			childCount, err := varint.ReadUvarint(r)
			if err != nil {
				return nil, riegelierr.Wrap(riegelierr.DataLoss, "transpose chunk: child count", err)
			}
			children, err := parseTagNodes(r, dict, int(childCount), depth+1)
			if err != nil {
				return nil, err
			}
			node.Children = children
		}
		nodes[i] = node
	}
	return nodes, nil
}

// NumRecords returns the number of records in the chunk.
func (d *TransposeDecoder) NumRecords() int { return len(d.records) }

// Record reconstructs record i's protobuf wire bytes, honoring the
// decoder's FieldProjection: fields excluded by projection (and their
// descendants) are omitted entirely, exactly as if the writer never saw
// them.
func (d *TransposeDecoder) Record(i int) ([]byte, error) {
	if i < 0 || i >= len(d.records) {
		return nil, riegelierr.New(riegelierr.InvalidArgument, "transpose chunk: record index out of range")
	}
	var bw rbytes.BackwardWriter
	if err := d.emitNodes(&bw, d.records[i]); err != nil {
		return nil, err
	}
	return bw.Chain().Flatten(), nil
}

// emitNodes writes nodes to bw in the order that reconstructs their
// original forward byte sequence: it visits nodes in reverse, and within
// each node writes its pieces in reverse of their wire order, exploiting
// BackwardWriter's prepend semantics (see rbytes.BackwardWriter's doc).
func (d *TransposeDecoder) emitNodes(bw *rbytes.BackwardWriter, nodes []tagNode) error {
	for i := len(nodes) - 1; i >= 0; i-- {
		if err := d.emitNode(bw, nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (d *TransposeDecoder) emitNode(bw *rbytes.BackwardWriter, node tagNode) error {
	cur := d.cursors[node.DictIdx]
	entry := cur.entry
	path := d.paths[node.DictIdx]
	included := d.projection.includes(path)
	// A message or group is also kept when a projected path lies beneath
	// it, so that path can be reached; its children are then filtered
	// individually.
	descend := included
	for _, p := range d.projection.paths {
		if isPathPrefix(path, p) {
			descend = true
		}
	}

	switch entry.Kind {
	case kindVarint, kindFixed32, kindFixed64:
		if node.ValueIdx < 0 || node.ValueIdx >= len(cur.values) {
			return riegelierr.New(riegelierr.DataLoss, "transpose chunk: value buffer exhausted")
		}
		val := cur.values[node.ValueIdx]
		if !included {
			return nil
		}
		bw.Write(val)
		writeTag(bw, entry.Num, wireTypeOf(entry.Kind))
		return nil
	case kindBytes:
		if node.ValueIdx < 0 || node.ValueIdx >= len(cur.values) {
			return riegelierr.New(riegelierr.DataLoss, "transpose chunk: value buffer exhausted")
		}
		val := cur.values[node.ValueIdx]
		if !included {
			return nil
		}
		bw.Write(val)
		bw.Write(varint.PutUvarint(nil, uint64(len(val))))
		writeTag(bw, entry.Num, protowire.BytesType)
		return nil
	case kindMessage:
		if !descend {
			return nil
		}
		before := bw.Len()
		if err := d.emitNodes(bw, node.Children); err != nil {
			return err
		}
		contentLen := bw.Len() - before
		bw.Write(varint.PutUvarint(nil, uint64(contentLen)))
		writeTag(bw, entry.Num, protowire.BytesType)
		return nil
	case kindGroup:
		if !descend {
			return nil
		}
		writeTag(bw, entry.Num, protowire.EndGroupType)
		if err := d.emitNodes(bw, node.Children); err != nil {
			return err
		}
		writeTag(bw, entry.Num, protowire.StartGroupType)
		return nil
	}
	return riegelierr.New(riegelierr.Internal, "transpose chunk: unreachable dictionary kind")
}

func wireTypeOf(k fieldKind) protowire.Type {
	switch k {
	case kindVarint:
		return protowire.VarintType
	case kindFixed32:
		return protowire.Fixed32Type
	case kindFixed64:
		return protowire.Fixed64Type
	default:
		return protowire.BytesType
	}
}

func writeTag(bw *rbytes.BackwardWriter, num int32, wire protowire.Type) {
	bw.Write(protowire.AppendTag(nil, protowire.Number(num), wire))
}
