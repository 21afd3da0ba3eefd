// Package chain implements an ownership-tracked byte rope.
//
// A Chain is an ordered sequence of immutable blocks. AppendBlock,
// AppendChain and Substr share the underlying block storage instead of
// copying; Append and Prepend always copy the given bytes into a new
// block, whatever their length.
package chain

import "bytes"

// MaxBytesToCopy is a size threshold for short byte spans. No operation
// in this package consults it: the choice between copying and sharing is
// made by which method the caller uses, not by the span's length.
const MaxBytesToCopy = 255

// block is an immutable span of bytes. Blocks are never mutated after
// creation, so they may be safely shared between Chains.
type block struct {
	data []byte
}

// Chain is an ordered sequence of byte blocks with amortized O(1) append
// of whole blocks; Prepend rebuilds the block list, costing time
// proportional to the number of blocks. The zero value is an empty Chain.
type Chain struct {
	blocks []*block
	size   int
}

// New returns a Chain containing a copy of data.
func New(data []byte) *Chain {
	c := &Chain{}
	c.Append(data)
	return c
}

// Size returns the total number of bytes held by the Chain.
func (c *Chain) Size() int {
	if c == nil {
		return 0
	}
	return c.size
}

// Append adds data to the end of the Chain, copying it into a new block.
func (c *Chain) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.blocks = append(c.blocks, &block{data: cp})
	c.size += len(cp)
}

// AppendBlock adds data to the end of the Chain without copying. The caller
// must not mutate data afterward: ownership passes to the Chain and may be
// shared with other Chains produced by Substr.
func (c *Chain) AppendBlock(data []byte) {
	if len(data) == 0 {
		return
	}
	c.blocks = append(c.blocks, &block{data: data})
	c.size += len(data)
}

// AppendChain concatenates another Chain's blocks, sharing their storage.
func (c *Chain) AppendChain(other *Chain) {
	if other == nil {
		return
	}
	c.blocks = append(c.blocks, other.blocks...)
	c.size += other.size
}

// Prepend adds data to the beginning of the Chain, copying it into a new
// block.
func (c *Chain) Prepend(data []byte) {
	if len(data) == 0 {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.blocks = append([]*block{{data: cp}}, c.blocks...)
	c.size += len(cp)
}

// TryFlat returns the Chain's data as a single contiguous slice without
// copying, and true, if the Chain currently consists of zero or one blocks.
// It returns (nil, false) if the Chain spans multiple blocks.
func (c *Chain) TryFlat() ([]byte, bool) {
	switch len(c.blocks) {
	case 0:
		return nil, true
	case 1:
		return c.blocks[0].data, true
	default:
		return nil, false
	}
}

// Flatten returns the Chain's data as a single contiguous slice, copying if
// the Chain spans more than one block.
func (c *Chain) Flatten() []byte {
	if flat, ok := c.TryFlat(); ok {
		if flat == nil {
			return []byte{}
		}
		return flat
	}
	buf := make([]byte, 0, c.size)
	for _, b := range c.blocks {
		buf = append(buf, b.data...)
	}
	return buf
}

// Substr returns a new Chain referencing the byte range [begin, end) of c.
// Whole blocks within the range are shared with c; a block straddling a
// boundary is resliced (still sharing the backing array, never copying).
func (c *Chain) Substr(begin, end int) *Chain {
	if begin < 0 || end > c.size || begin > end {
		panic("chain: Substr out of range")
	}
	result := &Chain{}
	pos := 0
	for _, b := range c.blocks {
		blockEnd := pos + len(b.data)
		if blockEnd <= begin {
			pos = blockEnd
			continue
		}
		if pos >= end {
			break
		}
		lo := 0
		if begin > pos {
			lo = begin - pos
		}
		hi := len(b.data)
		if end < blockEnd {
			hi = end - pos
		}
		result.blocks = append(result.blocks, &block{data: b.data[lo:hi]})
		result.size += hi - lo
		pos = blockEnd
	}
	return result
}

// String returns the Chain's contents as a string, copying.
func (c *Chain) String() string {
	return string(c.Flatten())
}

// Equal reports whether two Chains hold identical byte content.
func (c *Chain) Equal(other *Chain) bool {
	return bytes.Equal(c.Flatten(), other.Flatten())
}

// NumBlocks returns the number of underlying blocks; exposed for tests that
// assert on fragmentation, not meant to be load-bearing for callers.
func (c *Chain) NumBlocks() int {
	return len(c.blocks)
}

// ForEachBlock calls fn once per underlying block's data, in order, without
// copying. fn must not retain the slice past the call.
func (c *Chain) ForEachBlock(fn func([]byte)) {
	for _, b := range c.blocks {
		fn(b.data)
	}
}
