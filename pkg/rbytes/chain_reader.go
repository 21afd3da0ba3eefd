package rbytes

import "github.com/riegeli-go/riegeli/pkg/chain"

// NewChainReader returns a Reader over c's contents. c is flattened once,
// up front — an O(n) cost paid once per chunk payload rather than per
// access, trading the Chain's multi-block zero-copy property for a simpler
// cursor. Chunk payloads are typically read start-to-end exactly once, so
// the trade is favorable.
func NewChainReader(c *chain.Chain) *BytesReader {
	return NewBytesReader(c.Flatten())
}
