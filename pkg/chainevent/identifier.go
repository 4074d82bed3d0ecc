package chainevent

import "fmt"

// BlockIdentifier uniquely identifies a block (or microblock) within a chain.
// Index is height; Hash is the block's identity hash. Equality is componentwise.
type BlockIdentifier struct {
	Index uint64 `json:"index"`
	Hash  Hash   `json:"hash"`
}

// Equal reports whether two identifiers name the same block.
func (b BlockIdentifier) Equal(other BlockIdentifier) bool {
	return b.Index == other.Index && b.Hash == other.Hash
}

// String renders the identifier as "<index>:<hash-prefix>".
func (b BlockIdentifier) String() string {
	hex := b.Hash.Hex()
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return fmt.Sprintf("%d:%s", b.Index, hex)
}
