package segment

import (
	"github.com/chrondx/indexer/pkg/chainevent"
)

// fakeBlock is the minimal EventBlock used across this package's tests.
type fakeBlock struct {
	id     chainevent.BlockIdentifier
	parent chainevent.BlockIdentifier
	score  uint64
}

func (f fakeBlock) ID() chainevent.BlockIdentifier       { return f.id }
func (f fakeBlock) ParentID() chainevent.BlockIdentifier { return f.parent }
func (f fakeBlock) Score() uint64                        { return f.score }
func (f fakeBlock) ToEventBlock() chainevent.Block {
	return chainevent.Block{ID: f.id, ParentID: f.parent, Chain: "test"}
}

// hashByte builds a deterministic, distinguishable hash from a single byte
// tag so test fixtures stay readable.
func hashByte(tag byte) chainevent.Hash {
	var h chainevent.Hash
	h[31] = tag
	return h
}

func idOf(index uint64, tag byte) chainevent.BlockIdentifier {
	return chainevent.BlockIdentifier{Index: index, Hash: hashByte(tag)}
}

// chain builds a contiguous run of fakeBlocks starting at startIndex, one
// block per tag, each parented on the previous, starting from genesis
// (zero-value parent) when startIndex == 0.
func chain(startIndex uint64, tags ...byte) []fakeBlock {
	blocks := make([]fakeBlock, len(tags))
	var parent chainevent.BlockIdentifier
	if startIndex > 0 {
		parent = idOf(startIndex-1, tags[0]-1)
	}
	for i, tag := range tags {
		id := idOf(startIndex+uint64(i), tag)
		blocks[i] = fakeBlock{id: id, parent: parent, score: 1}
		parent = id
	}
	return blocks
}
