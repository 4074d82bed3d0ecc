package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainSegment_CanAppend_ExtendsTip(t *testing.T) {
	seg := NewChainSegment(0)
	seg.appendIdentifier(idOf(1, 1), 1)

	b := fakeBlock{id: idOf(2, 2), parent: idOf(1, 1)}
	require.NoError(t, seg.CanAppend(b))
}

func TestChainSegment_CanAppend_EmptySegmentAcceptsAnything(t *testing.T) {
	seg := NewChainSegment(5)
	b := fakeBlock{id: idOf(9, 9), parent: idOf(8, 8)}
	require.NoError(t, seg.CanAppend(b))
}

func TestChainSegment_CanAppend_OutdatedBlock(t *testing.T) {
	seg := NewChainSegment(10)
	seg.appendIdentifier(idOf(11, 1), 1)

	b := fakeBlock{id: idOf(5, 2), parent: idOf(4, 1)}
	assert.ErrorIs(t, seg.CanAppend(b), ErrOutdatedBlock)
}

func TestChainSegment_CanAppend_OutdatedSegment(t *testing.T) {
	seg := NewChainSegment(0)
	seg.appendIdentifier(idOf(1, 1), 1)

	b := fakeBlock{id: idOf(9, 9), parent: idOf(8, 8)}
	assert.ErrorIs(t, seg.CanAppend(b), ErrOutdatedSegment)
}

func TestChainSegment_CanAppend_ParentBlockUnknown(t *testing.T) {
	seg := NewChainSegment(0)
	seg.appendIdentifier(idOf(1, 1), 1)

	b := fakeBlock{id: idOf(2, 2), parent: idOf(1, 0xFF)} // same height, different hash
	assert.ErrorIs(t, seg.CanAppend(b), ErrParentBlockUnknown)
}

func TestChainSegment_CanAppend_BlockCollisionAtInteriorHeight(t *testing.T) {
	seg := NewChainSegment(0)
	seg.appendIdentifier(idOf(1, 1), 1)
	seg.appendIdentifier(idOf(2, 2), 1)
	seg.appendIdentifier(idOf(3, 3), 1)

	b := fakeBlock{id: idOf(2, 0xAA), parent: idOf(1, 1)}
	assert.ErrorIs(t, seg.CanAppend(b), ErrBlockCollision)
}

func TestChainSegment_CanAppend_AlreadyPresent(t *testing.T) {
	seg := NewChainSegment(0)
	seg.appendIdentifier(idOf(1, 1), 1)
	seg.appendIdentifier(idOf(2, 2), 1)

	b := fakeBlock{id: idOf(2, 2), parent: idOf(1, 1)}
	assert.ErrorIs(t, seg.CanAppend(b), ErrAlreadyPresent)
}

func TestChainSegment_TruncateToParent(t *testing.T) {
	seg := NewChainSegment(0)
	seg.appendIdentifier(idOf(1, 1), 1)
	seg.appendIdentifier(idOf(2, 2), 1)
	seg.appendIdentifier(idOf(3, 3), 1)

	found, dropped := seg.truncateToParent(idOf(1, 1))
	require.True(t, found)
	assert.Len(t, dropped, 2)
	tip, ok := seg.Tip()
	require.True(t, ok)
	assert.Equal(t, idOf(1, 1), tip)
}

func TestChainSegment_TruncateToParent_ConfirmedBoundary(t *testing.T) {
	seg := NewChainSegment(1)
	seg.appendIdentifier(idOf(2, 1), 1)
	seg.appendIdentifier(idOf(3, 2), 1)

	found, dropped := seg.truncateToParent(idOf(1, 0))
	require.True(t, found)
	assert.Len(t, dropped, 2)
	assert.True(t, seg.IsEmpty())
}

func TestChainSegment_PruneConfirmed(t *testing.T) {
	seg := NewChainSegment(0)
	seg.appendIdentifier(idOf(1, 1), 1)
	seg.appendIdentifier(idOf(2, 2), 1)
	seg.appendIdentifier(idOf(3, 3), 1)

	pruned := seg.pruneConfirmed(1)
	require.Len(t, pruned, 1)
	assert.Equal(t, idOf(1, 1), pruned[0])
	assert.Len(t, seg.BlockIDs, 2)
}

func TestElect_LongerSegmentWins(t *testing.T) {
	short := NewChainSegment(0)
	short.appendIdentifier(idOf(1, 1), 100)

	long := NewChainSegment(0)
	long.appendIdentifier(idOf(1, 1), 1)
	long.appendIdentifier(idOf(2, 2), 1)

	segs := map[ID]*ChainSegment{1: short, 2: long}
	short.id, long.id = 1, 2

	assert.Equal(t, long, elect(segs))
}

func TestElect_ScoreBreaksLengthTie(t *testing.T) {
	a := NewChainSegment(0)
	a.appendIdentifier(idOf(1, 1), 5)

	b := NewChainSegment(0)
	b.appendIdentifier(idOf(1, 2), 10)

	segs := map[ID]*ChainSegment{1: a, 2: b}
	a.id, b.id = 1, 2

	assert.Equal(t, b, elect(segs))
}

func TestElect_HashBreaksFullTie(t *testing.T) {
	a := NewChainSegment(0)
	a.appendIdentifier(idOf(1, 0x01), 1)

	b := NewChainSegment(0)
	b.appendIdentifier(idOf(1, 0xFF), 1)

	segs := map[ID]*ChainSegment{1: a, 2: b}
	a.id, b.id = 1, 2

	assert.Equal(t, b, elect(segs), "0xFF tip hash lexicographically beats 0x01")
}
