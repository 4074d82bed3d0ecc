package microblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrondx/indexer/pkg/block"
	"github.com/chrondx/indexer/pkg/chainevent"
)

func mkMicroblock(anchor chainevent.BlockIdentifier, parent chainevent.BlockIdentifier, tag byte) *block.StacksMicroblock {
	var h chainevent.Hash
	h[31] = tag
	return &block.StacksMicroblock{
		Identifier:       chainevent.BlockIdentifier{Index: anchor.Index, Hash: h},
		ParentIdentifier: parent,
		AnchorIdentifier: anchor,
	}
}

func TestTracker_ExtendsTrail(t *testing.T) {
	tr := NewTracker()
	anchor := chainevent.BlockIdentifier{Index: 5}
	_, err := tr.SetAnchor("stacks", anchor)
	require.NoError(t, err)

	mb1 := mkMicroblock(anchor, anchor, 1)
	ev, err := tr.ProcessTrail("stacks", anchor, []*block.StacksMicroblock{mb1})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, chainevent.KindMicroblocksExtended, ev.Type)
	assert.Len(t, ev.Trail, 1)

	mb2 := mkMicroblock(anchor, mb1.Identifier, 2)
	ev, err = tr.ProcessTrail("stacks", anchor, []*block.StacksMicroblock{mb1, mb2})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, chainevent.KindMicroblocksExtended, ev.Type)
	assert.Len(t, ev.Trail, 1, "only the newly appended microblock is reported")
}

func TestTracker_ReorgsTrail(t *testing.T) {
	tr := NewTracker()
	anchor := chainevent.BlockIdentifier{Index: 5}
	_, err := tr.SetAnchor("stacks", anchor)
	require.NoError(t, err)

	mb1 := mkMicroblock(anchor, anchor, 1)
	mb2 := mkMicroblock(anchor, mb1.Identifier, 2)
	_, err = tr.ProcessTrail("stacks", anchor, []*block.StacksMicroblock{mb1, mb2})
	require.NoError(t, err)

	mb2Prime := mkMicroblock(anchor, mb1.Identifier, 0xAA)
	ev, err := tr.ProcessTrail("stacks", anchor, []*block.StacksMicroblock{mb1, mb2Prime})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, chainevent.KindMicroblocksReorg, ev.Type)
	assert.Len(t, ev.RolledBack, 1)
	assert.Len(t, ev.Applied, 1)
}

func TestTracker_NoOpWhenTrailUnchanged(t *testing.T) {
	tr := NewTracker()
	anchor := chainevent.BlockIdentifier{Index: 5}
	_, err := tr.SetAnchor("stacks", anchor)
	require.NoError(t, err)

	mb1 := mkMicroblock(anchor, anchor, 1)
	_, err = tr.ProcessTrail("stacks", anchor, []*block.StacksMicroblock{mb1})
	require.NoError(t, err)

	ev, err := tr.ProcessTrail("stacks", anchor, []*block.StacksMicroblock{mb1})
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestTracker_SetAnchorClearsTrail(t *testing.T) {
	tr := NewTracker()
	anchor := chainevent.BlockIdentifier{Index: 5}
	_, err := tr.SetAnchor("stacks", anchor)
	require.NoError(t, err)
	mb1 := mkMicroblock(anchor, anchor, 1)
	_, err = tr.ProcessTrail("stacks", anchor, []*block.StacksMicroblock{mb1})
	require.NoError(t, err)

	_, err = tr.SetAnchor("stacks", chainevent.BlockIdentifier{Index: 6})
	require.NoError(t, err)
	assert.Empty(t, tr.Trail())
}

// TestTracker_EarlyTrailIsStashedThenDrainedOnSetAnchor exercises the path
// a trail takes when it arrives before the tracker has reached its anchor:
// it must be stashed rather than rejected, then reconciled the moment
// SetAnchor catches up to that exact anchor (spec §4.3).
func TestTracker_EarlyTrailIsStashedThenDrainedOnSetAnchor(t *testing.T) {
	tr := NewTracker()
	current := chainevent.BlockIdentifier{Index: 5}
	_, err := tr.SetAnchor("stacks", current)
	require.NoError(t, err)

	future := chainevent.BlockIdentifier{Index: 6}
	mb1 := mkMicroblock(future, future, 1)

	ev, err := tr.ProcessTrail("stacks", future, []*block.StacksMicroblock{mb1})
	require.NoError(t, err)
	assert.Nil(t, ev, "a trail for an anchor not yet reached is stashed, not reported")
	assert.Empty(t, tr.Trail())

	ev, err = tr.SetAnchor("stacks", future)
	require.NoError(t, err)
	require.NotNil(t, ev, "SetAnchor must drain and reconcile the stashed trail")
	assert.Equal(t, chainevent.KindMicroblocksExtended, ev.Type)
	assert.Len(t, ev.Trail, 1)
	assert.Equal(t, []*block.StacksMicroblock{mb1}, tr.Trail())
}

// TestTracker_StalePendingTrailIsPrunedOnAdvance ensures a stash for an
// anchor height the chain has since passed cannot leak forever: it must be
// dropped once SetAnchor moves past it, not replayed against a later
// anchor it was never built on.
func TestTracker_StalePendingTrailIsPrunedOnAdvance(t *testing.T) {
	tr := NewTracker()
	_, err := tr.SetAnchor("stacks", chainevent.BlockIdentifier{Index: 5})
	require.NoError(t, err)

	stale := chainevent.BlockIdentifier{Index: 6}
	mb1 := mkMicroblock(stale, stale, 1)
	_, err = tr.ProcessTrail("stacks", stale, []*block.StacksMicroblock{mb1})
	require.NoError(t, err)

	// The chain skips past height 6 entirely (e.g. height 6 was an orphan).
	ev, err := tr.SetAnchor("stacks", chainevent.BlockIdentifier{Index: 7})
	require.NoError(t, err)
	assert.Nil(t, ev)

	// Even if the chain somehow revisits height 6's identifier later, the
	// stale stash is gone and must be supplied again, not silently replayed.
	ev, err = tr.SetAnchor("stacks", stale)
	require.NoError(t, err)
	assert.Nil(t, ev)
}
