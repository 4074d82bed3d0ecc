// Package microblock tracks the speculative microblock trail attached to a
// layered chain's current anchor tip, reconciling it against whatever the
// anchor-confirmed chain eventually settles on (spec §4.3: the microblock
// trail tracker).
package microblock

import (
	"errors"

	"github.com/chrondx/indexer/pkg/block"
	"github.com/chrondx/indexer/pkg/chainevent"
)

// ErrNonContiguousTrail is returned when a trail's microblocks do not chain
// together (each one's parent must be the previous one, or the anchor at
// position 0).
var ErrNonContiguousTrail = errors.New("microblock: trail is not contiguous")

// Tracker holds the current anchor tip and whatever speculative microblock
// trail has been built on top of it. One Tracker exists per layered chain.
//
// Trails can arrive in any order relative to their anchor block (spec §1:
// ingestion order is arbitrary). A trail observed for an anchor this
// tracker hasn't reached yet via SetAnchor is stashed in pending rather
// than dropped, and is replayed the moment SetAnchor reaches that anchor.
type Tracker struct {
	anchor  chainevent.BlockIdentifier
	trail   []*block.StacksMicroblock
	pending map[chainevent.BlockIdentifier][]*block.StacksMicroblock
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{pending: make(map[chainevent.BlockIdentifier][]*block.StacksMicroblock)}
}

// Anchor returns the tracker's current anchor block.
func (t *Tracker) Anchor() chainevent.BlockIdentifier { return t.anchor }

// Trail returns the current speculative trail, oldest first.
func (t *Tracker) Trail() []*block.StacksMicroblock { return t.trail }

// SetAnchor moves the tracker onto a new anchor block, discarding whatever
// trail was speculatively built on the previous anchor. Called whenever the
// segment engine for the layered chain emits ExtendedCanonical or Reorg, so
// the trail never outlives the anchor it was speculatively built on.
//
// If a trail was already stashed for this anchor (it arrived before the
// anchor block itself did), it is replayed immediately and the resulting
// reconciliation event, if any, is returned. Any pending trail stashed for
// an anchor height the chain has now passed can never apply and is dropped,
// so pending cannot grow without bound across a long-running tracker.
func (t *Tracker) SetAnchor(chain string, anchor chainevent.BlockIdentifier) (*chainevent.ChainEvent, error) {
	if t.anchor.Equal(anchor) {
		return nil, nil
	}
	t.anchor = anchor
	t.trail = nil

	stashed, ok := t.pending[anchor]
	delete(t.pending, anchor)
	for id := range t.pending {
		if id.Index < anchor.Index {
			delete(t.pending, id)
		}
	}
	if !ok {
		return nil, nil
	}
	return t.reconcile(chain, stashed)
}

// ProcessTrail reconciles a freshly observed microblock trail against the
// tracker's current state, returning the single ChainEvent the reconciliation
// produces: MicroblocksExtended if the new trail is a pure extension of the
// one already tracked, MicroblocksReorg if the new trail diverges from some
// earlier point. Returns (nil, nil) if the trail is identical to what is
// already tracked (no-op).
//
// If anchor is not the tracker's current anchor, the trail is stashed
// (keyed by anchor) rather than rejected, so a trail that arrives slightly
// ahead of its anchor block is reconciled once SetAnchor catches up to it
// instead of being lost.
func (t *Tracker) ProcessTrail(chain string, anchor chainevent.BlockIdentifier, newTrail []*block.StacksMicroblock) (*chainevent.ChainEvent, error) {
	if err := validateContiguous(anchor, newTrail); err != nil {
		return nil, err
	}
	if !t.anchor.Equal(anchor) {
		t.pending[anchor] = newTrail
		return nil, nil
	}
	return t.reconcile(chain, newTrail)
}

// reconcile diffs newTrail against the tracked trail and builds the
// resulting event. Shared by ProcessTrail's direct path and SetAnchor's
// drain-on-catch-up path.
func (t *Tracker) reconcile(chain string, newTrail []*block.StacksMicroblock) (*chainevent.ChainEvent, error) {
	commonLen := 0
	for commonLen < len(t.trail) && commonLen < len(newTrail) {
		if !t.trail[commonLen].Identifier.Equal(newTrail[commonLen].Identifier) {
			break
		}
		commonLen++
	}

	rolledBack := t.trail[commonLen:]
	applied := newTrail[commonLen:]
	t.trail = newTrail

	if len(rolledBack) == 0 && len(applied) == 0 {
		return nil, nil
	}
	if len(rolledBack) == 0 {
		ev := chainevent.MicroblocksExtended(chain, toEventBlocks(applied))
		return &ev, nil
	}
	ev := chainevent.MicroblocksReorg(chain, toEventBlocks(rolledBack), toEventBlocks(applied))
	return &ev, nil
}

// ReconcileAnchor is called once a layered-chain anchor block is confirmed:
// it drops the tracker's state for the now-settled anchor, since a confirmed
// anchor can no longer be reorganized and its microblocks are superseded by
// the anchor's own transaction list.
func (t *Tracker) ReconcileAnchor(confirmed chainevent.BlockIdentifier) {
	if t.anchor.Equal(confirmed) {
		t.anchor = chainevent.BlockIdentifier{}
		t.trail = nil
	}
}

func validateContiguous(anchor chainevent.BlockIdentifier, trail []*block.StacksMicroblock) error {
	parent := anchor
	for _, mb := range trail {
		if !mb.ParentIdentifier.Equal(parent) {
			return ErrNonContiguousTrail
		}
		parent = mb.Identifier
	}
	return nil
}

func toEventBlocks(trail []*block.StacksMicroblock) []chainevent.Block {
	out := make([]chainevent.Block, 0, len(trail))
	for _, mb := range trail {
		out = append(out, mb.ToEventBlock())
	}
	return out
}
