package segment

import (
	"errors"
	"fmt"

	"github.com/chrondx/indexer/pkg/chainevent"
)

// EventBlock is the full capability BlockPool needs: everything Block needs
// plus the ability to render itself onto the wire once it is part of an
// emitted ChainEvent.
type EventBlock interface {
	Block
	ToEventBlock() chainevent.Block
}

// BlockPool is the segment engine for a single chain: every live competing
// ChainSegment, the orphan blocks waiting on a parent that hasn't arrived
// yet, the block store backing them, and the currently-elected canonical
// segment. One BlockPool exists per chain (spec §2: "one instance of the
// segment engine per chain").
type BlockPool struct {
	ChainName     string
	finalityDepth uint64

	segments map[ID]*ChainSegment
	orphans  map[chainevent.BlockIdentifier][]EventBlock
	store    map[chainevent.BlockIdentifier]EventBlock

	canonicalID ID
	frontier    chainevent.BlockIdentifier
	nextID      ID
}

// NewBlockPool constructs an empty pool for chainName, pruning to
// finalityDepth confirmations behind the canonical tip.
func NewBlockPool(chainName string, finalityDepth uint64) *BlockPool {
	return &BlockPool{
		ChainName:     chainName,
		finalityDepth: finalityDepth,
		segments:      make(map[ID]*ChainSegment),
		orphans:       make(map[chainevent.BlockIdentifier][]EventBlock),
		store:         make(map[chainevent.BlockIdentifier]EventBlock),
	}
}

// CanonicalTip returns the current canonical segment's tip, if one exists.
func (p *BlockPool) CanonicalTip() (chainevent.BlockIdentifier, bool) {
	seg, ok := p.segments[p.canonicalID]
	if !ok {
		return chainevent.BlockIdentifier{}, false
	}
	return seg.Tip()
}

// SegmentCount reports how many live segments the pool is tracking, mostly
// useful for metrics and tests.
func (p *BlockPool) SegmentCount() int { return len(p.segments) }

// OrphanCount reports how many blocks are waiting on a missing parent.
func (p *BlockPool) OrphanCount() int {
	n := 0
	for _, blocks := range p.orphans {
		n += len(blocks)
	}
	return n
}

// ProcessBlock ingests a single block (spec §4.2.1's per-block algorithm),
// draining any orphans it unblocks, then re-runs canonical election and the
// finality sweep once for the whole batch. Returns the events produced, in
// order: at most one canonical-change event (ExtendedCanonical, Reorg, or
// Reset+DivergenceResetWarning), then at most one Confirmed event. A
// duplicate or still-orphaned block produces no events and no error.
func (p *BlockPool) ProcessBlock(b EventBlock) ([]chainevent.ChainEvent, error) {
	// Snapshot the current canonical segment before ingest, since admitting
	// b may mutate it in place (a plain tip extension keeps the same
	// segment ID). The snapshot is what afterIngest diverges against.
	var prevSnapshot *ChainSegment
	if canon, ok := p.segments[p.canonicalID]; ok {
		prevSnapshot = canon.Clone()
	}

	mutated, err := p.ingest(b)
	if err != nil {
		return nil, err
	}
	if !mutated {
		return nil, nil
	}
	return p.afterIngest(prevSnapshot)
}

func (p *BlockPool) ingest(b EventBlock) (bool, error) {
	id := b.ID()
	if _, exists := p.store[id]; exists {
		return false, nil
	}
	p.store[id] = b

	if !p.knownParent(b.ParentID()) {
		p.orphans[b.ParentID()] = append(p.orphans[b.ParentID()], b)
		return false, nil
	}

	p.admit(b)
	if err := p.assertAccountedFor(id); err != nil {
		return false, err
	}

	queue := []chainevent.BlockIdentifier{id}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		children := p.orphans[parent]
		if len(children) == 0 {
			continue
		}
		delete(p.orphans, parent)
		for _, child := range children {
			cid := child.ID()
			p.admit(child)
			if err := p.assertAccountedFor(cid); err != nil {
				return false, err
			}
			queue = append(queue, cid)
		}
	}
	return true, nil
}

// assertAccountedFor resolves the open question in spec §9: every block
// that reaches admit must end up either filed as an orphan or present as
// the tip or an interior block of some live segment. admit never files an
// orphan itself (that only happens earlier in ingest, before admit runs),
// so for a just-admitted block this reduces to checking segment membership.
// A block that satisfies neither is a bug in admit/tryAppendToSegments/seed,
// not a recoverable input condition, so it must never surface as a silent
// drop.
func (p *BlockPool) assertAccountedFor(id chainevent.BlockIdentifier) error {
	if _, ok := p.store[id]; !ok {
		return fmt.Errorf("%w: %s not in block store", chainevent.ErrBlockUnaccountedFor, id)
	}
	for _, orphaned := range p.orphans {
		for _, b := range orphaned {
			if b.ID().Equal(id) {
				return nil
			}
		}
	}
	for _, seg := range p.segments {
		for _, segID := range seg.BlockIDs {
			if segID.Equal(id) {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", chainevent.ErrBlockUnaccountedFor, id)
}

// knownParent reports whether parentID is resolvable: either the implicit
// root marker (zero value, meaning "no parent" — a chain's genesis block),
// or a block this pool has already stored and that is not itself still
// waiting as an orphan. Blocks already pruned past
// finality remain resolvable only via the confirmed frontier, which is kept
// in the store as long as it is the most recent one (see gc).
func (p *BlockPool) knownParent(parentID chainevent.BlockIdentifier) bool {
	if parentID == (chainevent.BlockIdentifier{}) {
		return true
	}
	if _, ok := p.store[parentID]; !ok {
		return false
	}
	for _, waiting := range p.orphans {
		for _, o := range waiting {
			if o.ID().Equal(parentID) {
				return false
			}
		}
	}
	return true
}

// admit appends b to whichever segment accepts it, forking one on collision,
// or seeds a brand-new segment if no live segment claims it at all (the
// block's parent is the confirmed frontier or otherwise outside every live
// segment's range).
func (p *BlockPool) admit(b EventBlock) {
	if p.tryAppendToSegments(b) {
		return
	}
	p.seed(b)
}

func (p *BlockPool) tryAppendToSegments(b EventBlock) bool {
	accepted := false
	for _, seg := range p.segments {
		err := seg.CanAppend(b)
		switch {
		case err == nil:
			seg.appendIdentifier(b.ID(), b.Score())
			accepted = true
		case errors.Is(err, ErrBlockCollision):
			fork := seg.Clone()
			found, dropped := fork.truncateToParent(b.ParentID())
			if !found {
				continue
			}
			for _, d := range dropped {
				if blk, ok := p.store[d]; ok {
					fork.CumulativeScore -= blk.Score()
				}
			}
			fork.appendIdentifier(b.ID(), b.Score())
			p.nextID++
			fork.id = p.nextID
			p.segments[fork.id] = fork
			accepted = true
		default:
			// ErrOutdatedBlock, ErrOutdatedSegment, ErrParentBlockUnknown,
			// ErrAlreadyPresent, ErrIncompatibilityUnknown: no-op against
			// this segment. Another segment, or a fresh seed below, may
			// still accept the block.
		}
	}
	return accepted
}

// seed starts a brand-new segment for a block whose parent lies outside
// every live segment's tracked range — the block's parent has already been
// pruned past finality (it is, or equals, the confirmed frontier) and no
// segment carries it as an interior or tip block any longer.
func (p *BlockPool) seed(b EventBlock) {
	seg := NewChainSegment(b.ParentID().Index)
	p.nextID++
	seg.id = p.nextID
	seg.appendIdentifier(b.ID(), b.Score())
	p.segments[seg.id] = seg
}

// afterIngest re-runs canonical election once after a batch of one or more
// blocks has been admitted, emitting a divergence event if the canonical
// tip moved at all (whether by a plain extension, a segment fork winning
// election, or a reset), then runs the finality sweep. prevSnapshot is the
// canonical segment's state before this batch, or nil if none existed yet.
func (p *BlockPool) afterIngest(prevSnapshot *ChainSegment) ([]chainevent.ChainEvent, error) {
	var events []chainevent.ChainEvent

	newCanonical := elect(p.segments)
	if newCanonical == nil {
		return events, nil
	}
	p.canonicalID = newCanonical.ID()

	newTip, _ := newCanonical.Tip()
	var prevTip chainevent.BlockIdentifier
	var hadPrevTip bool
	if prevSnapshot != nil {
		prevTip, hadPrevTip = prevSnapshot.Tip()
	}

	if !hadPrevTip || !prevTip.Equal(newTip) {
		allowReset := prevSnapshot == nil
		div, err := newCanonical.Diverge(prevSnapshot, allowReset)
		if err != nil {
			return nil, err
		}
		events = append(events, p.buildCanonicalEvent(div, newCanonical))
		if div.IsEmpty() {
			events = append(events, chainevent.DivergenceResetWarning(p.ChainName))
		}
	}

	if confirmed, ok := p.sweepFinality(newCanonical); ok {
		events = append(events, confirmed)
	}
	return events, nil
}

func (p *BlockPool) buildCanonicalEvent(div Divergence, newCanonical *ChainSegment) chainevent.ChainEvent {
	if div.IsEmpty() {
		return chainevent.Reset(p.ChainName, p.toEventBlocks(newCanonical.BlockIDs))
	}
	if len(div.BlocksToRollback) == 0 {
		return chainevent.ExtendedCanonical(p.ChainName, p.toEventBlocks(div.BlocksToApply))
	}
	return chainevent.Reorg(p.ChainName, p.toEventBlocks(div.BlocksToRollback), p.toEventBlocks(div.BlocksToApply))
}

// sweepFinality prunes every live segment down to finalityDepth behind the
// canonical tip, advances the confirmed frontier, garbage-collects the
// block store and any now-unreachable segments, and returns a Confirmed
// event for whatever was newly finalized.
func (p *BlockPool) sweepFinality(canon *ChainSegment) (chainevent.ChainEvent, bool) {
	tip, ok := canon.Tip()
	if !ok || tip.Index < p.finalityDepth {
		return chainevent.ChainEvent{}, false
	}
	cutoff := tip.Index - p.finalityDepth
	if cutoff <= canon.MostRecentConfirmedBlockHeight {
		return chainevent.ChainEvent{}, false
	}

	var confirmedIDs []chainevent.BlockIdentifier
	for id, seg := range p.segments {
		pruned := seg.pruneConfirmed(cutoff)
		if id == p.canonicalID {
			confirmedIDs = pruned
		}
		if cutoff > seg.MostRecentConfirmedBlockHeight {
			seg.MostRecentConfirmedBlockHeight = cutoff
		}
	}
	if len(confirmedIDs) == 0 {
		return chainevent.ChainEvent{}, false
	}

	p.frontier = confirmedIDs[len(confirmedIDs)-1]
	p.gc(cutoff)
	return chainevent.Confirmed(p.ChainName, p.toEventBlocks(confirmedIDs)), true
}

// gc drops block-store entries and dead segments that can no longer affect
// future election now that the confirmed frontier has advanced to cutoff.
// A segment whose tip sits below the new frontier can never again accept a
// block (CanAppend rejects anything below MostRecentConfirmedBlockHeight),
// so it is provably unreachable.
func (p *BlockPool) gc(cutoff uint64) {
	for id, b := range p.store {
		if id.Index < cutoff {
			delete(p.store, id)
		}
		_ = b
	}
	for id, seg := range p.segments {
		if id == p.canonicalID {
			continue
		}
		tip, ok := seg.Tip()
		if !ok || tip.Index < p.frontier.Index {
			delete(p.segments, id)
		}
	}
}

func (p *BlockPool) toEventBlocks(ids []chainevent.BlockIdentifier) []chainevent.Block {
	out := make([]chainevent.Block, 0, len(ids))
	for _, id := range ids {
		if b, ok := p.store[id]; ok {
			out = append(out, b.ToEventBlock())
		}
	}
	return out
}
