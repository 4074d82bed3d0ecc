// Package segment implements the chain-segment engine: the pool of competing
// block chains a single blockchain (base or layered) is organized into, the
// canonical-tip election over them, and the rollback/apply diff produced when
// election changes the winner.
//
// The engine is chain-agnostic: it knows nothing about Bitcoin or Stacks
// specifically, only the Block capability below. One BlockPool is
// instantiated per chain by pkg/indexer.
package segment

import "github.com/chrondx/indexer/pkg/chainevent"

// Block is the capability the segment engine needs from a concrete block
// type. Declared locally rather than imported from pkg/block so this package
// has no dependency on chain-specific representations; pkg/block's
// AbstractBlock satisfies it structurally.
type Block interface {
	ID() chainevent.BlockIdentifier
	ParentID() chainevent.BlockIdentifier
	Score() uint64
}

// ID names a ChainSegment within a BlockPool. Zero is never assigned to a
// real segment; it is used as a "no segment" sentinel.
type ID uint64

// ChainSegment is a candidate chain: a contiguous run of not-yet-confirmed
// block identifiers, tip-first, sitting above an implicit confirmed height.
// Everything at or below MostRecentConfirmedBlockHeight has already been
// pruned into the pool's confirmed frontier and is no longer carried here —
// invariant: Length() == MostRecentConfirmedBlockHeight + len(BlockIDs).
type ChainSegment struct {
	id ID

	// BlockIDs holds this segment's own (unconfirmed) blocks, tip first
	// (BlockIDs[0] is the current tip).
	BlockIDs []chainevent.BlockIdentifier

	// MostRecentConfirmedBlockHeight is the height of the last block this
	// segment's history shares with the pool's confirmed frontier. Never
	// decreases (finality-monotonicity, spec §8).
	MostRecentConfirmedBlockHeight uint64

	// CumulativeScore is the running sum of Score() across every block this
	// segment has ever carried (including ones later pruned on confirmation),
	// used by canonical-tip election rule 2. Maintained incrementally by
	// BlockPool rather than recomputed, since pruned blocks still count.
	CumulativeScore uint64
}

// NewChainSegment returns an empty segment rooted at confirmedHeight.
func NewChainSegment(confirmedHeight uint64) *ChainSegment {
	return &ChainSegment{MostRecentConfirmedBlockHeight: confirmedHeight}
}

// ID returns the segment's pool-assigned identifier.
func (s *ChainSegment) ID() ID { return s.id }

// IsEmpty reports whether the segment carries no unconfirmed blocks.
func (s *ChainSegment) IsEmpty() bool { return len(s.BlockIDs) == 0 }

// Tip returns the segment's most recent block, or false if empty.
func (s *ChainSegment) Tip() (chainevent.BlockIdentifier, bool) {
	if len(s.BlockIDs) == 0 {
		return chainevent.BlockIdentifier{}, false
	}
	return s.BlockIDs[0], true
}

// Length is the segment's height: confirmed height plus unconfirmed blocks.
// Canonical-tip election rule 1 compares this across segments.
func (s *ChainSegment) Length() uint64 {
	return s.MostRecentConfirmedBlockHeight + uint64(len(s.BlockIDs))
}

// Clone deep-copies the segment so the pool can build a fork candidate
// without mutating the original on a failed/abandoned attempt.
func (s *ChainSegment) Clone() *ChainSegment {
	cp := &ChainSegment{
		MostRecentConfirmedBlockHeight: s.MostRecentConfirmedBlockHeight,
		CumulativeScore:                s.CumulativeScore,
	}
	cp.BlockIDs = append(cp.BlockIDs, s.BlockIDs...)
	return cp
}

// blockAtHeight returns the identifier this segment currently holds at the
// given height, if that height falls within the segment's live range.
func (s *ChainSegment) blockAtHeight(height uint64) (chainevent.BlockIdentifier, bool) {
	tip, ok := s.Tip()
	if !ok || height > tip.Index {
		return chainevent.BlockIdentifier{}, false
	}
	pos := tip.Index - height
	if pos >= uint64(len(s.BlockIDs)) {
		return chainevent.BlockIdentifier{}, false
	}
	return s.BlockIDs[pos], true
}

// CanAppend classifies whether b can extend this segment, and if not, why
// not (spec §4.2.2's incompatibility taxonomy). It never mutates s.
func (s *ChainSegment) CanAppend(b Block) error {
	id := b.ID()
	parentID := b.ParentID()

	if id.Index < s.MostRecentConfirmedBlockHeight {
		return ErrOutdatedBlock
	}

	tip, hasTip := s.Tip()
	if !hasTip {
		return nil
	}
	if id.Index > tip.Index+1 {
		return ErrOutdatedSegment
	}
	if tip.Index == parentID.Index {
		if tip.Hash == parentID.Hash {
			return nil
		}
		return ErrParentBlockUnknown
	}
	if existing, ok := s.blockAtHeight(id.Index); ok {
		if existing.Equal(id) {
			return ErrAlreadyPresent
		}
		return ErrBlockCollision
	}
	return ErrIncompatibilityUnknown
}

// appendIdentifier extends the tip unconditionally; callers must have
// already verified CanAppend returns nil.
func (s *ChainSegment) appendIdentifier(id chainevent.BlockIdentifier, score uint64) {
	s.BlockIDs = append([]chainevent.BlockIdentifier{id}, s.BlockIDs...)
	s.CumulativeScore += score
}

// truncateToParent drops blocks from the tip down until parentID is the new
// tip (or, if parentID is exactly the segment's confirmed boundary, drops
// everything). Used to build a fork candidate from a clone before appending
// the colliding block. Returns the dropped identifiers, tip-first, so the
// caller can subtract their scores from CumulativeScore.
func (s *ChainSegment) truncateToParent(parentID chainevent.BlockIdentifier) (found bool, dropped []chainevent.BlockIdentifier) {
	if parentID.Index == s.MostRecentConfirmedBlockHeight {
		dropped = append(dropped, s.BlockIDs...)
		s.BlockIDs = nil
		return true, dropped
	}
	for len(s.BlockIDs) > 0 {
		front := s.BlockIDs[0]
		if front.Equal(parentID) {
			return true, dropped
		}
		dropped = append(dropped, front)
		s.BlockIDs = s.BlockIDs[1:]
	}
	return false, dropped
}

// pruneConfirmed moves every block at or below cutoff's height out of the
// segment's live range, returning them oldest-first for the Confirmed event.
// Callers are responsible for raising MostRecentConfirmedBlockHeight to
// cutoffHeight afterwards.
func (s *ChainSegment) pruneConfirmed(cutoffHeight uint64) []chainevent.BlockIdentifier {
	if cutoffHeight <= s.MostRecentConfirmedBlockHeight {
		return nil
	}
	keepUpTo := len(s.BlockIDs)
	for keepUpTo > 0 && s.BlockIDs[keepUpTo-1].Index <= cutoffHeight {
		keepUpTo--
	}
	pruned := append([]chainevent.BlockIdentifier(nil), s.BlockIDs[keepUpTo:]...)
	s.BlockIDs = s.BlockIDs[:keepUpTo]
	reverseIdentifiers(pruned)
	return pruned
}

func reverseIdentifiers(ids []chainevent.BlockIdentifier) {
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}
