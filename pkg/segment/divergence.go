package segment

import "github.com/chrondx/indexer/pkg/chainevent"

// Divergence is the result of comparing two segments at the moment canonical
// election switches from one to the other: everything that must be rolled
// back from the old tip, and everything that must be applied to reach the
// new one, both chronological (oldest first).
type Divergence struct {
	BlocksToRollback []chainevent.BlockIdentifier
	BlocksToApply    []chainevent.BlockIdentifier
}

// IsEmpty reports whether the divergence carries no identifiers at all —
// the signature of a true reset (no common root found) rather than a normal
// extension or reorg.
func (d Divergence) IsEmpty() bool {
	return len(d.BlocksToRollback) == 0 && len(d.BlocksToApply) == 0
}

// Diverge computes the divergence between the receiver (the newly-elected
// segment, N) and oldSeg (the previously-canonical segment, P). The
// resolved calling convention (spec §9 open question 2, cross-referenced
// against the walk directions implied by the original reference
// implementation): newSegment.Diverge(oldSegment, allowReset).
//
// oldSeg may be nil (no previous canonical segment existed yet); it is then
// treated as an empty segment sharing newSeg's confirmed boundary, which
// makes the first-ever election a pure extension rather than a reorg.
//
// The search is a single O(len(oldSeg.BlockIDs)) walk of oldSeg from its tip
// against a set built from newSeg's block ids — equivalent to, but faster
// than, the original's nested hash/height scan.
func (newSeg *ChainSegment) Diverge(oldSeg *ChainSegment, allowReset bool) (Divergence, error) {
	if oldSeg == nil {
		oldSeg = NewChainSegment(newSeg.MostRecentConfirmedBlockHeight)
	}

	newSet := make(map[chainevent.BlockIdentifier]int, len(newSeg.BlockIDs))
	for i, id := range newSeg.BlockIDs {
		newSet[id] = i
	}

	for oldIdx, id := range oldSeg.BlockIDs {
		if newIdx, ok := newSet[id]; ok {
			rollback := append([]chainevent.BlockIdentifier(nil), oldSeg.BlockIDs[:oldIdx]...)
			apply := append([]chainevent.BlockIdentifier(nil), newSeg.BlockIDs[:newIdx]...)
			reverseIdentifiers(rollback)
			reverseIdentifiers(apply)
			return Divergence{BlocksToRollback: rollback, BlocksToApply: apply}, nil
		}
	}

	if oldSeg.MostRecentConfirmedBlockHeight == newSeg.MostRecentConfirmedBlockHeight {
		rollback := append([]chainevent.BlockIdentifier(nil), oldSeg.BlockIDs...)
		apply := append([]chainevent.BlockIdentifier(nil), newSeg.BlockIDs...)
		reverseIdentifiers(rollback)
		reverseIdentifiers(apply)
		return Divergence{BlocksToRollback: rollback, BlocksToApply: apply}, nil
	}

	if allowReset {
		return Divergence{}, nil
	}
	return Divergence{}, ErrIncompatibilityUnknown
}
