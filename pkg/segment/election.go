package segment

import "bytes"

// beats reports whether a should be elected over b, applying the three
// canonical-tip election rules in strict order (spec §4.2.3):
//  1. longer segment wins;
//  2. on a length tie, higher cumulative score wins;
//  3. on a further tie, the lexicographically greater tip hash wins, giving
//     a fully deterministic order regardless of ingestion order or map
//     iteration order.
func beats(a, b *ChainSegment) bool {
	if a.Length() != b.Length() {
		return a.Length() > b.Length()
	}
	if a.CumulativeScore != b.CumulativeScore {
		return a.CumulativeScore > b.CumulativeScore
	}
	aTip, aOK := a.Tip()
	bTip, bOK := b.Tip()
	if !aOK || !bOK {
		// Both empty (or one empty): no tip to compare; treat as already
		// settled by length/score above. Reached only when both segments
		// are empty, which the pool never holds onto, but keep it total.
		return false
	}
	return bytes.Compare(aTip.Hash[:], bTip.Hash[:]) > 0
}

// elect picks the canonical segment from a set of live segments. Returns nil
// if segments is empty. The result does not depend on map iteration order.
func elect(segments map[ID]*ChainSegment) *ChainSegment {
	var best *ChainSegment
	for _, s := range segments {
		if best == nil || beats(s, best) {
			best = s
		}
	}
	return best
}
