package segment

import "errors"

// Incompatibility is the classification returned by ChainSegment.CanAppend.
// A closed set of sentinel errors, not an open class hierarchy (spec §9):
// only ErrBlockCollision ever causes the pool to fork a new segment; the
// rest are no-ops for that particular segment (another segment, or a freshly
// seeded one, may still accept the block).
var (
	ErrOutdatedBlock      = errors.New("segment: block older than segment's confirmed height")
	ErrOutdatedSegment    = errors.New("segment: segment is outdated relative to block")
	ErrBlockCollision     = errors.New("segment: a different block already occupies this height")
	ErrParentBlockUnknown = errors.New("segment: tip height matches but parent hash does not")
	ErrAlreadyPresent     = errors.New("segment: block already present at this height")
	ErrIncompatibilityUnknown = errors.New("segment: block incompatible with segment for an unclassified reason")
)
