package block

import "github.com/chrondx/indexer/pkg/chainevent"

// AbstractBlock is the capability the segment engine depends on: a block's
// own identifier, its parent's identifier, and whatever chain-specific score
// feeds canonical-tip election rule 2. BitcoinBlock and StacksBlock satisfy
// this structurally; pkg/segment declares its own copy of this interface so
// it never needs to import pkg/block (spec §9: "implement it as an interface
// / trait over concrete block variants rather than by embedding runtime type
// information").
type AbstractBlock interface {
	ID() chainevent.BlockIdentifier
	ParentID() chainevent.BlockIdentifier
	Score() uint64
	ChainName() string
	ToEventBlock() chainevent.Block
}

var (
	_ AbstractBlock = (*BitcoinBlock)(nil)
	_ AbstractBlock = (*StacksBlock)(nil)
)
