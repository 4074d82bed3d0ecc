// Package block defines the concrete per-chain block types the normalizer
// produces and the capability interfaces the rest of the indexer consumes.
// Mirrors the teacher's pkg/core/types package, generalized from a single
// coin's block/transaction shape to the two upstream chains this indexer
// tracks.
package block

import "sync"

// AssetClassCache records the symbol/decimals for a fungible-token asset
// class discovered while normalizing Stacks transactions. Restored from the
// original source's StacksChainContext, which the distilled spec compresses
// into "asset-class symbols/decimals".
type AssetClassCache struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// PoxInfo carries the layered chain's proof-of-transfer reward-cycle
// metadata. It is held on ChainContext; the normalizer neither reads nor
// updates it.
type PoxInfo struct {
	RewardCycleID uint64 `json:"reward_cycle_id"`
	CycleLength   uint64 `json:"cycle_length"`
	PreparePhase  bool   `json:"prepare_phase"`
}

// ChainContext is the shared, mutable metadata the normalizer reads on every
// call and occasionally populates with previously unseen asset classes. One
// instance is shared across every call to the Stacks normalizer for the
// lifetime of the indexer.
type ChainContext struct {
	mu           sync.RWMutex
	assetClasses map[string]AssetClassCache
	pox          PoxInfo
}

// NewChainContext returns an empty context.
func NewChainContext() *ChainContext {
	return &ChainContext{assetClasses: make(map[string]AssetClassCache)}
}

// AssetClass looks up a previously registered asset class by its fully
// qualified identifier (e.g. "SP000...contract::token-name").
func (c *ChainContext) AssetClass(id string) (AssetClassCache, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ac, ok := c.assetClasses[id]
	return ac, ok
}

// RegisterAssetClass records a newly observed asset class, overwriting any
// prior entry for the same identifier. Called by the normalizer when a
// transaction's events reveal a symbol/decimals pair it has not cached yet.
func (c *ChainContext) RegisterAssetClass(id string, ac AssetClassCache) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assetClasses[id] = ac
}

// PoxInfo returns the current reward-cycle metadata.
func (c *ChainContext) PoxInfo() PoxInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pox
}

// SetPoxInfo updates the reward-cycle metadata, typically from a burnchain
// block's height relative to the cycle boundaries.
func (c *ChainContext) SetPoxInfo(info PoxInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pox = info
}
