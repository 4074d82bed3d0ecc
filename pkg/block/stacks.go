package block

import (
	"encoding/json"
	"time"

	"github.com/chrondx/indexer/pkg/chainevent"
)

// AssetClassEvent is a fungible-token transfer/mint/burn event attached to a
// Stacks transaction. The normalizer uses these to populate ChainContext's
// asset-class cache the first time a given asset identifier is observed.
type AssetClassEvent struct {
	AssetIdentifier string `json:"asset_identifier"`
	Symbol          string `json:"symbol"`
	Decimals        uint8  `json:"decimals"`
}

// StacksTransaction is a minimal, chain-specific transaction representation.
type StacksTransaction struct {
	TxID   chainevent.Hash   `json:"txid"`
	Sender string            `json:"sender"`
	Type   string            `json:"type"`
	Events []AssetClassEvent `json:"events,omitempty"`
}

// StacksBlock is the normalized representation of a layered-chain anchor
// block. Weight carries whatever cumulative-work/cumulative-weight metadata
// the upstream node reports; it plays the role "amount_of_btc_spent" plays
// for the base chain in canonical-tip election rule 2 (spec §4.2.3).
type StacksBlock struct {
	Identifier       chainevent.BlockIdentifier `json:"identifier"`
	ParentIdentifier chainevent.BlockIdentifier `json:"parent_identifier"`
	Timestamp        time.Time                  `json:"timestamp"`
	BurnBlockHeight  uint64                     `json:"burn_block_height"`
	Weight           uint64                     `json:"weight"`
	Transactions     []StacksTransaction        `json:"transactions"`
}

// ID implements the segment engine's AbstractBlock capability.
func (s *StacksBlock) ID() chainevent.BlockIdentifier { return s.Identifier }

// ParentID implements the segment engine's AbstractBlock capability.
func (s *StacksBlock) ParentID() chainevent.BlockIdentifier { return s.ParentIdentifier }

// Score returns the cumulative weight used for canonical-tip tie-breaking.
func (s *StacksBlock) Score() uint64 { return s.Weight }

// ChainName identifies this block's chain for multiplexed logging/metrics.
func (s *StacksBlock) ChainName() string { return "stacks" }

// ToEventBlock converts to the chain-agnostic wire representation.
func (s *StacksBlock) ToEventBlock() chainevent.Block {
	payload, _ := json.Marshal(s)
	return chainevent.Block{
		ID:       s.Identifier,
		ParentID: s.ParentIdentifier,
		Chain:    s.ChainName(),
		Payload:  payload,
	}
}

// StacksMicroblock is a speculative microblock appended to the current
// layered-chain tip. ParentIdentifier references either another microblock
// in the same trail or, at trail position 0, the anchoring StacksBlock.
type StacksMicroblock struct {
	Identifier       chainevent.BlockIdentifier `json:"identifier"`
	ParentIdentifier chainevent.BlockIdentifier `json:"parent_identifier"`
	AnchorIdentifier chainevent.BlockIdentifier `json:"anchor_identifier"`
	Transactions     []StacksTransaction        `json:"transactions"`
}

// ID returns the microblock's own identifier.
func (m *StacksMicroblock) ID() chainevent.BlockIdentifier { return m.Identifier }

// ParentID returns the parent microblock's identifier, or the anchor's
// identifier when this is the first microblock in the trail.
func (m *StacksMicroblock) ParentID() chainevent.BlockIdentifier { return m.ParentIdentifier }

// ToEventBlock converts to the chain-agnostic wire representation.
func (m *StacksMicroblock) ToEventBlock() chainevent.Block {
	payload, _ := json.Marshal(m)
	return chainevent.Block{
		ID:       m.Identifier,
		ParentID: m.ParentIdentifier,
		Chain:    "stacks",
		Payload:  payload,
	}
}
