package block

import (
	"encoding/json"
	"time"

	"github.com/chrondx/indexer/pkg/chainevent"
)

// PoxCommitment marks a transaction output as a proof-of-transfer commitment:
// BTC burned (or sent to a reward-set PoX address) to back a layered-chain
// leader-election bid. BurnAmount feeds ChainSegment.amount_of_btc_spent.
type PoxCommitment struct {
	BurnAmount  uint64 `json:"burn_amount"`
	RewardCycle uint64 `json:"reward_cycle"`
}

// BitcoinOutput is one output of a Bitcoin transaction.
type BitcoinOutput struct {
	Value     uint64         `json:"value"`
	PoxCommit *PoxCommitment `json:"pox_commit,omitempty"`
}

// BitcoinTransaction is a minimal, chain-specific transaction representation:
// enough structure for downstream diffing and PoX-burn accounting, not full
// script validation (executing/validating transactions is a non-goal).
type BitcoinTransaction struct {
	TxID    chainevent.Hash `json:"txid"`
	Outputs []BitcoinOutput `json:"outputs"`
}

// BitcoinBlock is the normalized representation of a base-layer block.
type BitcoinBlock struct {
	Identifier       chainevent.BlockIdentifier `json:"identifier"`
	ParentIdentifier chainevent.BlockIdentifier `json:"parent_identifier"`
	Timestamp        time.Time                  `json:"timestamp"`
	Transactions     []BitcoinTransaction       `json:"transactions"`
}

// ID implements the segment engine's AbstractBlock capability.
func (b *BitcoinBlock) ID() chainevent.BlockIdentifier { return b.Identifier }

// ParentID implements the segment engine's AbstractBlock capability.
func (b *BitcoinBlock) ParentID() chainevent.BlockIdentifier { return b.ParentIdentifier }

// Score returns the total BTC committed to PoX in this block, the base
// chain's contribution to ChainSegment.amount_of_btc_spent (spec §4.2.3
// rule 2).
func (b *BitcoinBlock) Score() uint64 {
	var total uint64
	for _, tx := range b.Transactions {
		for _, out := range tx.Outputs {
			if out.PoxCommit != nil {
				total += out.PoxCommit.BurnAmount
			}
		}
	}
	return total
}

// ChainName identifies this block's chain for multiplexed logging/metrics.
func (b *BitcoinBlock) ChainName() string { return "bitcoin" }

// ToEventBlock converts to the chain-agnostic wire representation.
func (b *BitcoinBlock) ToEventBlock() chainevent.Block {
	payload, _ := json.Marshal(b)
	return chainevent.Block{
		ID:       b.Identifier,
		ParentID: b.ParentIdentifier,
		Chain:    b.ChainName(),
		Payload:  payload,
	}
}
