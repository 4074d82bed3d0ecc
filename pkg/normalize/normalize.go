// Package normalize turns raw node-RPC payloads into the concrete block
// types pkg/block defines, the step that sits between ingestion and the
// segment engine (spec §2's data flow: raw payload → normalizer → segment
// engine). It validates the shape of what it's given; it does not validate
// proof-of-work, signatures, or any other chain-consensus rule — that is
// explicitly out of scope (a non-goal).
package normalize

import (
	"errors"
	"fmt"
	"time"

	"github.com/chrondx/indexer/pkg/block"
	"github.com/chrondx/indexer/pkg/chainevent"
)

var (
	ErrMissingIdentifier   = errors.New("normalize: block payload is missing an identifier")
	ErrMissingParent       = errors.New("normalize: block payload is missing a parent identifier")
	ErrInvalidTimestamp    = errors.New("normalize: block timestamp is zero or unparseable")
	ErrEmptyMicroblockTrail = errors.New("normalize: microblock trail payload is empty")
)

// RawBitcoinBlock is the shape a Bitcoin-like node RPC is expected to return.
// Field names mirror common RPC conventions closely enough that a thin JSON
// unmarshal populates this directly; StandardizeBitcoinBlock does the rest.
type RawBitcoinBlock struct {
	Hash         string
	Height       uint64
	PrevHash     string
	Time         int64
	Transactions []RawBitcoinTransaction
}

type RawBitcoinTransaction struct {
	TxID    string
	Outputs []RawBitcoinOutput
}

type RawBitcoinOutput struct {
	Value           uint64
	PoxBurnAmount   uint64
	PoxRewardCycle  uint64
	IsPoxCommitment bool
}

// StandardizeBitcoinBlock converts a raw node payload into a block.BitcoinBlock.
func StandardizeBitcoinBlock(raw RawBitcoinBlock) (*block.BitcoinBlock, error) {
	if raw.Hash == "" {
		return nil, ErrMissingIdentifier
	}
	if raw.Height > 0 && raw.PrevHash == "" {
		return nil, ErrMissingParent
	}
	if raw.Time <= 0 {
		return nil, ErrInvalidTimestamp
	}

	hash, err := chainevent.HashFromHex(raw.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingIdentifier, err)
	}
	var parentHash chainevent.Hash
	if raw.PrevHash != "" {
		parentHash, err = chainevent.HashFromHex(raw.PrevHash)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingParent, err)
		}
	}
	var parentIdentifier chainevent.BlockIdentifier
	if raw.Height > 0 {
		parentIdentifier = chainevent.BlockIdentifier{Index: raw.Height - 1, Hash: parentHash}
	}

	txs := make([]block.BitcoinTransaction, 0, len(raw.Transactions))
	for _, rawTx := range raw.Transactions {
		tx, err := standardizeBitcoinTransaction(rawTx)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return &block.BitcoinBlock{
		Identifier:       chainevent.BlockIdentifier{Index: raw.Height, Hash: hash},
		ParentIdentifier: parentIdentifier,
		Timestamp:        time.Unix(raw.Time, 0).UTC(),
		Transactions:     txs,
	}, nil
}

func standardizeBitcoinTransaction(raw RawBitcoinTransaction) (block.BitcoinTransaction, error) {
	txid, err := chainevent.HashFromHex(raw.TxID)
	if err != nil {
		return block.BitcoinTransaction{}, fmt.Errorf("%w: %v", ErrMissingIdentifier, err)
	}
	outputs := make([]block.BitcoinOutput, 0, len(raw.Outputs))
	for _, rawOut := range raw.Outputs {
		out := block.BitcoinOutput{Value: rawOut.Value}
		if rawOut.IsPoxCommitment {
			out.PoxCommit = &block.PoxCommitment{
				BurnAmount:  rawOut.PoxBurnAmount,
				RewardCycle: rawOut.PoxRewardCycle,
			}
		}
		outputs = append(outputs, out)
	}
	return block.BitcoinTransaction{TxID: txid, Outputs: outputs}, nil
}

// RawStacksBlock mirrors a layered-chain node's anchor-block RPC response.
type RawStacksBlock struct {
	Hash            string
	Height          uint64
	ParentHash      string
	Time            int64
	BurnBlockHeight uint64
	Weight          uint64
	Transactions    []RawStacksTransaction
}

type RawStacksTransaction struct {
	TxID   string
	Sender string
	Type   string
	Events []RawAssetClassEvent
}

type RawAssetClassEvent struct {
	AssetIdentifier string
	Symbol          string
	Decimals        uint8
}

// StandardizeStacksBlock converts a raw node payload into a block.StacksBlock,
// registering any newly-observed asset class onto the shared ChainContext.
func StandardizeStacksBlock(raw RawStacksBlock, ctx *block.ChainContext) (*block.StacksBlock, error) {
	if raw.Hash == "" {
		return nil, ErrMissingIdentifier
	}
	if raw.Height > 0 && raw.ParentHash == "" {
		return nil, ErrMissingParent
	}
	if raw.Time <= 0 {
		return nil, ErrInvalidTimestamp
	}

	hash, err := chainevent.HashFromHex(raw.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingIdentifier, err)
	}
	var parentIdentifier chainevent.BlockIdentifier
	if raw.Height > 0 {
		parentHash, err := chainevent.HashFromHex(raw.ParentHash)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingParent, err)
		}
		parentIdentifier = chainevent.BlockIdentifier{Index: raw.Height - 1, Hash: parentHash}
	}

	txs := make([]block.StacksTransaction, 0, len(raw.Transactions))
	for _, rawTx := range raw.Transactions {
		tx, err := standardizeStacksTransaction(rawTx, ctx)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return &block.StacksBlock{
		Identifier:       chainevent.BlockIdentifier{Index: raw.Height, Hash: hash},
		ParentIdentifier: parentIdentifier,
		Timestamp:        time.Unix(raw.Time, 0).UTC(),
		BurnBlockHeight:  raw.BurnBlockHeight,
		Weight:           raw.Weight,
		Transactions:     txs,
	}, nil
}

func standardizeStacksTransaction(raw RawStacksTransaction, ctx *block.ChainContext) (block.StacksTransaction, error) {
	txid, err := chainevent.HashFromHex(raw.TxID)
	if err != nil {
		return block.StacksTransaction{}, fmt.Errorf("%w: %v", ErrMissingIdentifier, err)
	}
	events := make([]block.AssetClassEvent, 0, len(raw.Events))
	for _, rawEv := range raw.Events {
		if ctx != nil {
			if _, known := ctx.AssetClass(rawEv.AssetIdentifier); !known {
				ctx.RegisterAssetClass(rawEv.AssetIdentifier, block.AssetClassCache{
					Symbol:   rawEv.Symbol,
					Decimals: rawEv.Decimals,
				})
			}
		}
		events = append(events, block.AssetClassEvent{
			AssetIdentifier: rawEv.AssetIdentifier,
			Symbol:          rawEv.Symbol,
			Decimals:        rawEv.Decimals,
		})
	}
	return block.StacksTransaction{TxID: txid, Sender: raw.Sender, Type: raw.Type, Events: events}, nil
}

// RawStacksMicroblock mirrors one microblock in a node's microblock-trail
// RPC response.
type RawStacksMicroblock struct {
	Hash         string
	Sequence     uint64
	ParentHash   string
	Transactions []RawStacksTransaction
}

// StandardizeStacksMicroblockTrail converts a raw trail, anchored on the
// given anchor block identifier, into block.StacksMicroblock values in the
// order given (index 0 is anchored directly on the anchor block). The
// Sequence field is not read, so the input must already be in trail order.
func StandardizeStacksMicroblockTrail(anchor chainevent.BlockIdentifier, raw []RawStacksMicroblock, ctx *block.ChainContext) ([]*block.StacksMicroblock, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyMicroblockTrail
	}

	trail := make([]*block.StacksMicroblock, 0, len(raw))
	parent := anchor
	for _, rawMb := range raw {
		if rawMb.Hash == "" {
			return nil, ErrMissingIdentifier
		}
		hash, err := chainevent.HashFromHex(rawMb.Hash)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingIdentifier, err)
		}
		id := chainevent.BlockIdentifier{Index: anchor.Index, Hash: hash}

		txs := make([]block.StacksTransaction, 0, len(rawMb.Transactions))
		for _, rawTx := range rawMb.Transactions {
			tx, err := standardizeStacksTransaction(rawTx, ctx)
			if err != nil {
				return nil, err
			}
			txs = append(txs, tx)
		}

		mb := &block.StacksMicroblock{
			Identifier:       id,
			ParentIdentifier: parent,
			AnchorIdentifier: anchor,
			Transactions:     txs,
		}
		trail = append(trail, mb)
		parent = id
	}
	return trail, nil
}
