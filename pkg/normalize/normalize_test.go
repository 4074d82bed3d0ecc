package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrondx/indexer/pkg/block"
)

func validHex(tag byte) string {
	h := make([]byte, 64)
	for i := range h {
		h[i] = '0'
	}
	h[63] = "0123456789abcdef"[tag%16]
	return string(h)
}

func TestStandardizeBitcoinBlock_Genesis(t *testing.T) {
	raw := RawBitcoinBlock{
		Hash:   validHex(1),
		Height: 0,
		Time:   1700000000,
	}
	b, err := StandardizeBitcoinBlock(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), b.Identifier.Index)
	assert.True(t, b.ParentIdentifier.Hash.IsZero())
}

func TestStandardizeBitcoinBlock_MissingHash(t *testing.T) {
	_, err := StandardizeBitcoinBlock(RawBitcoinBlock{Height: 1, PrevHash: validHex(1), Time: 1700000000})
	assert.ErrorIs(t, err, ErrMissingIdentifier)
}

func TestStandardizeBitcoinBlock_MissingParentAboveGenesis(t *testing.T) {
	_, err := StandardizeBitcoinBlock(RawBitcoinBlock{Hash: validHex(2), Height: 1, Time: 1700000000})
	assert.ErrorIs(t, err, ErrMissingParent)
}

func TestStandardizeBitcoinBlock_ScoresPoxCommitments(t *testing.T) {
	raw := RawBitcoinBlock{
		Hash:     validHex(3),
		Height:   1,
		PrevHash: validHex(1),
		Time:     1700000001,
		Transactions: []RawBitcoinTransaction{
			{
				TxID: validHex(9),
				Outputs: []RawBitcoinOutput{
					{Value: 1000, IsPoxCommitment: true, PoxBurnAmount: 500},
					{Value: 2000},
				},
			},
		},
	}
	b, err := StandardizeBitcoinBlock(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), b.Score())
}

func TestStandardizeStacksBlock_RegistersAssetClass(t *testing.T) {
	ctx := block.NewChainContext()
	raw := RawStacksBlock{
		Hash:     validHex(4),
		Height:   1,
		ParentHash: validHex(1),
		Time:     1700000002,
		Weight:   42,
		Transactions: []RawStacksTransaction{
			{
				TxID:   validHex(10),
				Sender: "SP000",
				Type:   "contract_call",
				Events: []RawAssetClassEvent{
					{AssetIdentifier: "SP000.token::foo", Symbol: "FOO", Decimals: 6},
				},
			},
		},
	}
	sb, err := StandardizeStacksBlock(raw, ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), sb.Score())

	ac, ok := ctx.AssetClass("SP000.token::foo")
	require.True(t, ok)
	assert.Equal(t, "FOO", ac.Symbol)
}

func TestStandardizeStacksMicroblockTrail_ChainsParents(t *testing.T) {
	anchor := block.StacksBlock{}
	anchor.Identifier.Index = 10
	raw := []RawStacksMicroblock{
		{Hash: validHex(20)},
		{Hash: validHex(21)},
	}
	trail, err := StandardizeStacksMicroblockTrail(anchor.Identifier, raw, nil)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, anchor.Identifier, trail[0].ParentIdentifier)
	assert.Equal(t, trail[0].Identifier, trail[1].ParentIdentifier)
}

func TestStandardizeStacksMicroblockTrail_EmptyIsError(t *testing.T) {
	_, err := StandardizeStacksMicroblockTrail(block.StacksBlock{}.Identifier, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyMicroblockTrail)
}
