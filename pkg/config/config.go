// Package config holds the indexer's external contract. Kept a plain literal
// struct, no config-file library, the way the teacher's pkg/config does —
// the surface is small enough (four strings) that a parsing library would
// add nothing.
package config

// IndexerConfig is the core contract named in spec §6. No other knob is part
// of the indexer's public surface; finality depth is a build-time constant
// (see FinalityDepth below), not something an operator tunes at runtime.
type IndexerConfig struct {
	StacksNodeRPCURL        string
	BitcoinNodeRPCURL       string
	BitcoinNodeRPCUsername  string
	BitcoinNodeRPCPassword  string
}

const (
	// BitcoinFinalityDepth is the number of confirmations after which a
	// base-chain block is promoted to Confirmed and pruned from segments.
	BitcoinFinalityDepth uint64 = 7

	// StacksFinalityDepth is the equivalent depth for the layered chain.
	// Lower than Bitcoin's because the layered chain anchors to burnchain
	// blocks and inherits most of its finality from them.
	StacksFinalityDepth uint64 = 1
)

// FinalityDepth returns the build-time finality depth for a chain name.
// Unknown chain names fall back to the stricter of the two, since getting
// this wrong in the permissive direction (pruning too early) would violate
// the finality-monotonicity testable property.
func FinalityDepth(chain string) uint64 {
	switch chain {
	case "bitcoin":
		return BitcoinFinalityDepth
	case "stacks":
		return StacksFinalityDepth
	default:
		return BitcoinFinalityDepth
	}
}
