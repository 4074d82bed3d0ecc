package chainevent

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the ChainEvent variants on the wire. Field names are the
// external compatibility surface consumers rely on; do not rename them.
type Kind string

const (
	KindExtendedCanonical   Kind = "extended_canonical"
	KindReorg               Kind = "reorg"
	KindConfirmed           Kind = "confirmed"
	KindMicroblocksExtended Kind = "microblocks_extended"
	KindMicroblocksReorg    Kind = "microblocks_reorg"
	// KindReset signals a divergence with no discoverable common root
	// (first canonical election for a chain, or an operator-triggered
	// reset). Consumers must rebuild downstream state from NewCanonical
	// wholesale rather than apply it as an incremental diff.
	KindReset Kind = "reset"
	// KindDivergenceResetWarning accompanies a Reset event so consumers get
	// an explicit, distinguishable warning signal rather than inferring
	// intent from an otherwise-empty diff.
	KindDivergenceResetWarning Kind = "divergence_reset_warning"
)

// ChainEvent is the tagged sum type emitted to downstream consumers. Only the
// payload fields belonging to Kind are populated (none for a divergence
// reset warning); the rest are left at their zero value and omitted from
// JSON.
type ChainEvent struct {
	Type Kind `json:"type"`

	// ExtendedCanonical / Reset
	NewBlocks []Block `json:"new_blocks,omitempty"`

	// Reorg / MicroblocksReorg
	RolledBack []Block `json:"rolled_back,omitempty"`
	Applied    []Block `json:"applied,omitempty"`

	// Confirmed
	Blocks []Block `json:"blocks,omitempty"`

	// MicroblocksExtended
	Trail []Block `json:"trail,omitempty"`

	// Chain this event belongs to, for multiplexed consumers. Not part of
	// the original spec's per-variant payload but carried on every event
	// since the indexer runs one segment engine per chain and events from
	// both are interleaved on whatever transport embeds this module.
	Chain string `json:"chain"`
}

// Block is the minimal JSON-serializable block representation carried inside
// events. Concrete chain block types (pkg/block) convert to this via
// ToEventBlock so the wire format never depends on chain-specific shapes.
type Block struct {
	ID       BlockIdentifier `json:"id"`
	ParentID BlockIdentifier `json:"parent_id"`
	Chain    string          `json:"chain"`
	// Payload carries chain-specific fields (e.g. transactions) as an
	// already-marshaled JSON document, keeping this type chain-agnostic
	// while still round-tripping everything a consumer needs.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ExtendedCanonical builds the fast-path "no rollback" event.
func ExtendedCanonical(chain string, newBlocks []Block) ChainEvent {
	return ChainEvent{Type: KindExtendedCanonical, Chain: chain, NewBlocks: newBlocks}
}

// Reorg builds a canonical-tip change event. Both lists must be non-empty and
// chronological (oldest first); callers should prefer Reset when there is no
// common root rather than constructing an empty Reorg.
func Reorg(chain string, rolledBack, applied []Block) ChainEvent {
	return ChainEvent{Type: KindReorg, Chain: chain, RolledBack: rolledBack, Applied: applied}
}

// Confirmed builds a finality-sweep event.
func Confirmed(chain string, blocks []Block) ChainEvent {
	return ChainEvent{Type: KindConfirmed, Chain: chain, Blocks: blocks}
}

// MicroblocksExtended builds the microblock fast-path extension event.
func MicroblocksExtended(chain string, trail []Block) ChainEvent {
	return ChainEvent{Type: KindMicroblocksExtended, Chain: chain, Trail: trail}
}

// MicroblocksReorg builds a microblock trail reconciliation event.
func MicroblocksReorg(chain string, rolledBack, applied []Block) ChainEvent {
	return ChainEvent{Type: KindMicroblocksReorg, Chain: chain, RolledBack: rolledBack, Applied: applied}
}

// Reset builds the no-common-root divergence event: consumers rebuild
// downstream state from newCanonical wholesale.
func Reset(chain string, newCanonical []Block) ChainEvent {
	return ChainEvent{Type: KindReset, Chain: chain, NewBlocks: newCanonical}
}

// DivergenceResetWarning builds the companion warning event for a Reset.
func DivergenceResetWarning(chain string) ChainEvent {
	return ChainEvent{Type: KindDivergenceResetWarning, Chain: chain}
}

// Validate checks the structural invariants of an event before it is handed
// to a sink: both sides of a reorg are non-empty, and extension, confirmed
// and microblock-extension events carry at least one block. Block ordering
// is not checked.
func (e ChainEvent) Validate() error {
	switch e.Type {
	case KindReorg, KindMicroblocksReorg:
		if len(e.RolledBack) == 0 || len(e.Applied) == 0 {
			return fmt.Errorf("chainevent: %s event must have non-empty rolled_back and applied", e.Type)
		}
	case KindExtendedCanonical:
		if len(e.NewBlocks) == 0 {
			return fmt.Errorf("chainevent: extended_canonical event must have at least one new block")
		}
	case KindConfirmed:
		if len(e.Blocks) == 0 {
			return fmt.Errorf("chainevent: confirmed event must have at least one block")
		}
	case KindMicroblocksExtended:
		if len(e.Trail) == 0 {
			return fmt.Errorf("chainevent: microblocks_extended event must have at least one microblock")
		}
	}
	return nil
}
