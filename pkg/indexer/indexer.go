// Package indexer wires the normalizer, the two per-chain segment engines,
// and the microblock trail tracker into the single entry point the rest of
// the system calls: one Indexer instance per deployment, holding exclusive
// access to all chain state behind a single lock (spec §5: single-writer,
// multi-reader). The lock is shared by both chains, so while one chain's
// segments are being updated, tip queries for either chain wait.
package indexer

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/chrondx/indexer/pkg/block"
	"github.com/chrondx/indexer/pkg/chainevent"
	"github.com/chrondx/indexer/pkg/config"
	"github.com/chrondx/indexer/pkg/metrics"
	"github.com/chrondx/indexer/pkg/microblock"
	"github.com/chrondx/indexer/pkg/normalize"
	"github.com/chrondx/indexer/pkg/segment"
)

const (
	chainBitcoin = "bitcoin"
	chainStacks  = "stacks"
)

// EventSink is the capability the indexer emits ChainEvents onto. A copy of
// internal/sink's interface, declared locally so this package does not
// import internal/sink; it's satisfied structurally by *sink.Channel.
type EventSink interface {
	Emit(ctx context.Context, event chainevent.ChainEvent) error
}

// Indexer is the top-level object: one BlockPool per chain, one microblock
// Tracker, and the shared ChainContext the normalizer populates.
type Indexer struct {
	mu sync.RWMutex

	bitcoin *segment.BlockPool
	stacks  *segment.BlockPool
	trail   *microblock.Tracker
	chainCtx *block.ChainContext

	sink    EventSink
	metrics *metrics.Collector
	log     zerolog.Logger
}

// New builds an Indexer with fresh, empty chain state.
func New(sink EventSink, collector *metrics.Collector, log zerolog.Logger) *Indexer {
	return &Indexer{
		bitcoin:  segment.NewBlockPool(chainBitcoin, config.FinalityDepth(chainBitcoin)),
		stacks:   segment.NewBlockPool(chainStacks, config.FinalityDepth(chainStacks)),
		trail:    microblock.NewTracker(),
		chainCtx: block.NewChainContext(),
		sink:     sink,
		metrics:  collector,
		log:      log.With().Str("component", "indexer").Logger(),
	}
}

// HandleBitcoinBlock normalizes and processes a raw base-chain block.
func (idx *Indexer) HandleBitcoinBlock(ctx context.Context, raw normalize.RawBitcoinBlock) error {
	b, err := normalize.StandardizeBitcoinBlock(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", chainevent.ErrMalformedBlock, err)
	}
	return idx.processBlock(ctx, chainBitcoin, idx.bitcoin, b)
}

// HandleStacksBlock normalizes and processes a raw layered-chain anchor
// block.
func (idx *Indexer) HandleStacksBlock(ctx context.Context, raw normalize.RawStacksBlock) error {
	b, err := normalize.StandardizeStacksBlock(raw, idx.chainCtx)
	if err != nil {
		return fmt.Errorf("%w: %v", chainevent.ErrMalformedBlock, err)
	}
	return idx.processBlock(ctx, chainStacks, idx.stacks, b)
}

// HandleStacksMicroblock normalizes and reconciles a freshly observed
// microblock trail against the tracker's current state. anchor identifies
// the anchor block the caller claims this trail is built on — it is never
// inferred from the tracker's own state, since a trail announcing an
// anchor the tracker hasn't reached yet is exactly the case that must be
// stashed rather than silently matched against whatever anchor happens to
// be current (spec §4.3).
func (idx *Indexer) HandleStacksMicroblock(ctx context.Context, anchor chainevent.BlockIdentifier, raw []normalize.RawStacksMicroblock) error {
	if !idx.mu.TryLock() {
		idx.metrics.LockContentionTotal.Inc()
		return chainevent.ErrLockContention
	}
	defer idx.mu.Unlock()

	trail, err := normalize.StandardizeStacksMicroblockTrail(anchor, raw, idx.chainCtx)
	if err != nil {
		return fmt.Errorf("%w: %v", chainevent.ErrMalformedBlock, err)
	}

	ev, err := idx.trail.ProcessTrail(chainStacks, anchor, trail)
	if err != nil {
		return err
	}
	return idx.emitTrailEvent(ctx, ev)
}

// emitTrailEvent validates and emits a ChainEvent produced by the trail
// tracker, tolerating the common nil case (no-op reconciliation).
func (idx *Indexer) emitTrailEvent(ctx context.Context, ev *chainevent.ChainEvent) error {
	if ev == nil {
		return nil
	}
	if err := ev.Validate(); err != nil {
		idx.log.Error().Err(err).Msg("invalid microblock chain event")
		return nil
	}
	return idx.sink.Emit(ctx, *ev)
}

// processBlock runs a single block through the named chain's segment
// engine, updates metrics, and emits every resulting event in order.
func (idx *Indexer) processBlock(ctx context.Context, chain string, pool *segment.BlockPool, b segment.EventBlock) error {
	if !idx.mu.TryLock() {
		idx.metrics.LockContentionTotal.Inc()
		return chainevent.ErrLockContention
	}
	defer idx.mu.Unlock()

	events, err := pool.ProcessBlock(b)
	if err != nil {
		return err
	}

	idx.metrics.BlocksProcessedTotal.WithLabelValues(chain).Inc()
	idx.metrics.SegmentsLive.WithLabelValues(chain).Set(float64(pool.SegmentCount()))
	idx.metrics.OrphansPending.WithLabelValues(chain).Set(float64(pool.OrphanCount()))

	for _, ev := range events {
		idx.recordEventMetrics(chain, ev)
		var trailEv *chainevent.ChainEvent
		if chain == chainStacks {
			trailEv = idx.reconcileTrailState(ev)
		}
		if err := ev.Validate(); err != nil {
			idx.log.Error().Err(err).Str("chain", chain).Msg("invalid chain event, dropping")
			continue
		}
		if err := idx.sink.Emit(ctx, ev); err != nil {
			return err
		}
		// Emitted after the anchor event itself: the trail reconciliation is
		// a consequence of the anchor advancing, so it is ordered after it.
		if trailEv != nil {
			if err := idx.emitTrailEvent(ctx, trailEv); err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcileTrailState keeps the microblock tracker in step with the layered
// chain's canonical tip: a new anchor (extension, reorg, or reset) resets
// the speculative trail, and a confirmed anchor clears any tracker state
// still pointing at it. If a trail had already been stashed against the
// anchor this call advances onto, SetAnchor drains and reconciles it
// immediately, and that reconciliation event is returned for the caller to
// emit alongside the anchor event itself.
func (idx *Indexer) reconcileTrailState(ev chainevent.ChainEvent) *chainevent.ChainEvent {
	switch ev.Type {
	case chainevent.KindExtendedCanonical, chainevent.KindReset:
		if len(ev.NewBlocks) > 0 {
			trailEv, err := idx.trail.SetAnchor(chainStacks, ev.NewBlocks[len(ev.NewBlocks)-1].ID)
			if err != nil {
				idx.log.Error().Err(err).Msg("failed to reconcile stashed microblock trail")
				return nil
			}
			return trailEv
		}
	case chainevent.KindReorg:
		if len(ev.Applied) > 0 {
			trailEv, err := idx.trail.SetAnchor(chainStacks, ev.Applied[len(ev.Applied)-1].ID)
			if err != nil {
				idx.log.Error().Err(err).Msg("failed to reconcile stashed microblock trail")
				return nil
			}
			return trailEv
		}
	case chainevent.KindConfirmed:
		for _, b := range ev.Blocks {
			idx.trail.ReconcileAnchor(b.ID)
		}
	}
	return nil
}

func (idx *Indexer) recordEventMetrics(chain string, ev chainevent.ChainEvent) {
	switch ev.Type {
	case chainevent.KindReorg, chainevent.KindMicroblocksReorg:
		idx.metrics.ReorgsTotal.WithLabelValues(chain).Inc()
		idx.metrics.ReorgDepth.WithLabelValues(chain).Observe(float64(len(ev.RolledBack)))
	case chainevent.KindConfirmed:
		idx.metrics.ConfirmedBlocksTotal.WithLabelValues(chain).Add(float64(len(ev.Blocks)))
	}
}

// BitcoinTip returns the current canonical tip of the base chain. Read-only,
// so it takes the shared lock rather than the exclusive one pool mutation
// needs.
func (idx *Indexer) BitcoinTip() (chainevent.BlockIdentifier, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.bitcoin.CanonicalTip()
}

// StacksTip returns the current canonical tip of the layered chain.
func (idx *Indexer) StacksTip() (chainevent.BlockIdentifier, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.stacks.CanonicalTip()
}
