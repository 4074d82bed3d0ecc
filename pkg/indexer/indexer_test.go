package indexer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrondx/indexer/pkg/chainevent"
	"github.com/chrondx/indexer/pkg/metrics"
	"github.com/chrondx/indexer/pkg/normalize"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

// recordingSink is a test double EventSink that appends every event it's
// handed, optionally blocking until released.
type recordingSink struct {
	mu     sync.Mutex
	events []chainevent.ChainEvent
	block  chan struct{}
}

func newRecordingSink() *recordingSink { return &recordingSink{} }

func (s *recordingSink) Emit(ctx context.Context, ev chainevent.ChainEvent) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) snapshot() []chainevent.ChainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chainevent.ChainEvent, len(s.events))
	copy(out, s.events)
	return out
}

func validHex(tag byte) string {
	h := make([]byte, 64)
	for i := range h {
		h[i] = '0'
	}
	h[63] = "0123456789abcdef"[tag%16]
	return string(h)
}

func newTestIndexer(t *testing.T, sink EventSink) *Indexer {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	return New(sink, collector, testLogger())
}

func TestIndexer_HandleBitcoinBlock_GenesisEmitsExtendedCanonical(t *testing.T) {
	sink := newRecordingSink()
	idx := newTestIndexer(t, sink)

	err := idx.HandleBitcoinBlock(context.Background(), normalize.RawBitcoinBlock{
		Hash: validHex(1), Height: 0, Time: 1700000000,
	})
	require.NoError(t, err)

	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, chainevent.KindExtendedCanonical, events[0].Type)
	assert.Equal(t, "bitcoin", events[0].Chain)

	tip, ok := idx.BitcoinTip()
	require.True(t, ok)
	assert.Equal(t, uint64(0), tip.Index)
}

func TestIndexer_HandleBitcoinBlock_ExtendsAcrossCalls(t *testing.T) {
	sink := newRecordingSink()
	idx := newTestIndexer(t, sink)

	require.NoError(t, idx.HandleBitcoinBlock(context.Background(), normalize.RawBitcoinBlock{
		Hash: validHex(1), Height: 0, Time: 1700000000,
	}))
	require.NoError(t, idx.HandleBitcoinBlock(context.Background(), normalize.RawBitcoinBlock{
		Hash: validHex(2), Height: 1, PrevHash: validHex(1), Time: 1700000001,
	}))

	events := sink.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, chainevent.KindExtendedCanonical, events[1].Type)

	tip, ok := idx.BitcoinTip()
	require.True(t, ok)
	assert.Equal(t, uint64(1), tip.Index)
}

func TestIndexer_HandleBitcoinBlock_MalformedPayloadIsError(t *testing.T) {
	sink := newRecordingSink()
	idx := newTestIndexer(t, sink)

	err := idx.HandleBitcoinBlock(context.Background(), normalize.RawBitcoinBlock{Height: 1, Time: 1700000000})
	assert.ErrorIs(t, err, chainevent.ErrMalformedBlock)
	assert.Empty(t, sink.snapshot())
}

func TestIndexer_HandleStacksBlock_ExtendsAndTracksTip(t *testing.T) {
	sink := newRecordingSink()
	idx := newTestIndexer(t, sink)

	require.NoError(t, idx.HandleStacksBlock(context.Background(), normalize.RawStacksBlock{
		Hash: validHex(1), Height: 0, Time: 1700000000, Weight: 1,
	}))

	tip, ok := idx.StacksTip()
	require.True(t, ok)
	assert.Equal(t, uint64(0), tip.Index)

	require.NoError(t, idx.HandleStacksMicroblock(context.Background(), tip, []normalize.RawStacksMicroblock{
		{Hash: validHex(50)},
	}))

	events := sink.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, chainevent.KindMicroblocksExtended, events[1].Type)
}

func TestIndexer_HandleStacksMicroblock_EarlyTrailIsStashedThenReconciled(t *testing.T) {
	sink := newRecordingSink()
	idx := newTestIndexer(t, sink)

	genesis := normalize.RawStacksBlock{Hash: validHex(1), Height: 0, Time: 1700000000, Weight: 1}
	require.NoError(t, idx.HandleStacksBlock(context.Background(), genesis))
	tip, ok := idx.StacksTip()
	require.True(t, ok)

	futureHash, err := chainevent.HashFromHex(validHex(2))
	require.NoError(t, err)
	future := chainevent.BlockIdentifier{Hash: futureHash, Index: tip.Index + 1}
	require.NoError(t, idx.HandleStacksMicroblock(context.Background(), future, []normalize.RawStacksMicroblock{
		{Hash: validHex(50)},
	}))
	// Stashed against a not-yet-reached anchor: no event emitted yet.
	assert.Len(t, sink.snapshot(), 1)

	require.NoError(t, idx.HandleStacksBlock(context.Background(), normalize.RawStacksBlock{
		Hash: validHex(2), Height: 1, PrevHash: validHex(1), Time: 1700000001, Weight: 1,
	}))

	events := sink.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, chainevent.KindExtendedCanonical, events[1].Type)
	assert.Equal(t, chainevent.KindMicroblocksExtended, events[2].Type)
}

func TestIndexer_ProcessBlock_ReturnsLockContentionUnderContention(t *testing.T) {
	sink := newRecordingSink()
	sink.block = make(chan struct{}) // never released: Emit blocks forever
	idx := newTestIndexer(t, sink)

	done := make(chan struct{})
	go func() {
		_ = idx.HandleBitcoinBlock(context.Background(), normalize.RawBitcoinBlock{
			Hash: validHex(1), Height: 0, Time: 1700000000,
		})
		close(done)
	}()

	// Give the goroutine a chance to acquire the lock and block on Emit.
	time.Sleep(20 * time.Millisecond)

	err := idx.HandleBitcoinBlock(context.Background(), normalize.RawBitcoinBlock{
		Hash: validHex(2), Height: 1, PrevHash: validHex(1), Time: 1700000001,
	})
	assert.ErrorIs(t, err, chainevent.ErrLockContention)

	close(sink.block)
	<-done
}

func TestProcessWithRetry_RetriesOnlyLockContention(t *testing.T) {
	attempts := 0
	err := ProcessWithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return chainevent.ErrLockContention
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestProcessWithRetry_DoesNotRetryOtherErrors(t *testing.T) {
	attempts := 0
	err := ProcessWithRetry(context.Background(), func() error {
		attempts++
		return chainevent.ErrMalformedBlock
	})
	assert.ErrorIs(t, err, chainevent.ErrMalformedBlock)
	assert.Equal(t, 1, attempts)
}
