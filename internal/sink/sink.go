// Package sink provides the bounded, blocking-by-default event channel the
// indexer emits ChainEvents onto. Spec §5: the sink must never silently
// drop an event; a full sink blocks its caller (propagating backpressure)
// rather than discarding.
package sink

import (
	"context"
	"sync"

	"github.com/chrondx/indexer/pkg/chainevent"
)

// ErrSinkClosed and ErrSinkFull are chainevent's sentinels, re-exported here
// so callers of this package don't need to import chainevent just to check
// which error they got back.
var (
	ErrSinkClosed = chainevent.ErrSinkClosed
	ErrSinkFull   = chainevent.ErrSinkFull
)

// EventSink is what pkg/indexer emits ChainEvents onto.
type EventSink interface {
	// Emit blocks until the event is enqueued, the sink is closed, or ctx
	// is canceled.
	Emit(ctx context.Context, event chainevent.ChainEvent) error
}

// Channel is a bounded-channel EventSink. Events() exposes the receive side
// for whatever transport (gRPC stream, websocket, log writer) embeds this
// module.
type Channel struct {
	events chan chainevent.ChainEvent

	closeOnce sync.Once
	closed    chan struct{}
}

// NewChannel returns a Channel buffering up to capacity events.
func NewChannel(capacity int) *Channel {
	return &Channel{
		events: make(chan chainevent.ChainEvent, capacity),
		closed: make(chan struct{}),
	}
}

// Emit blocks until event is enqueued, ctx is canceled, or the sink is
// closed.
func (c *Channel) Emit(ctx context.Context, event chainevent.ChainEvent) error {
	select {
	case <-c.closed:
		return ErrSinkClosed
	default:
	}
	select {
	case c.events <- event:
		return nil
	case <-c.closed:
		return ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues event without blocking, for tests and any caller that
// would rather get ErrSinkFull than stall. Not used by pkg/indexer's normal
// ingestion path, which must honor the "never drop" requirement.
func (c *Channel) TrySend(event chainevent.ChainEvent) error {
	select {
	case <-c.closed:
		return ErrSinkClosed
	default:
	}
	select {
	case c.events <- event:
		return nil
	default:
		return ErrSinkFull
	}
}

// Events returns the receive side of the channel.
func (c *Channel) Events() <-chan chainevent.ChainEvent { return c.events }

// Close stops accepting new events. Safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}
