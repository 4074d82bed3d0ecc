package chainevent

import "errors"

// ErrMalformedBlock is returned by the normalizer when a raw payload cannot be
// turned into a typed block. Callers treat it as a drop-and-log condition; it
// never poisons pool state. Wrap with fmt.Errorf("%w: ...", ErrMalformedBlock)
// to attach a reason.
var ErrMalformedBlock = errors.New("malformed block payload")

// ErrLockContention is returned when the indexer's exclusive lock could not be
// acquired. Non-fatal: the caller is expected to retry or coalesce, never to
// treat it as a state-mutating failure.
var ErrLockContention = errors.New("unable to lock indexer state")

// ErrSinkClosed is returned by an EventSink whose consumer has gone away. It
// is fatal for the ingestion loop that owns the sink.
var ErrSinkClosed = errors.New("event sink closed")

// ErrSinkFull is returned only by a non-blocking send attempt against a
// bounded sink. The blocking default path never returns it: the indexer is
// designed to block on send rather than drop events.
var ErrSinkFull = errors.New("event sink full")

// ErrBlockUnaccountedFor indicates a block survived the per-segment append
// pass without being accepted by any live segment, seeded as a new segment,
// or filed as an orphan. Per the design notes this is a bug, not a
// recoverable condition, and is never expected to surface from any valid
// input sequence.
var ErrBlockUnaccountedFor = errors.New("block neither appended, seeded, nor orphaned")
