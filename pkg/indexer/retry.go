package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/chrondx/indexer/pkg/chainevent"
)

// ProcessWithRetry wraps a single Handle* call with exponential backoff,
// retrying only on ErrLockContention. A Handle* method itself never retries
// internally — it surfaces lock contention immediately so a caller that
// wants to batch several independent chains doesn't stall behind one that's
// busy; this is the opt-in retry wrapper for callers that do want to wait.
func ProcessWithRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 5 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, chainevent.ErrLockContention) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(policy, ctx))
}
