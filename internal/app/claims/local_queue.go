package claims

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/outstationguru/og-api/internal/ports/out/claimsqueue"
)

// LocalQueue applies jobs in the calling goroutine, retrying failed syncs with
// exponential backoff starting at the configured interval.
type LocalQueue struct {
	sync     *Synchronizer
	attempts int
	backoff  time.Duration
}

func NewLocalQueue(sync *Synchronizer, attempts int, interval time.Duration) *LocalQueue {
	if attempts < 1 {
		attempts = 1
	}
	return &LocalQueue{sync: sync, attempts: attempts, backoff: interval}
}

func (q *LocalQueue) Enqueue(ctx context.Context, job claimsqueue.Job) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, q.sync.Sync(ctx, job.Subject, job.Role)
	},
		backoff.WithBackOff(&backoff.ExponentialBackOff{
			InitialInterval:     q.backoff,
			RandomizationFactor: 0.2,
			Multiplier:          2,
			MaxInterval:         8 * q.backoff,
		}),
		backoff.WithMaxTries(uint(q.attempts)),
		backoff.WithMaxElapsedTime(0),
	)
	return err
}
