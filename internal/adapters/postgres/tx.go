package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTxAttempts is the retry budget used when a caller passes attempts <= 0.
const DefaultTxAttempts = 10

// ErrTxConflict is returned by RunSerializable once every attempt failed with a retryable error.
var ErrTxConflict = errors.New("postgres: serializable transaction retries exhausted")

const (
	baseBackoff = 5 * time.Millisecond
	maxBackoff  = 200 * time.Millisecond
)

// RunSerializable runs fn in a SERIALIZABLE transaction, re-running it from scratch on
// serialization failures, deadlocks and unique violations. fn must be safe to re-run.
func RunSerializable(ctx context.Context, pool *pgxpool.Pool, attempts int, fn func(tx pgx.Tx) error) error {
	if pool == nil {
		return errors.New("nil postgres pool")
	}
	opts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	return retrySerializable(ctx, attempts, func() error {
		return pgx.BeginTxFunc(ctx, pool, opts, fn)
	})
}

// retrySerializable re-runs attempt while it fails with a retryable error.
func retrySerializable(ctx context.Context, attempts int, attempt func() error) error {
	if attempts <= 0 {
		attempts = DefaultTxAttempts
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := attempt()
		if err != nil && !IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(newTxBackOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	)
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	if IsRetryable(err) {
		return fmt.Errorf("%w after %d attempts: %v", ErrTxConflict, attempts, err)
	}
	return err
}

// newTxBackOff is exponential with jitter, capped at maxBackoff.
func newTxBackOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     baseBackoff,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         maxBackoff,
	}
}
