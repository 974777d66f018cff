package claimsqueue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"

	"github.com/outstationguru/og-api/internal/ports/out/claimsqueue"
)

// messageReader is the subset of *kafka.Reader used by Consume.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Handler applies one job. Errors are logged; the offset is committed regardless,
// since claim sync is best-effort.
type Handler func(ctx context.Context, job claimsqueue.Job) error

type ReaderConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

func NewReader(cfg ReaderConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       1e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Consume reads jobs until ctx is cancelled or the reader is closed. Each job runs under
// its own timeout. Read errors are retried with backoff; a closed reader ends the loop.
func Consume(ctx context.Context, r messageReader, jobTimeout time.Duration, logger *slog.Logger, handle Handler) error {
	if logger == nil {
		logger = slog.Default()
	}
	readBackOff := newReadBackOff()
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			wait := readBackOff.NextBackOff()
			logger.ErrorContext(ctx, "kafka read failed", "error", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		readBackOff.Reset()

		var job claimsqueue.Job
		if err := json.Unmarshal(msg.Value, &job); err != nil || job.Subject == "" || job.Role == "" {
			logger.WarnContext(ctx, "dropping malformed claims job", "offset", msg.Offset, "partition", msg.Partition)
			continue
		}

		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		if err := handle(jobCtx, job); err != nil {
			logger.WarnContext(ctx, "claims job failed", "subject", job.Subject, "role", job.Role, "error", err)
		}
		cancel()
	}
}

const (
	readRetryInitial = 50 * time.Millisecond
	readRetryMax     = 10 * time.Second
)

func newReadBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     readRetryInitial,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         readRetryMax,
	}
	b.Reset()
	return b
}
