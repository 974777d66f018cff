package claims

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/ports/out/claimsqueue"
)

// Dispatcher hands claim sync jobs to a queue without blocking the caller.
// Each job runs detached from the request context and is bounded by timeout.
type Dispatcher struct {
	queue   claimsqueue.Queue
	timeout time.Duration
	logger  *slog.Logger

	wg sync.WaitGroup
}

func NewDispatcher(queue claimsqueue.Queue, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{queue: queue, timeout: timeout, logger: logger}
}

// Dispatch returns immediately. Failures are logged and otherwise ignored.
func (d *Dispatcher) Dispatch(subject domain.SubjectID, role domain.Role) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		job := claimsqueue.Job{Subject: subject, Role: role}
		if err := d.queue.Enqueue(ctx, job); err != nil {
			d.logger.Warn("claims sync failed",
				"subject", subject,
				"role", role,
				"error", err,
			)
		}
	}()
}

// Drain waits for in-flight jobs or until ctx is done.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
