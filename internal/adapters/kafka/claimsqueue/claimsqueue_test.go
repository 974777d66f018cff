package claimsqueue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/outstationguru/og-api/internal/domain"
	"github.com/outstationguru/og-api/internal/platform/logging"
	"github.com/outstationguru/og-api/internal/ports/out/claimsqueue"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestWriter_Enqueue_KeysBySubject(t *testing.T) {
	t.Parallel()

	rw := &recordingWriter{}
	w := &Writer{writer: rw, topic: "claims-sync"}

	job := claimsqueue.Job{Subject: domain.SubjectID("u-1"), Role: domain.RoleDriver}
	if err := w.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(rw.msgs) != 1 {
		t.Fatalf("messages=%d, want 1", len(rw.msgs))
	}
	if string(rw.msgs[0].Key) != "u-1" {
		t.Fatalf("key=%q", rw.msgs[0].Key)
	}
	var got claimsqueue.Job
	if err := json.Unmarshal(rw.msgs[0].Value, &got); err != nil || got != job {
		t.Fatalf("payload=%s err=%v", rw.msgs[0].Value, err)
	}
}

func TestWriter_Enqueue_PropagatesWriteError(t *testing.T) {
	t.Parallel()

	w := &Writer{writer: &recordingWriter{err: errors.New("broker down")}, topic: "claims-sync"}
	if err := w.Enqueue(context.Background(), claimsqueue.Job{Subject: "u-1", Role: domain.RoleCustomer}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewWriter_RequiresBrokersAndTopic(t *testing.T) {
	t.Parallel()

	if _, err := NewWriter(nil, "claims-sync"); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewWriter([]string{"localhost:9092"}, ""); err == nil {
		t.Fatalf("expected error without topic")
	}
}

type scriptedReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func TestConsume_HandlesJobsAndSkipsMalformed(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good, _ := json.Marshal(claimsqueue.Job{Subject: "u-1", Role: domain.RoleDriver})
	failing, _ := json.Marshal(claimsqueue.Job{Subject: "u-2", Role: domain.RoleCustomer})
	r := &scriptedReader{
		msgs: []kafka.Message{
			{Value: []byte("not json")},
			{Value: good},
			{Value: failing},
		},
		cancel: cancel,
	}

	var handled []claimsqueue.Job
	err := Consume(ctx, r, time.Second, nil, func(_ context.Context, job claimsqueue.Job) error {
		handled = append(handled, job)
		if job.Subject == "u-2" {
			return errors.New("store down")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if len(handled) != 2 || handled[0].Subject != "u-1" || handled[1].Subject != "u-2" {
		t.Fatalf("handled=%+v", handled)
	}
}

// erroringReader fails every read with err and counts the calls.
type erroringReader struct {
	err   error
	calls int
	stop  int
	// cancel runs once calls reaches stop.
	cancel context.CancelFunc
}

func (r *erroringReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.calls++
	if r.cancel != nil && r.calls >= r.stop {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	return kafka.Message{}, r.err
}

func TestConsume_ClosedReaderEndsLoop(t *testing.T) {
	t.Parallel()

	r := &erroringReader{err: io.EOF}
	if err := Consume(context.Background(), r, time.Second, logging.Discard(), func(context.Context, claimsqueue.Job) error {
		t.Fatalf("handler must not run")
		return nil
	}); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if r.calls != 1 {
		t.Fatalf("reads=%d, want 1", r.calls)
	}
}

func TestConsume_BacksOffOnPersistentReadErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &erroringReader{err: errors.New("broker unreachable"), stop: 4, cancel: cancel}

	start := time.Now()
	if err := Consume(ctx, r, time.Second, logging.Discard(), func(context.Context, claimsqueue.Job) error { return nil }); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if r.calls != 4 {
		t.Fatalf("reads=%d, want 4", r.calls)
	}
	// Three failed reads wait at least half of 50ms, 100ms and 200ms.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("consumer spun without backing off: %v", elapsed)
	}
}
