package claimsqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/outstationguru/og-api/internal/ports/out/claimsqueue"
)

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Writer publishes claim sync jobs to a Kafka topic, keyed by subject so jobs for one
// subject stay ordered within a partition.
type Writer struct {
	writer messageWriter
	topic  string
}

func NewWriter(brokers []string, topic string) (*Writer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("claimsqueue: no kafka brokers configured")
	}
	if topic == "" {
		return nil, errors.New("claimsqueue: topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Writer{writer: w, topic: topic}, nil
}

func (w *Writer) Enqueue(ctx context.Context, job claimsqueue.Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("claimsqueue: marshal job: %w", err)
	}
	if err := w.writer.WriteMessages(ctx, kafka.Message{Key: []byte(job.Subject), Value: b}); err != nil {
		return fmt.Errorf("claimsqueue: write to %s: %w", w.topic, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}
