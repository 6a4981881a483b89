package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/cnstrctnetwork/cnstrct/internal/metrics"
)

// HandlerFunc processes one delivery body. A nil error acks the delivery,
// a Permanent error drops it and any other error requeues it.
type HandlerFunc func(ctx context.Context, body []byte) error

type Consumer struct {
	conn  *amqp091.Connection
	ch    *amqp091.Channel
	queue string
}

func NewConsumer(url, queue string) (*Consumer, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}

	if err := declare(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, err
	}

	// One unacked delivery at a time.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, fmt.Errorf("setting qos: %w", err)
	}

	return &Consumer{conn: conn, ch: ch, queue: queue}, nil
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx,
		c.queue,
		"worker",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("registering consumer: %w", err)
	}

	slog.Info("consuming notifications", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			c.dispatch(ctx, d, handle)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp091.Delivery, handle HandlerFunc) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("notification handler panicked", "message_id", d.MessageId, "panic", r)

			if err := d.Nack(false, true); err != nil {
				slog.Error("failed to nack delivery", "error", err)
			}
		}
	}()

	err := handle(ctx, d.Body)

	metrics.RecordQueueConsumeLatency(c.queue, time.Since(start))

	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			slog.Error("failed to ack delivery", "error", ackErr)
		}
	case IsPermanent(err):
		slog.Error("dropping notification", "message_id", d.MessageId, "error", err)

		if nackErr := d.Nack(false, false); nackErr != nil {
			slog.Error("failed to nack delivery", "error", nackErr)
		}
	default:
		slog.Error("failed to deliver notification, requeueing", "message_id", d.MessageId, "error", err)

		if nackErr := d.Nack(false, true); nackErr != nil {
			slog.Error("failed to nack delivery", "error", nackErr)
		}
	}
}

func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}

	if c.conn != nil {
		_ = c.conn.Close()
	}
}
