package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/cnstrctnetwork/cnstrct/internal/notification"
)

type Publisher struct {
	conn  *amqp091.Connection
	ch    *amqp091.Channel
	queue string
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}

	if err := declare(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

// Notify enqueues msg for the worker. It returns once the broker has the
// message; delivery happens later.
func (p *Publisher) Notify(ctx context.Context, key string, msg notification.Message) error {
	body, err := json.Marshal(Envelope{Key: key, Message: msg})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    key,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}

	return nil
}

func (p *Publisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}

	if p.conn != nil {
		_ = p.conn.Close()
	}
}
