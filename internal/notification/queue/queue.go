// Package queue moves notification emails through RabbitMQ so the webhook
// path never waits on the email provider.
package queue

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/cnstrctnetwork/cnstrct/internal/notification"
)

// DefaultQueue is the durable queue notifications are published to.
const DefaultQueue = "notifications.email"

// Envelope is the wire form of a queued notification. Key identifies the
// logical message so redeliveries can be recognised.
type Envelope struct {
	Key     string               `json:"key"`
	Message notification.Message `json:"message"`
}

func dial(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("opening channel: %w", err)
	}

	return conn, ch, nil
}

func declare(ch *amqp091.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declaring queue %s: %w", name, err)
	}

	return nil
}
