// Package events republishes committed cart changes to RabbitMQ. The
// broker is optional: without it the in-process bus still notifies
// every local subscriber.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/w3bsuki/strike-cart-go/internal/cart"
)

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// Declare the queue so publish never fails due to missing infra
	if _, err := ch.QueueDeclare(CartUpdatedQueue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare %s: %w", CartUpdatedQueue, err)
	}

	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Close() error { return p.ch.Close() }

func (p *Publisher) PublishCartUpdated(ctx context.Context, u cart.Update) error {
	ev := CartUpdated{
		EventType:     "CartUpdated",
		EventID:       uuid.NewString(),
		CorrelationID: u.CorrelationID,
		CartID:        u.CartID,
		Phase:         string(u.Phase),
		Sequence:      u.Seq,
		Cart:          u.Cart,
		Error:         u.Err,
		Timestamp:     time.Now().UTC(),
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal CartUpdated: %w", err)
	}

	return p.ch.PublishWithContext(ctx, "", CartUpdatedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
}
