package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type AMQPPublisher struct {
	channel *amqp.Channel
	queue   string
}

// NewAMQPPublisher publishes persistent messages to queue through the
// default exchange. The queue topology must already be declared.
func NewAMQPPublisher(ch *amqp.Channel, queue string) *AMQPPublisher {
	return &AMQPPublisher{channel: ch, queue: queue}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event OrderEvent) error {
	body, err := event.Marshal()
	if err != nil {
		return err
	}
	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    event.ID.String(),
		Type:         string(event.Type),
		Timestamp:    event.OccurredAt,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error { return nil }
