package worker

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flicky/luxbag-api/internal/events"
)

const (
	dlxExchange  = events.OrderQueue + ".dlx"
	dlqQueueName = events.OrderQueue + ".dlq"
)

// SetupRabbitMQ declares the order queue with its dead-letter exchange and
// queue, and limits the channel to one unacknowledged delivery.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, events.OrderQueue, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(events.OrderQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": events.OrderQueue,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

// RabbitMQ is a broker connection with one channel for the consumer and
// another for publishing, so the consumer's QoS never throttles publishes.
type RabbitMQ struct {
	Conn    *amqp.Connection
	Consume *amqp.Channel
	Publish *amqp.Channel
}

// DialRabbitMQ connects to url and declares the order topology on the
// consumer channel.
func DialRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	consume, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open consume channel: %w", err)
	}
	if err := SetupRabbitMQ(consume); err != nil {
		conn.Close()
		return nil, err
	}
	publish, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	return &RabbitMQ{Conn: conn, Consume: consume, Publish: publish}, nil
}

func (r *RabbitMQ) Close() error {
	_ = r.Publish.Close()
	_ = r.Consume.Close()
	return r.Conn.Close()
}

// StartAMQP consumes the order queue until ctx is cancelled or Stop is called.
func (w *OrderWorker) StartAMQP(ctx context.Context, ch *amqp.Channel) error {
	msgs, err := ch.Consume(events.OrderQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	w.run(ctx, func(ctx context.Context) {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processDelivery(ctx, msg)
			case <-ctx.Done():
				return
			}
		}
	})

	w.log.Info("order worker started", "transport", "rabbitmq", "queue", events.OrderQueue)
	return nil
}

func (w *OrderWorker) processDelivery(ctx context.Context, msg amqp.Delivery) {
	err := w.Handle(ctx, msg.Body)
	if err == nil {
		_ = msg.Ack(false)
		return
	}

	requeue := errors.Is(err, errTransient) && !msg.Redelivered
	w.log.Error("handle order event", "message_id", msg.MessageId, "requeue", requeue, "error", err)
	// Without requeue the broker routes the message to the DLQ.
	_ = msg.Nack(false, requeue)
}
