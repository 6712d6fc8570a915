// Package events publishes order lifecycle events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/luxbag-api/internal/model"
)

type Type string

const (
	OrderPlaced        Type = "order.placed"
	OrderStatusChanged Type = "order.status_changed"
)

// OrderQueue is the RabbitMQ queue and the default Kafka topic.
const OrderQueue = "orders"

type OrderEvent struct {
	ID         uuid.UUID         `json:"id"`
	Type       Type              `json:"type"`
	OrderID    uuid.UUID         `json:"orderId"`
	UserID     uuid.UUID         `json:"userId"`
	Status     model.OrderStatus `json:"status"`
	OccurredAt time.Time         `json:"occurredAt"`
}

func NewOrderEvent(t Type, order *model.Order) OrderEvent {
	return OrderEvent{
		ID:         uuid.New(),
		Type:       t,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		OccurredAt: time.Now().UTC(),
	}
}

func (e OrderEvent) Marshal() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal order event: %w", err)
	}
	return body, nil
}

// Decode parses and validates an event body.
func Decode(body []byte) (OrderEvent, error) {
	var e OrderEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return OrderEvent{}, fmt.Errorf("unmarshal order event: %w", err)
	}
	if e.ID == uuid.Nil || e.OrderID == uuid.Nil {
		return OrderEvent{}, fmt.Errorf("order event missing id or orderId")
	}
	if e.Type != OrderPlaced && e.Type != OrderStatusChanged {
		return OrderEvent{}, fmt.Errorf("unknown order event type %q", e.Type)
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NopPublisher drops every event. Used when EVENTS_DRIVER=none.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }
