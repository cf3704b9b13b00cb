package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shoe-erp/internal/core/domain"
)

const OrderCreatedQueue = "order.created"

type OrderCreatedEvent struct {
	EventID    string           `json:"eventId"`
	OrderID    int64            `json:"orderId"`
	ClientID   int64            `json:"clientId"`
	UserID     int64            `json:"userId"`
	Total      decimal.Decimal  `json:"total"`
	Lines      []OrderLineEvent `json:"lines"`
	OccurredAt time.Time        `json:"occurredAt"`
}

type OrderLineEvent struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Broker is the slice of RabbitMQ the publisher needs.
type Broker interface {
	DeclareQueue(name string) error
	Publish(ctx context.Context, queue string, msg amqp.Publishing) error
}

type OrderPublisher struct {
	broker Broker
}

func NewOrderPublisher(broker Broker) (*OrderPublisher, error) {
	if err := broker.DeclareQueue(OrderCreatedQueue); err != nil {
		return nil, err
	}
	return &OrderPublisher{broker: broker}, nil
}

func (p *OrderPublisher) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	event := OrderCreatedEvent{
		EventID:    uuid.NewString(),
		OrderID:    order.ID,
		ClientID:   order.ClientID,
		UserID:     order.UserID,
		Total:      order.Total,
		Lines:      make([]OrderLineEvent, 0, len(order.Lines)),
		OccurredAt: order.CreatedAt,
	}
	for _, l := range order.Lines {
		event.Lines = append(event.Lines, OrderLineEvent{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order.created: %w", err)
	}

	return p.broker.Publish(ctx, OrderCreatedQueue, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID,
		Timestamp:    time.Now().UTC(),
		Type:         OrderCreatedQueue,
		Body:         body,
	})
}
