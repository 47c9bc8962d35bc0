package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const EventOrderCompleted = "order.completed"

// OutboxEvent is a domain event recorded in the same transaction as the change it describes
type OutboxEvent struct {
	ID          uuid.UUID       `json:"id"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// OrderCompletedPayload is the body of an order.completed event.
type OrderCompletedPayload struct {
	OrderID     uuid.UUID   `json:"order_id"`
	UserID      uuid.UUID   `json:"user_id"`
	Items       []OrderItem `json:"items"`
	TotalPrice  string      `json:"total_price"`
	CompletedAt time.Time   `json:"completed_at"`
}

// NewOrderCompletedEvent builds the outbox record for a freshly created order.
func NewOrderCompletedEvent(order *Order) (*OutboxEvent, error) {
	payload, err := json.Marshal(OrderCompletedPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Items:       order.Items,
		TotalPrice:  order.TotalPrice.String(),
		CompletedAt: order.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		ID:          uuid.New(),
		AggregateID: order.ID,
		EventType:   EventOrderCompleted,
		Payload:     payload,
		CreatedAt:   order.CreatedAt,
	}, nil
}
