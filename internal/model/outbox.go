package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outbox event types.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OutboxEvent is a domain event stored in the same transaction as the change it describes.
type OutboxEvent struct {
	ID          int64
	EventID     uuid.UUID
	EventType   string
	AggregateID string
	Payload     []byte
	CreatedAt   time.Time
	SentAt      *time.Time
}

// OrderEvent is the payload of order outbox events.
type OrderEvent struct {
	EventID        uuid.UUID       `json:"event_id"`
	Type           string          `json:"type"`
	OrderID        int64           `json:"order_id"`
	UserID         string          `json:"user_id"`
	Status         OrderStatus     `json:"status"`
	PreviousStatus OrderStatus     `json:"previous_status,omitempty"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
