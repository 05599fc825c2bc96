package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// recordOrderEvent writes an order event to the outbox inside the caller's transaction.
func recordOrderEvent(ctx context.Context, outbox OutboxRepositoryInterface, tx database.TxQuerier,
	eventType string, order *model.Order, previous model.OrderStatus, at time.Time) error {
	if outbox == nil {
		return nil
	}

	eventID := uuid.New()
	payload, err := json.Marshal(model.OrderEvent{
		EventID:        eventID,
		Type:           eventType,
		OrderID:        order.ID,
		UserID:         order.UserID,
		Status:         order.Status,
		PreviousStatus: previous,
		FinalAmount:    order.FinalAmount,
		OccurredAt:     at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	err = outbox.Insert(ctx, tx, &model.OutboxEvent{
		EventID:     eventID,
		EventType:   eventType,
		AggregateID: strconv.FormatInt(order.ID, 10),
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("insert %s event: %w", eventType, err)
	}
	return nil
}

// lockErr wraps err from a locking statement, tagging lock waits that timed out.
func lockErr(op string, err error) error {
	if database.IsLockTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrLockTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
