package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// OutboxRepository stores domain events for the relay to publish.
type OutboxRepository struct {
	base
}

// NewOutboxRepository creates a new OutboxRepository with the given pool.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{base{pool: pool}}
}

// NewOutboxRepositoryWithPool creates a new OutboxRepository with a custom pool interface.
// This is primarily used for testing.
func NewOutboxRepositoryWithPool(pool PoolInterface) *OutboxRepository {
	return &OutboxRepository{base{pool: pool}}
}

// Insert stores an event, normally inside the transaction that produced it.
func (r *OutboxRepository) Insert(ctx context.Context, q database.TxQuerier, e *model.OutboxEvent) error {
	err := r.on(q).QueryRow(ctx,
		`INSERT INTO outbox (event_id, event_type, aggregate_id, payload) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		e.EventID, e.EventType, e.AggregateID, e.Payload,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// FetchPending returns up to limit unsent events, oldest first.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, event_type, aggregate_id, payload, created_at
		 FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox: %w", err)
	}
	defer rows.Close()

	events := []model.OutboxEvent{}
	for rows.Next() {
		var e model.OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventType, &e.AggregateID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return events, nil
}

// MarkSent stamps the given events as published.
func (r *OutboxRepository) MarkSent(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `UPDATE outbox SET sent_at = $2 WHERE id = ANY($1)`, ids, at); err != nil {
		return fmt.Errorf("mark outbox sent: %w", err)
	}
	return nil
}
