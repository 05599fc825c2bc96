package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// OutboxStore is the outbox side of the relay.
type OutboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkSent(ctx context.Context, ids []int64, at time.Time) error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates a writer that keys messages by aggregate id, so all
// events for one order land on the same partition in order.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// OutboxRelay publishes unsent outbox rows. Delivery is at least once: a row
// is marked sent only after the broker accepted its batch.
type OutboxRelay struct {
	store     OutboxStore
	writer    MessageWriter
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

const defaultRelayInterval = time.Second

// NewOutboxRelay creates a relay polling every interval for up to batchSize rows.
func NewOutboxRelay(store OutboxStore, writer MessageWriter, interval time.Duration, batchSize int) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = defaultRelayInterval
	}
	return &OutboxRelay{
		store:     store,
		writer:    writer,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// RelayOnce publishes one batch and returns how many rows were marked sent.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	events, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch pending events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, len(events))
	ids := make([]int64, len(events))
	for i, e := range events {
		msgs[i] = kafka.Message{
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Time:  e.CreatedAt.UTC(),
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(e.EventID.String())},
				{Key: "event_type", Value: []byte(e.EventType)},
			},
		}
		ids[i] = e.ID
	}

	if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish %d events: %w", len(msgs), err)
	}
	if err := r.store.MarkSent(ctx, ids, r.now().UTC()); err != nil {
		// Published but not marked: the batch goes out again next tick.
		return 0, fmt.Errorf("mark %d events sent: %w", len(ids), err)
	}
	return len(ids), nil
}

// Run relays until ctx is cancelled, draining full batches without waiting.
func (r *OutboxRelay) Run(ctx context.Context) {
	log.Info().Dur("interval", r.interval).Int("batch_size", r.batchSize).Msg("outbox relay started")
	defer log.Info().Msg("outbox relay stopped")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		n, err := r.RelayOnce(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("outbox relay failed")
		} else if n > 0 {
			log.Debug().Int("events", n).Msg("outbox events published")
		}
		if err == nil && n == r.batchSize {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
