package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pasar/internal/events"
)

// EventStore appends domain events to the durable log table.
type EventStore struct {
	Pool *pgxpool.Pool
}

// InsertEvent persists one event and returns it with its generated identity.
func (s *EventStore) InsertEvent(ctx context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	if s == nil || s.Pool == nil {
		return events.Event{}, ErrUnavailable
	}
	ev := events.Event{
		ID:          uuid.NewString(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO events (id, topic, aggregate_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5)`, ev.ID, ev.Topic, ev.AggregateID, ev.Payload, ev.OccurredAt)
	if err != nil {
		return events.Event{}, fmt.Errorf("insert event %s for %s: %w", topic, aggregateID, err)
	}
	return ev, nil
}
