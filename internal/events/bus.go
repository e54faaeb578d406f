// Package events persists domain events and fans them out to notifiers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is a persisted domain event.
type Event struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// Store defines the persistence operations required by the event bus.
type Store interface {
	InsertEvent(ctx context.Context, topic, aggregateID string, payload []byte) (Event, error)
}

// Notifier reacts to emitted events (e.g. queue dispatch, metrics).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Bus persists domain events and dispatches them to downstream handlers.
type Bus struct {
	Store     Store
	Notifiers []Notifier
}

// Emit records the event and dispatches it to all configured notifiers.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID string, payload any) (Event, error) {
	if b == nil || b.Store == nil {
		return Event{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	if aggregateID == "" {
		return Event{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev, err := b.Store.InsertEvent(ctx, topic, aggregateID, encoded)
	if err != nil {
		return Event{}, fmt.Errorf("events: persist event: %w", err)
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		if len(v) == 0 {
			return []byte("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid JSON")
		}
		return v, nil
	case json.RawMessage:
		return encodePayload([]byte(v))
	default:
		return json.Marshal(payload)
	}
}
