package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/events"
	"github.com/noah-isme/backend-pasar/internal/obs"
)

// Service applies state-machine transitions against persisted orders.
type Service struct {
	Store  Store
	Events *events.Bus
	Now    func() time.Time
	Logger zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Get loads an order owned by the given user.
func (s *Service) Get(ctx context.Context, userID, orderID string) (Order, error) {
	if s == nil || s.Store == nil {
		return Order{}, errors.New("order service not configured")
	}
	o, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if userID != "" && o.UserID != userID {
		return Order{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return o, nil
}

// ListByUser returns the user's orders.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("order service not configured")
	}
	return s.Store.ListByUser(ctx, userID)
}

// AdvanceItem applies a fulfillment transition to one item of the user's
// order and persists the result.
func (s *Service) AdvanceItem(ctx context.Context, userID, orderID, itemID string, next Status, notes string) (Order, error) {
	return s.transition(ctx, userID, orderID, func(o *Order, now time.Time) (bool, error) {
		return AdvanceItem(o, itemID, next, notes, now)
	}, next)
}

// CancelItem cancels one item of the user's order.
func (s *Service) CancelItem(ctx context.Context, userID, orderID, itemID, notes string) (Order, error) {
	return s.transition(ctx, userID, orderID, func(o *Order, now time.Time) (bool, error) {
		return CancelItem(o, itemID, notes, now)
	}, StatusCancelled)
}

// ReturnItem moves a delivered item of the user's order into the returned
// state.
func (s *Service) ReturnItem(ctx context.Context, userID, orderID, itemID, notes string) (Order, error) {
	return s.transition(ctx, userID, orderID, func(o *Order, now time.Time) (bool, error) {
		return ReturnItem(o, itemID, notes, now)
	}, StatusReturned)
}

func (s *Service) transition(ctx context.Context, userID, orderID string, apply func(*Order, time.Time) (bool, error), target Status) (Order, error) {
	o, err := s.Get(ctx, userID, orderID)
	if err != nil {
		s.observe(target, "error")
		return Order{}, err
	}
	before := o.Status
	changed, err := apply(&o, s.now())
	if err != nil {
		s.observe(target, "rejected")
		return Order{}, err
	}
	if !changed {
		s.observe(target, "noop")
		return o, nil
	}
	if err := s.Store.Update(ctx, &o); err != nil {
		s.observe(target, "error")
		return Order{}, err
	}
	s.observe(target, "ok")
	s.emitAggregateChange(ctx, before, &o)
	return o, nil
}

func (s *Service) emitAggregateChange(ctx context.Context, before Status, o *Order) {
	if s.Events == nil || before == o.Status {
		return
	}
	topic := ""
	switch o.Status {
	case StatusCancelled:
		topic = events.TopicOrderCanceled
	case StatusReturned:
		topic = events.TopicOrderReturned
	}
	if topic == "" {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, o.ID, map[string]any{"orderId": o.ID, "status": o.Status}); err != nil {
		s.Logger.Warn().Err(err).Str("order_id", o.ID).Str("topic", topic).Msg("emit order status event")
	}
}

func (s *Service) observe(target Status, result string) {
	if obs.OrderTransitionTotal == nil {
		return
	}
	obs.OrderTransitionTotal.WithLabelValues(string(target), result).Inc()
}
