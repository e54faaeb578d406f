package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/events"
	"github.com/noah-isme/backend-pasar/internal/obs"
	"github.com/noah-isme/backend-pasar/internal/order"
	"github.com/noah-isme/backend-pasar/internal/tasks"
)

// ErrAmountMismatch rejects gateway events whose amount disagrees with the
// order total.
var ErrAmountMismatch = errors.New("gateway amount mismatch")

// ErrUnknownOrder is returned when the event references no known order.
var ErrUnknownOrder = errors.New("gateway event references unknown order")

// Enqueuer is the slice of *asynq.Client used for background side effects.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Reconciler applies verified gateway events to orders. All payment marking
// functions it calls are re-entrant, so redelivered events settle to no-ops.
type Reconciler struct {
	Store  order.Store
	Events *events.Bus
	Tasks  Enqueuer
	Now    func() time.Time
	Logger zerolog.Logger
}

func (r *Reconciler) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Apply loads the referenced order, applies the event and persists the result.
// It returns ErrUnknownOrder, ErrAmountMismatch or a storage error; anything
// else means the event was absorbed (possibly as a no-op).
func (r *Reconciler) Apply(ctx context.Context, ev GatewayEvent) error {
	if ev.OrderID == "" {
		return fmt.Errorf("event %s has no order reference: %w", ev.Type, ErrUnknownOrder)
	}
	o, err := r.Store.Get(ctx, ev.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return fmt.Errorf("order %s: %w", ev.OrderID, ErrUnknownOrder)
		}
		return fmt.Errorf("load order %s: %w", ev.OrderID, err)
	}
	// Refunds may be partial, so only full-amount events are cross-checked.
	if ev.Status == EventSucceeded && ev.Amount > 0 && int64(o.Pricing.FinalTotal) != ev.Amount {
		return fmt.Errorf("order %s expects %d got %d: %w", o.ID, o.Pricing.FinalTotal, ev.Amount, ErrAmountMismatch)
	}

	now := r.now()
	if ev.IntentID != "" && o.Payment.IntentID == "" {
		o.Payment.IntentID = ev.IntentID
	}

	var changed bool
	var topic string
	switch ev.Status {
	case EventSucceeded:
		changed = order.MarkPaymentCompleted(&o, now)
		topic = events.TopicOrderPaid
	case EventFailed:
		changed = order.MarkPaymentFailed(&o, now)
		topic = events.TopicPaymentFailed
	case EventRefunded:
		changed = order.MarkPaymentRefunded(&o, ev.RefundID, now)
		topic = events.TopicPaymentRefunded
	default:
		r.Logger.Debug().Str("type", ev.Type).Str("order_id", o.ID).Msg("ignore gateway event")
		return nil
	}
	if !changed {
		return nil
	}
	if err := r.Store.Update(ctx, &o); err != nil {
		return fmt.Errorf("persist order %s after %s: %w", o.ID, ev.Type, err)
	}
	r.afterApply(ctx, &o, ev, topic)
	return nil
}

// afterApply runs the best-effort side effects of a settled event. Failures
// here never fail webhook processing.
func (r *Reconciler) afterApply(ctx context.Context, o *order.Order, ev GatewayEvent, topic string) {
	if r.Events != nil {
		payload := map[string]any{
			"orderId": o.ID,
			"userId":  o.UserID,
			"status":  ev.Status,
			"amount":  ev.Amount,
		}
		if _, err := r.Events.Emit(ctx, topic, o.ID, payload); err != nil {
			r.Logger.Warn().Err(err).Str("order_id", o.ID).Str("topic", topic).Msg("emit payment event")
		}
	}
	if r.Tasks == nil {
		return
	}
	if ev.Status == EventSucceeded {
		for _, it := range o.Items {
			task, err := tasks.NewProductSoldTask(it.ProductID, it.Qty)
			if err == nil {
				_, err = r.Tasks.EnqueueContext(ctx, task)
			}
			if err != nil {
				r.dropSideEffect("sold_increment", o.ID, err)
			}
		}
	}
	task, err := tasks.NewOrderNotifyTask(o.ID, o.UserID, topic)
	if err == nil {
		_, err = r.Tasks.EnqueueContext(ctx, task)
	}
	if err != nil {
		r.dropSideEffect("order_notify", o.ID, err)
	}
}

func (r *Reconciler) dropSideEffect(effect, orderID string, err error) {
	r.Logger.Warn().Err(err).Str("order_id", orderID).Str("effect", effect).Msg("drop background side effect")
	if obs.SideEffectDropTotal != nil {
		obs.SideEffectDropTotal.WithLabelValues(effect).Inc()
	}
}
