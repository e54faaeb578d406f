package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/events"
	"github.com/noah-isme/backend-pasar/internal/order"
)

// RefundOnReturn kicks off a gateway refund when an order reaches returned.
// The refund itself settles asynchronously: the gateway's refunded webhook
// flows back through the Reconciler, which marks the payment refunded.
type RefundOnReturn struct {
	Store    order.Store
	Provider Provider
	Logger   zerolog.Logger
}

// Notify implements events.Notifier. Failures are logged and swallowed so a
// gateway outage never blocks the return transition.
func (r RefundOnReturn) Notify(ctx context.Context, ev events.Event) error {
	if ev.Topic != events.TopicOrderReturned || r.Provider == nil || r.Store == nil {
		return nil
	}
	o, err := r.Store.Get(ctx, ev.AggregateID)
	if err != nil {
		r.Logger.Warn().Err(err).Str("order_id", ev.AggregateID).Msg("load order for refund")
		return nil
	}
	if o.Payment.Status != order.PaymentCompleted || o.Payment.IntentID == "" {
		return nil
	}
	refundCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	refundID, err := r.Provider.Refund(refundCtx, o.Payment.IntentID, returnedAmount(ev, &o))
	if err != nil {
		r.Logger.Error().Err(err).Str("order_id", o.ID).Str("intent_id", o.Payment.IntentID).Msg("kick off refund")
		return nil
	}
	r.Logger.Info().Str("order_id", o.ID).Str("refund_id", refundID).Msg("refund initiated")
	return nil
}

// returnedAmount prefers an explicit amount from the event payload and falls
// back to the full order total.
func returnedAmount(ev events.Event, o *order.Order) int64 {
	var payload struct {
		Amount int64 `json:"amount"`
	}
	if err := json.Unmarshal(ev.Payload, &payload); err == nil && payload.Amount > 0 {
		return payload.Amount
	}
	return int64(o.Pricing.FinalTotal)
}
