package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// SoldCounter increments product sold counters. Errors propagate so asynq
// retries the task.
type SoldCounter interface {
	IncrementSold(ctx context.Context, productID string, qty int) error
}

// Handlers processes the background tasks enqueued by the API process.
type Handlers struct {
	Sold   SoldCounter
	Logger zerolog.Logger
}

// Mux builds the asynq serve mux with every handler registered.
func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeProductSoldIncrement, h.HandleProductSold)
	mux.HandleFunc(TypeOrderNotify, h.HandleOrderNotify)
	return mux
}

// HandleProductSold applies a sold counter increment.
func (h *Handlers) HandleProductSold(ctx context.Context, t *asynq.Task) error {
	var p ProductSoldPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode product sold payload: %w", err)
	}
	if p.ProductID == "" || p.Qty <= 0 {
		h.Logger.Warn().Str("product_id", p.ProductID).Int("qty", p.Qty).Msg("drop malformed sold increment task")
		return nil
	}
	if err := h.Sold.IncrementSold(ctx, p.ProductID, p.Qty); err != nil {
		return fmt.Errorf("increment sold counter for %s: %w", p.ProductID, err)
	}
	return nil
}

// HandleOrderNotify emits the user-facing order notification. Delivery is a
// structured log line until an outbound channel is wired.
func (h *Handlers) HandleOrderNotify(_ context.Context, t *asynq.Task) error {
	var p OrderNotifyPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode order notify payload: %w", err)
	}
	h.Logger.Info().
		Str("order_id", p.OrderID).
		Str("user_id", p.UserID).
		Str("topic", p.Topic).
		Msg("order notification")
	return nil
}
