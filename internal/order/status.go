package order

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition indicates an illegal status jump. The error message
// names the required intermediate step.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrItemNotFound indicates the order has no item with the given id.
var ErrItemNotFound = errors.New("order item not found")

// forwardOrder is the single-step progression for active items.
var forwardOrder = []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered}

func rank(s Status) int {
	for i, fs := range forwardOrder {
		if fs == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether the status admits no further transitions through
// AdvanceItem.
func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturned
}

// AdvanceItem applies a requested status to one item. Items move forward by
// exactly one step per call; skipping fails with ErrInvalidTransition naming
// the required intermediate step. Cancellation is reachable from any
// non-terminal state. A backward or same-state request is an explicit no-op:
// the call succeeds and changes nothing. It reports whether the order changed.
func AdvanceItem(o *Order, itemID string, next Status, notes string, now time.Time) (bool, error) {
	it := o.item(itemID)
	if it == nil {
		return false, fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
	}
	switch next {
	case StatusCancelled:
		return cancelItem(o, it, notes, now)
	case StatusReturned:
		return false, fmt.Errorf("returns go through the return flow: %w", ErrInvalidTransition)
	}
	nr := rank(next)
	if nr < 0 {
		return false, fmt.Errorf("unknown status %q: %w", next, ErrInvalidTransition)
	}
	cr := rank(it.Status)
	if cr < 0 {
		return false, fmt.Errorf("item is %s: %w", it.Status, ErrInvalidTransition)
	}
	if nr <= cr {
		return false, nil
	}
	if nr > cr+1 {
		return false, fmt.Errorf("cannot move from %s to %s, next step is %s: %w",
			it.Status, next, forwardOrder[cr+1], ErrInvalidTransition)
	}
	applyItemStatus(it, next, notes, now)
	refreshAggregate(o, now)
	o.UpdatedAt = now
	return true, nil
}

// CancelItem cancels one item from any non-terminal state.
func CancelItem(o *Order, itemID, notes string, now time.Time) (bool, error) {
	it := o.item(itemID)
	if it == nil {
		return false, fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
	}
	return cancelItem(o, it, notes, now)
}

func cancelItem(o *Order, it *Item, notes string, now time.Time) (bool, error) {
	if it.Status == StatusCancelled {
		return false, nil
	}
	if it.Status == StatusDelivered || it.Status == StatusReturned {
		return false, fmt.Errorf("cannot cancel a %s item: %w", it.Status, ErrInvalidTransition)
	}
	applyItemStatus(it, StatusCancelled, notes, now)
	refreshAggregate(o, now)
	o.UpdatedAt = now
	return true, nil
}

// ReturnItem moves a delivered item into the returned state. This is the only
// path into StatusReturned.
func ReturnItem(o *Order, itemID, notes string, now time.Time) (bool, error) {
	it := o.item(itemID)
	if it == nil {
		return false, fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
	}
	if it.Status == StatusReturned {
		return false, nil
	}
	if it.Status != StatusDelivered {
		return false, fmt.Errorf("only delivered items can be returned, item is %s: %w", it.Status, ErrInvalidTransition)
	}
	applyItemStatus(it, StatusReturned, notes, now)
	refreshAggregate(o, now)
	o.UpdatedAt = now
	return true, nil
}

// AutoConfirmPending advances every still-pending item to confirmed with a
// synthetic history note. It is re-entrant: repeat calls after the first add
// no further history entries.
func AutoConfirmPending(o *Order, now time.Time) bool {
	changed := false
	for i := range o.Items {
		if o.Items[i].Status != StatusPending {
			continue
		}
		applyItemStatus(&o.Items[i], StatusConfirmed, "auto-confirmed after payment completion", now)
		changed = true
	}
	if changed {
		refreshAggregate(o, now)
		o.UpdatedAt = now
	}
	return changed
}

// MarkPaymentCompleted records a completed payment, stamps the paid timestamp
// once and auto-confirms pending items. Safe to call repeatedly.
func MarkPaymentCompleted(o *Order, now time.Time) bool {
	changed := false
	if o.Payment.Status != PaymentCompleted {
		o.Payment.Status = PaymentCompleted
		changed = true
	}
	if o.Timeline.PaidAt == nil {
		at := now
		o.Timeline.PaidAt = &at
		changed = true
	}
	if AutoConfirmPending(o, now) {
		changed = true
	}
	if changed {
		o.UpdatedAt = now
	}
	return changed
}

// MarkPaymentFailed records a failed payment without touching order status.
func MarkPaymentFailed(o *Order, now time.Time) bool {
	if o.Payment.Status == PaymentFailed {
		return false
	}
	o.Payment.Status = PaymentFailed
	o.UpdatedAt = now
	return true
}

// MarkPaymentRefunded records the refund and cancels the order. An order that
// already reached returned keeps its status and gains a refund history note;
// this coupling is a business rule of the refund flow, not of the state
// machine itself.
func MarkPaymentRefunded(o *Order, refundID string, now time.Time) bool {
	changed := o.Payment.Status != PaymentRefunded
	o.Payment.Status = PaymentRefunded
	if refundID != "" {
		o.Payment.RefundID = refundID
	}
	if o.Status == StatusReturned {
		o.StatusHistory = append(o.StatusHistory, StatusChange{Status: o.Status, At: now, Notes: "payment refunded"})
		o.UpdatedAt = now
		return true
	}
	for i := range o.Items {
		if IsTerminal(o.Items[i].Status) {
			continue
		}
		applyItemStatus(&o.Items[i], StatusCancelled, "cancelled after refund", now)
		changed = true
	}
	refreshAggregate(o, now)
	o.UpdatedAt = now
	return changed
}

func applyItemStatus(it *Item, next Status, notes string, now time.Time) {
	it.Status = next
	it.History = append(it.History, StatusChange{Status: next, At: now, Notes: notes})
}

// refreshAggregate re-derives the order-level status from the items. The
// aggregate is the minimum progress across non-cancelled/non-returned items,
// floored at processing once any item has reached processing. It never
// regresses once advanced.
func refreshAggregate(o *Order, now time.Time) {
	derived := deriveAggregate(o)
	if derived == o.Status {
		return
	}
	if !IsTerminal(derived) && rank(derived) >= 0 && rank(o.Status) >= 0 && rank(derived) < rank(o.Status) {
		return
	}
	o.Status = derived
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: derived, At: now})
	stampTimeline(o, derived, now)
}

func deriveAggregate(o *Order) Status {
	if len(o.Items) == 0 {
		return o.Status
	}
	var (
		active      []int
		anyReturned bool
	)
	for i := range o.Items {
		switch o.Items[i].Status {
		case StatusCancelled:
		case StatusReturned:
			anyReturned = true
		default:
			active = append(active, rank(o.Items[i].Status))
		}
	}
	if len(active) == 0 {
		if anyReturned {
			return StatusReturned
		}
		return StatusCancelled
	}
	minRank := active[0]
	maxRank := active[0]
	for _, r := range active[1:] {
		if r < minRank {
			minRank = r
		}
		if r > maxRank {
			maxRank = r
		}
	}
	if maxRank >= rank(StatusProcessing) && minRank < rank(StatusProcessing) {
		return StatusProcessing
	}
	return forwardOrder[minRank]
}

// stampTimeline records the first entry into a state; repeats do not
// overwrite.
func stampTimeline(o *Order, s Status, now time.Time) {
	at := now
	switch s {
	case StatusConfirmed:
		if o.Timeline.ConfirmedAt == nil {
			o.Timeline.ConfirmedAt = &at
		}
	case StatusProcessing:
		if o.Timeline.ProcessingAt == nil {
			o.Timeline.ProcessingAt = &at
		}
	case StatusShipped:
		if o.Timeline.ShippedAt == nil {
			o.Timeline.ShippedAt = &at
		}
	case StatusDelivered:
		if o.Timeline.DeliveredAt == nil {
			o.Timeline.DeliveredAt = &at
		}
	case StatusCancelled:
		if o.Timeline.CancelledAt == nil {
			o.Timeline.CancelledAt = &at
		}
	case StatusReturned:
		if o.Timeline.ReturnedAt == nil {
			o.Timeline.ReturnedAt = &at
		}
	}
}
