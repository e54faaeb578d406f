package order

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/cart"
	"github.com/noah-isme/backend-pasar/internal/catalog"
	"github.com/noah-isme/backend-pasar/internal/events"
)

// ErrNotFound indicates the requested order could not be located.
var ErrNotFound = errors.New("order not found")

// ErrEmptyCart rejects order creation from a cart without items.
var ErrEmptyCart = errors.New("cart is empty")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Store defines the keyed order persistence contract (key = order id).
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (Order, error)
	Update(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}

// CartSource supplies the priced cart and clears it after order creation.
type CartSource interface {
	EnsureCart(ctx context.Context, userID string) (cart.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// DeliveryWindows derives per-item estimated delivery from the product kind.
type DeliveryWindows struct {
	ByKind  map[string]time.Duration
	Default time.Duration
}

// For returns the window configured for the given kind.
func (d DeliveryWindows) For(kind string) time.Duration {
	if w, ok := d.ByKind[kind]; ok && w > 0 {
		return w
	}
	if d.Default > 0 {
		return d.Default
	}
	return 72 * time.Hour
}

// Factory converts a priced cart plus shipping details into an immutable
// order, then zeroes the cart.
type Factory struct {
	Store   Store
	Carts   CartSource
	Events  *events.Bus
	Windows DeliveryWindows
	Now     func() time.Time
	Logger  zerolog.Logger
}

func (f *Factory) now() time.Time {
	if f != nil && f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// CreateOrder snapshots the user's priced cart into a new order. The order is
// durably created before the cart is cleared: if clearing fails the order
// still exists (at-least-once creation; the resulting duplicate-order window
// is a documented limitation).
func (f *Factory) CreateOrder(ctx context.Context, userID string, address Address, paymentMethod string) (Order, error) {
	if f == nil || f.Store == nil || f.Carts == nil {
		return Order{}, errors.New("order factory not configured")
	}
	if userID == "" {
		return Order{}, fmt.Errorf("user id required: %w", ErrInvalidInput)
	}
	if !PaymentMethods[paymentMethod] {
		return Order{}, fmt.Errorf("unsupported payment method %q: %w", paymentMethod, ErrInvalidInput)
	}
	if address.ReceiverName == "" || address.Line1 == "" || address.City == "" || address.PostalCode == "" {
		return Order{}, fmt.Errorf("shipping address incomplete: %w", ErrInvalidInput)
	}
	c, err := f.Carts.EnsureCart(ctx, userID)
	if err != nil {
		return Order{}, err
	}
	if len(c.Items) == 0 {
		return Order{}, ErrEmptyCart
	}

	now := f.now()
	o := Order{
		ID:            NewOrderID(now),
		UserID:        userID,
		Status:        StatusPending,
		StatusHistory: []StatusChange{{Status: StatusPending, At: now, Notes: "order placed"}},
		Pricing:       c.Totals,
		Payment:       PaymentInfo{Method: paymentMethod, Status: PaymentPending},
		Address:       address,
		Timeline:      Timeline{PlacedAt: now},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, li := range c.Items {
		eta := now.Add(f.Windows.For(li.Kind))
		o.Items = append(o.Items, Item{
			ID:                  uuid.NewString(),
			ProductID:           li.ProductID,
			PackSizeID:          li.PackSizeID,
			ComboID:             li.ComboID,
			SellerID:            li.SellerID,
			Title:               li.Title,
			Kind:                li.Kind,
			UnitPrice:           li.UnitPrice,
			DiscountedUnitPrice: li.DiscountedUnitPrice,
			Qty:                 li.Qty,
			LineTotal:           li.LineTotal,
			LineDiscountedTotal: li.LineDiscountedTotal,
			Status:              StatusPending,
			History:             []StatusChange{{Status: StatusPending, At: now}},
			EstimatedDelivery:   eta,
		})
		if eta.After(o.EstimatedDelivery) {
			o.EstimatedDelivery = eta
		}
	}

	if err := f.Store.Create(ctx, &o); err != nil {
		return Order{}, err
	}
	if err := f.Carts.Clear(ctx, userID); err != nil {
		f.Logger.Error().Err(err).Str("order_id", o.ID).Str("user_id", userID).Msg("clear cart after order creation")
	}
	if f.Events != nil {
		if _, err := f.Events.Emit(ctx, events.TopicOrderCreated, o.ID, map[string]any{
			"orderId": o.ID,
			"userId":  userID,
			"total":   o.Pricing.FinalTotal,
		}); err != nil {
			f.Logger.Warn().Err(err).Str("order_id", o.ID).Msg("emit order created event")
		}
	}
	return o, nil
}

// NewOrderID builds a human-readable order identifier.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%04d", now.Unix(), rand.Intn(10000))
}

// DefaultWindows builds the window strategy from configured durations.
func DefaultWindows(grocery, prepared time.Duration) DeliveryWindows {
	return DeliveryWindows{
		ByKind: map[string]time.Duration{
			catalog.KindGrocery:  grocery,
			catalog.KindPrepared: prepared,
		},
		Default: grocery,
	}
}
