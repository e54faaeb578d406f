// Package order owns the immutable order aggregate, its per-item state
// machine and the factory converting priced carts into orders.
package order

import (
	"time"

	"github.com/noah-isme/backend-pasar/internal/pricing"
)

// Status enumerates the order and item lifecycle states.
type Status string

// Lifecycle states shared by orders and order items.
const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

// Payment lifecycle states tracked on the order.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Accepted payment methods.
var PaymentMethods = map[string]bool{
	"cod":        true,
	"card":       true,
	"upi":        true,
	"netbanking": true,
}

// StatusChange is an append-only history record.
type StatusChange struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
	Notes  string    `json:"notes,omitempty"`
}

// Item is the frozen, independently-tracked per-product record within a
// placed order. Prices never change after creation.
type Item struct {
	ID                  string         `json:"id"`
	ProductID           string         `json:"productId"`
	PackSizeID          string         `json:"packSizeId,omitempty"`
	ComboID             string         `json:"comboId,omitempty"`
	SellerID            string         `json:"sellerId"`
	Title               string         `json:"title"`
	Kind                string         `json:"kind"`
	UnitPrice           pricing.Money  `json:"unitPrice"`
	DiscountedUnitPrice *pricing.Money `json:"discountedUnitPrice,omitempty"`
	Qty                 int            `json:"qty"`
	LineTotal           pricing.Money  `json:"lineTotal"`
	LineDiscountedTotal pricing.Money  `json:"lineDiscountedTotal"`
	Status              Status         `json:"status"`
	History             []StatusChange `json:"history"`
	EstimatedDelivery   time.Time      `json:"estimatedDelivery"`
}

// PaymentInfo tracks the gateway linkage for an order.
type PaymentInfo struct {
	Method   string `json:"method"`
	Status   string `json:"status"`
	IntentID string `json:"intentId,omitempty"`
	RefundID string `json:"refundId,omitempty"`
}

// Address is the shipping destination snapshot.
type Address struct {
	ReceiverName string `json:"receiverName"`
	Phone        string `json:"phone"`
	Line1        string `json:"line1"`
	Line2        string `json:"line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
}

// Timeline carries named timestamps stamped on first entry into each state.
type Timeline struct {
	PlacedAt     time.Time  `json:"placedAt"`
	ConfirmedAt  *time.Time `json:"confirmedAt,omitempty"`
	ProcessingAt *time.Time `json:"processingAt,omitempty"`
	ShippedAt    *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt  *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
	ReturnedAt   *time.Time `json:"returnedAt,omitempty"`
	PaidAt       *time.Time `json:"paidAt,omitempty"`
}

// Order is created once from a priced cart and mutated only through the
// state machine and payment reconciliation. Soft states stand in for
// deletion.
type Order struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	Items             []Item            `json:"items"`
	Status            Status            `json:"status"`
	StatusHistory     []StatusChange    `json:"statusHistory"`
	Pricing           pricing.Breakdown `json:"pricing"`
	Payment           PaymentInfo       `json:"payment"`
	Address           Address           `json:"address"`
	Timeline          Timeline          `json:"timeline"`
	EstimatedDelivery time.Time         `json:"estimatedDelivery"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

func (o *Order) item(itemID string) *Item {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}
