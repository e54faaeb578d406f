package payment

import (
	"context"
	"net/http"
)

// Normalised gateway event statuses shared by every provider.
const (
	EventSucceeded = "succeeded"
	EventFailed    = "failed"
	EventRefunded  = "refunded"
	EventPending   = "pending"
)

// IntentRequest captures the information required to open a payment intent
// with a provider.
type IntentRequest struct {
	OrderID  string
	UserID   string
	Amount   int64
	Currency string
	Method   string
}

// IntentResponse represents the minimal information returned by a provider
// when creating or retrieving an intent.
type IntentResponse struct {
	Provider     string
	IntentID     string
	ClientSecret string
	Status       string
}

// GatewayEvent is the provider-neutral form of a verified webhook
// notification. Status holds one of the Event* constants.
type GatewayEvent struct {
	Provider string
	Type     string
	IntentID string
	OrderID  string
	RefundID string
	Amount   int64
	Status   string
	Raw      []byte
}

// Provider abstracts the operations required from an upstream payment gateway.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error)
	RetrieveIntent(ctx context.Context, intentID string) (IntentResponse, error)
	Refund(ctx context.Context, intentID string, amount int64) (string, error)
	VerifyWebhook(r *http.Request, body []byte) (GatewayEvent, error)
}
