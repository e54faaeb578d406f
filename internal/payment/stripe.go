package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	stripewebhook "github.com/stripe/stripe-go/v78/webhook"
)

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// StripeProvider implements Provider on top of the Stripe API.
type StripeProvider struct {
	intents       stripeIntentAPI
	refunds       stripeRefundAPI
	webhookSecret string
}

// StripeConfig configures NewStripeProvider. Intents and Refunds override the
// real API clients in tests.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
	Intents       stripeIntentAPI
	Refunds       stripeRefundAPI
}

// NewStripeProvider constructs a Stripe-backed Provider.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	p := &StripeProvider{
		intents:       cfg.Intents,
		refunds:       cfg.Refunds,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
	}
	if p.intents == nil || p.refunds == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sc := client.New(apiKey, nil)
		if p.intents == nil {
			p.intents = sc.PaymentIntents
		}
		if p.refunds == nil {
			p.refunds = sc.Refunds
		}
	}
	return p, nil
}

// CreateIntent opens a payment intent carrying the order id as metadata so
// webhook notifications can be routed back to the order.
func (p *StripeProvider) CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error) {
	if req.OrderID == "" || req.Amount <= 0 {
		return IntentResponse{}, errors.New("stripe: order id and positive amount required")
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"orderId": req.OrderID,
			"userId":  req.UserID,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("intent:" + req.OrderID)
	intent, err := p.intents.New(params)
	if err != nil {
		return IntentResponse{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return stripeIntentResponse(intent), nil
}

// RetrieveIntent looks up the current state of a payment intent.
func (p *StripeProvider) RetrieveIntent(ctx context.Context, intentID string) (IntentResponse, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := p.intents.Get(intentID, params)
	if err != nil {
		return IntentResponse{}, fmt.Errorf("stripe: retrieve payment intent: %w", err)
	}
	return stripeIntentResponse(intent), nil
}

// Refund refunds the given intent. A zero amount refunds the full charge.
func (p *StripeProvider) Refund(ctx context.Context, intentID string, amount int64) (string, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	if amount > 0 {
		params.Amount = stripe.Int64(amount)
	}
	ref, err := p.refunds.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: refund payment intent: %w", err)
	}
	return ref.ID, nil
}

// VerifyWebhook checks the Stripe-Signature header and normalises the event.
func (p *StripeProvider) VerifyWebhook(r *http.Request, body []byte) (GatewayEvent, error) {
	event, err := stripewebhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), p.webhookSecret)
	if err != nil {
		return GatewayEvent{}, fmt.Errorf("stripe: verify webhook signature: %w", err)
	}
	out := GatewayEvent{Provider: "stripe", Type: string(event.Type), Status: EventPending, Raw: body}
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return GatewayEvent{}, fmt.Errorf("stripe: decode payment intent event: %w", err)
		}
		out.IntentID = intent.ID
		out.OrderID = intent.Metadata["orderId"]
		out.Amount = intent.Amount
		if event.Type == "payment_intent.succeeded" {
			out.Status = EventSucceeded
		} else {
			out.Status = EventFailed
		}
	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return GatewayEvent{}, fmt.Errorf("stripe: decode charge event: %w", err)
		}
		if charge.PaymentIntent != nil {
			out.IntentID = charge.PaymentIntent.ID
		}
		out.OrderID = charge.Metadata["orderId"]
		out.Amount = charge.AmountRefunded
		out.Status = EventRefunded
		if charge.Refunds != nil && len(charge.Refunds.Data) > 0 {
			out.RefundID = charge.Refunds.Data[0].ID
		}
	}
	return out, nil
}

func stripeIntentResponse(intent *stripe.PaymentIntent) IntentResponse {
	if intent == nil {
		return IntentResponse{}
	}
	status := EventPending
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		status = EventSucceeded
	case stripe.PaymentIntentStatusCanceled:
		status = EventFailed
	}
	return IntentResponse{
		Provider:     "stripe",
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       status,
	}
}
