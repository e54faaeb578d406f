package payment_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pasar/internal/order"
	"github.com/noah-isme/backend-pasar/internal/payment"
)

type fakeProvider struct {
	event payment.GatewayEvent
	err   error
}

func (f *fakeProvider) CreateIntent(_ context.Context, _ payment.IntentRequest) (payment.IntentResponse, error) {
	return payment.IntentResponse{}, errors.New("not implemented")
}

func (f *fakeProvider) RetrieveIntent(_ context.Context, _ string) (payment.IntentResponse, error) {
	return payment.IntentResponse{}, errors.New("not implemented")
}

func (f *fakeProvider) Refund(_ context.Context, _ string, _ int64) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeProvider) VerifyWebhook(_ *http.Request, _ []byte) (payment.GatewayEvent, error) {
	return f.event, f.err
}

func newWebhook(t *testing.T, provider payment.Provider, store *memOrderStore) *payment.Webhook {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &payment.Webhook{
		Providers:  map[string]payment.Provider{"stripe": provider},
		Reconciler: &payment.Reconciler{Store: store},
		Replay:     rdb,
		ReplayTTL:  time.Hour,
	}
}

func postWebhook(h *payment.Webhook, provider, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/"+provider, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func TestWebhookSettlesOrder(t *testing.T) {
	store := newMemOrderStore(paidableOrder())
	provider := &fakeProvider{event: payment.GatewayEvent{
		OrderID: "ORD-1-0001",
		Amount:  17000,
		Status:  payment.EventSucceeded,
	}}
	h := newWebhook(t, provider, store)

	rr := postWebhook(h, "stripe", `{"id":"evt_1"}`)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, order.PaymentCompleted, store.orders["ORD-1-0001"].Payment.Status)
}

func TestWebhookRejectsReplay(t *testing.T) {
	store := newMemOrderStore(paidableOrder())
	provider := &fakeProvider{event: payment.GatewayEvent{
		OrderID: "ORD-1-0001",
		Amount:  17000,
		Status:  payment.EventSucceeded,
	}}
	h := newWebhook(t, provider, store)

	first := postWebhook(h, "stripe", `{"id":"evt_1"}`)
	require.Equal(t, http.StatusNoContent, first.Code)

	second := postWebhook(h, "stripe", `{"id":"evt_1"}`)
	require.Equal(t, http.StatusConflict, second.Code)
	require.Equal(t, 1, store.updates)
}

func TestWebhookInvalidSignature(t *testing.T) {
	provider := &fakeProvider{err: errors.New("bad signature")}
	h := newWebhook(t, provider, newMemOrderStore())

	rr := postWebhook(h, "stripe", `{}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookUnknownProvider(t *testing.T) {
	h := newWebhook(t, &fakeProvider{}, newMemOrderStore())
	rr := postWebhook(h, "paypal", `{}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWebhookAmountMismatch(t *testing.T) {
	store := newMemOrderStore(paidableOrder())
	provider := &fakeProvider{event: payment.GatewayEvent{
		OrderID: "ORD-1-0001",
		Amount:  1,
		Status:  payment.EventSucceeded,
	}}
	h := newWebhook(t, provider, store)

	rr := postWebhook(h, "stripe", `{"id":"evt_2"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
