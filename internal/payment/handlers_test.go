package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/order"
	"github.com/noah-isme/backend-pasar/internal/payment"
)

type pollingProvider struct {
	fakeProvider
	resp payment.IntentResponse
	err  error
}

func (p *pollingProvider) RetrieveIntent(_ context.Context, _ string) (payment.IntentResponse, error) {
	return p.resp, p.err
}

func postSync(h *payment.Handler, userID, orderID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/{orderID}/payment", func(p chi.Router) {
		p.Mount("/", h.Routes())
	})
	req := httptest.NewRequest(http.MethodPost, "/"+orderID+"/payment/sync", nil)
	req = req.WithContext(common.WithUserID(req.Context(), userID))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestSyncSettlesFromPolledIntent(t *testing.T) {
	o := paidableOrder()
	o.Payment.IntentID = "pi_1"
	store := newMemOrderStore(o)
	provider := &pollingProvider{resp: payment.IntentResponse{
		Provider: "stripe",
		IntentID: "pi_1",
		Status:   payment.EventSucceeded,
	}}
	h := &payment.Handler{
		Orders:     &order.Service{Store: store},
		Store:      store,
		Provider:   provider,
		Reconciler: &payment.Reconciler{Store: store},
		Currency:   "INR",
	}

	rr := postSync(h, "u1", "ORD-1-0001")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, order.PaymentCompleted, store.orders["ORD-1-0001"].Payment.Status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "succeeded", body["gatewayStatus"])
	require.Equal(t, "completed", body["paymentStatus"])
}

func TestSyncLeavesPendingIntentAlone(t *testing.T) {
	o := paidableOrder()
	o.Payment.IntentID = "pi_1"
	store := newMemOrderStore(o)
	provider := &pollingProvider{resp: payment.IntentResponse{
		Provider: "stripe",
		IntentID: "pi_1",
		Status:   payment.EventPending,
	}}
	h := &payment.Handler{
		Orders:     &order.Service{Store: store},
		Store:      store,
		Provider:   provider,
		Reconciler: &payment.Reconciler{Store: store},
		Currency:   "INR",
	}

	rr := postSync(h, "u1", "ORD-1-0001")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, order.PaymentPending, store.orders["ORD-1-0001"].Payment.Status)
	require.Zero(t, store.updates)
}

func TestSyncRequiresIntent(t *testing.T) {
	store := newMemOrderStore(paidableOrder())
	h := &payment.Handler{
		Orders:     &order.Service{Store: store},
		Store:      store,
		Provider:   &pollingProvider{},
		Reconciler: &payment.Reconciler{Store: store},
		Currency:   "INR",
	}

	rr := postSync(h, "u1", "ORD-1-0001")
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestSyncRejectsForeignOrder(t *testing.T) {
	o := paidableOrder()
	o.Payment.IntentID = "pi_1"
	store := newMemOrderStore(o)
	h := &payment.Handler{
		Orders:     &order.Service{Store: store},
		Store:      store,
		Provider:   &pollingProvider{},
		Reconciler: &payment.Reconciler{Store: store},
		Currency:   "INR",
	}

	rr := postSync(h, "u2", "ORD-1-0001")
	require.Equal(t, http.StatusNotFound, rr.Code)
}
