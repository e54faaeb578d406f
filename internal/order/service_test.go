package order_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pasar/internal/common"
	"github.com/noah-isme/backend-pasar/internal/order"
)

func storedOrder() order.Order {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return order.Order{
		ID:     "ORD-1-0001",
		UserID: "u1",
		Status: order.StatusPending,
		Items: []order.Item{
			{ID: "a", ProductID: "p1", Qty: 1, Status: order.StatusPending, History: []order.StatusChange{{Status: order.StatusPending, At: at}}},
		},
	}
}

func TestCancelItemScopedToOwner(t *testing.T) {
	store := newMemOrderStore()
	o := storedOrder()
	require.NoError(t, store.Create(context.Background(), &o))
	svc := &order.Service{Store: store}

	_, err := svc.CancelItem(context.Background(), "u2", "ORD-1-0001", "a", "")
	require.ErrorIs(t, err, order.ErrNotFound)

	got, err := store.Get(context.Background(), "ORD-1-0001")
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, got.Status)

	_, err = svc.CancelItem(context.Background(), "u1", "ORD-1-0001", "a", "changed my mind")
	require.NoError(t, err)

	got, err = store.Get(context.Background(), "ORD-1-0001")
	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, got.Status)
}

func TestAdvanceItemScopedToOwner(t *testing.T) {
	store := newMemOrderStore()
	o := storedOrder()
	require.NoError(t, store.Create(context.Background(), &o))
	svc := &order.Service{Store: store}

	_, err := svc.AdvanceItem(context.Background(), "u2", "ORD-1-0001", "a", order.StatusConfirmed, "")
	require.ErrorIs(t, err, order.ErrNotFound)

	_, err = svc.AdvanceItem(context.Background(), "u1", "ORD-1-0001", "a", order.StatusConfirmed, "")
	require.NoError(t, err)
}

func TestReturnItemScopedToOwner(t *testing.T) {
	store := newMemOrderStore()
	o := storedOrder()
	o.Items[0].Status = order.StatusDelivered
	o.Status = order.StatusDelivered
	require.NoError(t, store.Create(context.Background(), &o))
	svc := &order.Service{Store: store}

	_, err := svc.ReturnItem(context.Background(), "u2", "ORD-1-0001", "a", "")
	require.ErrorIs(t, err, order.ErrNotFound)

	_, err = svc.ReturnItem(context.Background(), "u1", "ORD-1-0001", "a", "damaged")
	require.NoError(t, err)
}

func TestCancelEndpointRejectsForeignUser(t *testing.T) {
	store := newMemOrderStore()
	o := storedOrder()
	require.NoError(t, store.Create(context.Background(), &o))
	h := &order.Handler{Svc: &order.Service{Store: store}}
	r := chi.NewRouter()
	h.Routes(r)

	req := httptest.NewRequest(http.MethodPost, "/ORD-1-0001/items/a/cancel", nil)
	req = req.WithContext(common.WithUserID(req.Context(), "u2"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	got, err := store.Get(context.Background(), "ORD-1-0001")
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, got.Status)
}
