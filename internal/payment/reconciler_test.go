package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pasar/internal/order"
	"github.com/noah-isme/backend-pasar/internal/payment"
	"github.com/noah-isme/backend-pasar/internal/pricing"
	"github.com/noah-isme/backend-pasar/internal/tasks"
)

type memOrderStore struct {
	orders  map[string]order.Order
	updates int
}

func newMemOrderStore(os ...order.Order) *memOrderStore {
	m := &memOrderStore{orders: map[string]order.Order{}}
	for _, o := range os {
		m.orders[o.ID] = o
	}
	return m
}

func (m *memOrderStore) Create(_ context.Context, o *order.Order) error {
	m.orders[o.ID] = *o
	return nil
}

func (m *memOrderStore) Get(_ context.Context, id string) (order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

func (m *memOrderStore) Update(_ context.Context, o *order.Order) error {
	m.updates++
	m.orders[o.ID] = *o
	return nil
}

func (m *memOrderStore) ListByUser(_ context.Context, _ string) ([]order.Order, error) {
	return nil, nil
}

type captureEnqueuer struct {
	tasks []*asynq.Task
}

func (c *captureEnqueuer) EnqueueContext(_ context.Context, t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, t)
	return &asynq.TaskInfo{}, nil
}

func paidableOrder() order.Order {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return order.Order{
		ID:     "ORD-1-0001",
		UserID: "u1",
		Status: order.StatusPending,
		Items: []order.Item{
			{ID: "a", ProductID: "p1", Qty: 2, Status: order.StatusPending, History: []order.StatusChange{{Status: order.StatusPending, At: at}}},
			{ID: "b", ProductID: "p2", Qty: 1, Status: order.StatusPending, History: []order.StatusChange{{Status: order.StatusPending, At: at}}},
		},
		Pricing: pricing.Breakdown{FinalTotal: 17000},
		Payment: order.PaymentInfo{Method: "card", Status: order.PaymentPending},
	}
}

func testReconciler(store *memOrderStore, enq *captureEnqueuer) *payment.Reconciler {
	return &payment.Reconciler{
		Store: store,
		Tasks: enq,
		Now:   func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestApplySucceededConfirmsAndEnqueues(t *testing.T) {
	store := newMemOrderStore(paidableOrder())
	enq := &captureEnqueuer{}
	rec := testReconciler(store, enq)

	ev := payment.GatewayEvent{
		Provider: "stripe",
		Type:     "payment_intent.succeeded",
		IntentID: "pi_1",
		OrderID:  "ORD-1-0001",
		Amount:   17000,
		Status:   payment.EventSucceeded,
	}
	require.NoError(t, rec.Apply(context.Background(), ev))

	o := store.orders["ORD-1-0001"]
	require.Equal(t, order.PaymentCompleted, o.Payment.Status)
	require.Equal(t, "pi_1", o.Payment.IntentID)
	require.Equal(t, order.StatusConfirmed, o.Status)
	require.NotNil(t, o.Timeline.PaidAt)
	for _, it := range o.Items {
		require.Equal(t, order.StatusConfirmed, it.Status)
	}

	var soldCount, notifyCount int
	for _, task := range enq.tasks {
		switch task.Type() {
		case tasks.TypeProductSoldIncrement:
			soldCount++
		case tasks.TypeOrderNotify:
			notifyCount++
		}
	}
	require.Equal(t, 2, soldCount)
	require.Equal(t, 1, notifyCount)
}

func TestApplySucceededIsIdempotent(t *testing.T) {
	store := newMemOrderStore(paidableOrder())
	enq := &captureEnqueuer{}
	rec := testReconciler(store, enq)

	ev := payment.GatewayEvent{OrderID: "ORD-1-0001", Amount: 17000, Status: payment.EventSucceeded}
	require.NoError(t, rec.Apply(context.Background(), ev))
	firstTasks := len(enq.tasks)
	require.NoError(t, rec.Apply(context.Background(), ev))

	o := store.orders["ORD-1-0001"]
	require.Equal(t, 1, store.updates)
	require.Len(t, enq.tasks, firstTasks)
	for _, it := range o.Items {
		require.Len(t, it.History, 2)
	}
}

func TestApplyAmountMismatch(t *testing.T) {
	store := newMemOrderStore(paidableOrder())
	rec := testReconciler(store, &captureEnqueuer{})

	ev := payment.GatewayEvent{OrderID: "ORD-1-0001", Amount: 9999, Status: payment.EventSucceeded}
	require.ErrorIs(t, rec.Apply(context.Background(), ev), payment.ErrAmountMismatch)
	require.Equal(t, order.PaymentPending, store.orders["ORD-1-0001"].Payment.Status)
}

func TestApplyUnknownOrder(t *testing.T) {
	rec := testReconciler(newMemOrderStore(), &captureEnqueuer{})
	ev := payment.GatewayEvent{OrderID: "ORD-9-9999", Status: payment.EventSucceeded}
	require.ErrorIs(t, rec.Apply(context.Background(), ev), payment.ErrUnknownOrder)
}

func TestApplyFailedMarksPaymentOnly(t *testing.T) {
	store := newMemOrderStore(paidableOrder())
	rec := testReconciler(store, &captureEnqueuer{})

	ev := payment.GatewayEvent{OrderID: "ORD-1-0001", Status: payment.EventFailed}
	require.NoError(t, rec.Apply(context.Background(), ev))

	o := store.orders["ORD-1-0001"]
	require.Equal(t, order.PaymentFailed, o.Payment.Status)
	require.Equal(t, order.StatusPending, o.Status)
}

func TestApplyRefundedCancelsOrder(t *testing.T) {
	o := paidableOrder()
	order.MarkPaymentCompleted(&o, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC))
	store := newMemOrderStore(o)
	rec := testReconciler(store, &captureEnqueuer{})

	ev := payment.GatewayEvent{OrderID: "ORD-1-0001", RefundID: "re_1", Status: payment.EventRefunded}
	require.NoError(t, rec.Apply(context.Background(), ev))

	got := store.orders["ORD-1-0001"]
	require.Equal(t, order.PaymentRefunded, got.Payment.Status)
	require.Equal(t, "re_1", got.Payment.RefundID)
	require.Equal(t, order.StatusCancelled, got.Status)
}
