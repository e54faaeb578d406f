package order_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pasar/internal/cart"
	"github.com/noah-isme/backend-pasar/internal/catalog"
	"github.com/noah-isme/backend-pasar/internal/order"
	"github.com/noah-isme/backend-pasar/internal/pricing"
)

type memOrderStore struct {
	orders map[string]order.Order
}

func newMemOrderStore() *memOrderStore { return &memOrderStore{orders: map[string]order.Order{}} }

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
	m.orders[o.ID] = *o
	return nil
}

func (m *memOrderStore) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeCarts struct {
	cart     cart.Cart
	cleared  bool
	clearErr error
}

func (f *fakeCarts) EnsureCart(_ context.Context, userID string) (cart.Cart, error) {
	c := f.cart
	c.UserID = userID
	return c, nil
}

func (f *fakeCarts) Clear(_ context.Context, _ string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = true
	return nil
}

func pricedCart() cart.Cart {
	return cart.Cart{
		ID: "c1",
		Items: []cart.LineItem{
			{ID: "l1", ProductID: "p1", Kind: catalog.KindGrocery, Title: "Rice", UnitPrice: 10000, Qty: 1, LineTotal: 10000, LineDiscountedTotal: 10000},
			{ID: "l2", ProductID: "p2", Kind: catalog.KindPrepared, Title: "Biryani", UnitPrice: 2500, Qty: 2, LineTotal: 5000, LineDiscountedTotal: 5000},
		},
		Totals: pricing.Breakdown{TotalItems: 3, TotalPrice: 15000, TotalDiscountedPrice: 15000, FinalTotal: 15000},
	}
}

func testAddress() order.Address {
	return order.Address{ReceiverName: "A Tester", Phone: "555", Line1: "1 Main St", City: "Metro", State: "State", PostalCode: "12345"}
}

func newFactory(carts *fakeCarts) (*order.Factory, *memOrderStore) {
	store := newMemOrderStore()
	f := &order.Factory{
		Store:   store,
		Carts:   carts,
		Windows: order.DefaultWindows(72*time.Hour, time.Hour),
	}
	return f, store
}

func TestCreateOrderSnapshotsCart(t *testing.T) {
	carts := &fakeCarts{cart: pricedCart()}
	f, store := newFactory(carts)

	o, err := f.CreateOrder(context.Background(), "u1", testAddress(), "card")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^ORD-\d+-\d{4}$`), o.ID)
	require.Len(t, o.Items, 2)
	require.Equal(t, order.StatusPending, o.Status)
	require.Equal(t, order.PaymentPending, o.Payment.Status)
	require.Equal(t, pricing.Money(15000), o.Pricing.FinalTotal)
	require.True(t, carts.cleared)

	stored, err := store.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, o.ID, stored.ID)

	for _, it := range o.Items {
		require.Equal(t, order.StatusPending, it.Status)
		require.Len(t, it.History, 1)
	}
}

func TestCreateOrderDeliveryWindowIsMaxAcrossItems(t *testing.T) {
	carts := &fakeCarts{cart: pricedCart()}
	f, _ := newFactory(carts)

	o, err := f.CreateOrder(context.Background(), "u1", testAddress(), "cod")
	require.NoError(t, err)

	var grocery, prepared order.Item
	for _, it := range o.Items {
		switch it.Kind {
		case catalog.KindGrocery:
			grocery = it
		case catalog.KindPrepared:
			prepared = it
		}
	}
	require.True(t, prepared.EstimatedDelivery.Before(grocery.EstimatedDelivery))
	require.Equal(t, grocery.EstimatedDelivery, o.EstimatedDelivery)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	carts := &fakeCarts{cart: cart.Cart{}}
	f, _ := newFactory(carts)
	_, err := f.CreateOrder(context.Background(), "u1", testAddress(), "card")
	require.ErrorIs(t, err, order.ErrEmptyCart)
}

func TestCreateOrderRejectsUnknownPaymentMethod(t *testing.T) {
	carts := &fakeCarts{cart: pricedCart()}
	f, _ := newFactory(carts)
	_, err := f.CreateOrder(context.Background(), "u1", testAddress(), "barter")
	require.ErrorIs(t, err, order.ErrInvalidInput)
}

func TestCreateOrderSurvivesCartClearFailure(t *testing.T) {
	carts := &fakeCarts{cart: pricedCart(), clearErr: errors.New("store down")}
	f, store := newFactory(carts)

	o, err := f.CreateOrder(context.Background(), "u1", testAddress(), "upi")
	require.NoError(t, err)

	// Order creation is durable even when clearing the cart fails.
	stored, err := store.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, o.ID, stored.ID)
}
