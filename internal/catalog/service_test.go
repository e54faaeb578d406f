package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pasar/internal/catalog"
)

type memCatalogStore struct {
	products map[string]catalog.Product
	soldErr  error
}

func (m *memCatalogStore) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (m *memCatalogStore) GetCombo(_ context.Context, _ string) (catalog.Combo, error) {
	return catalog.Combo{}, catalog.ErrNotFound
}

func (m *memCatalogStore) IncrementSold(_ context.Context, id string, qty int) error {
	if m.soldErr != nil {
		return m.soldErr
	}
	p, ok := m.products[id]
	if !ok {
		return catalog.ErrNotFound
	}
	p.Sold += int64(qty)
	m.products[id] = p
	return nil
}

func newCatalogService(t *testing.T, store *memCatalogStore) *catalog.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &catalog.Service{Store: store, Cache: catalog.NewCache(rdb, time.Minute)}
}

func TestIncrementSoldDropsCachedProduct(t *testing.T) {
	store := &memCatalogStore{products: map[string]catalog.Product{
		"p1": {ID: "p1", Kind: catalog.KindGrocery, Title: "Rice 5kg", Price: 10000, Stock: 5},
	}}
	svc := newCatalogService(t, store)

	first, err := svc.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	require.EqualValues(t, 0, first.Sold)

	require.NoError(t, svc.IncrementSold(context.Background(), "p1", 3))

	second, err := svc.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	require.EqualValues(t, 3, second.Sold)
}

func TestIncrementSoldPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("connection reset")
	store := &memCatalogStore{
		products: map[string]catalog.Product{"p1": {ID: "p1"}},
		soldErr:  storeErr,
	}
	svc := newCatalogService(t, store)

	err := svc.IncrementSold(context.Background(), "p1", 1)
	require.ErrorIs(t, err, storeErr)
}

func TestIncrementSoldRejectsInvalidInput(t *testing.T) {
	svc := newCatalogService(t, &memCatalogStore{products: map[string]catalog.Product{}})
	require.Error(t, svc.IncrementSold(context.Background(), "", 1))
	require.Error(t, svc.IncrementSold(context.Background(), "p1", 0))
}
