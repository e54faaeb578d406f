package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrNotFound indicates the requested product or combo could not be located.
var ErrNotFound = errors.New("catalog: not found")

// Store defines the persistence operations required by the catalog service.
type Store interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	GetCombo(ctx context.Context, id string) (Combo, error)
	IncrementSold(ctx context.Context, productID string, qty int) error
}

// Service serves catalog reads through a cache and owns the best-effort sold
// counter updates.
type Service struct {
	Store  Store
	Cache  *Cache
	Logger zerolog.Logger
}

// GetProduct loads a product, preferring the cache.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	if id == "" {
		return Product{}, fmt.Errorf("product id required: %w", ErrNotFound)
	}
	key := "catalog:product:" + id
	var cached Product
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	product, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := s.Cache.SetJSON(ctx, key, product); err != nil {
		s.Logger.Warn().Err(err).Str("product_id", id).Msg("cache product")
	}
	return product, nil
}

// GetCombo loads a combo bundle definition.
func (s *Service) GetCombo(ctx context.Context, id string) (Combo, error) {
	if s == nil || s.Store == nil {
		return Combo{}, errors.New("catalog service not configured")
	}
	if id == "" {
		return Combo{}, fmt.Errorf("combo id required: %w", ErrNotFound)
	}
	key := "catalog:combo:" + id
	var cached Combo
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	combo, err := s.Store.GetCombo(ctx, id)
	if err != nil {
		return Combo{}, err
	}
	if err := s.Cache.SetJSON(ctx, key, combo); err != nil {
		s.Logger.Warn().Err(err).Str("combo_id", id).Msg("cache combo")
	}
	return combo, nil
}

// IncrementSold bumps a product's sold counter and drops the cached product
// so the next read reflects it. Errors propagate so queue consumers can
// retry.
func (s *Service) IncrementSold(ctx context.Context, productID string, qty int) error {
	if s == nil || s.Store == nil {
		return errors.New("catalog service not configured")
	}
	if productID == "" || qty <= 0 {
		return fmt.Errorf("increment sold: invalid product %q qty %d", productID, qty)
	}
	if err := s.Store.IncrementSold(ctx, productID, qty); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, "catalog:product:"+productID)
	return nil
}
