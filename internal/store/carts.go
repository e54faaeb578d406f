package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pasar/internal/cart"
)

// CartStore persists carts as one JSONB document per user.
type CartStore struct {
	Pool *pgxpool.Pool
}

// GetByUser loads the user's cart document.
func (s *CartStore) GetByUser(ctx context.Context, userID string) (cart.Cart, error) {
	if s == nil || s.Pool == nil {
		return cart.Cart{}, ErrUnavailable
	}
	var doc []byte
	err := s.Pool.QueryRow(ctx, `SELECT doc FROM carts WHERE user_id = $1`, userID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.Cart{}, fmt.Errorf("cart for user %s: %w", userID, cart.ErrNotFound)
		}
		return cart.Cart{}, fmt.Errorf("load cart for user %s: %w", userID, err)
	}
	var c cart.Cart
	if err := json.Unmarshal(doc, &c); err != nil {
		return cart.Cart{}, fmt.Errorf("decode cart document for user %s: %w", userID, err)
	}
	return c, nil
}

// Save upserts the cart document keyed by user id.
func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	if s == nil || s.Pool == nil {
		return ErrUnavailable
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart document for user %s: %w", c.UserID, err)
	}
	_, err = s.Pool.Exec(ctx, `INSERT INTO carts (user_id, doc, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`, c.UserID, doc)
	if err != nil {
		return fmt.Errorf("save cart for user %s: %w", c.UserID, err)
	}
	return nil
}
