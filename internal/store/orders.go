package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pasar/internal/order"
)

// OrderStore persists orders as JSONB documents keyed by order id. Status and
// user id are lifted into columns so listings avoid scanning documents.
type OrderStore struct {
	Pool *pgxpool.Pool
}

// Create inserts a new order document.
func (s *OrderStore) Create(ctx context.Context, o *order.Order) error {
	if s == nil || s.Pool == nil {
		return ErrUnavailable
	}
	doc, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", o.ID, err)
	}
	_, err = s.Pool.Exec(ctx, `INSERT INTO orders (id, user_id, status, doc, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`, o.ID, o.UserID, string(o.Status), doc, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

// Get loads an order by id.
func (s *OrderStore) Get(ctx context.Context, id string) (order.Order, error) {
	if s == nil || s.Pool == nil {
		return order.Order{}, ErrUnavailable
	}
	var doc []byte
	err := s.Pool.QueryRow(ctx, `SELECT doc FROM orders WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, fmt.Errorf("order %s: %w", id, order.ErrNotFound)
		}
		return order.Order{}, fmt.Errorf("load order %s: %w", id, err)
	}
	var o order.Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return order.Order{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	return o, nil
}

// Update replaces the order document and its lifted columns.
func (s *OrderStore) Update(ctx context.Context, o *order.Order) error {
	if s == nil || s.Pool == nil {
		return ErrUnavailable
	}
	doc, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", o.ID, err)
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE orders SET doc = $2, status = $3, updated_at = $4 WHERE id = $1`,
		o.ID, doc, string(o.Status), o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", o.ID, order.ErrNotFound)
	}
	return nil
}

// ListByUser returns the user's orders, newest first.
func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.Pool.Query(ctx, `SELECT doc FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		var o order.Order
		if err := json.Unmarshal(doc, &o); err != nil {
			return nil, fmt.Errorf("decode order document: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
