package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pasar/internal/catalog"
	"github.com/noah-isme/backend-pasar/internal/pricing"
)

// CatalogStore reads products, pack sizes and combos from relational tables.
type CatalogStore struct {
	Pool *pgxpool.Pool
}

// GetProduct loads a product with its pack sizes and kind-specific details.
func (s *CatalogStore) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	if s == nil || s.Pool == nil {
		return catalog.Product{}, ErrUnavailable
	}
	row := s.Pool.QueryRow(ctx, `SELECT id, kind, title, slug, category, price, discounted_price, stock, sold, seller_id,
       unit, shelf_life_days, kitchen_id, prep_minutes
FROM products WHERE id = $1`, id)

	var p catalog.Product
	var discounted sql.NullInt64
	var unit, kitchenID sql.NullString
	var shelfLifeDays, prepMinutes sql.NullInt32
	err := row.Scan(&p.ID, &p.Kind, &p.Title, &p.Slug, &p.Category, &p.Price, &discounted, &p.Stock, &p.Sold, &p.SellerID,
		&unit, &shelfLifeDays, &kitchenID, &prepMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, fmt.Errorf("product %s: %w", id, catalog.ErrNotFound)
		}
		return catalog.Product{}, fmt.Errorf("load product %s: %w", id, err)
	}
	if discounted.Valid {
		d := pricing.Money(discounted.Int64)
		p.DiscountedPrice = &d
	}
	switch p.Kind {
	case catalog.KindGrocery:
		p.Grocery = &catalog.GroceryDetails{Unit: unit.String, ShelfLifeDays: int(shelfLifeDays.Int32)}
	case catalog.KindPrepared:
		p.Prepared = &catalog.PreparedDetails{KitchenID: kitchenID.String, PrepMinutes: int(prepMinutes.Int32)}
	}

	packSizes, err := s.packSizes(ctx, id)
	if err != nil {
		return catalog.Product{}, err
	}
	p.PackSizes = packSizes
	return p, nil
}

func (s *CatalogStore) packSizes(ctx context.Context, productID string) ([]catalog.PackSize, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, label, price, discounted_price, stock
FROM pack_sizes WHERE product_id = $1 ORDER BY price`, productID)
	if err != nil {
		return nil, fmt.Errorf("list pack sizes for product %s: %w", productID, err)
	}
	defer rows.Close()

	var out []catalog.PackSize
	for rows.Next() {
		var ps catalog.PackSize
		var discounted sql.NullInt64
		if err := rows.Scan(&ps.ID, &ps.Label, &ps.Price, &discounted, &ps.Stock); err != nil {
			return nil, fmt.Errorf("scan pack size row: %w", err)
		}
		if discounted.Valid {
			d := pricing.Money(discounted.Int64)
			ps.DiscountedPrice = &d
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// GetCombo loads a combo bundle with its constituents.
func (s *CatalogStore) GetCombo(ctx context.Context, id string) (catalog.Combo, error) {
	if s == nil || s.Pool == nil {
		return catalog.Combo{}, ErrUnavailable
	}
	var c catalog.Combo
	err := s.Pool.QueryRow(ctx, `SELECT id, title, active, discount_bps FROM combos WHERE id = $1`, id).
		Scan(&c.ID, &c.Title, &c.Active, &c.DiscountBps)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Combo{}, fmt.Errorf("combo %s: %w", id, catalog.ErrNotFound)
		}
		return catalog.Combo{}, fmt.Errorf("load combo %s: %w", id, err)
	}

	rows, err := s.Pool.Query(ctx, `SELECT product_id, qty FROM combo_items WHERE combo_id = $1`, id)
	if err != nil {
		return catalog.Combo{}, fmt.Errorf("list combo items for %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var it catalog.ComboItem
		if err := rows.Scan(&it.ProductID, &it.Qty); err != nil {
			return catalog.Combo{}, fmt.Errorf("scan combo item row: %w", err)
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

// IncrementSold bumps the lifetime sold counter.
func (s *CatalogStore) IncrementSold(ctx context.Context, productID string, qty int) error {
	if s == nil || s.Pool == nil {
		return ErrUnavailable
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE products SET sold = sold + $2 WHERE id = $1`, productID, qty)
	if err != nil {
		return fmt.Errorf("increment sold for product %s: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", productID, catalog.ErrNotFound)
	}
	return nil
}
