package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pasar/internal/cart"
	"github.com/noah-isme/backend-pasar/internal/coupon"
)

// CouponStore resolves coupon rules and records redemptions.
type CouponStore struct {
	Pool *pgxpool.Pool
	// DefaultPerUserLimit applies when a coupon row carries no explicit
	// per-user limit.
	DefaultPerUserLimit int32
}

// FindByCode loads a coupon by case-insensitive code together with the given
// user's redemption count.
func (s *CouponStore) FindByCode(ctx context.Context, code, userID string) (coupon.Rule, error) {
	if s == nil || s.Pool == nil {
		return coupon.Rule{}, ErrUnavailable
	}
	row := s.Pool.QueryRow(ctx, `SELECT c.id, c.code, c.kind, c.value, c.percent_bps, c.max_discount, c.min_order_value,
       c.active, c.start_date, c.end_date, c.usage_limit, c.used_count, c.per_user_limit,
       (SELECT count(*) FROM coupon_usage u WHERE u.coupon_id = c.id AND u.user_id = $2)
FROM coupons c WHERE lower(c.code) = lower($1)`, code, userID)

	var r coupon.Rule
	var usageLimit, perUserLimit sql.NullInt32
	var startDate, endDate sql.NullTime
	err := row.Scan(&r.ID, &r.Code, &r.Kind, &r.Value, &r.PercentBps, &r.MaxDiscount, &r.MinOrderValue,
		&r.Active, &startDate, &endDate, &usageLimit, &r.UsedCount, &perUserLimit, &r.PerUserUsed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.Rule{}, fmt.Errorf("coupon %q: %w", code, cart.ErrNotFound)
		}
		return coupon.Rule{}, fmt.Errorf("load coupon %q: %w", code, err)
	}
	if startDate.Valid {
		t := startDate.Time
		r.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time
		r.EndDate = &t
	}
	if usageLimit.Valid {
		v := usageLimit.Int32
		r.UsageLimit = &v
	}
	if perUserLimit.Valid {
		v := perUserLimit.Int32
		r.PerUserLimit = &v
	}
	r.DefaultLimit = s.DefaultPerUserLimit
	return r, nil
}

// RecordUsage registers one redemption for the user and bumps the global
// counter in the same transaction.
func (s *CouponStore) RecordUsage(ctx context.Context, couponID, userID string) error {
	if s == nil || s.Pool == nil {
		return ErrUnavailable
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin coupon usage tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO coupon_usage (coupon_id, user_id) VALUES ($1, $2)`, couponID, userID); err != nil {
		return fmt.Errorf("record coupon usage for %s: %w", couponID, err)
	}
	if _, err := tx.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1 WHERE id = $1`, couponID); err != nil {
		return fmt.Errorf("bump coupon counter for %s: %w", couponID, err)
	}
	return tx.Commit(ctx)
}
