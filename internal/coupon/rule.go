// Package coupon evaluates redeemable discount codes against cart state.
package coupon

import (
	"errors"
	"time"

	"github.com/noah-isme/backend-pasar/internal/pricing"
)

var (
	// ErrInactive is returned when attempting to use a coupon that is disabled.
	ErrInactive = errors.New("coupon not active")
	// ErrNotStarted is returned before the coupon's validity window opens.
	ErrNotStarted = errors.New("coupon not started")
	// ErrExpired is returned when the coupon validity window has closed.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitReached indicates the coupon exhausted its global quota.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrPerUserLimitReached indicates the caller exceeded the per-user allowance.
	ErrPerUserLimitReached = errors.New("coupon per-user usage limit reached")
	// ErrMinimumOrderUnmet indicates the cart subtotal did not meet the coupon requirement.
	ErrMinimumOrderUnmet = errors.New("coupon minimum order value not met")
)

// Rule captures the runtime constraints and discount terms of a coupon.
type Rule struct {
	ID            string
	Code          string
	Kind          string // pricing.CouponFlat or pricing.CouponPercent
	Value         pricing.Money
	PercentBps    int32
	MaxDiscount   pricing.Money
	MinOrderValue pricing.Money
	Active        bool
	StartDate     *time.Time
	EndDate       *time.Time
	UsageLimit    *int32
	UsedCount     int32
	PerUserLimit  *int32
	PerUserUsed   int32
	DefaultLimit  int32
}

// Validate ensures the rule can be applied at the provided instant and cart subtotal.
func (r Rule) Validate(now time.Time, subtotal pricing.Money) error {
	if !r.Active {
		return ErrInactive
	}
	if r.StartDate != nil && now.Before(*r.StartDate) {
		return ErrNotStarted
	}
	if r.EndDate != nil && now.After(*r.EndDate) {
		return ErrExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	limit := r.DefaultLimit
	if r.PerUserLimit != nil {
		limit = *r.PerUserLimit
	}
	if limit > 0 && r.PerUserUsed >= limit {
		return ErrPerUserLimitReached
	}
	if subtotal < r.MinOrderValue {
		return ErrMinimumOrderUnmet
	}
	return nil
}

// Terms freezes the rule's discount parameters for the pricing engine.
func (r Rule) Terms() pricing.Coupon {
	return pricing.Coupon{
		Kind:        r.Kind,
		Value:       r.Value,
		PercentBps:  r.PercentBps,
		MaxDiscount: r.MaxDiscount,
	}
}
