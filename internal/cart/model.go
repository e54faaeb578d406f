// Package cart owns the mutable cart aggregate and its pricing-consistent
// mutations.
package cart

import (
	"time"

	"github.com/noah-isme/backend-pasar/internal/pricing"
)

// LineItem is one product/pack-size/quantity entry within a cart. Line totals
// are recalculated on every mutation and never trusted from input.
type LineItem struct {
	ID                  string         `json:"id"`
	ProductID           string         `json:"productId"`
	PackSizeID          string         `json:"packSizeId,omitempty"`
	ComboID             string         `json:"comboId,omitempty"`
	SellerID            string         `json:"sellerId"`
	Title               string         `json:"title"`
	Kind                string         `json:"kind"`
	UnitPrice           pricing.Money  `json:"unitPrice"`
	DiscountedUnitPrice *pricing.Money `json:"discountedUnitPrice,omitempty"`
	Qty                 int            `json:"qty"`
	LineTotal           pricing.Money  `json:"lineTotal"`
	LineDiscountedTotal pricing.Money  `json:"lineDiscountedTotal"`
	StockSnapshot       int            `json:"stockSnapshot"`
}

func (li *LineItem) recalc() {
	li.LineTotal = pricing.Money(li.Qty) * li.UnitPrice
	unit := li.UnitPrice
	if li.DiscountedUnitPrice != nil {
		unit = *li.DiscountedUnitPrice
	}
	li.LineDiscountedTotal = pricing.Money(li.Qty) * unit
}

// AppliedCoupon snapshots coupon terms at apply time. The applied discount is
// re-derived on every recomputation; the terms stay frozen until then.
type AppliedCoupon struct {
	CouponID        string        `json:"couponId"`
	Code            string        `json:"code"`
	Kind            string        `json:"kind"`
	Value           pricing.Money `json:"value"`
	PercentBps      int32         `json:"percentBps,omitempty"`
	MaxDiscount     pricing.Money `json:"maxDiscount,omitempty"`
	MinOrderValue   pricing.Money `json:"minOrderValue,omitempty"`
	DiscountApplied pricing.Money `json:"discountApplied"`
	AppliedAt       time.Time     `json:"appliedAt"`
}

func (a *AppliedCoupon) setTerms(t pricing.Coupon) {
	a.Kind = t.Kind
	a.Value = t.Value
	a.PercentBps = t.PercentBps
	a.MaxDiscount = t.MaxDiscount
}

func (a *AppliedCoupon) terms() pricing.Coupon {
	return pricing.Coupon{
		Kind:        a.Kind,
		Value:       a.Value,
		PercentBps:  a.PercentBps,
		MaxDiscount: a.MaxDiscount,
	}
}

// AppliedCombo records a bundle applied to the cart and its computed share.
type AppliedCombo struct {
	ComboID         string        `json:"comboId"`
	DiscountBps     int32         `json:"discountBps"`
	DiscountApplied pricing.Money `json:"discountApplied"`
}

// Cart is the per-user aggregate. Totals are always a deterministic function
// of items plus applied offers.
type Cart struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Items     []LineItem        `json:"items"`
	Coupon    *AppliedCoupon    `json:"coupon,omitempty"`
	Combos    []AppliedCombo    `json:"combos,omitempty"`
	Totals    pricing.Breakdown `json:"totals"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func (c *Cart) itemIndex(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// findMergeTarget locates an existing plain line (no combo tag) for the same
// product and pack size.
func (c *Cart) findMergeTarget(productID, packSizeID string) int {
	for i := range c.Items {
		it := &c.Items[i]
		if it.ComboID == "" && it.ProductID == productID && it.PackSizeID == packSizeID {
			return i
		}
	}
	return -1
}

func (c *Cart) hasCombo(comboID string) bool {
	for _, ac := range c.Combos {
		if ac.ComboID == comboID {
			return true
		}
	}
	return false
}

// dropOrphanCombos removes applied combos left with zero tagged lines.
func (c *Cart) dropOrphanCombos() {
	kept := c.Combos[:0]
	for _, ac := range c.Combos {
		tagged := false
		for i := range c.Items {
			if c.Items[i].ComboID == ac.ComboID {
				tagged = true
				break
			}
		}
		if tagged {
			kept = append(kept, ac)
		}
	}
	c.Combos = kept
}

func (c *Cart) pricingItems() []pricing.Item {
	items := make([]pricing.Item, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, pricing.Item{
			Qty:                 it.Qty,
			UnitPrice:           it.UnitPrice,
			DiscountedUnitPrice: it.DiscountedUnitPrice,
			Category:            it.Kind,
			ComboID:             it.ComboID,
		})
	}
	return items
}

func (c *Cart) pricingCombos() []pricing.Combo {
	combos := make([]pricing.Combo, 0, len(c.Combos))
	for _, ac := range c.Combos {
		combos = append(combos, pricing.Combo{ID: ac.ComboID, DiscountBps: ac.DiscountBps})
	}
	return combos
}
