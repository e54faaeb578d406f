package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Coupon discount kinds.
const (
	CouponFlat    = "flat"
	CouponPercent = "percent"
)

// Item describes a cart line used for pricing calculation.
type Item struct {
	Qty                 int
	UnitPrice           Money
	DiscountedUnitPrice *Money
	Category            string
	ComboID             string
}

// Coupon carries the discount terms snapshotted at apply time.
type Coupon struct {
	Kind        string
	Value       Money
	PercentBps  int32
	MaxDiscount Money
}

// Combo identifies an applied bundle and its percentage discount.
type Combo struct {
	ID          string
	DiscountBps int32
}

// Surcharger computes the per-line surcharge from product category and quantity.
type Surcharger func(category string, qty int) Money

// Breakdown aggregates computed pricing components. All fields derive
// deterministically from the inputs; none is ever mutated independently.
type Breakdown struct {
	TotalItems           int   `json:"totalItems"`
	TotalPrice           Money `json:"totalPrice"`
	TotalDiscountedPrice Money `json:"totalDiscountedPrice"`
	TotalSavings         Money `json:"totalSavings"`
	Surcharge            Money `json:"surcharge"`
	ComboDiscount        Money `json:"comboDiscount"`
	CouponDiscount       Money `json:"couponDiscount"`
	Tax                  Money `json:"tax"`
	FinalTotal           Money `json:"finalTotal"`
}

// ComboDiscounts holds the per-combo discount amounts alongside the total.
type ComboDiscounts struct {
	Total Money
	ByID  map[string]Money
}

// Compute calculates cart totals given the provided inputs. It is pure and
// deterministic: calling it twice on the same inputs yields identical results.
//
// Ordering policy: the coupon discount is computed against the item-discounted
// subtotal BEFORE combo discounts are subtracted. Tax applies to the subtotal
// net of both discounts, rounded half-up; the surcharge is added after tax.
func Compute(items []Item, coupon *Coupon, combos []Combo, surcharge Surcharger, taxBps int) Breakdown {
	var b Breakdown
	if len(items) == 0 {
		return b
	}
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		b.TotalItems += it.Qty
		b.TotalPrice += Money(it.Qty) * it.UnitPrice
		b.TotalDiscountedPrice += Money(it.Qty) * effectiveUnitPrice(it)
		if surcharge != nil {
			b.Surcharge += surcharge(it.Category, it.Qty)
		}
	}
	b.TotalSavings = b.TotalPrice - b.TotalDiscountedPrice

	b.ComboDiscount = ComputeComboDiscounts(items, combos).Total
	b.CouponDiscount = CouponDiscount(coupon, b.TotalDiscountedPrice)

	base := b.TotalDiscountedPrice - b.ComboDiscount - b.CouponDiscount
	if base < 0 {
		base = 0
	}
	b.Tax = roundHalfUpBps(base, int32(taxBps))
	b.FinalTotal = base + b.Tax + b.Surcharge
	return b
}

// ComputeComboDiscounts derives each combo's discount from the discounted
// subtotal of the lines tagged with that combo's reference.
func ComputeComboDiscounts(items []Item, combos []Combo) ComboDiscounts {
	out := ComboDiscounts{ByID: make(map[string]Money, len(combos))}
	for _, c := range combos {
		if c.ID == "" || c.DiscountBps <= 0 {
			continue
		}
		var tagged Money
		for _, it := range items {
			if it.Qty <= 0 || it.ComboID != c.ID {
				continue
			}
			tagged += Money(it.Qty) * effectiveUnitPrice(it)
		}
		if tagged <= 0 {
			continue
		}
		d := roundHalfUpBps(tagged, c.DiscountBps)
		out.ByID[c.ID] = d
		out.Total += d
	}
	return out
}

// CouponDiscount computes the coupon discount against the given eligible
// subtotal. Flat coupons cap at the subtotal; percentage coupons honour an
// optional maximum-discount ceiling.
func CouponDiscount(coupon *Coupon, eligible Money) Money {
	if coupon == nil || eligible <= 0 {
		return 0
	}
	var discount Money
	switch coupon.Kind {
	case CouponPercent:
		if coupon.PercentBps <= 0 {
			return 0
		}
		discount = roundHalfUpBps(eligible, coupon.PercentBps)
		if coupon.MaxDiscount > 0 && discount > coupon.MaxDiscount {
			discount = coupon.MaxDiscount
		}
	default:
		discount = coupon.Value
	}
	if discount > eligible {
		discount = eligible
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

func effectiveUnitPrice(it Item) Money {
	if it.DiscountedUnitPrice != nil && *it.DiscountedUnitPrice >= 0 && *it.DiscountedUnitPrice <= it.UnitPrice {
		return *it.DiscountedUnitPrice
	}
	return it.UnitPrice
}

// roundHalfUpBps applies a basis-point percentage to v, rounding to the
// nearest minor unit with ties going up.
func roundHalfUpBps(v Money, bps int32) Money {
	if v <= 0 || bps <= 0 {
		return 0
	}
	return (v*Money(bps) + 5000) / 10000
}
