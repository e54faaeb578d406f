package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func money(v int64) *Money {
	m := Money(v)
	return &m
}

func TestComputeEmptyCart(t *testing.T) {
	b := Compute(nil, &Coupon{Kind: CouponFlat, Value: 500}, []Combo{{ID: "c1", DiscountBps: 1000}}, nil, 1800)
	require.Equal(t, Breakdown{}, b)
}

func TestComputeFlatCouponWithTax(t *testing.T) {
	// One item price=100.00 qty=2, flat coupon 30.00, 18% tax.
	items := []Item{{Qty: 2, UnitPrice: 10000}}
	coupon := &Coupon{Kind: CouponFlat, Value: 3000}
	b := Compute(items, coupon, nil, nil, 1800)

	require.Equal(t, Money(20000), b.TotalPrice)
	require.Equal(t, Money(20000), b.TotalDiscountedPrice)
	require.Equal(t, Money(3000), b.CouponDiscount)
	// 170.00 taxed at 18% = 30.60, rounded half-up to 30.60 in minor units.
	require.Equal(t, Money(3060), b.Tax)
	require.Equal(t, Money(17000+3060), b.FinalTotal)
}

func TestComputeWholeUnitScenario(t *testing.T) {
	// Same scenario in whole currency units: 100x2 - 30 = 170, 18% tax
	// rounds 30.6 up to 31.
	items := []Item{{Qty: 2, UnitPrice: 100}}
	coupon := &Coupon{Kind: CouponFlat, Value: 30}
	b := Compute(items, coupon, nil, nil, 1800)
	require.Equal(t, Money(31), b.Tax)
	require.Equal(t, Money(201), b.FinalTotal)
}

func TestComputeDiscountedUnitPrice(t *testing.T) {
	items := []Item{
		{Qty: 3, UnitPrice: 500, DiscountedUnitPrice: money(400)},
		{Qty: 1, UnitPrice: 250},
	}
	b := Compute(items, nil, nil, nil, 0)
	require.Equal(t, 4, b.TotalItems)
	require.Equal(t, Money(1750), b.TotalPrice)
	require.Equal(t, Money(1450), b.TotalDiscountedPrice)
	require.Equal(t, Money(300), b.TotalSavings)
	require.Equal(t, Money(1450), b.FinalTotal)
	require.LessOrEqual(t, b.TotalDiscountedPrice, b.TotalPrice)
}

func TestComputeComboDiscountRoundsHalfUp(t *testing.T) {
	// Tagged subtotal 125 at 10% = 12.5, rounds up to 13.
	items := []Item{
		{Qty: 1, UnitPrice: 125, ComboID: "combo-1"},
		{Qty: 1, UnitPrice: 500},
	}
	d := ComputeComboDiscounts(items, []Combo{{ID: "combo-1", DiscountBps: 1000}})
	require.Equal(t, Money(13), d.Total)
	require.Equal(t, Money(13), d.ByID["combo-1"])
}

func TestComputeCouponAgainstPreComboSubtotal(t *testing.T) {
	// The percentage coupon base must be the item-discounted subtotal, not
	// the combo-reduced one.
	items := []Item{
		{Qty: 1, UnitPrice: 1000, ComboID: "combo-1"},
		{Qty: 1, UnitPrice: 1000},
	}
	coupon := &Coupon{Kind: CouponPercent, PercentBps: 1000} // 10%
	combos := []Combo{{ID: "combo-1", DiscountBps: 2000}}    // 20% of tagged 1000
	b := Compute(items, coupon, combos, nil, 0)

	require.Equal(t, Money(200), b.ComboDiscount)
	require.Equal(t, Money(200), b.CouponDiscount) // 10% of 2000, not of 1800
	require.Equal(t, Money(1600), b.FinalTotal)
}

func TestComputePercentCouponCeiling(t *testing.T) {
	coupon := &Coupon{Kind: CouponPercent, PercentBps: 5000, MaxDiscount: 100}
	require.Equal(t, Money(100), CouponDiscount(coupon, 1000))
}

func TestComputeFlatCouponCappedAtSubtotal(t *testing.T) {
	coupon := &Coupon{Kind: CouponFlat, Value: 9999}
	require.Equal(t, Money(700), CouponDiscount(coupon, 700))
}

func TestComputeNeverNegative(t *testing.T) {
	items := []Item{{Qty: 1, UnitPrice: 100}}
	coupon := &Coupon{Kind: CouponFlat, Value: 100}
	combos := []Combo{}
	b := Compute(items, coupon, combos, nil, 1800)
	require.Equal(t, Money(0), b.Tax)
	require.GreaterOrEqual(t, b.FinalTotal, Money(0))
}

func TestComputeSurchargePerCategory(t *testing.T) {
	items := []Item{
		{Qty: 2, UnitPrice: 100, Category: "prepared"},
		{Qty: 1, UnitPrice: 100, Category: "grocery"},
	}
	surcharge := func(category string, qty int) Money {
		if category == "prepared" {
			return Money(qty) * 30
		}
		return 0
	}
	b := Compute(items, nil, nil, surcharge, 0)
	require.Equal(t, Money(60), b.Surcharge)
	require.Equal(t, Money(360), b.FinalTotal)
}

func TestComputeIdempotent(t *testing.T) {
	items := []Item{
		{Qty: 2, UnitPrice: 999, DiscountedUnitPrice: money(899), ComboID: "c"},
		{Qty: 5, UnitPrice: 120},
	}
	coupon := &Coupon{Kind: CouponPercent, PercentBps: 750, MaxDiscount: 500}
	combos := []Combo{{ID: "c", DiscountBps: 1500}}
	surcharge := func(string, int) Money { return 10 }

	first := Compute(items, coupon, combos, surcharge, 1800)
	second := Compute(items, coupon, combos, surcharge, 1800)
	require.Equal(t, first, second)
}
