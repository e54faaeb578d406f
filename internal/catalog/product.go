// Package catalog exposes product, pack-size and combo lookups backed by the
// store with a Redis read-through cache.
package catalog

import (
	"github.com/noah-isme/backend-pasar/internal/pricing"
)

// Product kinds discriminate the two marketplace verticals sharing one schema.
const (
	KindGrocery  = "grocery"
	KindPrepared = "prepared"
)

// PackSize is a purchasable unit variant of a grocery product.
type PackSize struct {
	ID              string         `json:"id"`
	Label           string         `json:"label"`
	Price           pricing.Money  `json:"price"`
	DiscountedPrice *pricing.Money `json:"discountedPrice,omitempty"`
	Stock           int            `json:"stock"`
}

// GroceryDetails holds fields specific to shelf goods.
type GroceryDetails struct {
	Unit          string `json:"unit"`
	ShelfLifeDays int    `json:"shelfLifeDays"`
}

// PreparedDetails holds fields specific to made-to-order food items.
type PreparedDetails struct {
	KitchenID   string `json:"kitchenId"`
	PrepMinutes int    `json:"prepMinutes"`
}

// Product is a tagged union over the two verticals: shared fields plus a
// Kind discriminant selecting exactly one of the detail payloads.
type Product struct {
	ID              string           `json:"id"`
	Kind            string           `json:"kind"`
	Title           string           `json:"title"`
	Slug            string           `json:"slug"`
	Category        string           `json:"category"`
	Price           pricing.Money    `json:"price"`
	DiscountedPrice *pricing.Money   `json:"discountedPrice,omitempty"`
	Stock           int              `json:"stock"`
	Sold            int64            `json:"sold"`
	SellerID        string           `json:"sellerId"`
	PackSizes       []PackSize       `json:"packSizes,omitempty"`
	Grocery         *GroceryDetails  `json:"grocery,omitempty"`
	Prepared        *PreparedDetails `json:"prepared,omitempty"`
}

// PackSize returns the pack size with the given id if it belongs to the product.
func (p Product) PackSize(id string) (PackSize, bool) {
	for _, ps := range p.PackSizes {
		if ps.ID == id {
			return ps, true
		}
	}
	return PackSize{}, false
}

// UnitPrices resolves the effective unit price pair, honouring an optional
// pack size selection.
func (p Product) UnitPrices(packSizeID string) (unit pricing.Money, discounted *pricing.Money, stock int, ok bool) {
	if packSizeID == "" {
		return p.Price, p.DiscountedPrice, p.Stock, true
	}
	ps, found := p.PackSize(packSizeID)
	if !found {
		return 0, nil, 0, false
	}
	return ps.Price, ps.DiscountedPrice, ps.Stock, true
}

// ComboItem names one constituent of a bundle.
type ComboItem struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// Combo is a bundle of specific products sold together at a percentage discount.
type Combo struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Active      bool        `json:"active"`
	DiscountBps int32       `json:"discountBps"`
	Items       []ComboItem `json:"items"`
}
