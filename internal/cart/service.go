package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pasar/internal/catalog"
	"github.com/noah-isme/backend-pasar/internal/coupon"
	"github.com/noah-isme/backend-pasar/internal/pricing"
)

// ErrNotFound indicates the requested cart or line item could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrOutOfStock indicates the requested quantity exceeds available stock.
var ErrOutOfStock = errors.New("insufficient stock")

// ErrCouponApplied rejects a second coupon while one is already applied.
var ErrCouponApplied = errors.New("a coupon is already applied")

// ErrComboApplied rejects re-applying an already-applied combo.
var ErrComboApplied = errors.New("combo already applied")

// Store defines the keyed cart persistence contract (key = user id).
type Store interface {
	GetByUser(ctx context.Context, userID string) (Cart, error)
	Save(ctx context.Context, c *Cart) error
}

// ProductSource resolves products and combos for cart mutations.
type ProductSource interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	GetCombo(ctx context.Context, id string) (catalog.Combo, error)
}

// CouponSource resolves coupon rules and records redemptions.
type CouponSource interface {
	FindByCode(ctx context.Context, code, userID string) (coupon.Rule, error)
	RecordUsage(ctx context.Context, couponID, userID string) error
}

// Service encapsulates cart domain operations. Every mutation recomputes the
// aggregate totals through the pricing engine before persisting.
type Service struct {
	Store     Store
	Products  ProductSource
	Coupons   CouponSource
	Surcharge pricing.Surcharger
	TaxBps    int
	Now       func() time.Time
	Logger    zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// EnsureCart loads the user's cart, creating an empty one on first use.
func (s *Service) EnsureCart(ctx context.Context, userID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if userID == "" {
		return Cart{}, fmt.Errorf("user id required: %w", ErrInvalidInput)
	}
	c, err := s.Store.GetByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Cart{}, err
	}
	now := s.now()
	c = Cart{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	if err := s.Store.Save(ctx, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// AddItem inserts or merges a line item after validating stock and pack size.
func (s *Service) AddItem(ctx context.Context, userID, productID, packSizeID string, qty int) (Cart, error) {
	if s == nil || s.Store == nil || s.Products == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return Cart{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	if productID == "" {
		return Cart{}, fmt.Errorf("product id required: %w", ErrInvalidInput)
	}
	c, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	product, err := s.Products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Cart{}, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return Cart{}, err
	}
	unitPrice, discounted, stock, ok := product.UnitPrices(packSizeID)
	if !ok {
		return Cart{}, fmt.Errorf("pack size %s does not belong to product %s: %w", packSizeID, productID, ErrInvalidInput)
	}

	existingQty := 0
	idx := c.findMergeTarget(productID, packSizeID)
	if idx >= 0 {
		existingQty = c.Items[idx].Qty
	}
	if stock < existingQty+qty {
		return Cart{}, fmt.Errorf("product %s has %d in stock, requested %d: %w", productID, stock, existingQty+qty, ErrOutOfStock)
	}

	if idx >= 0 {
		c.Items[idx].Qty += qty
		c.Items[idx].StockSnapshot = stock
		if c.Items[idx].Qty <= 0 {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		}
	} else {
		c.Items = append(c.Items, LineItem{
			ID:                  uuid.NewString(),
			ProductID:           product.ID,
			PackSizeID:          packSizeID,
			SellerID:            product.SellerID,
			Title:               product.Title,
			Kind:                product.Kind,
			UnitPrice:           unitPrice,
			DiscountedUnitPrice: discounted,
			Qty:                 qty,
			StockSnapshot:       stock,
		})
	}
	return s.recomputeAndSave(ctx, &c)
}

// UpdateItemQty sets the quantity of an existing line item.
func (s *Service) UpdateItemQty(ctx context.Context, userID, itemID string, qty int) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if qty < 1 {
		return Cart{}, fmt.Errorf("qty must be at least 1: %w", ErrInvalidInput)
	}
	c, err := s.Store.GetByUser(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	idx := c.itemIndex(itemID)
	if idx < 0 {
		return Cart{}, fmt.Errorf("line item %s: %w", itemID, ErrNotFound)
	}
	if c.Items[idx].StockSnapshot < qty {
		return Cart{}, fmt.Errorf("only %d in stock: %w", c.Items[idx].StockSnapshot, ErrOutOfStock)
	}
	c.Items[idx].Qty = qty
	return s.recomputeAndSave(ctx, &c)
}

// RemoveItem deletes a line item and drops combos left without tagged lines.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Store.GetByUser(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	idx := c.itemIndex(itemID)
	if idx < 0 {
		return Cart{}, fmt.Errorf("line item %s: %w", itemID, ErrNotFound)
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.dropOrphanCombos()
	return s.recomputeAndSave(ctx, &c)
}

// ApplyCoupon validates the code against the cart and snapshots its terms.
// Only one coupon may be applied at a time.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (Cart, error) {
	if s == nil || s.Store == nil || s.Coupons == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if code == "" {
		return Cart{}, fmt.Errorf("coupon code required: %w", ErrInvalidInput)
	}
	c, err := s.Store.GetByUser(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	if c.Coupon != nil {
		return Cart{}, fmt.Errorf("coupon %s: %w", c.Coupon.Code, ErrCouponApplied)
	}
	if len(c.Items) == 0 {
		return Cart{}, fmt.Errorf("cart is empty: %w", ErrInvalidInput)
	}
	rule, err := s.Coupons.FindByCode(ctx, code, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Cart{}, fmt.Errorf("coupon %s: %w", code, ErrNotFound)
		}
		return Cart{}, err
	}
	if err := rule.Validate(s.now(), c.Totals.TotalDiscountedPrice); err != nil {
		return Cart{}, fmt.Errorf("%w: %w", err, ErrInvalidInput)
	}
	// Usage is incremented up front; removing the coupon later does not
	// reverse it.
	if err := s.Coupons.RecordUsage(ctx, rule.ID, userID); err != nil {
		return Cart{}, err
	}
	c.Coupon = &AppliedCoupon{
		CouponID:      rule.ID,
		Code:          rule.Code,
		MinOrderValue: rule.MinOrderValue,
		AppliedAt:     s.now(),
	}
	c.Coupon.setTerms(rule.Terms())
	return s.recomputeAndSave(ctx, &c)
}

// RemoveCoupon clears the applied coupon. The usage increment recorded at
// apply time is not reversed.
func (s *Service) RemoveCoupon(ctx context.Context, userID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Store.GetByUser(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	c.Coupon = nil
	return s.recomputeAndSave(ctx, &c)
}

// ApplyCombo expands the bundle's constituents into tagged line items.
func (s *Service) ApplyCombo(ctx context.Context, userID, comboID string, multiplier int) (Cart, error) {
	if s == nil || s.Store == nil || s.Products == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	if comboID == "" {
		return Cart{}, fmt.Errorf("combo id required: %w", ErrInvalidInput)
	}
	if multiplier < 1 {
		multiplier = 1
	}
	c, err := s.EnsureCart(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	if c.hasCombo(comboID) {
		return Cart{}, fmt.Errorf("combo %s: %w", comboID, ErrComboApplied)
	}
	combo, err := s.Products.GetCombo(ctx, comboID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Cart{}, fmt.Errorf("combo %s: %w", comboID, ErrNotFound)
		}
		return Cart{}, err
	}
	if !combo.Active {
		return Cart{}, fmt.Errorf("combo %s not active: %w", comboID, ErrInvalidInput)
	}
	if len(combo.Items) == 0 {
		return Cart{}, fmt.Errorf("combo %s has no items: %w", comboID, ErrInvalidInput)
	}

	added := make([]LineItem, 0, len(combo.Items))
	for _, ci := range combo.Items {
		product, err := s.Products.GetProduct(ctx, ci.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return Cart{}, fmt.Errorf("combo product %s: %w", ci.ProductID, ErrNotFound)
			}
			return Cart{}, err
		}
		qty := ci.Qty * multiplier
		if qty <= 0 {
			return Cart{}, fmt.Errorf("combo %s constituent qty invalid: %w", comboID, ErrInvalidInput)
		}
		if product.Stock < qty {
			return Cart{}, fmt.Errorf("product %s has %d in stock, combo needs %d: %w", product.ID, product.Stock, qty, ErrOutOfStock)
		}
		added = append(added, LineItem{
			ID:                  uuid.NewString(),
			ProductID:           product.ID,
			ComboID:             comboID,
			SellerID:            product.SellerID,
			Title:               product.Title,
			Kind:                product.Kind,
			UnitPrice:           product.Price,
			DiscountedUnitPrice: product.DiscountedPrice,
			Qty:                 qty,
			StockSnapshot:       product.Stock,
		})
	}
	c.Items = append(c.Items, added...)
	c.Combos = append(c.Combos, AppliedCombo{ComboID: comboID, DiscountBps: combo.DiscountBps})
	return s.recomputeAndSave(ctx, &c)
}

// RemoveCombo drops an applied combo alongside its tagged line items.
func (s *Service) RemoveCombo(ctx context.Context, userID, comboID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Store.GetByUser(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	if !c.hasCombo(comboID) {
		return Cart{}, fmt.Errorf("combo %s: %w", comboID, ErrNotFound)
	}
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ComboID != comboID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
	c.dropOrphanCombos()
	return s.recomputeAndSave(ctx, &c)
}

// Clear empties the cart's items and offers, keeping the document itself.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	c, err := s.Store.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	c.Items = nil
	c.Coupon = nil
	c.Combos = nil
	_, err = s.recomputeAndSave(ctx, &c)
	return err
}

// Recompute re-derives the aggregate totals without any other mutation.
// Calling it twice on unchanged state yields identical totals.
func (s *Service) Recompute(ctx context.Context, userID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Store.GetByUser(ctx, userID)
	if err != nil {
		return Cart{}, err
	}
	return s.recomputeAndSave(ctx, &c)
}

func (s *Service) recomputeAndSave(ctx context.Context, c *Cart) (Cart, error) {
	s.recompute(ctx, c)
	c.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return *c, nil
}

func (s *Service) recompute(ctx context.Context, c *Cart) {
	if len(c.Items) == 0 {
		c.Items = nil
		c.Coupon = nil
		c.Combos = nil
		c.Totals = pricing.Breakdown{}
		return
	}
	for i := range c.Items {
		c.Items[i].recalc()
	}
	s.healCoupon(ctx, c)

	items := c.pricingItems()
	comboDiscounts := pricing.ComputeComboDiscounts(items, c.pricingCombos())
	for i := range c.Combos {
		c.Combos[i].DiscountApplied = comboDiscounts.ByID[c.Combos[i].ComboID]
	}

	var terms *pricing.Coupon
	if c.Coupon != nil {
		t := c.Coupon.terms()
		terms = &t
	}
	c.Totals = pricing.Compute(items, terms, c.pricingCombos(), s.Surcharge, s.TaxBps)
	if c.Coupon != nil {
		c.Coupon.DiscountApplied = c.Totals.CouponDiscount
	}
}

// healCoupon refreshes the applied coupon's terms from the source, stripping
// the coupon when its reference no longer resolves.
func (s *Service) healCoupon(ctx context.Context, c *Cart) {
	if c.Coupon == nil || s.Coupons == nil {
		return
	}
	rule, err := s.Coupons.FindByCode(ctx, c.Coupon.Code, c.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.Logger.Info().Str("code", c.Coupon.Code).Str("user_id", c.UserID).Msg("stripping unresolvable coupon")
			c.Coupon = nil
		}
		return
	}
	c.Coupon.CouponID = rule.ID
	c.Coupon.MinOrderValue = rule.MinOrderValue
	c.Coupon.setTerms(rule.Terms())
}
