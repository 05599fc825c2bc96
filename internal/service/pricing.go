package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// Reasons a supplied coupon code is not applied.
const (
	CouponReasonNotFound      = "not_found"
	CouponReasonInactive      = "inactive"
	CouponReasonExpired       = "expired"
	CouponReasonUsageExceeded = "usage_limit_reached"
	CouponReasonBelowMinimum  = "below_minimum_purchase"
)

var hundred = decimal.NewFromInt(100)

// CouponDecision is the outcome of evaluating a coupon against a subtotal.
type CouponDecision struct {
	Applied  bool
	Discount decimal.Decimal
	Reason   string
}

// EvaluateCoupon checks eligibility and computes the discount.
// The raw discount is rounded half away from zero to cents, then capped by MaxDiscountAmount.
func EvaluateCoupon(c *model.Coupon, subtotal decimal.Decimal, now time.Time) CouponDecision {
	switch {
	case c == nil:
		return CouponDecision{Reason: CouponReasonNotFound}
	case !c.IsActive:
		return CouponDecision{Reason: CouponReasonInactive}
	case c.IsExpired(now):
		return CouponDecision{Reason: CouponReasonExpired}
	case c.UsageExhausted():
		return CouponDecision{Reason: CouponReasonUsageExceeded}
	case subtotal.LessThan(c.MinPurchaseAmount):
		return CouponDecision{Reason: CouponReasonBelowMinimum}
	}

	discount := subtotal.Mul(c.DiscountPercent).Div(hundred).Round(2)
	if c.MaxDiscountAmount != nil && discount.GreaterThan(*c.MaxDiscountAmount) {
		discount = *c.MaxDiscountAmount
	}
	return CouponDecision{Applied: true, Discount: discount}
}

// Quote is the priced form of a set of cart lines.
type Quote struct {
	Items    []model.OrderItem
	Subtotal decimal.Decimal
}

// PriceLines prices every line at the product's current price.
func PriceLines(lines []model.CartLine) Quote {
	q := Quote{Items: make([]model.OrderItem, 0, len(lines)), Subtotal: decimal.Zero}
	for _, line := range lines {
		productID := line.ProductID
		total := line.LineTotal()
		q.Items = append(q.Items, model.OrderItem{
			ProductID:   &productID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   total,
		})
		q.Subtotal = q.Subtotal.Add(total)
	}
	return q
}

// FindShortages returns every line that cannot be fulfilled.
// A soft-deleted product counts as having nothing available.
func FindShortages(lines []model.CartLine) []model.Shortage {
	var shortages []model.Shortage
	for _, line := range lines {
		available := line.StockQuantity
		if line.IsDeleted {
			available = 0
		}
		if line.Quantity > available {
			shortages = append(shortages, model.Shortage{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Requested:   line.Quantity,
				Available:   available,
			})
		}
	}
	return shortages
}

// FinalAmount is subtotal minus discount, never below zero.
func FinalAmount(subtotal, discount decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, subtotal.Sub(discount))
}

// BuildSnapshot captures the priced lines and any applied coupon.
func BuildSnapshot(lines []model.CartLine, coupon *model.Coupon) model.PricingSnapshot {
	snap := model.PricingSnapshot{
		Version: model.PricingSnapshotVersion,
		Items:   make([]model.SnapshotItem, 0, len(lines)),
	}
	for _, line := range lines {
		snap.Items = append(snap.Items, model.SnapshotItem{
			ProductID: line.ProductID,
			Name:      line.ProductName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	if coupon != nil {
		pct := coupon.DiscountPercent
		snap.CouponCode = coupon.Code
		snap.DiscountPercent = &pct
	}
	return snap
}
