package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon is a percent discount code with eligibility rules.
type Coupon struct {
	ID                int64            `json:"id"`
	Code              string           `json:"code"`
	DiscountPercent   decimal.Decimal  `json:"discount_percent"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	MinPurchaseAmount decimal.Decimal  `json:"min_purchase_amount"`
	IsActive          bool             `json:"is_active"`
	ExpiresAt         time.Time        `json:"expires_at"`
	UsageLimit        *int             `json:"usage_limit"`
	TimesUsed         int              `json:"times_used"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// IsExpired reports whether expires_at lies before now.
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}

// UsageExhausted reports whether a usage limit is set and has been reached.
func (c *Coupon) UsageExhausted() bool {
	return c.UsageLimit != nil && c.TimesUsed >= *c.UsageLimit
}

// CreateCouponRequest is the DTO for POST /api/admin/coupons.
type CreateCouponRequest struct {
	Code              string           `json:"code" validate:"required,notblank,max=50"`
	DiscountPercent   *decimal.Decimal `json:"discount_percent" validate:"required,gte=0,lte=100"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount" validate:"omitempty,gte=0"`
	MinPurchaseAmount *decimal.Decimal `json:"min_purchase_amount" validate:"omitempty,gte=0"`
	IsActive          *bool            `json:"is_active"`
	ExpiresAt         *time.Time       `json:"expires_at" validate:"required"`
	UsageLimit        *int             `json:"usage_limit" validate:"omitempty,gte=0"`
}

// UpdateCouponRequest is the DTO for PUT /api/admin/coupons/:id. Absent fields are left unchanged.
type UpdateCouponRequest struct {
	Code              *string          `json:"code" validate:"omitempty,notblank,max=50"`
	DiscountPercent   *decimal.Decimal `json:"discount_percent" validate:"omitempty,gte=0,lte=100"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount" validate:"omitempty,gte=0"`
	ClearMaxDiscount  bool             `json:"clear_max_discount"`
	MinPurchaseAmount *decimal.Decimal `json:"min_purchase_amount" validate:"omitempty,gte=0"`
	IsActive          *bool            `json:"is_active"`
	ExpiresAt         *time.Time       `json:"expires_at"`
	UsageLimit        *int             `json:"usage_limit" validate:"omitempty,gte=0"`
	ClearUsageLimit   bool             `json:"clear_usage_limit"`
}
