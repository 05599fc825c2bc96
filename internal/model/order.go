package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a state in the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled, OrderStatusRejected},
	OrderStatusConfirmed: {OrderStatusShipped},
	OrderStatusShipped:   {OrderStatusDelivered},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "COD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// CancelReason is given by a customer cancelling a pending order.
type CancelReason string

const (
	CancelReasonChangedMind      CancelReason = "CHANGED_MIND"
	CancelReasonOrderedByMistake CancelReason = "ORDERED_BY_MISTAKE"
	CancelReasonOther            CancelReason = "OTHER"
)

// RejectReason is given by an admin rejecting an order.
type RejectReason string

const (
	RejectReasonOutOfStock     RejectReason = "OUT_OF_STOCK"
	RejectReasonInvalidAddress RejectReason = "INVALID_ADDRESS"
	RejectReasonSuspectedFraud RejectReason = "SUSPECTED_FRAUD"
	RejectReasonOther          RejectReason = "OTHER"
)

// Order is a placed checkout. Amounts and items never change after creation.
type Order struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"user_id"`
	Status          OrderStatus     `json:"status"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerEmail   *string         `json:"customer_email"`
	CustomerAddress string          `json:"customer_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	CouponID        *int64          `json:"coupon_id"`
	SubtotalAmount  decimal.Decimal `json:"subtotal_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	FinalAmount     decimal.Decimal `json:"final_amount"`
	PricingSnapshot PricingSnapshot `json:"pricing_snapshot"`
	CancelReason    *CancelReason   `json:"cancel_reason"`
	RejectReason    *RejectReason   `json:"reject_reason"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is a purchased line with the name and price captured at checkout.
// ProductID becomes nil if the product row is later removed.
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   *int64          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// PricingSnapshotVersion tags the layout of PricingSnapshot.
const PricingSnapshotVersion = 1

// PricingSnapshot records what the customer was charged for, independent of later catalog edits.
type PricingSnapshot struct {
	Version         int              `json:"version"`
	Items           []SnapshotItem   `json:"items"`
	CouponCode      string           `json:"coupon_code,omitempty"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
}

// SnapshotItem is one line of a PricingSnapshot.
type SnapshotItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Shortage describes a cart line that stock cannot cover.
type Shortage struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// CheckoutRequest is the DTO for POST /api/orders. Items always come from the caller's cart.
type CheckoutRequest struct {
	CustomerName    string        `json:"customer_name" validate:"required,notblank,max=255"`
	CustomerPhone   string        `json:"customer_phone" validate:"required,notblank,max=32"`
	CustomerEmail   string        `json:"customer_email" validate:"omitempty,email,max=255"`
	CustomerAddress string        `json:"customer_address" validate:"required,notblank"`
	PaymentMethod   PaymentMethod `json:"payment_method" validate:"omitempty,oneof=COD BANK_TRANSFER"`
	CouponCode      string        `json:"coupon_code" validate:"max=50"`
}

// CancelOrderRequest is the DTO for PATCH /api/orders/:id.
type CancelOrderRequest struct {
	CancelReason CancelReason `json:"cancel_reason" validate:"required,oneof=CHANGED_MIND ORDERED_BY_MISTAKE OTHER"`
}

// AdminUpdateOrderRequest is the DTO for PATCH /api/admin/orders/:id.
type AdminUpdateOrderRequest struct {
	Status        *OrderStatus   `json:"status" validate:"omitempty,oneof=PENDING CONFIRMED SHIPPED DELIVERED CANCELLED REJECTED"`
	RejectReason  *RejectReason  `json:"reject_reason" validate:"omitempty,oneof=OUT_OF_STOCK INVALID_ADDRESS SUSPECTED_FRAUD OTHER"`
	PaymentMethod *PaymentMethod `json:"payment_method" validate:"omitempty,oneof=COD BANK_TRANSFER"`
}

// OrderFilter narrows order listings. An empty UserID lists every user's orders.
type OrderFilter struct {
	UserID string
	Status OrderStatus
	Page   int
	Limit  int
}

// OrderListResponse is a page of orders.
type OrderListResponse struct {
	Items []Order `json:"items"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
	Total int     `json:"total"`
}
