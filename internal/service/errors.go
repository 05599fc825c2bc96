package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

var (
	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmptyCart is returned when checkout finds no cart or no cart items
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInsufficientStock is matched by every *InsufficientStockError
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrIllegalTransition is matched by every *TransitionError
	ErrIllegalTransition = errors.New("illegal order status transition")

	// ErrDeleteNotAllowed is returned for any attempt to delete an order
	ErrDeleteNotAllowed = errors.New("deleting orders is not allowed")

	// ErrLockTimeout is returned when a row lock could not be acquired in time; the caller may retry
	ErrLockTimeout = errors.New("resource busy, please retry")

	ErrProductNotFound   = errors.New("product not found")
	ErrProductExists     = errors.New("product with this slug already exists")
	ErrProductNotDeleted = errors.New("product is not deleted")
	ErrCartNotFound      = errors.New("cart not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponExists      = errors.New("coupon already exists")
	ErrOrderNotFound     = errors.New("order not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrCategoryExists    = errors.New("category with this name or slug already exists")
	ErrReviewNotFound    = errors.New("review not found")
	ErrReviewExists      = errors.New("you have already reviewed this product")

	// ErrCategoryInUse is returned when deleting a category that products still reference
	ErrCategoryInUse = errors.New("category still has products")
)

// InsufficientStockError lists every cart line that stock cannot cover.
type InsufficientStockError struct {
	Shortages []model.Shortage
}

func (e *InsufficientStockError) Error() string {
	ids := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		ids = append(ids, fmt.Sprintf("%d", s.ProductID))
	}
	return fmt.Sprintf("insufficient stock for products [%s]", strings.Join(ids, ", "))
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// TransitionError is returned when an order cannot move from From to To.
type TransitionError struct {
	From model.OrderStatus
	To   model.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// ValidationError is a business rule violation tied to one request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
