package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// CheckoutService converts a user's cart into an order.
type CheckoutService struct {
	pool        TxBeginner
	repos       Repositories
	lockTimeout time.Duration
	now         func() time.Time
}

// NewCheckoutService creates a new CheckoutService with the given pool and repositories.
func NewCheckoutService(pool *pgxpool.Pool, repos Repositories, lockTimeout time.Duration) *CheckoutService {
	return NewCheckoutServiceWithTxBeginner(pool, repos, lockTimeout)
}

// NewCheckoutServiceWithTxBeginner creates a CheckoutService with a custom TxBeginner.
// Primarily used for testing.
func NewCheckoutServiceWithTxBeginner(pool TxBeginner, repos Repositories, lockTimeout time.Duration) *CheckoutService {
	return &CheckoutService{
		pool:        pool,
		repos:       repos,
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

// NormalizeCouponCode is the canonical form coupon codes are stored and looked up in.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Checkout places an order for everything in the user's cart.
//
// Rows are locked in a fixed order: cart, then cart items with their products
// (ascending product id), then the coupon. Preconditions are checked before any
// write, so a failure leaves no trace:
//   - ErrEmptyCart if the user has no cart or it holds no items
//   - *InsufficientStockError listing every line stock cannot cover
//
// An unknown or ineligible coupon code is ignored and the order is placed at full price.
// ErrLockTimeout is returned when a lock cannot be acquired within the configured bound.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.Order, error) {
	if req == nil || userID == "" {
		return nil, ErrInvalidRequest
	}

	tx, err := beginLocked(ctx, s.pool, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after commit

	// 1. Cart row
	cart, err := s.repos.Carts.GetByUserForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, lockErr("lock cart", err)
	}

	// 2. Cart items and their products
	lines, err := s.repos.Carts.ListLinesForUpdate(ctx, tx, cart.ID)
	if err != nil {
		return nil, lockErr("lock cart lines", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	if shortages := FindShortages(lines); len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}

	quote := PriceLines(lines)
	now := s.now()

	// 3. Coupon
	var coupon *model.Coupon
	discount := decimal.Zero
	if code := NormalizeCouponCode(req.CouponCode); code != "" {
		coupon, discount, err = s.applyCoupon(ctx, tx, code, quote.Subtotal, now)
		if err != nil {
			return nil, err
		}
	}

	order := &model.Order{
		UserID:          userID,
		Status:          model.OrderStatusPending,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		CustomerAddress: strings.TrimSpace(req.CustomerAddress),
		PaymentMethod:   req.PaymentMethod,
		SubtotalAmount:  quote.Subtotal,
		DiscountAmount:  discount,
		FinalAmount:     FinalAmount(quote.Subtotal, discount),
		PricingSnapshot: BuildSnapshot(lines, coupon),
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = model.PaymentMethodCOD
	}
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		order.CustomerEmail = &email
	}
	if coupon != nil {
		couponID := coupon.ID
		order.CouponID = &couponID
	}

	if err := s.repos.Orders.Insert(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for i := range quote.Items {
		quote.Items[i].OrderID = order.ID
	}
	if err := s.repos.Orders.InsertItems(ctx, tx, order.ID, quote.Items); err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}

	for _, line := range lines {
		if err := s.repos.Products.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, fmt.Errorf("decrement stock for product %d: %w", line.ProductID, err)
		}
	}

	if coupon != nil {
		if err := s.repos.Coupons.IncrementUsage(ctx, tx, coupon.ID); err != nil {
			return nil, fmt.Errorf("increment coupon usage: %w", err)
		}
	}

	if _, err := s.repos.Carts.ClearItems(ctx, tx, cart.ID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := recordOrderEvent(ctx, s.repos.Outbox, tx, model.EventOrderCreated, order, "", now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, lockErr("commit checkout", err)
	}

	order.Items = quote.Items

	log.Info().
		Int64("order_id", order.ID).
		Str("user_id", userID).
		Int("items", len(order.Items)).
		Str("subtotal", order.SubtotalAmount.StringFixed(2)).
		Str("discount", order.DiscountAmount.StringFixed(2)).
		Str("final", order.FinalAmount.StringFixed(2)).
		Msg("order placed")

	return order, nil
}

// applyCoupon locks the coupon and decides whether it discounts this order.
// A missing or ineligible coupon yields a nil coupon and a zero discount.
func (s *CheckoutService) applyCoupon(ctx context.Context, tx pgx.Tx, code string, subtotal decimal.Decimal, now time.Time) (*model.Coupon, decimal.Decimal, error) {
	coupon, err := s.repos.Coupons.GetByCodeForUpdate(ctx, tx, code)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			log.Debug().Str("coupon_code", code).Msg("coupon ignored: not found")
			return nil, decimal.Zero, nil
		}
		return nil, decimal.Zero, lockErr("lock coupon", err)
	}

	if coupon.IsActive && coupon.IsExpired(now) {
		if err := s.repos.Coupons.Deactivate(ctx, tx, coupon.ID); err != nil {
			return nil, decimal.Zero, fmt.Errorf("deactivate expired coupon: %w", err)
		}
		coupon.IsActive = false
	}

	decision := EvaluateCoupon(coupon, subtotal, now)
	if !decision.Applied {
		log.Info().
			Str("coupon_code", code).
			Str("reason", decision.Reason).
			Msg("coupon ignored")
		return nil, decimal.Zero, nil
	}
	return coupon, decision.Discount, nil
}
