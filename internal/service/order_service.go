package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// OrderService provides order history and the order lifecycle.
// Status changes never touch stock or coupon counters.
type OrderService struct {
	pool   TxBeginner
	orders OrderRepositoryInterface
	outbox OutboxRepositoryInterface
	now    func() time.Time

	lockTimeout time.Duration
}

// NewOrderService creates a new OrderService with the given pool and repositories.
func NewOrderService(pool *pgxpool.Pool, orders OrderRepositoryInterface, outbox OutboxRepositoryInterface) *OrderService {
	return NewOrderServiceWithTxBeginner(pool, orders, outbox)
}

// NewOrderServiceWithTxBeginner creates an OrderService with a custom TxBeginner.
// Primarily used for testing.
func NewOrderServiceWithTxBeginner(pool TxBeginner, orders OrderRepositoryInterface, outbox OutboxRepositoryInterface) *OrderService {
	return &OrderService{pool: pool, orders: orders, outbox: outbox, now: time.Now, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout sets how long status changes wait for the order row lock.
func (s *OrderService) WithLockTimeout(d time.Duration) *OrderService {
	s.lockTimeout = d
	return s
}

// ListMine returns a page of the user's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, userID string, filter model.OrderFilter) (*model.OrderListResponse, error) {
	filter.UserID = userID
	return s.list(ctx, filter)
}

// AdminList returns a page of all orders, optionally narrowed by status and customer.
func (s *OrderService) AdminList(ctx context.Context, filter model.OrderFilter) (*model.OrderListResponse, error) {
	return s.list(ctx, filter)
}

func (s *OrderService) list(ctx context.Context, filter model.OrderFilter) (*model.OrderListResponse, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "is not a known order status"}
	}
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return &model.OrderListResponse{
		Items: orders,
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	}, nil
}

// GetMine returns one of the user's orders. Orders owned by someone else are reported as not found.
func (s *OrderService) GetMine(ctx context.Context, userID string, id int64) (*model.Order, error) {
	order, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// AdminGet returns any order.
func (s *OrderService) AdminGet(ctx context.Context, id int64) (*model.Order, error) {
	return s.get(ctx, id)
}

func (s *OrderService) get(ctx context.Context, id int64) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	orders := []model.Order{*order}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (s *OrderService) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := s.orders.ListItems(ctx, ids)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []model.OrderItem{}
		}
	}
	return nil
}

// Cancel moves a PENDING order owned by the user to CANCELLED.
// Any other current status yields a *TransitionError.
func (s *OrderService) Cancel(ctx context.Context, userID string, id int64, req *model.CancelOrderRequest) (*model.Order, error) {
	if req == nil || req.CancelReason == "" {
		return nil, &ValidationError{Field: "cancel_reason", Message: "is required"}
	}

	return s.mutate(ctx, id, func(order *model.Order) (model.OrderStatus, bool, error) {
		if order.UserID != userID {
			return "", false, ErrOrderNotFound
		}
		if order.Status != model.OrderStatusPending {
			return "", false, &TransitionError{From: order.Status, To: model.OrderStatusCancelled}
		}
		previous := order.Status
		reason := req.CancelReason
		order.Status = model.OrderStatusCancelled
		order.CancelReason = &reason
		return previous, true, nil
	})
}

// Delete always fails: orders are never removed through the API.
func (s *OrderService) Delete(ctx context.Context, userID string, id int64) error {
	log.Warn().Str("user_id", userID).Int64("order_id", id).Msg("order delete rejected")
	return ErrDeleteNotAllowed
}

// AdminUpdate changes status, reject reason or payment method of an order.
//   - CANCELLED cannot be set by an admin; REJECTED requires a reject_reason
//   - a status equal to the current one is a no-op
//   - any other status must be reachable from the current one
//   - the payment method is frozen once the order is closed
func (s *OrderService) AdminUpdate(ctx context.Context, id int64, req *model.AdminUpdateOrderRequest) (*model.Order, error) {
	if err := validateAdminUpdate(req); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(order *model.Order) (model.OrderStatus, bool, error) {
		previous := order.Status
		changed := false

		if req.PaymentMethod != nil && *req.PaymentMethod != order.PaymentMethod {
			if order.Status.IsTerminal() {
				return "", false, &ValidationError{
					Field:   "payment_method",
					Message: fmt.Sprintf("cannot be changed on a %s order", order.Status),
				}
			}
			order.PaymentMethod = *req.PaymentMethod
			changed = true
		}

		if req.Status != nil && *req.Status != order.Status {
			if !order.Status.CanTransitionTo(*req.Status) {
				return "", false, &TransitionError{From: order.Status, To: *req.Status}
			}
			order.Status = *req.Status
			if order.Status == model.OrderStatusRejected {
				reason := *req.RejectReason
				order.RejectReason = &reason
			}
			changed = true
		}

		if order.Status == previous {
			previous = ""
		}
		return previous, changed, nil
	})
}

func validateAdminUpdate(req *model.AdminUpdateOrderRequest) error {
	if req == nil || (req.Status == nil && req.RejectReason == nil && req.PaymentMethod == nil) {
		return &ValidationError{Field: "status", Message: "or payment_method is required"}
	}
	if req.Status != nil && *req.Status == model.OrderStatusCancelled {
		return &ValidationError{Field: "status", Message: "cannot be set to CANCELLED by an admin, use REJECTED"}
	}
	rejecting := req.Status != nil && *req.Status == model.OrderStatusRejected
	if rejecting && req.RejectReason == nil {
		return &ValidationError{Field: "reject_reason", Message: "is required when rejecting an order"}
	}
	if !rejecting && req.RejectReason != nil {
		return &ValidationError{Field: "reject_reason", Message: "is only allowed when status is REJECTED"}
	}
	return nil
}

// mutate locks the order row, applies fn and persists the result when fn reports a change.
// fn returns the status the order left, or "" if the status did not change.
func (s *OrderService) mutate(ctx context.Context, id int64, fn func(order *model.Order) (model.OrderStatus, bool, error)) (*model.Order, error) {
	tx, err := beginLocked(ctx, s.pool, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order, err := s.orders.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, lockErr("lock order", err)
	}

	previous, changed, err := fn(order)
	if err != nil {
		return nil, err
	}

	if changed {
		if err := s.orders.Update(ctx, tx, order); err != nil {
			return nil, fmt.Errorf("update order: %w", err)
		}
		if previous != "" {
			err := recordOrderEvent(ctx, s.outbox, tx, model.EventOrderStatusChanged, order, previous, s.now())
			if err != nil {
				return nil, err
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, lockErr("commit order update", err)
		}
		log.Info().
			Int64("order_id", order.ID).
			Str("from", string(previous)).
			Str("status", string(order.Status)).
			Msg("order updated")
	}

	orders := []model.Order{*order}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}
