package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

const orderColumns = `id, user_id, status, customer_name, customer_phone, customer_email, customer_address,
	payment_method, coupon_id, subtotal_amount, discount_amount, final_amount, pricing_snapshot,
	cancel_reason, reject_reason, created_at, updated_at`

// OrderRepository provides data access for orders and order items using pgx.
type OrderRepository struct {
	base
}

// NewOrderRepository creates a new OrderRepository with the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{base{pool: pool}}
}

// NewOrderRepositoryWithPool creates a new OrderRepository with a custom pool interface.
// This is primarily used for testing.
func NewOrderRepositoryWithPool(pool PoolInterface) *OrderRepository {
	return &OrderRepository{base{pool: pool}}
}

func scanOrder(row scanner) (*model.Order, error) {
	var o model.Order
	var status, paymentMethod string
	var cancelReason, rejectReason *string
	err := row.Scan(
		&o.ID, &o.UserID, &status, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &o.CustomerAddress,
		&paymentMethod, &o.CouponID, &o.SubtotalAmount, &o.DiscountAmount, &o.FinalAmount, &o.PricingSnapshot,
		&cancelReason, &rejectReason, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	o.PaymentMethod = model.PaymentMethod(paymentMethod)
	if cancelReason != nil {
		r := model.CancelReason(*cancelReason)
		o.CancelReason = &r
	}
	if rejectReason != nil {
		r := model.RejectReason(*rejectReason)
		o.RejectReason = &r
	}
	return &o, nil
}

func optionalString[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

// Insert inserts the order row and fills in its generated fields.
// Must be called within the checkout transaction.
func (r *OrderRepository) Insert(ctx context.Context, tx database.TxQuerier, o *model.Order) error {
	snapshot, err := json.Marshal(o.PricingSnapshot)
	if err != nil {
		return fmt.Errorf("marshal pricing snapshot: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, status, customer_name, customer_phone, customer_email, customer_address,
		                     payment_method, coupon_id, subtotal_amount, discount_amount, final_amount, pricing_snapshot)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		o.UserID, string(o.Status), o.CustomerName, o.CustomerPhone, o.CustomerEmail, o.CustomerAddress,
		string(o.PaymentMethod), o.CouponID, o.SubtotalAmount, o.DiscountAmount, o.FinalAmount, snapshot,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// InsertItems inserts all items of an order in one statement and fills in their ids.
func (r *OrderRepository) InsertItems(ctx context.Context, tx database.TxQuerier, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	values := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*6)
	for i, it := range items {
		n := i * 6
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6))
		args = append(args, orderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.LineTotal)
	}

	rows, err := tx.Query(ctx,
		`INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, line_total)
		 VALUES `+strings.Join(values, ", ")+`
		 RETURNING id`,
		args...)
	if err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i < len(items) {
			if err := rows.Scan(&items[i].ID); err != nil {
				return fmt.Errorf("scan order item id: %w", err)
			}
			items[i].OrderID = orderID
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

// GetByID returns an order without its items. Returns service.ErrOrderNotFound if it doesn't exist.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	return r.getOne(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetForUpdate returns an order with its row locked until the transaction ends.
func (r *OrderRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Order, error) {
	return r.getOne(ctx, tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepository) getOne(ctx context.Context, q database.TxQuerier, query string, id int64) (*model.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

// ListItems returns the items of the given orders keyed by order id.
func (r *OrderRepository) ListItems(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	items := make(map[int64][]model.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return items, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, unit_price, line_total
		 FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`,
		orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}
	return items, nil
}

// List returns one page of orders, newest first, and the total match count.
func (r *OrderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	var w whereBuilder
	if filter.UserID != "" {
		w.add("user_id = " + w.arg(filter.UserID))
	}
	if filter.Status != "" {
		w.add("status = " + w.arg(string(filter.Status)))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+w.clause(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	where := w.clause()
	limit := w.arg(filter.Limit)
	offset := w.arg((filter.Page - 1) * filter.Limit)
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders`+where+
			` ORDER BY created_at DESC, id DESC LIMIT `+limit+` OFFSET `+offset,
		w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, total, nil
}

// Update writes the mutable lifecycle fields of an order. Amounts and items are never rewritten.
func (r *OrderRepository) Update(ctx context.Context, tx database.TxQuerier, o *model.Order) error {
	err := tx.QueryRow(ctx,
		`UPDATE orders
		 SET status = $2, payment_method = $3, cancel_reason = $4, reject_reason = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		o.ID, string(o.Status), string(o.PaymentMethod), optionalString(o.CancelReason), optionalString(o.RejectReason),
	).Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrOrderNotFound
		}
		return fmt.Errorf("update order %d: %w", o.ID, err)
	}
	return nil
}

// HasDeliveredProduct reports whether userID has a DELIVERED order containing productID.
func (r *OrderRepository) HasDeliveredProduct(ctx context.Context, q database.TxQuerier, userID string, productID int64) (bool, error) {
	var found bool
	err := r.on(q).QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1 AND oi.product_id = $2 AND o.status = $3
		)`,
		userID, productID, string(model.OrderStatusDelivered),
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check delivered product %d: %w", productID, err)
	}
	return found, nil
}
