package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

const cartLineSelect = `SELECT ci.id, ci.product_id, ci.quantity, p.name, p.price, p.stock_quantity, p.is_deleted, ` +
	primaryImageSQL + `
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	WHERE ci.cart_id = $1
	ORDER BY ci.product_id`

// CartRepository provides data access for carts and cart items using pgx.
type CartRepository struct {
	base
}

// NewCartRepository creates a new CartRepository with the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{base{pool: pool}}
}

// NewCartRepositoryWithPool creates a new CartRepository with a custom pool interface.
// This is primarily used for testing.
func NewCartRepositoryWithPool(pool PoolInterface) *CartRepository {
	return &CartRepository{base{pool: pool}}
}

// GetOrCreate returns the user's cart, creating it if needed.
// The upsert leaves the cart row locked when q is a transaction.
func (r *CartRepository) GetOrCreate(ctx context.Context, q database.TxQuerier, userID string) (*model.Cart, error) {
	var c model.Cart
	err := r.on(q).QueryRow(ctx,
		`INSERT INTO carts (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = carts.updated_at
		 RETURNING id, user_id, created_at, updated_at`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create cart for %s: %w", userID, err)
	}
	return &c, nil
}

// GetByUserForUpdate locks the user's cart row.
// Returns service.ErrCartNotFound if the user has never had a cart.
func (r *CartRepository) GetByUserForUpdate(ctx context.Context, tx database.TxQuerier, userID string) (*model.Cart, error) {
	var c model.Cart
	err := tx.QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart for update %s: %w", userID, err)
	}
	return &c, nil
}

// ListLines returns the cart's items joined with their products, by ascending product id.
func (r *CartRepository) ListLines(ctx context.Context, q database.TxQuerier, cartID int64) ([]model.CartLine, error) {
	return r.listLines(ctx, r.on(q), cartLineSelect, cartID)
}

// ListLinesForUpdate is ListLines that also locks every cart item and product row.
// Rows are locked in ascending product id order, so concurrent checkouts cannot deadlock on products.
func (r *CartRepository) ListLinesForUpdate(ctx context.Context, tx database.TxQuerier, cartID int64) ([]model.CartLine, error) {
	return r.listLines(ctx, tx, cartLineSelect+` FOR UPDATE OF ci, p`, cartID)
}

func (r *CartRepository) listLines(ctx context.Context, q database.TxQuerier, query string, cartID int64) ([]model.CartLine, error) {
	rows, err := q.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines for %d: %w", cartID, err)
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(
			&l.ItemID, &l.ProductID, &l.Quantity, &l.ProductName, &l.UnitPrice,
			&l.StockQuantity, &l.IsDeleted, &l.PrimaryImage,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}

// GetItem returns one cart item. Returns service.ErrCartItemNotFound if the product is not in the cart.
func (r *CartRepository) GetItem(ctx context.Context, q database.TxQuerier, cartID, productID int64) (*model.CartItem, error) {
	var it model.CartItem
	err := r.on(q).QueryRow(ctx,
		`SELECT id, cart_id, product_id, quantity, added_at FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID,
	).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return &it, nil
}

// SetItemQuantity inserts the product into the cart or overwrites its quantity.
func (r *CartRepository) SetItemQuantity(ctx context.Context, q database.TxQuerier, cartID, productID int64, quantity int) error {
	_, err := r.on(q).Exec(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, productID, quantity)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return service.ErrProductNotFound
		}
		return fmt.Errorf("set cart item quantity: %w", err)
	}
	return nil
}

// DeleteItem removes a product from the cart.
func (r *CartRepository) DeleteItem(ctx context.Context, q database.TxQuerier, cartID, productID int64) error {
	tag, err := r.on(q).Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCartItemNotFound
	}
	return nil
}

// ClearItems deletes every item in the cart and reports how many were removed.
func (r *CartRepository) ClearItems(ctx context.Context, q database.TxQuerier, cartID int64) (int64, error) {
	tag, err := r.on(q).Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, fmt.Errorf("clear cart %d: %w", cartID, err)
	}
	return tag.RowsAffected(), nil
}
