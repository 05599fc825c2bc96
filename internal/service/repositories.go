package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// ProductRepositoryInterface defines the interface for product data access.
type ProductRepositoryInterface interface {
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error)
	GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Product, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Product, error)
	Insert(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, tx database.TxQuerier, product *model.Product) error
	SetDeleted(ctx context.Context, tx database.TxQuerier, id int64, deletedAt *time.Time) error
	DecrementStock(ctx context.Context, tx database.TxQuerier, id int64, quantity int) error
	AddImage(ctx context.Context, image *model.ProductImage) error
}

// CartRepositoryInterface defines the interface for cart data access.
type CartRepositoryInterface interface {
	GetOrCreate(ctx context.Context, q database.TxQuerier, userID string) (*model.Cart, error)
	GetByUserForUpdate(ctx context.Context, tx database.TxQuerier, userID string) (*model.Cart, error)
	ListLines(ctx context.Context, q database.TxQuerier, cartID int64) ([]model.CartLine, error)
	ListLinesForUpdate(ctx context.Context, tx database.TxQuerier, cartID int64) ([]model.CartLine, error)
	GetItem(ctx context.Context, q database.TxQuerier, cartID, productID int64) (*model.CartItem, error)
	SetItemQuantity(ctx context.Context, q database.TxQuerier, cartID, productID int64, quantity int) error
	DeleteItem(ctx context.Context, q database.TxQuerier, cartID, productID int64) error
	ClearItems(ctx context.Context, q database.TxQuerier, cartID int64) (int64, error)
}

// CouponRepositoryInterface defines the interface for coupon data access.
type CouponRepositoryInterface interface {
	Insert(ctx context.Context, coupon *model.Coupon) error
	GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Coupon, error)
	GetByIDForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Coupon, error)
	GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error)
	List(ctx context.Context, activeAt *time.Time) ([]model.Coupon, error)
	Update(ctx context.Context, tx database.TxQuerier, coupon *model.Coupon) error
	Delete(ctx context.Context, id int64) error
	IncrementUsage(ctx context.Context, tx database.TxQuerier, id int64) error
	Deactivate(ctx context.Context, q database.TxQuerier, id int64) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// OrderRepositoryInterface defines the interface for order data access.
type OrderRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, order *model.Order) error
	InsertItems(ctx context.Context, tx database.TxQuerier, orderID int64, items []model.OrderItem) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Order, error)
	ListItems(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error)
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)
	Update(ctx context.Context, tx database.TxQuerier, order *model.Order) error
	HasDeliveredProduct(ctx context.Context, q database.TxQuerier, userID string, productID int64) (bool, error)
}

// CategoryRepositoryInterface defines the interface for category data access.
type CategoryRepositoryInterface interface {
	List(ctx context.Context) ([]model.Category, error)
	GetBySlug(ctx context.Context, slug string) (*model.Category, error)
	Insert(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id int64) error
}

// ReviewRepositoryInterface defines the interface for product review data access.
type ReviewRepositoryInterface interface {
	List(ctx context.Context, productID int64, limit, offset int) ([]model.Review, error)
	Stats(ctx context.Context, productID int64) (*model.RatingStats, error)
	GetByUser(ctx context.Context, q database.TxQuerier, productID int64, userID string) (*model.Review, error)
	Insert(ctx context.Context, q database.TxQuerier, review *model.Review) error
	Update(ctx context.Context, q database.TxQuerier, review *model.Review) error
	Delete(ctx context.Context, productID int64, userID string) error
}

// OutboxRepositoryInterface defines the interface for writing domain events.
type OutboxRepositoryInterface interface {
	Insert(ctx context.Context, q database.TxQuerier, event *model.OutboxEvent) error
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DefaultLockTimeout bounds row-lock waits of services not configured with WithLockTimeout.
const DefaultLockTimeout = 5 * time.Second

// beginLocked starts a transaction whose row-lock waits are bounded by lockTimeout.
func beginLocked(ctx context.Context, pool TxBeginner, lockTimeout time.Duration) (pgx.Tx, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	if err := database.SetLockTimeout(ctx, tx, lockTimeout); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}

// Repositories bundles the data access dependencies of the services.
type Repositories struct {
	Products ProductRepositoryInterface
	Carts    CartRepositoryInterface
	Coupons  CouponRepositoryInterface
	Orders   OrderRepositoryInterface
	Outbox   OutboxRepositoryInterface
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// normalizePage clamps pagination input to sane bounds.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
