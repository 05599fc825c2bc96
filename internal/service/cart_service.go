package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// CartService manages the caller's cart. Carts are created on first access.
type CartService struct {
	pool     TxBeginner
	db       database.TxQuerier
	carts    CartRepositoryInterface
	products ProductRepositoryInterface

	lockTimeout time.Duration
}

// CartPool is what CartService needs from the database: transactions and plain queries.
type CartPool interface {
	TxBeginner
	database.TxQuerier
}

// NewCartService creates a new CartService with the given pool and repositories.
func NewCartService(pool *pgxpool.Pool, carts CartRepositoryInterface, products ProductRepositoryInterface) *CartService {
	return NewCartServiceWithPool(pool, carts, products)
}

// NewCartServiceWithPool creates a CartService with a custom pool.
// Primarily used for testing.
func NewCartServiceWithPool(pool CartPool, carts CartRepositoryInterface, products ProductRepositoryInterface) *CartService {
	return &CartService{pool: pool, db: pool, carts: carts, products: products, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout sets how long cart edits wait for the cart and product row locks.
func (s *CartService) WithLockTimeout(d time.Duration) *CartService {
	s.lockTimeout = d
	return s
}

// Get returns the user's cart with current prices.
func (s *CartService) Get(ctx context.Context, userID string) (*model.CartResponse, error) {
	cart, err := s.carts.GetOrCreate(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	lines, err := s.carts.ListLines(ctx, s.db, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	return buildCartResponse(cart, lines), nil
}

// Summary returns the item count and total price of the user's cart.
func (s *CartService) Summary(ctx context.Context, userID string) (*model.CartSummary, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.CartSummary{TotalItems: cart.TotalItems, TotalPrice: cart.TotalPrice}, nil
}

// AddItem adds quantity units of a product, merging with an existing line.
// The product must be purchasable and have stock for the resulting quantity.
func (s *CartService) AddItem(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.CartResponse, error) {
	if req == nil || req.ProductID <= 0 {
		return nil, &ValidationError{Field: "product_id", Message: "is required"}
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, &ValidationError{Field: "quantity", Message: "must be at least 1"}
	}

	err := s.inTx(ctx, userID, func(tx database.TxQuerier, cart *model.Cart) error {
		product, err := s.lockProduct(ctx, tx, req.ProductID)
		if err != nil {
			return err
		}

		current := 0
		item, err := s.carts.GetItem(ctx, tx, cart.ID, product.ID)
		switch {
		case err == nil:
			current = item.Quantity
		case !errors.Is(err, ErrCartItemNotFound):
			return fmt.Errorf("get cart item: %w", err)
		}

		if err := checkStock(product, current+quantity); err != nil {
			return err
		}
		if err := s.carts.SetItemQuantity(ctx, tx, cart.ID, product.ID, current+quantity); err != nil {
			return fmt.Errorf("set cart item quantity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// UpdateItem sets the quantity of a product already in the cart.
func (s *CartService) UpdateItem(ctx context.Context, userID string, productID int64, quantity int) (*model.CartResponse, error) {
	if quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Message: "must be at least 1"}
	}

	err := s.inTx(ctx, userID, func(tx database.TxQuerier, cart *model.Cart) error {
		if _, err := s.carts.GetItem(ctx, tx, cart.ID, productID); err != nil {
			if errors.Is(err, ErrCartItemNotFound) {
				return ErrCartItemNotFound
			}
			return fmt.Errorf("get cart item: %w", err)
		}
		product, err := s.lockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if err := checkStock(product, quantity); err != nil {
			return err
		}
		if err := s.carts.SetItemQuantity(ctx, tx, cart.ID, productID, quantity); err != nil {
			return fmt.Errorf("set cart item quantity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// RemoveItem deletes a product from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID string, productID int64) (*model.CartResponse, error) {
	cart, err := s.carts.GetOrCreate(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if err := s.carts.DeleteItem(ctx, s.db, cart.ID, productID); err != nil {
		if errors.Is(err, ErrCartItemNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("delete cart item: %w", err)
	}
	return s.Get(ctx, userID)
}

// Clear removes every item from the cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	cart, err := s.carts.GetOrCreate(ctx, s.db, userID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}
	if _, err := s.carts.ClearItems(ctx, s.db, cart.ID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// inTx runs fn with the user's cart row locked, then the product row locked inside fn,
// matching the lock order used by checkout.
func (s *CartService) inTx(ctx context.Context, userID string, fn func(tx database.TxQuerier, cart *model.Cart) error) error {
	tx, err := beginLocked(ctx, s.pool, s.lockTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cart, err := s.carts.GetOrCreate(ctx, tx, userID)
	if err != nil {
		return lockErr("lock cart", err)
	}
	if err := fn(tx, cart); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return lockErr("commit cart", err)
	}
	return nil
}

func (s *CartService) lockProduct(ctx context.Context, tx database.TxQuerier, id int64) (*model.Product, error) {
	product, err := s.products.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, lockErr("lock product", err)
	}
	if product.IsDeleted {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func checkStock(product *model.Product, want int) error {
	if !product.IsInStock || want > product.StockQuantity {
		return &InsufficientStockError{Shortages: []model.Shortage{{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   want,
			Available:   product.StockQuantity,
		}}}
	}
	return nil
}

func buildCartResponse(cart *model.Cart, lines []model.CartLine) *model.CartResponse {
	resp := &model.CartResponse{
		ID:         cart.ID,
		Items:      make([]model.CartItemView, 0, len(lines)),
		TotalPrice: decimal.Zero,
	}
	for _, line := range lines {
		total := line.LineTotal()
		resp.Items = append(resp.Items, model.CartItemView{
			ProductID:     line.ProductID,
			ProductName:   line.ProductName,
			PrimaryImage:  line.PrimaryImage,
			UnitPrice:     line.UnitPrice,
			Quantity:      line.Quantity,
			LineTotal:     total,
			IsAvailable:   !line.IsDeleted && line.StockQuantity >= line.Quantity,
			StockQuantity: line.StockQuantity,
		})
		resp.TotalItems += line.Quantity
		resp.TotalPrice = resp.TotalPrice.Add(total)
	}
	return resp
}
