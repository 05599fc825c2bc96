package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs to exactly one user and is created on first use.
type Cart struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartItem is one product in a cart. Quantity is at least 1.
type CartItem struct {
	ID        int64     `json:"id"`
	CartID    int64     `json:"cart_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// CartLine is a cart item joined with the current state of its product.
type CartLine struct {
	ItemID        int64
	ProductID     int64
	Quantity      int
	ProductName   string
	UnitPrice     decimal.Decimal
	StockQuantity int
	IsDeleted     bool
	PrimaryImage  *string
}

// LineTotal is the current unit price times the quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartItemView is a cart line as returned by the API.
type CartItemView struct {
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name"`
	PrimaryImage  *string         `json:"primary_image"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	LineTotal     decimal.Decimal `json:"line_total"`
	IsAvailable   bool            `json:"is_available"`
	StockQuantity int             `json:"stock_quantity"`
}

// CartResponse is the API representation of a cart.
type CartResponse struct {
	ID         int64           `json:"id"`
	Items      []CartItemView  `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CartSummary is the lightweight cart badge payload.
type CartSummary struct {
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// AddCartItemRequest is the DTO for POST /api/cart/items. Quantity defaults to 1.
type AddCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"omitempty,gte=1,lte=1000"`
}

// UpdateCartItemRequest is the DTO for PATCH /api/cart/items/:productId.
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=1,lte=1000"`
}
