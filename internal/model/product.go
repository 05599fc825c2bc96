package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. IsInStock always mirrors StockQuantity > 0.
type Product struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Slug          string           `json:"slug"`
	CategoryID    *int64           `json:"category_id"`
	Category      *CategoryRef     `json:"category"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	StockQuantity int              `json:"stock_quantity"`
	IsInStock     bool             `json:"is_in_stock"`
	IsDeleted     bool             `json:"is_deleted"`
	DeletedAt     *time.Time       `json:"deleted_at,omitempty"`
	PrimaryImage  *string          `json:"primary_image"`
	AverageRating *decimal.Decimal `json:"average_rating"`
	ReviewCount   int              `json:"review_count"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ProductImage is an image URL attached to a product. The newest one is the product's primary image.
type ProductImage struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	ImageURL  string    `json:"image_url"`
	AltText   string    `json:"alt_text"`
	CreatedAt time.Time `json:"created_at"`
}

// Product list sort orders.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNameAsc   = "name_asc"
)

// ProductFilter narrows GET /api/products. Category matches a category slug, or its id when numeric.
type ProductFilter struct {
	Query          string
	Category       string
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
	InStockOnly    bool
	IncludeDeleted bool
	Sort           string
	Page           int
	Limit          int
}

// ProductListResponse is a page of products.
type ProductListResponse struct {
	Items []Product `json:"items"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Total int       `json:"total"`
}

// CreateProductRequest is the DTO for POST /api/admin/products.
type CreateProductRequest struct {
	Name          string           `json:"name" validate:"required,notblank,max=255"`
	Slug          string           `json:"slug" validate:"required,notblank,max=255"`
	CategoryID    *int64           `json:"category_id" validate:"omitempty,gt=0"`
	Description   string           `json:"description"`
	Price         *decimal.Decimal `json:"price" validate:"required,gte=0"`
	StockQuantity *int             `json:"stock_quantity" validate:"required,gte=0"`
}

// UpdateProductRequest is the DTO for PUT /api/admin/products/:id. Absent fields are left unchanged.
type UpdateProductRequest struct {
	Name          *string          `json:"name" validate:"omitempty,notblank,max=255"`
	Slug          *string          `json:"slug" validate:"omitempty,notblank,max=255"`
	CategoryID    *int64           `json:"category_id" validate:"omitempty,gt=0"`
	ClearCategory bool             `json:"clear_category"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	StockQuantity *int             `json:"stock_quantity" validate:"omitempty,gte=0"`
}

// AddProductImageRequest is the DTO for POST /api/admin/products/:id/images.
type AddProductImageRequest struct {
	ImageURL string `json:"image_url" validate:"required,url,max=2048"`
	AltText  string `json:"alt_text" validate:"max=255"`
}
