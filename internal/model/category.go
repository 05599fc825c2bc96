package model

import "time"

// Category groups products in the catalog.
type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CategoryRef is the category summary embedded in a product.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CreateCategoryRequest is the DTO for POST /api/admin/categories.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=255"`
	Slug        string `json:"slug" validate:"required,notblank,max=255"`
	Description string `json:"description"`
}

// UpdateCategoryRequest is the DTO for PUT /api/admin/categories/:slug. Absent fields are left unchanged.
type UpdateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=255"`
	Slug        *string `json:"slug" validate:"omitempty,notblank,max=255"`
	Description *string `json:"description"`
}
