package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rating bounds of a product review.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is one customer's rating of a product. A customer reviews a product at most once.
type Review struct {
	ID                 int64     `json:"id"`
	ProductID          int64     `json:"product_id"`
	UserID             string    `json:"user_id"`
	Rating             int       `json:"rating"`
	Title              string    `json:"title"`
	Comment            string    `json:"comment"`
	IsVerifiedPurchase bool      `json:"is_verified_purchase"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RatingStats aggregates the reviews of a product. Distribution is keyed by star rating 1 to 5.
type RatingStats struct {
	Average      *decimal.Decimal `json:"average_rating"`
	Count        int              `json:"review_count"`
	Distribution map[int]int      `json:"rating_distribution"`
}

// ReviewListResponse is a page of a product's reviews with its rating summary.
type ReviewListResponse struct {
	RatingStats
	Items []Review `json:"items"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
}

// CreateReviewRequest is the DTO for POST /api/products/:id/reviews.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title   string `json:"title" validate:"max=255"`
	Comment string `json:"comment" validate:"max=5000"`
}

// UpdateReviewRequest is the DTO for PUT /api/products/:id/reviews/mine. Absent fields are left unchanged.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Comment *string `json:"comment" validate:"omitempty,max=5000"`
}
