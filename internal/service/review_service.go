package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// ReviewService manages product reviews. A review is marked as a verified purchase
// when its author has a DELIVERED order containing the product.
type ReviewService struct {
	reviews  ReviewRepositoryInterface
	products ProductRepositoryInterface
	orders   OrderRepositoryInterface
}

// NewReviewService creates a new ReviewService with the given repositories.
func NewReviewService(reviews ReviewRepositoryInterface, products ProductRepositoryInterface, orders OrderRepositoryInterface) *ReviewService {
	return &ReviewService{reviews: reviews, products: products, orders: orders}
}

// List returns a page of a product's reviews, newest first, with its rating summary.
func (s *ReviewService) List(ctx context.Context, productID int64, page, limit int) (*model.ReviewListResponse, error) {
	if err := s.requireLiveProduct(ctx, productID); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)

	stats, err := s.reviews.Stats(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("review stats: %w", err)
	}
	items, err := s.reviews.List(ctx, productID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return &model.ReviewListResponse{RatingStats: *stats, Items: items, Page: page, Limit: limit}, nil
}

// Create records the caller's review of a product. Each customer reviews a product once.
func (s *ReviewService) Create(ctx context.Context, userID string, productID int64, req *model.CreateReviewRequest) (*model.Review, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if err := checkRating(req.Rating); err != nil {
		return nil, err
	}
	if err := s.requireLiveProduct(ctx, productID); err != nil {
		return nil, err
	}
	if _, err := s.reviews.GetByUser(ctx, nil, productID, userID); err == nil {
		return nil, ErrReviewExists
	} else if !errors.Is(err, ErrReviewNotFound) {
		return nil, fmt.Errorf("get review: %w", err)
	}

	verified, err := s.orders.HasDeliveredProduct(ctx, nil, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}
	review := &model.Review{
		ProductID:          productID,
		UserID:             userID,
		Rating:             req.Rating,
		Title:              strings.TrimSpace(req.Title),
		Comment:            req.Comment,
		IsVerifiedPurchase: verified,
	}
	if err := s.reviews.Insert(ctx, nil, review); err != nil {
		if errors.Is(err, ErrReviewExists) {
			return nil, ErrReviewExists
		}
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}
	log.Info().Int64("review_id", review.ID).Int64("product_id", productID).
		Bool("verified_purchase", verified).Msg("review created")
	return review, nil
}

// GetMine returns the caller's review of a product.
func (s *ReviewService) GetMine(ctx context.Context, userID string, productID int64) (*model.Review, error) {
	review, err := s.reviews.GetByUser(ctx, nil, productID, userID)
	if err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// UpdateMine edits the caller's review. The verified purchase flag is re-evaluated,
// so a review written before delivery becomes verified once the order is delivered.
func (s *ReviewService) UpdateMine(ctx context.Context, userID string, productID int64, req *model.UpdateReviewRequest) (*model.Review, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	review, err := s.GetMine(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if req.Rating != nil {
		if err := checkRating(*req.Rating); err != nil {
			return nil, err
		}
		review.Rating = *req.Rating
	}
	if req.Title != nil {
		review.Title = strings.TrimSpace(*req.Title)
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}
	if review.IsVerifiedPurchase, err = s.orders.HasDeliveredProduct(ctx, nil, userID, productID); err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}
	if err := s.reviews.Update(ctx, nil, review); err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	return review, nil
}

// DeleteMine removes the caller's review of a product.
func (s *ReviewService) DeleteMine(ctx context.Context, userID string, productID int64) error {
	if err := s.reviews.Delete(ctx, productID, userID); err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

func (s *ReviewService) requireLiveProduct(ctx context.Context, productID int64) error {
	product, err := s.products.GetByID(ctx, nil, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("get product: %w", err)
	}
	if product.IsDeleted {
		return ErrProductNotFound
	}
	return nil
}

func checkRating(rating int) error {
	if rating < model.MinRating || rating > model.MaxRating {
		return &ValidationError{Field: "rating", Message: "must be between 1 and 5"}
	}
	return nil
}
