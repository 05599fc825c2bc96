package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

const reviewColumns = `id, product_id, user_id, rating, title, comment, is_verified_purchase, created_at, updated_at`

// ReviewRepository provides data access for product reviews using pgx.
type ReviewRepository struct {
	base
}

// NewReviewRepository creates a new ReviewRepository with the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{base{pool: pool}}
}

// NewReviewRepositoryWithPool creates a new ReviewRepository with a custom pool interface.
// This is primarily used for testing.
func NewReviewRepositoryWithPool(pool PoolInterface) *ReviewRepository {
	return &ReviewRepository{base{pool: pool}}
}

func scanReview(row scanner) (*model.Review, error) {
	var rv model.Review
	err := row.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Title, &rv.Comment,
		&rv.IsVerifiedPurchase, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// List returns a page of a product's reviews, newest first.
func (r *ReviewRepository) List(ctx context.Context, productID int64, limit, offset int) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM product_reviews
		 WHERE product_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

// Stats aggregates a product's ratings in one pass. Average is nil when there are no reviews.
func (r *ReviewRepository) Stats(ctx context.Context, productID int64) (*model.RatingStats, error) {
	var (
		avg    decimal.NullDecimal
		counts [model.MaxRating + 1]int
	)
	err := r.pool.QueryRow(ctx,
		`SELECT ROUND(AVG(rating), 1),
		        COUNT(*) FILTER (WHERE rating = 1),
		        COUNT(*) FILTER (WHERE rating = 2),
		        COUNT(*) FILTER (WHERE rating = 3),
		        COUNT(*) FILTER (WHERE rating = 4),
		        COUNT(*) FILTER (WHERE rating = 5)
		 FROM product_reviews WHERE product_id = $1`,
		productID,
	).Scan(&avg, &counts[1], &counts[2], &counts[3], &counts[4], &counts[5])
	if err != nil {
		return nil, fmt.Errorf("review stats for product %d: %w", productID, err)
	}

	stats := &model.RatingStats{Distribution: make(map[int]int, model.MaxRating)}
	for rating := model.MinRating; rating <= model.MaxRating; rating++ {
		stats.Distribution[rating] = counts[rating]
		stats.Count += counts[rating]
	}
	if avg.Valid {
		stats.Average = &avg.Decimal
	}
	return stats, nil
}

// GetByUser returns userID's review of a product. Returns service.ErrReviewNotFound if there is none.
func (r *ReviewRepository) GetByUser(ctx context.Context, q database.TxQuerier, productID int64, userID string) (*model.Review, error) {
	rv, err := scanReview(r.on(q).QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM product_reviews WHERE product_id = $1 AND user_id = $2`,
		productID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrReviewNotFound
		}
		return nil, fmt.Errorf("get review of product %d: %w", productID, err)
	}
	return rv, nil
}

// Insert inserts a review and fills in its generated fields. Returns service.ErrReviewExists
// if the user already reviewed the product and service.ErrProductNotFound if the product is gone.
func (r *ReviewRepository) Insert(ctx context.Context, q database.TxQuerier, rv *model.Review) error {
	err := r.on(q).QueryRow(ctx,
		`INSERT INTO product_reviews (product_id, user_id, rating, title, comment, is_verified_purchase)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		rv.ProductID, rv.UserID, rv.Rating, rv.Title, rv.Comment, rv.IsVerifiedPurchase,
	).Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return service.ErrReviewExists
		case database.IsForeignKeyViolation(err):
			return service.ErrProductNotFound
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// Update writes the editable fields of rv.
func (r *ReviewRepository) Update(ctx context.Context, q database.TxQuerier, rv *model.Review) error {
	err := r.on(q).QueryRow(ctx,
		`UPDATE product_reviews
		 SET rating = $2, title = $3, comment = $4, is_verified_purchase = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		rv.ID, rv.Rating, rv.Title, rv.Comment, rv.IsVerifiedPurchase,
	).Scan(&rv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrReviewNotFound
		}
		return fmt.Errorf("update review %d: %w", rv.ID, err)
	}
	return nil
}

// Delete removes userID's review of a product.
func (r *ReviewRepository) Delete(ctx context.Context, productID int64, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM product_reviews WHERE product_id = $1 AND user_id = $2`, productID, userID)
	if err != nil {
		return fmt.Errorf("delete review of product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrReviewNotFound
	}
	return nil
}
