package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// ProductService provides the catalog and its administration.
type ProductService struct {
	pool     TxBeginner
	products ProductRepositoryInterface
	now      func() time.Time

	lockTimeout time.Duration
}

// NewProductService creates a new ProductService with the given pool and repository.
func NewProductService(pool *pgxpool.Pool, products ProductRepositoryInterface) *ProductService {
	return NewProductServiceWithTxBeginner(pool, products)
}

// NewProductServiceWithTxBeginner creates a ProductService with a custom TxBeginner.
// Primarily used for testing.
func NewProductServiceWithTxBeginner(pool TxBeginner, products ProductRepositoryInterface) *ProductService {
	return &ProductService{pool: pool, products: products, now: time.Now, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout sets how long product edits wait for the product row lock.
func (s *ProductService) WithLockTimeout(d time.Duration) *ProductService {
	s.lockTimeout = d
	return s
}

// List returns a page of products matching filter.
func (s *ProductService) List(ctx context.Context, filter model.ProductFilter) (*model.ProductListResponse, error) {
	switch filter.Sort {
	case "":
		filter.Sort = model.SortNewest
	case model.SortNewest, model.SortPriceAsc, model.SortPriceDesc, model.SortNameAsc:
	default:
		return nil, &ValidationError{Field: "sort", Message: "must be one of newest, price_asc, price_desc, name_asc"}
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, &ValidationError{Field: "min_price", Message: "must not exceed max_price"}
	}
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &model.ProductListResponse{
		Items: products,
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	}, nil
}

// Get returns a product that has not been soft-deleted.
func (s *ProductService) Get(ctx context.Context, id int64) (*model.Product, error) {
	product, err := s.AdminGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.IsDeleted {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// AdminGet returns a product whether or not it is soft-deleted.
func (s *ProductService) AdminGet(ctx context.Context, id int64) (*model.Product, error) {
	product, err := s.products.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// Create adds a product to the catalog.
func (s *ProductService) Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	if req == nil || req.Price == nil || req.StockQuantity == nil {
		return nil, ErrInvalidRequest
	}
	product := &model.Product{
		Name:          strings.TrimSpace(req.Name),
		Slug:          strings.ToLower(strings.TrimSpace(req.Slug)),
		CategoryID:    req.CategoryID,
		Description:   req.Description,
		Price:         req.Price.Round(2),
		StockQuantity: *req.StockQuantity,
	}
	product.IsInStock = product.StockQuantity > 0

	if err := s.products.Insert(ctx, product); err != nil {
		switch {
		case errors.Is(err, ErrProductExists):
			return nil, ErrProductExists
		case errors.Is(err, ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}
	log.Info().Int64("product_id", product.ID).Str("slug", product.Slug).Msg("product created")
	return product, nil
}

// Update edits a product under a row lock, so it serializes with checkouts touching the same product.
func (s *ProductService) Update(ctx context.Context, id int64, req *model.UpdateProductRequest) (*model.Product, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	return s.mutate(ctx, id, func(p *model.Product) (bool, error) {
		if p.IsDeleted {
			return false, ErrProductNotFound
		}
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Slug != nil {
			p.Slug = strings.ToLower(strings.TrimSpace(*req.Slug))
		}
		switch {
		case req.ClearCategory:
			p.CategoryID, p.Category = nil, nil
		case req.CategoryID != nil:
			p.CategoryID = req.CategoryID
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Price != nil {
			p.Price = req.Price.Round(2)
		}
		if req.StockQuantity != nil {
			if *req.StockQuantity < 0 {
				return false, &ValidationError{Field: "stock_quantity", Message: "must be at least 0"}
			}
			p.StockQuantity = *req.StockQuantity
		}
		p.IsInStock = p.StockQuantity > 0
		return true, nil
	})
}

// SoftDelete hides a product from the catalog and from checkout.
func (s *ProductService) SoftDelete(ctx context.Context, id int64) error {
	_, err := s.mutate(ctx, id, func(p *model.Product) (bool, error) {
		if p.IsDeleted {
			return false, nil
		}
		now := s.now().UTC()
		p.IsDeleted = true
		p.DeletedAt = &now
		return false, nil
	})
	return err
}

// Restore undoes SoftDelete. Returns ErrProductNotDeleted for a product that is live.
func (s *ProductService) Restore(ctx context.Context, id int64) (*model.Product, error) {
	return s.mutate(ctx, id, func(p *model.Product) (bool, error) {
		if !p.IsDeleted {
			return false, ErrProductNotDeleted
		}
		p.IsDeleted = false
		p.DeletedAt = nil
		return false, nil
	})
}

// AddImage attaches an image URL. The newest image becomes the product's primary image.
func (s *ProductService) AddImage(ctx context.Context, productID int64, req *model.AddProductImageRequest) (*model.ProductImage, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if _, err := s.Get(ctx, productID); err != nil {
		return nil, err
	}
	image := &model.ProductImage{
		ProductID: productID,
		ImageURL:  strings.TrimSpace(req.ImageURL),
		AltText:   req.AltText,
	}
	if err := s.products.AddImage(ctx, image); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("add product image: %w", err)
	}
	return image, nil
}

// mutate locks the product row and applies fn. Soft-delete state changes are saved
// through SetDeleted; other fields through Update when fn reports them changed.
func (s *ProductService) mutate(ctx context.Context, id int64, fn func(p *model.Product) (bool, error)) (*model.Product, error) {
	tx, err := beginLocked(ctx, s.pool, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	product, err := s.products.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, lockErr("lock product", err)
	}
	wasDeleted := product.IsDeleted

	changed, err := fn(product)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.products.Update(ctx, tx, product); err != nil {
			switch {
			case errors.Is(err, ErrProductExists):
				return nil, ErrProductExists
			case errors.Is(err, ErrCategoryNotFound):
				return nil, ErrCategoryNotFound
			}
			return nil, fmt.Errorf("update product: %w", err)
		}
	}
	if product.IsDeleted != wasDeleted {
		if err := s.products.SetDeleted(ctx, tx, id, product.DeletedAt); err != nil {
			return nil, fmt.Errorf("set product deleted: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, lockErr("commit product", err)
	}
	return product, nil
}
