package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// CategoryService manages the product categories.
type CategoryService struct {
	categories CategoryRepositoryInterface
}

// NewCategoryService creates a new CategoryService with the given repository.
func NewCategoryService(categories CategoryRepositoryInterface) *CategoryService {
	return &CategoryService{categories: categories}
}

// List returns every category ordered by name, each with its count of live products.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Get returns the category with the given slug.
func (s *CategoryService) Get(ctx context.Context, slug string) (*model.Category, error) {
	category, err := s.categories.GetBySlug(ctx, normalizeSlug(slug))
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

// Create adds a category. Names and slugs are unique.
func (s *CategoryService) Create(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	category := &model.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        normalizeSlug(req.Slug),
		Description: req.Description,
	}
	if err := s.categories.Insert(ctx, category); err != nil {
		if errors.Is(err, ErrCategoryExists) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("insert category: %w", err)
	}
	log.Info().Int64("category_id", category.ID).Str("slug", category.Slug).Msg("category created")
	return category, nil
}

// Update edits the category with the given slug.
func (s *CategoryService) Update(ctx context.Context, slug string, req *model.UpdateCategoryRequest) (*model.Category, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	category, err := s.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		category.Name = strings.TrimSpace(*req.Name)
	}
	if req.Slug != nil {
		category.Slug = normalizeSlug(*req.Slug)
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if err := s.categories.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, ErrCategoryExists):
			return nil, ErrCategoryExists
		case errors.Is(err, ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return category, nil
}

// Delete removes a category. Returns ErrCategoryInUse while any product, deleted or not, references it.
func (s *CategoryService) Delete(ctx context.Context, slug string) error {
	category, err := s.Get(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, category.ID); err != nil {
		switch {
		case errors.Is(err, ErrCategoryInUse):
			return ErrCategoryInUse
		case errors.Is(err, ErrCategoryNotFound):
			return ErrCategoryNotFound
		}
		return fmt.Errorf("delete category: %w", err)
	}
	log.Info().Int64("category_id", category.ID).Str("slug", category.Slug).Msg("category deleted")
	return nil
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
