package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

const categoryColumns = `c.id, c.name, c.slug, c.description, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id AND NOT p.is_deleted)`

// CategoryRepository provides data access for categories using pgx.
type CategoryRepository struct {
	base
}

// NewCategoryRepository creates a new CategoryRepository with the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{base{pool: pool}}
}

// NewCategoryRepositoryWithPool creates a new CategoryRepository with a custom pool interface.
// This is primarily used for testing.
func NewCategoryRepositoryWithPool(pool PoolInterface) *CategoryRepository {
	return &CategoryRepository{base{pool: pool}}
}

func scanCategory(row scanner) (*model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt, &c.ProductCount)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns every category ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories c ORDER BY c.name, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}

// GetBySlug returns a category. Returns service.ErrCategoryNotFound if no row exists.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category %q: %w", slug, err)
	}
	return c, nil
}

// Insert inserts a category and fills in its generated fields.
// Returns service.ErrCategoryExists if the name or slug is taken.
func (r *CategoryRepository) Insert(ctx context.Context, c *model.Category) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, slug, description) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Slug, c.Description,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return service.ErrCategoryExists
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// Update writes the editable fields of c.
func (r *CategoryRepository) Update(ctx context.Context, c *model.Category) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE categories SET name = $2, slug = $3, description = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		c.ID, c.Name, c.Slug, c.Description,
	).Scan(&c.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return service.ErrCategoryNotFound
		case database.IsUniqueViolation(err):
			return service.ErrCategoryExists
		}
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return nil
}

// Delete removes a category. Returns service.ErrCategoryInUse while products reference it.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return service.ErrCategoryInUse
		}
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCategoryNotFound
	}
	return nil
}
