package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// primaryImageSQL resolves a product's primary image: its most recently added image row.
const primaryImageSQL = `(SELECT pi.image_url FROM product_images pi
	WHERE pi.product_id = p.id ORDER BY pi.created_at DESC, pi.id DESC LIMIT 1)`

// ratingSQL aggregates a product's reviews: the average rounded to one decimal, then the count.
const ratingSQL = `(SELECT ROUND(AVG(r.rating), 1) FROM product_reviews r WHERE r.product_id = p.id),
	(SELECT COUNT(*) FROM product_reviews r WHERE r.product_id = p.id)`

const productColumns = `p.id, p.name, p.slug, p.category_id, c.name, c.slug, p.description, p.price,
	p.stock_quantity, p.is_in_stock, p.is_deleted, p.deleted_at, p.created_at, p.updated_at, ` +
	primaryImageSQL + `, ` + ratingSQL

const productFrom = ` FROM products p LEFT JOIN categories c ON c.id = p.category_id`

var productSorts = map[string]string{
	model.SortNewest:    "p.created_at DESC, p.id DESC",
	model.SortPriceAsc:  "p.price ASC, p.id ASC",
	model.SortPriceDesc: "p.price DESC, p.id DESC",
	model.SortNameAsc:   "p.name ASC, p.id ASC",
}

// ProductRepository provides data access for products using pgx.
type ProductRepository struct {
	base
}

// NewProductRepository creates a new ProductRepository with the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{base{pool: pool}}
}

// NewProductRepositoryWithPool creates a new ProductRepository with a custom pool interface.
// This is primarily used for testing.
func NewProductRepositoryWithPool(pool PoolInterface) *ProductRepository {
	return &ProductRepository{base{pool: pool}}
}

func scanProduct(row scanner) (*model.Product, error) {
	var (
		p                model.Product
		catName, catSlug *string
		avg              decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.CategoryID, &catName, &catSlug, &p.Description, &p.Price,
		&p.StockQuantity, &p.IsInStock, &p.IsDeleted, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
		&p.PrimaryImage, &avg, &p.ReviewCount,
	)
	if err != nil {
		return nil, err
	}
	p.Category = categoryRef(p.CategoryID, catName, catSlug)
	if avg.Valid {
		p.AverageRating = &avg.Decimal
	}
	return &p, nil
}

// categoryRef builds the embedded category of a product from its LEFT JOIN columns.
func categoryRef(id *int64, name, slug *string) *model.CategoryRef {
	if id == nil || name == nil || slug == nil {
		return nil
	}
	return &model.CategoryRef{ID: *id, Name: *name, Slug: *slug}
}

// List returns one page of products matching filter and the total match count.
func (r *ProductRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error) {
	var w whereBuilder
	if !filter.IncludeDeleted {
		w.add("NOT p.is_deleted")
	}
	if filter.Query != "" {
		ph := w.arg("%" + escapeLike(filter.Query) + "%")
		w.add(fmt.Sprintf("(p.name ILIKE %s OR p.description ILIKE %s OR c.name ILIKE %s)", ph, ph, ph))
	}
	if filter.Category != "" {
		slug := w.arg(strings.ToLower(filter.Category))
		if id, err := strconv.ParseInt(filter.Category, 10, 64); err == nil {
			w.add(fmt.Sprintf("(c.slug = %s OR p.category_id = %s)", slug, w.arg(id)))
		} else {
			w.add("c.slug = " + slug)
		}
	}
	if filter.MinPrice != nil {
		w.add("p.price >= " + w.arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		w.add("p.price <= " + w.arg(*filter.MaxPrice))
	}
	if filter.InStockOnly {
		w.add("p.is_in_stock")
	}

	var total int
	countSQL := `SELECT COUNT(*)` + productFrom + w.clause()
	if err := r.pool.QueryRow(ctx, countSQL, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	order, ok := productSorts[filter.Sort]
	if !ok {
		order = productSorts[model.SortNewest]
	}
	where := w.clause()
	limit := w.arg(filter.Limit)
	offset := w.arg((filter.Page - 1) * filter.Limit)
	query := `SELECT ` + productColumns + productFrom + where +
		` ORDER BY ` + order + ` LIMIT ` + limit + ` OFFSET ` + offset

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, total, nil
}

// GetByID returns a product, soft-deleted or not.
// Returns service.ErrProductNotFound if no row exists.
func (r *ProductRepository) GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` WHERE p.id = $1`
	p, err := scanProduct(r.on(q).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// GetForUpdate returns a product with a row lock held until the transaction ends.
func (r *ProductRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Product, error) {
	query := `SELECT ` + productColumns + productFrom + ` WHERE p.id = $1 FOR UPDATE OF p`
	p, err := scanProduct(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product for update %d: %w", id, err)
	}
	return p, nil
}

// Insert inserts a product and fills in its generated fields and category.
// Returns service.ErrProductExists if the slug is taken and
// service.ErrCategoryNotFound if the category does not exist.
func (r *ProductRepository) Insert(ctx context.Context, p *model.Product) error {
	var catName, catSlug *string
	err := r.pool.QueryRow(ctx,
		`WITH ins AS (
			INSERT INTO products (name, slug, category_id, description, price, stock_quantity, is_in_stock)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, category_id, created_at, updated_at
		)
		SELECT ins.id, ins.created_at, ins.updated_at, c.name, c.slug
		FROM ins LEFT JOIN categories c ON c.id = ins.category_id`,
		p.Name, p.Slug, p.CategoryID, p.Description, p.Price, p.StockQuantity, p.IsInStock,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &catName, &catSlug)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return service.ErrProductExists
		case database.IsForeignKeyViolation(err):
			return service.ErrCategoryNotFound
		}
		return fmt.Errorf("insert product: %w", err)
	}
	p.Category = categoryRef(p.CategoryID, catName, catSlug)
	return nil
}

// Update writes the editable fields of p and refreshes its category summary.
func (r *ProductRepository) Update(ctx context.Context, tx database.TxQuerier, p *model.Product) error {
	var catName, catSlug *string
	err := r.on(tx).QueryRow(ctx,
		`WITH upd AS (
			UPDATE products
			SET name = $2, slug = $3, category_id = $4, description = $5, price = $6,
			    stock_quantity = $7, is_in_stock = $8, updated_at = NOW()
			WHERE id = $1
			RETURNING category_id, updated_at
		)
		SELECT upd.updated_at, c.name, c.slug
		FROM upd LEFT JOIN categories c ON c.id = upd.category_id`,
		p.ID, p.Name, p.Slug, p.CategoryID, p.Description, p.Price, p.StockQuantity, p.IsInStock,
	).Scan(&p.UpdatedAt, &catName, &catSlug)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return service.ErrProductNotFound
		case database.IsUniqueViolation(err):
			return service.ErrProductExists
		case database.IsForeignKeyViolation(err):
			return service.ErrCategoryNotFound
		}
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	p.Category = categoryRef(p.CategoryID, catName, catSlug)
	return nil
}

// SetDeleted soft-deletes the product when deletedAt is set and restores it when nil.
func (r *ProductRepository) SetDeleted(ctx context.Context, tx database.TxQuerier, id int64, deletedAt *time.Time) error {
	tag, err := r.on(tx).Exec(ctx,
		`UPDATE products SET is_deleted = $2, deleted_at = $3, updated_at = NOW() WHERE id = $1`,
		id, deletedAt != nil, deletedAt)
	if err != nil {
		return fmt.Errorf("set product %d deleted: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrProductNotFound
	}
	return nil
}

// DecrementStock lowers stock by quantity, floored at zero, and recomputes is_in_stock.
// Must be called within a transaction after locking the row.
func (r *ProductRepository) DecrementStock(ctx context.Context, tx database.TxQuerier, id int64, quantity int) error {
	tag, err := tx.Exec(ctx,
		`UPDATE products
		 SET stock_quantity = GREATEST(stock_quantity - $2, 0),
		     is_in_stock = GREATEST(stock_quantity - $2, 0) > 0,
		     updated_at = NOW()
		 WHERE id = $1`,
		id, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock for %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrProductNotFound
	}
	return nil
}

// AddImage inserts an image row. Returns service.ErrProductNotFound if the product does not exist.
func (r *ProductRepository) AddImage(ctx context.Context, img *model.ProductImage) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO product_images (product_id, image_url, alt_text) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		img.ProductID, img.ImageURL, img.AltText,
	).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return service.ErrProductNotFound
		}
		return fmt.Errorf("insert product image: %w", err)
	}
	return nil
}
