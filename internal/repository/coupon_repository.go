package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

const couponColumns = `id, code, discount_percent, max_discount_amount, min_purchase_amount,
	is_active, expires_at, usage_limit, times_used, created_at, updated_at`

// CouponRepository provides data access for coupons using pgx.
type CouponRepository struct {
	base
}

// NewCouponRepository creates a new CouponRepository with the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{base{pool: pool}}
}

// NewCouponRepositoryWithPool creates a new CouponRepository with a custom pool interface.
// This is primarily used for testing.
func NewCouponRepositoryWithPool(pool PoolInterface) *CouponRepository {
	return &CouponRepository{base{pool: pool}}
}

func scanCoupon(row scanner) (*model.Coupon, error) {
	var c model.Coupon
	var maxDiscount decimal.NullDecimal
	err := row.Scan(
		&c.ID, &c.Code, &c.DiscountPercent, &maxDiscount, &c.MinPurchaseAmount,
		&c.IsActive, &c.ExpiresAt, &c.UsageLimit, &c.TimesUsed, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if maxDiscount.Valid {
		c.MaxDiscountAmount = &maxDiscount.Decimal
	}
	return &c, nil
}

// Insert inserts a new coupon and fills in its generated fields.
// Returns service.ErrCouponExists if the code is taken.
func (r *CouponRepository) Insert(ctx context.Context, c *model.Coupon) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO coupons (code, discount_percent, max_discount_amount, min_purchase_amount,
		                      is_active, expires_at, usage_limit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, times_used, created_at, updated_at`,
		c.Code, c.DiscountPercent, c.MaxDiscountAmount, c.MinPurchaseAmount,
		c.IsActive, c.ExpiresAt, c.UsageLimit,
	).Scan(&c.ID, &c.TimesUsed, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return service.ErrCouponExists
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

func (r *CouponRepository) getOne(ctx context.Context, q database.TxQuerier, query string, key any) (*model.Coupon, error) {
	c, err := scanCoupon(q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon %v: %w", key, err)
	}
	return c, nil
}

// GetByID returns a coupon. Returns service.ErrCouponNotFound if it doesn't exist.
func (r *CouponRepository) GetByID(ctx context.Context, q database.TxQuerier, id int64) (*model.Coupon, error) {
	return r.getOne(ctx, r.on(q), `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id)
}

// GetByIDForUpdate returns a coupon with a row lock (SELECT FOR UPDATE).
func (r *CouponRepository) GetByIDForUpdate(ctx context.Context, tx database.TxQuerier, id int64) (*model.Coupon, error) {
	return r.getOne(ctx, tx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1 FOR UPDATE`, id)
}

// GetByCodeForUpdate returns a coupon by code with a row lock held until the transaction completes.
func (r *CouponRepository) GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Coupon, error) {
	return r.getOne(ctx, tx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1 FOR UPDATE`, code)
}

// List returns coupons, newest first. With activeAt set, only coupons that are
// active and unexpired at that instant are returned.
func (r *CouponRepository) List(ctx context.Context, activeAt *time.Time) ([]model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC, id DESC`
	var args []any
	if activeAt != nil {
		query = `SELECT ` + couponColumns + ` FROM coupons
			WHERE is_active AND expires_at > $1
			ORDER BY created_at DESC, id DESC`
		args = append(args, *activeAt)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []model.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}
	return coupons, nil
}

// Update writes every editable field of c. times_used is never written here.
func (r *CouponRepository) Update(ctx context.Context, tx database.TxQuerier, c *model.Coupon) error {
	err := r.on(tx).QueryRow(ctx,
		`UPDATE coupons
		 SET code = $2, discount_percent = $3, max_discount_amount = $4, min_purchase_amount = $5,
		     is_active = $6, expires_at = $7, usage_limit = $8, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		c.ID, c.Code, c.DiscountPercent, c.MaxDiscountAmount, c.MinPurchaseAmount,
		c.IsActive, c.ExpiresAt, c.UsageLimit,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrCouponNotFound
		}
		if database.IsUniqueViolation(err) {
			return service.ErrCouponExists
		}
		return fmt.Errorf("update coupon %d: %w", c.ID, err)
	}
	return nil
}

// Delete removes a coupon. Orders referencing it keep a NULL coupon_id.
func (r *CouponRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}

// IncrementUsage adds one to times_used.
// Must be called within a transaction after locking the row.
func (r *CouponRepository) IncrementUsage(ctx context.Context, tx database.TxQuerier, id int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE coupons SET times_used = times_used + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment usage for coupon %d: %w", id, err)
	}
	return nil
}

// Deactivate clears is_active on one coupon.
func (r *CouponRepository) Deactivate(ctx context.Context, q database.TxQuerier, id int64) error {
	_, err := r.on(q).Exec(ctx,
		`UPDATE coupons SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("deactivate coupon %d: %w", id, err)
	}
	return nil
}

// DeactivateExpired clears is_active on every active coupon that expired before now.
func (r *CouponRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE coupons SET is_active = FALSE, updated_at = NOW() WHERE is_active AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired coupons: %w", err)
	}
	return tag.RowsAffected(), nil
}
