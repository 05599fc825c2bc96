package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// CouponService provides business logic for coupon administration.
// Eligibility at order time is decided by EvaluateCoupon inside the checkout transaction.
type CouponService struct {
	pool    TxBeginner
	coupons CouponRepositoryInterface
	now     func() time.Time

	lockTimeout time.Duration
}

// NewCouponService creates a new CouponService with the given pool and repository.
func NewCouponService(pool *pgxpool.Pool, coupons CouponRepositoryInterface) *CouponService {
	return NewCouponServiceWithTxBeginner(pool, coupons)
}

// NewCouponServiceWithTxBeginner creates a CouponService with a custom TxBeginner.
// Primarily used for testing.
func NewCouponServiceWithTxBeginner(pool TxBeginner, coupons CouponRepositoryInterface) *CouponService {
	return &CouponService{pool: pool, coupons: coupons, now: time.Now, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout sets how long coupon updates wait for the coupon row lock.
func (s *CouponService) WithLockTimeout(d time.Duration) *CouponService {
	s.lockTimeout = d
	return s
}

// Create creates a new coupon from the request.
// Returns ErrCouponExists if the code is taken and ErrInvalidRequest if request data is nil or incomplete.
func (s *CouponService) Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if req == nil || req.DiscountPercent == nil || req.ExpiresAt == nil {
		return nil, ErrInvalidRequest
	}
	code := NormalizeCouponCode(req.Code)
	if code == "" {
		return nil, &ValidationError{Field: "code", Message: "is required"}
	}

	coupon := &model.Coupon{
		Code:              code,
		DiscountPercent:   *req.DiscountPercent,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MinPurchaseAmount: decimal.Zero,
		IsActive:          true,
		ExpiresAt:         *req.ExpiresAt,
		UsageLimit:        req.UsageLimit,
	}
	if req.MinPurchaseAmount != nil {
		coupon.MinPurchaseAmount = *req.MinPurchaseAmount
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	if coupon.IsExpired(s.now()) {
		coupon.IsActive = false
	}
	if err := validateCoupon(coupon); err != nil {
		return nil, err
	}

	if err := s.coupons.Insert(ctx, coupon); err != nil {
		if errors.Is(err, ErrCouponExists) {
			return nil, ErrCouponExists
		}
		return nil, fmt.Errorf("insert coupon: %w", err)
	}

	log.Info().Str("coupon_code", coupon.Code).Int64("coupon_id", coupon.ID).Msg("coupon created")
	return coupon, nil
}

// Get returns a coupon by id, deactivating it first if it has expired.
func (s *CouponService) Get(ctx context.Context, id int64) (*model.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon.IsActive && coupon.IsExpired(s.now()) {
		if err := s.coupons.Deactivate(ctx, nil, coupon.ID); err != nil {
			return nil, fmt.Errorf("deactivate expired coupon: %w", err)
		}
		coupon.IsActive = false
	}
	return coupon, nil
}

// ListActive returns coupons that are active and unexpired.
func (s *CouponService) ListActive(ctx context.Context) ([]model.Coupon, error) {
	now := s.now()
	coupons, err := s.coupons.List(ctx, &now)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// ListAll returns every coupon, for administration.
func (s *CouponService) ListAll(ctx context.Context) ([]model.Coupon, error) {
	coupons, err := s.coupons.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// Update applies the present fields of req under a row lock.
func (s *CouponService) Update(ctx context.Context, id int64, req *model.UpdateCouponRequest) (*model.Coupon, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	tx, err := beginLocked(ctx, s.pool, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	coupon, err := s.coupons.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, lockErr("lock coupon", err)
	}

	if req.Code != nil {
		coupon.Code = NormalizeCouponCode(*req.Code)
	}
	if req.DiscountPercent != nil {
		coupon.DiscountPercent = *req.DiscountPercent
	}
	if req.ClearMaxDiscount {
		coupon.MaxDiscountAmount = nil
	} else if req.MaxDiscountAmount != nil {
		coupon.MaxDiscountAmount = req.MaxDiscountAmount
	}
	if req.MinPurchaseAmount != nil {
		coupon.MinPurchaseAmount = *req.MinPurchaseAmount
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	if req.ExpiresAt != nil {
		coupon.ExpiresAt = *req.ExpiresAt
	}
	if req.ClearUsageLimit {
		coupon.UsageLimit = nil
	} else if req.UsageLimit != nil {
		coupon.UsageLimit = req.UsageLimit
	}
	if coupon.IsExpired(s.now()) {
		coupon.IsActive = false
	}
	if err := validateCoupon(coupon); err != nil {
		return nil, err
	}

	if err := s.coupons.Update(ctx, tx, coupon); err != nil {
		if errors.Is(err, ErrCouponExists) {
			return nil, ErrCouponExists
		}
		return nil, fmt.Errorf("update coupon: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, lockErr("commit coupon update", err)
	}
	return coupon, nil
}

// Delete removes a coupon. Orders that used it keep their amounts and lose the reference.
func (s *CouponService) Delete(ctx context.Context, id int64) error {
	if err := s.coupons.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return ErrCouponNotFound
		}
		return fmt.Errorf("delete coupon: %w", err)
	}
	return nil
}

// DeactivateExpired marks every active coupon whose expiry has passed as inactive.
func (s *CouponService) DeactivateExpired(ctx context.Context) (int64, error) {
	n, err := s.coupons.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("deactivate expired coupons: %w", err)
	}
	return n, nil
}

func validateCoupon(c *model.Coupon) error {
	if c.Code == "" {
		return &ValidationError{Field: "code", Message: "is required"}
	}
	if c.DiscountPercent.IsNegative() || c.DiscountPercent.GreaterThan(hundred) {
		return &ValidationError{Field: "discount_percent", Message: "must be between 0 and 100"}
	}
	if c.UsageLimit != nil && c.TimesUsed > *c.UsageLimit {
		return &ValidationError{
			Field:   "usage_limit",
			Message: fmt.Sprintf("cannot be lower than times_used (%d)", c.TimesUsed),
		}
	}
	return nil
}
