package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// CouponServiceInterface defines the interface for coupon business logic.
type CouponServiceInterface interface {
	Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
	Get(ctx context.Context, id int64) (*model.Coupon, error)
	ListActive(ctx context.Context) ([]model.Coupon, error)
	ListAll(ctx context.Context) ([]model.Coupon, error)
	Update(ctx context.Context, id int64, req *model.UpdateCouponRequest) (*model.Coupon, error)
	Delete(ctx context.Context, id int64) error
}

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// ListActive handles GET /api/coupons: active, unexpired coupons only.
func (h *CouponHandler) ListActive(c *fiber.Ctx) error {
	coupons, err := h.service.ListActive(c.Context())
	if err != nil {
		return writeServiceError(c, "list active coupons", err)
	}
	return c.JSON(fiber.Map{"items": coupons})
}

// ListAll handles GET /api/admin/coupons.
func (h *CouponHandler) ListAll(c *fiber.Ctx) error {
	coupons, err := h.service.ListAll(c.Context())
	if err != nil {
		return writeServiceError(c, "list coupons", err)
	}
	return c.JSON(fiber.Map{"items": coupons})
}

// GetCoupon handles GET /api/coupons/:id requests to retrieve coupon details.
func (h *CouponHandler) GetCoupon(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	coupon, err := h.service.Get(c.Context(), id)
	if err != nil {
		return writeServiceError(c, "get coupon", err)
	}
	return c.JSON(coupon)
}

// CreateCoupon handles POST /api/admin/coupons requests to create a new coupon.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req model.CreateCouponRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	coupon, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return writeServiceError(c, "create coupon", err)
	}

	log.Info().
		Int64("coupon_id", coupon.ID).
		Str("code", coupon.Code).
		Bool("active", coupon.IsActive).
		Msg("coupon created")

	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// UpdateCoupon handles PUT /api/admin/coupons/:id.
func (h *CouponHandler) UpdateCoupon(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req model.UpdateCouponRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	coupon, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		return writeServiceError(c, "update coupon", err)
	}
	return c.JSON(coupon)
}

// DeleteCoupon handles DELETE /api/admin/coupons/:id.
func (h *CouponHandler) DeleteCoupon(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.service.Delete(c.Context(), id); err != nil {
		return writeServiceError(c, "delete coupon", err)
	}

	log.Info().Int64("coupon_id", id).Msg("coupon deleted")
	return c.SendStatus(fiber.StatusNoContent)
}
