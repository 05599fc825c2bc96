package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/middleware"
	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// ReviewServiceInterface defines the product review operations exposed over HTTP.
type ReviewServiceInterface interface {
	List(ctx context.Context, productID int64, page, limit int) (*model.ReviewListResponse, error)
	Create(ctx context.Context, userID string, productID int64, req *model.CreateReviewRequest) (*model.Review, error)
	GetMine(ctx context.Context, userID string, productID int64) (*model.Review, error)
	UpdateMine(ctx context.Context, userID string, productID int64, req *model.UpdateReviewRequest) (*model.Review, error)
	DeleteMine(ctx context.Context, userID string, productID int64) error
}

// ReviewHandler handles HTTP requests for product reviews.
type ReviewHandler struct {
	service   ReviewServiceInterface
	validator *validator.Validate
}

// NewReviewHandler creates a new ReviewHandler with the given service and validator.
func NewReviewHandler(svc ReviewServiceInterface, v *validator.Validate) *ReviewHandler {
	return &ReviewHandler{service: svc, validator: v}
}

// List handles GET /api/products/:id/reviews.
func (h *ReviewHandler) List(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	resp, err := h.service.List(c.Context(), productID, c.QueryInt("page"), c.QueryInt("limit"))
	if err != nil {
		return writeServiceError(c, "list reviews", err)
	}
	return c.JSON(resp)
}

// Create handles POST /api/products/:id/reviews.
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req model.CreateReviewRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	review, err := h.service.Create(c.Context(), middleware.UserID(c), productID, &req)
	if err != nil {
		return writeServiceError(c, "create review", err)
	}

	log.Info().Int64("review_id", review.ID).Int64("product_id", productID).Msg("review created")
	return c.Status(fiber.StatusCreated).JSON(review)
}

// GetMine handles GET /api/products/:id/reviews/mine.
func (h *ReviewHandler) GetMine(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	review, err := h.service.GetMine(c.Context(), middleware.UserID(c), productID)
	if err != nil {
		return writeServiceError(c, "get review", err)
	}
	return c.JSON(review)
}

// UpdateMine handles PUT /api/products/:id/reviews/mine.
func (h *ReviewHandler) UpdateMine(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req model.UpdateReviewRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	review, err := h.service.UpdateMine(c.Context(), middleware.UserID(c), productID, &req)
	if err != nil {
		return writeServiceError(c, "update review", err)
	}
	return c.JSON(review)
}

// DeleteMine handles DELETE /api/products/:id/reviews/mine.
func (h *ReviewHandler) DeleteMine(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.service.DeleteMine(c.Context(), middleware.UserID(c), productID); err != nil {
		return writeServiceError(c, "delete review", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
