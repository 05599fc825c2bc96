package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/storefront-checkout/internal/middleware"
	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// CartServiceInterface defines the cart operations exposed over HTTP.
type CartServiceInterface interface {
	Get(ctx context.Context, userID string) (*model.CartResponse, error)
	Summary(ctx context.Context, userID string) (*model.CartSummary, error)
	AddItem(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.CartResponse, error)
	UpdateItem(ctx context.Context, userID string, productID int64, quantity int) (*model.CartResponse, error)
	RemoveItem(ctx context.Context, userID string, productID int64) (*model.CartResponse, error)
	Clear(ctx context.Context, userID string) error
}

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	service   CartServiceInterface
	validator *validator.Validate
}

// NewCartHandler creates a new CartHandler with the given service and validator.
func NewCartHandler(svc CartServiceInterface, v *validator.Validate) *CartHandler {
	return &CartHandler{service: svc, validator: v}
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(c *fiber.Ctx) error {
	cart, err := h.service.Get(c.Context(), middleware.UserID(c))
	if err != nil {
		return writeServiceError(c, "get cart", err)
	}
	return c.JSON(cart)
}

// Summary handles GET /api/cart/summary.
func (h *CartHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.Context(), middleware.UserID(c))
	if err != nil {
		return writeServiceError(c, "cart summary", err)
	}
	return c.JSON(summary)
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req model.AddCartItemRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	cart, err := h.service.AddItem(c.Context(), middleware.UserID(c), &req)
	if err != nil {
		return writeServiceError(c, "add cart item", err)
	}
	return c.JSON(cart)
}

// UpdateItem handles PATCH /api/cart/items/:productId.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	productID, err := paramID(c, "productId")
	if err != nil {
		return badRequest(c, err)
	}
	var req model.UpdateCartItemRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	cart, err := h.service.UpdateItem(c.Context(), middleware.UserID(c), productID, *req.Quantity)
	if err != nil {
		return writeServiceError(c, "update cart item", err)
	}
	return c.JSON(cart)
}

// RemoveItem handles DELETE /api/cart/items/:productId.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	productID, err := paramID(c, "productId")
	if err != nil {
		return badRequest(c, err)
	}

	cart, err := h.service.RemoveItem(c.Context(), middleware.UserID(c), productID)
	if err != nil {
		return writeServiceError(c, "remove cart item", err)
	}
	return c.JSON(cart)
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	if err := h.service.Clear(c.Context(), middleware.UserID(c)); err != nil {
		return writeServiceError(c, "clear cart", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
