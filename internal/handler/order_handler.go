package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/middleware"
	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// CheckoutServiceInterface places orders from the caller's cart.
type CheckoutServiceInterface interface {
	Checkout(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.Order, error)
}

// OrderServiceInterface defines the order lifecycle operations exposed over HTTP.
type OrderServiceInterface interface {
	ListMine(ctx context.Context, userID string, filter model.OrderFilter) (*model.OrderListResponse, error)
	GetMine(ctx context.Context, userID string, id int64) (*model.Order, error)
	Cancel(ctx context.Context, userID string, id int64, req *model.CancelOrderRequest) (*model.Order, error)
	Delete(ctx context.Context, userID string, id int64) error
	AdminList(ctx context.Context, filter model.OrderFilter) (*model.OrderListResponse, error)
	AdminGet(ctx context.Context, id int64) (*model.Order, error)
	AdminUpdate(ctx context.Context, id int64, req *model.AdminUpdateOrderRequest) (*model.Order, error)
}

// OrderHandler handles checkout and order requests.
type OrderHandler struct {
	checkout  CheckoutServiceInterface
	orders    OrderServiceInterface
	validator *validator.Validate
}

// NewOrderHandler creates a new OrderHandler with the given services and validator.
func NewOrderHandler(checkout CheckoutServiceInterface, orders OrderServiceInterface, v *validator.Validate) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders, validator: v}
}

// Checkout handles POST /api/orders. The order is built from the caller's cart.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	var req model.CheckoutRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	order, err := h.checkout.Checkout(c.Context(), middleware.UserID(c), &req)
	if err != nil {
		return writeServiceError(c, "checkout", err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// ListMine handles GET /api/orders.
func (h *OrderHandler) ListMine(c *fiber.Ctx) error {
	resp, err := h.orders.ListMine(c.Context(), middleware.UserID(c), orderFilterFromQuery(c))
	if err != nil {
		return writeServiceError(c, "list orders", err)
	}
	return c.JSON(resp)
}

// GetMine handles GET /api/orders/:id. Orders of other users are reported as not found.
func (h *OrderHandler) GetMine(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	order, err := h.orders.GetMine(c.Context(), middleware.UserID(c), id)
	if err != nil {
		return writeServiceError(c, "get order", err)
	}
	return c.JSON(order)
}

// Cancel handles PATCH /api/orders/:id, the only change a customer may make to an order.
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req model.CancelOrderRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	order, err := h.orders.Cancel(c.Context(), middleware.UserID(c), id, &req)
	if err != nil {
		return writeServiceError(c, "cancel order", err)
	}

	log.Info().Int64("order_id", id).Str("reason", string(req.CancelReason)).Msg("order cancelled")
	return c.JSON(order)
}

// Delete handles DELETE /api/orders/:id, which is always refused.
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	id, _ := c.ParamsInt("id")
	return writeServiceError(c, "delete order", h.orders.Delete(c.Context(), middleware.UserID(c), int64(id)))
}

// AdminList handles GET /api/admin/orders.
func (h *OrderHandler) AdminList(c *fiber.Ctx) error {
	filter := orderFilterFromQuery(c)
	filter.UserID = c.Query("user_id")

	resp, err := h.orders.AdminList(c.Context(), filter)
	if err != nil {
		return writeServiceError(c, "admin list orders", err)
	}
	return c.JSON(resp)
}

// AdminGet handles GET /api/admin/orders/:id.
func (h *OrderHandler) AdminGet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	order, err := h.orders.AdminGet(c.Context(), id)
	if err != nil {
		return writeServiceError(c, "admin get order", err)
	}
	return c.JSON(order)
}

// AdminUpdate handles PATCH /api/admin/orders/:id.
func (h *OrderHandler) AdminUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req model.AdminUpdateOrderRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	order, err := h.orders.AdminUpdate(c.Context(), id, &req)
	if err != nil {
		return writeServiceError(c, "admin update order", err)
	}

	log.Info().
		Int64("order_id", id).
		Str("status", string(order.Status)).
		Str("admin", middleware.UserID(c)).
		Msg("order updated by admin")
	return c.JSON(order)
}

func orderFilterFromQuery(c *fiber.Ctx) model.OrderFilter {
	return model.OrderFilter{
		Status: model.OrderStatus(c.Query("status")),
		Page:   c.QueryInt("page"),
		Limit:  c.QueryInt("limit"),
	}
}
