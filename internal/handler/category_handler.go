package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// CategoryServiceInterface defines the category operations exposed over HTTP.
type CategoryServiceInterface interface {
	List(ctx context.Context) ([]model.Category, error)
	Get(ctx context.Context, slug string) (*model.Category, error)
	Create(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error)
	Update(ctx context.Context, slug string, req *model.UpdateCategoryRequest) (*model.Category, error)
	Delete(ctx context.Context, slug string) error
}

// CategoryHandler handles HTTP requests for product categories.
type CategoryHandler struct {
	service   CategoryServiceInterface
	validator *validator.Validate
}

// NewCategoryHandler creates a new CategoryHandler with the given service and validator.
func NewCategoryHandler(svc CategoryServiceInterface, v *validator.Validate) *CategoryHandler {
	return &CategoryHandler{service: svc, validator: v}
}

// List handles GET /api/categories and GET /api/admin/categories.
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	categories, err := h.service.List(c.Context())
	if err != nil {
		return writeServiceError(c, "list categories", err)
	}
	return c.JSON(categories)
}

// Get handles GET /api/categories/:slug.
func (h *CategoryHandler) Get(c *fiber.Ctx) error {
	category, err := h.service.Get(c.Context(), c.Params("slug"))
	if err != nil {
		return writeServiceError(c, "get category", err)
	}
	return c.JSON(category)
}

// Create handles POST /api/admin/categories.
func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req model.CreateCategoryRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	category, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return writeServiceError(c, "create category", err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// Update handles PUT /api/admin/categories/:slug.
func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateCategoryRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	category, err := h.service.Update(c.Context(), c.Params("slug"), &req)
	if err != nil {
		return writeServiceError(c, "update category", err)
	}
	return c.JSON(category)
}

// Delete handles DELETE /api/admin/categories/:slug.
func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("slug")); err != nil {
		return writeServiceError(c, "delete category", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
