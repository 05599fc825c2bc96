package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// ProductServiceInterface defines the catalog operations exposed over HTTP.
type ProductServiceInterface interface {
	List(ctx context.Context, filter model.ProductFilter) (*model.ProductListResponse, error)
	Get(ctx context.Context, id int64) (*model.Product, error)
	AdminGet(ctx context.Context, id int64) (*model.Product, error)
	Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)
	Update(ctx context.Context, id int64, req *model.UpdateProductRequest) (*model.Product, error)
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (*model.Product, error)
	AddImage(ctx context.Context, productID int64, req *model.AddProductImageRequest) (*model.ProductImage, error)
}

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service   ProductServiceInterface
	validator *validator.Validate
}

// NewProductHandler creates a new ProductHandler with the given service and validator.
func NewProductHandler(svc ProductServiceInterface, v *validator.Validate) *ProductHandler {
	return &ProductHandler{service: svc, validator: v}
}

// List handles GET /api/products. Soft-deleted products are never listed here.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	filter, err := productFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err)
	}
	return h.list(c, filter)
}

// AdminList handles GET /api/admin/products; include_deleted=true also lists soft-deleted rows.
func (h *ProductHandler) AdminList(c *fiber.Ctx) error {
	filter, err := productFilterFromQuery(c)
	if err != nil {
		return badRequest(c, err)
	}
	filter.IncludeDeleted = c.QueryBool("include_deleted")
	return h.list(c, filter)
}

func (h *ProductHandler) list(c *fiber.Ctx, filter model.ProductFilter) error {
	resp, err := h.service.List(c.Context(), filter)
	if err != nil {
		return writeServiceError(c, "list products", err)
	}
	return c.JSON(resp)
}

// Get handles GET /api/products/:id.
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	product, err := h.service.Get(c.Context(), id)
	if err != nil {
		return writeServiceError(c, "get product", err)
	}
	return c.JSON(product)
}

// AdminGet handles GET /api/admin/products/:id, including soft-deleted products.
func (h *ProductHandler) AdminGet(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	product, err := h.service.AdminGet(c.Context(), id)
	if err != nil {
		return writeServiceError(c, "admin get product", err)
	}
	return c.JSON(product)
}

// Create handles POST /api/admin/products.
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var req model.CreateProductRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	product, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return writeServiceError(c, "create product", err)
	}

	log.Info().Int64("product_id", product.ID).Str("slug", product.Slug).Msg("product created")
	return c.Status(fiber.StatusCreated).JSON(product)
}

// Update handles PUT /api/admin/products/:id.
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req model.UpdateProductRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	product, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		return writeServiceError(c, "update product", err)
	}
	return c.JSON(product)
}

// Delete handles DELETE /api/admin/products/:id as a soft delete.
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.service.SoftDelete(c.Context(), id); err != nil {
		return writeServiceError(c, "delete product", err)
	}

	log.Info().Int64("product_id", id).Msg("product soft-deleted")
	return c.SendStatus(fiber.StatusNoContent)
}

// Restore handles POST /api/admin/products/:id/restore.
func (h *ProductHandler) Restore(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	product, err := h.service.Restore(c.Context(), id)
	if err != nil {
		return writeServiceError(c, "restore product", err)
	}

	log.Info().Int64("product_id", id).Msg("product restored")
	return c.JSON(product)
}

// AddImage handles POST /api/admin/products/:id/images.
func (h *ProductHandler) AddImage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req model.AddProductImageRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	image, err := h.service.AddImage(c.Context(), id, &req)
	if err != nil {
		return writeServiceError(c, "add product image", err)
	}
	return c.Status(fiber.StatusCreated).JSON(image)
}

func productFilterFromQuery(c *fiber.Ctx) (model.ProductFilter, error) {
	filter := model.ProductFilter{
		Query:       c.Query("q"),
		Category:    c.Query("category"),
		InStockOnly: c.QueryBool("in_stock"),
		Sort:        c.Query("sort"),
		Page:        c.QueryInt("page"),
		Limit:       c.QueryInt("limit"),
	}

	var err error
	if filter.MinPrice, err = queryDecimal(c, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryDecimal(c, "max_price"); err != nil {
		return filter, err
	}
	return filter, nil
}

func queryDecimal(c *fiber.Ctx, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &queryError{key: key}
	}
	return &d, nil
}

type queryError struct{ key string }

func (e *queryError) Error() string {
	return "invalid request: " + e.key + " must be a number"
}
