package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/internal/validator"
)

func setupProductApp(svc *mockProductService) *fiber.App {
	app := fiber.New()
	h := NewProductHandler(svc, validator.New())
	app.Get("/api/products", h.List)
	app.Get("/api/products/:id", h.Get)
	app.Get("/api/admin/products", h.AdminList)
	app.Get("/api/admin/products/:id", h.AdminGet)
	app.Post("/api/admin/products", h.Create)
	app.Put("/api/admin/products/:id", h.Update)
	app.Delete("/api/admin/products/:id", h.Delete)
	app.Post("/api/admin/products/:id/restore", h.Restore)
	app.Post("/api/admin/products/:id/images", h.AddImage)
	return app
}

func TestProductList_QueryToFilter(t *testing.T) {
	var got model.ProductFilter
	svc := &mockProductService{
		listFn: func(ctx context.Context, filter model.ProductFilter) (*model.ProductListResponse, error) {
			got = filter
			return &model.ProductListResponse{Items: []model.Product{}, Page: 1, Limit: 20}, nil
		},
	}
	app := setupProductApp(svc)

	resp := doJSON(t, app, http.MethodGet, "/api/products?q=shoe&category=footwear&min_price=10.50&max_price=99&in_stock=true&sort=price_asc&page=3&limit=15&include_deleted=true", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "shoe", got.Query)
	assert.Equal(t, "footwear", got.Category)
	require.NotNil(t, got.MinPrice)
	assert.Equal(t, "10.5", got.MinPrice.String())
	require.NotNil(t, got.MaxPrice)
	assert.Equal(t, "99", got.MaxPrice.String())
	assert.True(t, got.InStockOnly)
	assert.Equal(t, model.SortPriceAsc, got.Sort)
	assert.Equal(t, 3, got.Page)
	assert.Equal(t, 15, got.Limit)
	assert.False(t, got.IncludeDeleted, "public listing never includes deleted products")
}

func TestProductList_BadPrice(t *testing.T) {
	app := setupProductApp(&mockProductService{})

	resp := doJSON(t, app, http.MethodGet, "/api/products?min_price=cheap", "")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request: min_price must be a number", decodeMap(t, resp)["error"])
}

func TestProductAdminList_IncludeDeleted(t *testing.T) {
	var got model.ProductFilter
	svc := &mockProductService{
		listFn: func(ctx context.Context, filter model.ProductFilter) (*model.ProductListResponse, error) {
			got = filter
			return &model.ProductListResponse{Items: []model.Product{}}, nil
		},
	}
	app := setupProductApp(svc)

	resp := doJSON(t, app, http.MethodGet, "/api/admin/products?include_deleted=true", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, got.IncludeDeleted)
}

func TestProductGet_NotFound(t *testing.T) {
	svc := &mockProductService{
		getFn: func(ctx context.Context, id int64) (*model.Product, error) {
			return nil, service.ErrProductNotFound
		},
	}
	app := setupProductApp(svc)

	resp := doJSON(t, app, http.MethodGet, "/api/products/12", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "product not found", decodeMap(t, resp)["error"])
}

func TestProductCreate(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		var got *model.CreateProductRequest
		svc := &mockProductService{
			createFn: func(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
				got = req
				return &model.Product{ID: 5, Name: req.Name, Slug: req.Slug, Price: *req.Price}, nil
			},
		}
		app := setupProductApp(svc)

		resp := doJSON(t, app, http.MethodPost, "/api/admin/products", `{"name": "Mug", "slug": "mug", "price": "12.50", "stock_quantity": 4}`)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		require.NotNil(t, got)
		assert.Equal(t, "12.5", got.Price.String())
		assert.Equal(t, 4, *got.StockQuantity)
		assert.Equal(t, float64(5), decodeMap(t, resp)["id"])
	})

	t.Run("category", func(t *testing.T) {
		var got *model.CreateProductRequest
		svc := &mockProductService{
			createFn: func(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
				got = req
				return nil, service.ErrCategoryNotFound
			},
		}
		app := setupProductApp(svc)

		resp := doJSON(t, app, http.MethodPost, "/api/admin/products", `{"name": "Mug", "slug": "mug", "price": "1", "stock_quantity": 1, "category_id": 42}`)
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		require.NotNil(t, got.CategoryID)
		assert.Equal(t, int64(42), *got.CategoryID)

		resp = doJSON(t, app, http.MethodPost, "/api/admin/products", `{"name": "Mug", "slug": "mug", "price": "1", "stock_quantity": 1, "category_id": 0}`)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "must be greater than 0", decodeMap(t, resp)["fields"].(map[string]any)["category_id"])
	})

	t.Run("negative price", func(t *testing.T) {
		app := setupProductApp(&mockProductService{})

		resp := doJSON(t, app, http.MethodPost, "/api/admin/products", `{"name": "Mug", "slug": "mug", "price": -1, "stock_quantity": 4}`)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid request: price must be at least 0", decodeMap(t, resp)["error"])
	})

	t.Run("duplicate slug", func(t *testing.T) {
		svc := &mockProductService{
			createFn: func(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
				return nil, service.ErrProductExists
			},
		}
		app := setupProductApp(svc)

		resp := doJSON(t, app, http.MethodPost, "/api/admin/products", `{"name": "Mug", "slug": "mug", "price": 1, "stock_quantity": 0}`)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})
}

func TestProductUpdate_PartialBody(t *testing.T) {
	var got *model.UpdateProductRequest
	svc := &mockProductService{
		updateFn: func(ctx context.Context, id int64, req *model.UpdateProductRequest) (*model.Product, error) {
			assert.Equal(t, int64(9), id)
			got = req
			return &model.Product{ID: id, StockQuantity: *req.StockQuantity}, nil
		},
	}
	app := setupProductApp(svc)

	resp := doJSON(t, app, http.MethodPut, "/api/admin/products/9", `{"stock_quantity": 0}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, got.StockQuantity)
	assert.Equal(t, 0, *got.StockQuantity)
	assert.Nil(t, got.Price)
	assert.Nil(t, got.Name)
}

func TestProductDeleteAndRestore(t *testing.T) {
	deleted := map[int64]bool{}
	svc := &mockProductService{
		softDeleteFn: func(ctx context.Context, id int64) error {
			deleted[id] = true
			return nil
		},
		restoreFn: func(ctx context.Context, id int64) (*model.Product, error) {
			if !deleted[id] {
				return nil, service.ErrProductNotDeleted
			}
			deleted[id] = false
			return &model.Product{ID: id}, nil
		},
	}
	app := setupProductApp(svc)

	resp := doJSON(t, app, http.MethodPost, "/api/admin/products/4/restore", "")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/admin/products/4", "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.True(t, deleted[4])

	resp = doJSON(t, app, http.MethodPost, "/api/admin/products/4/restore", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, deleted[4])
}

func TestProductAddImage(t *testing.T) {
	app := setupProductApp(&mockProductService{})

	resp := doJSON(t, app, http.MethodPost, "/api/admin/products/2/images", `{"image_url": "https://cdn.example.com/mug.png", "alt_text": "mug"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeMap(t, resp)
	assert.Equal(t, float64(2), body["product_id"])
	assert.Equal(t, "https://cdn.example.com/mug.png", body["image_url"])

	resp = doJSON(t, app, http.MethodPost, "/api/admin/products/2/images", `{"image_url": "not a url"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
