package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-checkout/internal/middleware"
	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

const testUserID = "user-1"

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// asUser stands in for middleware.Auth in handler tests.
func asUser(userID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, userID)
		c.Locals(middleware.LocalRole, role)
		return c.Next()
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// mockProductService is a mock implementation of ProductServiceInterface.
type mockProductService struct {
	listFn       func(ctx context.Context, filter model.ProductFilter) (*model.ProductListResponse, error)
	getFn        func(ctx context.Context, id int64) (*model.Product, error)
	adminGetFn   func(ctx context.Context, id int64) (*model.Product, error)
	createFn     func(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)
	updateFn     func(ctx context.Context, id int64, req *model.UpdateProductRequest) (*model.Product, error)
	softDeleteFn func(ctx context.Context, id int64) error
	restoreFn    func(ctx context.Context, id int64) (*model.Product, error)
	addImageFn   func(ctx context.Context, productID int64, req *model.AddProductImageRequest) (*model.ProductImage, error)
}

func (m *mockProductService) List(ctx context.Context, filter model.ProductFilter) (*model.ProductListResponse, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return &model.ProductListResponse{Items: []model.Product{}}, nil
}

func (m *mockProductService) Get(ctx context.Context, id int64) (*model.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Product{ID: id}, nil
}

func (m *mockProductService) AdminGet(ctx context.Context, id int64) (*model.Product, error) {
	if m.adminGetFn != nil {
		return m.adminGetFn(ctx, id)
	}
	return &model.Product{ID: id}, nil
}

func (m *mockProductService) Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &model.Product{ID: 1, Name: req.Name, Slug: req.Slug}, nil
}

func (m *mockProductService) Update(ctx context.Context, id int64, req *model.UpdateProductRequest) (*model.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &model.Product{ID: id}, nil
}

func (m *mockProductService) SoftDelete(ctx context.Context, id int64) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id)
	}
	return nil
}

func (m *mockProductService) Restore(ctx context.Context, id int64) (*model.Product, error) {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, id)
	}
	return &model.Product{ID: id}, nil
}

func (m *mockProductService) AddImage(ctx context.Context, productID int64, req *model.AddProductImageRequest) (*model.ProductImage, error) {
	if m.addImageFn != nil {
		return m.addImageFn(ctx, productID, req)
	}
	return &model.ProductImage{ID: 1, ProductID: productID, ImageURL: req.ImageURL}, nil
}

// mockCartService is a mock implementation of CartServiceInterface.
type mockCartService struct {
	getFn        func(ctx context.Context, userID string) (*model.CartResponse, error)
	summaryFn    func(ctx context.Context, userID string) (*model.CartSummary, error)
	addItemFn    func(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.CartResponse, error)
	updateItemFn func(ctx context.Context, userID string, productID int64, quantity int) (*model.CartResponse, error)
	removeItemFn func(ctx context.Context, userID string, productID int64) (*model.CartResponse, error)
	clearFn      func(ctx context.Context, userID string) error
}

func (m *mockCartService) Get(ctx context.Context, userID string) (*model.CartResponse, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return &model.CartResponse{Items: []model.CartItemView{}}, nil
}

func (m *mockCartService) Summary(ctx context.Context, userID string) (*model.CartSummary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, userID)
	}
	return &model.CartSummary{}, nil
}

func (m *mockCartService) AddItem(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.CartResponse, error) {
	if m.addItemFn != nil {
		return m.addItemFn(ctx, userID, req)
	}
	return &model.CartResponse{Items: []model.CartItemView{}}, nil
}

func (m *mockCartService) UpdateItem(ctx context.Context, userID string, productID int64, quantity int) (*model.CartResponse, error) {
	if m.updateItemFn != nil {
		return m.updateItemFn(ctx, userID, productID, quantity)
	}
	return &model.CartResponse{Items: []model.CartItemView{}}, nil
}

func (m *mockCartService) RemoveItem(ctx context.Context, userID string, productID int64) (*model.CartResponse, error) {
	if m.removeItemFn != nil {
		return m.removeItemFn(ctx, userID, productID)
	}
	return &model.CartResponse{Items: []model.CartItemView{}}, nil
}

func (m *mockCartService) Clear(ctx context.Context, userID string) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	return nil
}

// mockCheckoutService is a mock implementation of CheckoutServiceInterface.
type mockCheckoutService struct {
	checkoutFn func(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.Order, error)
}

func (m *mockCheckoutService) Checkout(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.Order, error) {
	if m.checkoutFn != nil {
		return m.checkoutFn(ctx, userID, req)
	}
	return &model.Order{ID: 1, UserID: userID, Status: model.OrderStatusPending}, nil
}

// mockOrderService is a mock implementation of OrderServiceInterface.
type mockOrderService struct {
	listMineFn    func(ctx context.Context, userID string, filter model.OrderFilter) (*model.OrderListResponse, error)
	getMineFn     func(ctx context.Context, userID string, id int64) (*model.Order, error)
	cancelFn      func(ctx context.Context, userID string, id int64, req *model.CancelOrderRequest) (*model.Order, error)
	deleteFn      func(ctx context.Context, userID string, id int64) error
	adminListFn   func(ctx context.Context, filter model.OrderFilter) (*model.OrderListResponse, error)
	adminGetFn    func(ctx context.Context, id int64) (*model.Order, error)
	adminUpdateFn func(ctx context.Context, id int64, req *model.AdminUpdateOrderRequest) (*model.Order, error)
}

func (m *mockOrderService) ListMine(ctx context.Context, userID string, filter model.OrderFilter) (*model.OrderListResponse, error) {
	if m.listMineFn != nil {
		return m.listMineFn(ctx, userID, filter)
	}
	return &model.OrderListResponse{Items: []model.Order{}}, nil
}

func (m *mockOrderService) GetMine(ctx context.Context, userID string, id int64) (*model.Order, error) {
	if m.getMineFn != nil {
		return m.getMineFn(ctx, userID, id)
	}
	return &model.Order{ID: id, UserID: userID}, nil
}

func (m *mockOrderService) Cancel(ctx context.Context, userID string, id int64, req *model.CancelOrderRequest) (*model.Order, error) {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, userID, id, req)
	}
	reason := req.CancelReason
	return &model.Order{ID: id, UserID: userID, Status: model.OrderStatusCancelled, CancelReason: &reason}, nil
}

func (m *mockOrderService) Delete(ctx context.Context, userID string, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockOrderService) AdminList(ctx context.Context, filter model.OrderFilter) (*model.OrderListResponse, error) {
	if m.adminListFn != nil {
		return m.adminListFn(ctx, filter)
	}
	return &model.OrderListResponse{Items: []model.Order{}}, nil
}

func (m *mockOrderService) AdminGet(ctx context.Context, id int64) (*model.Order, error) {
	if m.adminGetFn != nil {
		return m.adminGetFn(ctx, id)
	}
	return &model.Order{ID: id}, nil
}

func (m *mockOrderService) AdminUpdate(ctx context.Context, id int64, req *model.AdminUpdateOrderRequest) (*model.Order, error) {
	if m.adminUpdateFn != nil {
		return m.adminUpdateFn(ctx, id, req)
	}
	return &model.Order{ID: id, Status: model.OrderStatusConfirmed}, nil
}

// mockCouponService is a mock implementation of CouponServiceInterface.
type mockCouponService struct {
	createFn     func(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
	getFn        func(ctx context.Context, id int64) (*model.Coupon, error)
	listActiveFn func(ctx context.Context) ([]model.Coupon, error)
	listAllFn    func(ctx context.Context) ([]model.Coupon, error)
	updateFn     func(ctx context.Context, id int64, req *model.UpdateCouponRequest) (*model.Coupon, error)
	deleteFn     func(ctx context.Context, id int64) error
}

func (m *mockCouponService) Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &model.Coupon{ID: 1, Code: req.Code, IsActive: true}, nil
}

func (m *mockCouponService) Get(ctx context.Context, id int64) (*model.Coupon, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Coupon{ID: id}, nil
}

func (m *mockCouponService) ListActive(ctx context.Context) ([]model.Coupon, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponService) ListAll(ctx context.Context) ([]model.Coupon, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return []model.Coupon{}, nil
}

func (m *mockCouponService) Update(ctx context.Context, id int64, req *model.UpdateCouponRequest) (*model.Coupon, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &model.Coupon{ID: id}, nil
}

func (m *mockCouponService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockCategoryService is a mock implementation of CategoryServiceInterface.
type mockCategoryService struct {
	listFn   func(ctx context.Context) ([]model.Category, error)
	getFn    func(ctx context.Context, slug string) (*model.Category, error)
	createFn func(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error)
	updateFn func(ctx context.Context, slug string, req *model.UpdateCategoryRequest) (*model.Category, error)
	deleteFn func(ctx context.Context, slug string) error
}

func (m *mockCategoryService) List(ctx context.Context) ([]model.Category, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Category{}, nil
}

func (m *mockCategoryService) Get(ctx context.Context, slug string) (*model.Category, error) {
	if m.getFn != nil {
		return m.getFn(ctx, slug)
	}
	return &model.Category{ID: 1, Slug: slug}, nil
}

func (m *mockCategoryService) Create(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &model.Category{ID: 1, Name: req.Name, Slug: req.Slug}, nil
}

func (m *mockCategoryService) Update(ctx context.Context, slug string, req *model.UpdateCategoryRequest) (*model.Category, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, slug, req)
	}
	return &model.Category{ID: 1, Slug: slug}, nil
}

func (m *mockCategoryService) Delete(ctx context.Context, slug string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, slug)
	}
	return nil
}

// mockReviewService is a mock implementation of ReviewServiceInterface.
type mockReviewService struct {
	listFn       func(ctx context.Context, productID int64, page, limit int) (*model.ReviewListResponse, error)
	createFn     func(ctx context.Context, userID string, productID int64, req *model.CreateReviewRequest) (*model.Review, error)
	getMineFn    func(ctx context.Context, userID string, productID int64) (*model.Review, error)
	updateMineFn func(ctx context.Context, userID string, productID int64, req *model.UpdateReviewRequest) (*model.Review, error)
	deleteMineFn func(ctx context.Context, userID string, productID int64) error
}

func (m *mockReviewService) List(ctx context.Context, productID int64, page, limit int) (*model.ReviewListResponse, error) {
	if m.listFn != nil {
		return m.listFn(ctx, productID, page, limit)
	}
	return &model.ReviewListResponse{Items: []model.Review{}}, nil
}

func (m *mockReviewService) Create(ctx context.Context, userID string, productID int64, req *model.CreateReviewRequest) (*model.Review, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, productID, req)
	}
	return &model.Review{ID: 1, ProductID: productID, UserID: userID, Rating: req.Rating}, nil
}

func (m *mockReviewService) GetMine(ctx context.Context, userID string, productID int64) (*model.Review, error) {
	if m.getMineFn != nil {
		return m.getMineFn(ctx, userID, productID)
	}
	return &model.Review{ID: 1, ProductID: productID, UserID: userID}, nil
}

func (m *mockReviewService) UpdateMine(ctx context.Context, userID string, productID int64, req *model.UpdateReviewRequest) (*model.Review, error) {
	if m.updateMineFn != nil {
		return m.updateMineFn(ctx, userID, productID, req)
	}
	return &model.Review{ID: 1, ProductID: productID, UserID: userID}, nil
}

func (m *mockReviewService) DeleteMine(ctx context.Context, userID string, productID int64) error {
	if m.deleteMineFn != nil {
		return m.deleteMineFn(ctx, userID, productID)
	}
	return nil
}
