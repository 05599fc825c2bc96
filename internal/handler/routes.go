package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/storefront-checkout/internal/middleware"
)

// Handlers groups every handler mounted by Register.
type Handlers struct {
	Health   *HealthHandler
	Product  *ProductHandler
	Category *CategoryHandler
	Review   *ReviewHandler
	Cart     *CartHandler
	Order    *OrderHandler
	Coupon   *CouponHandler
}

// Register mounts the HTTP API on app. auth guards every customer and admin
// route; admin routes additionally require the admin role.
func Register(app fiber.Router, h Handlers, auth fiber.Handler) {
	app.Get("/health", h.Health.Check)
	app.Get("/health/live", h.Health.Live)

	api := app.Group("/api")

	// Public catalog
	api.Get("/products", h.Product.List)
	api.Get("/products/:id", h.Product.Get)
	api.Get("/products/:id/reviews", h.Review.List)
	api.Get("/categories", h.Category.List)
	api.Get("/categories/:slug", h.Category.Get)
	api.Get("/coupons", h.Coupon.ListActive)
	api.Get("/coupons/:id", h.Coupon.GetCoupon)

	// Reviews share a prefix with the public listing, so auth is applied per route.
	api.Post("/products/:id/reviews", auth, h.Review.Create)
	api.Get("/products/:id/reviews/mine", auth, h.Review.GetMine)
	api.Put("/products/:id/reviews/mine", auth, h.Review.UpdateMine)
	api.Delete("/products/:id/reviews/mine", auth, h.Review.DeleteMine)

	cart := api.Group("/cart", auth)
	cart.Get("/", h.Cart.Get)
	cart.Get("/summary", h.Cart.Summary)
	cart.Post("/items", h.Cart.AddItem)
	cart.Patch("/items/:productId", h.Cart.UpdateItem)
	cart.Delete("/items/:productId", h.Cart.RemoveItem)
	cart.Delete("/", h.Cart.Clear)

	orders := api.Group("/orders", auth)
	orders.Post("/", h.Order.Checkout)
	orders.Get("/", h.Order.ListMine)
	orders.Get("/:id", h.Order.GetMine)
	orders.Patch("/:id", h.Order.Cancel)
	orders.Delete("/:id", h.Order.Delete)

	admin := api.Group("/admin", auth, middleware.RequireAdmin())

	admin.Get("/products", h.Product.AdminList)
	admin.Get("/products/:id", h.Product.AdminGet)
	admin.Post("/products", h.Product.Create)
	admin.Put("/products/:id", h.Product.Update)
	admin.Delete("/products/:id", h.Product.Delete)
	admin.Post("/products/:id/restore", h.Product.Restore)
	admin.Post("/products/:id/images", h.Product.AddImage)

	admin.Get("/categories", h.Category.List)
	admin.Post("/categories", h.Category.Create)
	admin.Put("/categories/:slug", h.Category.Update)
	admin.Delete("/categories/:slug", h.Category.Delete)

	admin.Get("/orders", h.Order.AdminList)
	admin.Get("/orders/:id", h.Order.AdminGet)
	admin.Patch("/orders/:id", h.Order.AdminUpdate)

	admin.Get("/coupons", h.Coupon.ListAll)
	admin.Post("/coupons", h.Coupon.CreateCoupon)
	admin.Put("/coupons/:id", h.Coupon.UpdateCoupon)
	admin.Delete("/coupons/:id", h.Coupon.DeleteCoupon)
}
