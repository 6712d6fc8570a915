package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/luxbag-api/internal/middleware"
)

type Handlers struct {
	Auth     *AuthHandler
	Products *ProductHandler
	Cart     *CartHandler
	Orders   *OrderHandler
	Admin    *AdminHandler
	Health   *HealthHandler
}

type RouterOptions struct {
	// ExposeErrors adds the internal error text to 500 responses.
	ExposeErrors bool
	UploadDir    string
	UploadURL    string
}

// RegisterRoutes mounts the API under /api plus health, static uploads and
// the 404 fallback.
func RegisterRoutes(r *gin.Engine, h Handlers, auth middleware.Authenticator, opts RouterOptions) {
	if opts.ExposeErrors {
		r.Use(exposeErrors())
	}

	r.GET("/", Index)
	r.GET("/healthz", h.Health.Healthz)
	r.GET("/readyz", h.Health.Readyz)
	if opts.UploadDir != "" && opts.UploadURL != "" {
		r.Static(opts.UploadURL, opts.UploadDir)
	}

	protect := middleware.AuthMiddleware(auth)
	adminOnly := middleware.AdminOnly()

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.GET("/profile", protect, h.Auth.Profile)
		authGroup.PUT("/profile", protect, h.Auth.UpdateProfile)

		products := api.Group("/products")
		products.GET("", h.Products.List)
		products.GET("/featured", h.Products.Featured)
		products.GET("/:id", h.Products.GetByID)
		products.POST("", protect, adminOnly, h.Products.Create)
		products.PUT("/:id", protect, adminOnly, h.Products.Update)
		products.DELETE("/:id", protect, adminOnly, h.Products.Delete)

		cart := api.Group("/cart", protect)
		cart.GET("", h.Cart.GetCart)
		cart.POST("", h.Cart.AddItem)
		cart.DELETE("/clear", h.Cart.ClearCart)
		cart.PUT("/:itemId", h.Cart.UpdateItem)
		cart.DELETE("/:itemId", h.Cart.RemoveItem)

		orders := api.Group("/orders", protect)
		orders.POST("", h.Orders.CreateOrder)
		orders.GET("/myorders", h.Orders.ListMyOrders)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.GET("", adminOnly, h.Orders.ListAllOrders)
		orders.PUT("/:id/status", adminOnly, h.Orders.UpdateStatus)

		admin := api.Group("/admin", protect, adminOnly)
		admin.GET("/stats", h.Admin.Stats)
		admin.GET("/users", h.Admin.ListUsers)
		admin.DELETE("/users/:id", h.Admin.DeleteUser)
		admin.PUT("/users/:id/role", h.Admin.UpdateUserRole)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("Route %s not found", c.Request.URL.RequestURI())})
	})
}
