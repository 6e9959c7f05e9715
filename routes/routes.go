package routes

import (
	"time"

	"tallycart-backend/cart"
	"tallycart-backend/handlers"
	"tallycart-backend/middleware"
	"tallycart-backend/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRoutes(r *gin.Engine, db *gorm.DB, sessions *session.MemoryStore, cartCfg cart.Config, cartTable string) {
	// Initialize handlers
	authHandler := &handlers.AuthHandler{DB: db, Sessions: sessions, Config: cartCfg}
	productHandler := &handlers.ProductHandler{DB: db}
	cartHandler := &handlers.CartHandler{
		DB:       db,
		Sessions: sessions,
		Events:   cart.LogDispatcher{},
		Config:   cartCfg,
		Table:    cartTable,
	}

	authLimiter := middleware.NewRateLimiter(20, time.Minute)

	// Public routes
	api := r.Group("/api")
	{
		// Auth routes
		api.POST("/auth/register", authLimiter.Middleware(), authHandler.Register)
		api.POST("/auth/login", authLimiter.Middleware(), authHandler.Login)

		// Public product routes
		api.GET("/products", productHandler.GetProducts)
		api.GET("/products/:id", productHandler.GetProduct)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		// User profile
		protected.GET("/auth/profile", authHandler.GetProfile)
		protected.POST("/auth/logout", authHandler.Logout)

		// Cart routes
		protected.GET("/cart", cartHandler.GetCart)
		protected.POST("/cart", cartHandler.AddToCart)
		protected.DELETE("/cart", cartHandler.ClearCart)
		protected.PUT("/cart/items/:rowId", cartHandler.UpdateCartItem)
		protected.DELETE("/cart/items/:rowId", cartHandler.RemoveFromCart)
		protected.PUT("/cart/items/:rowId/tax", cartHandler.SetItemTax)
		protected.PUT("/cart/items/:rowId/associate", cartHandler.AssociateItem)

		// Fee routes
		protected.GET("/cart/fees", cartHandler.GetFees)
		protected.POST("/cart/fees", cartHandler.AddFee)
		protected.DELETE("/cart/fees", cartHandler.ClearFees)
		protected.DELETE("/cart/fees/:name", cartHandler.RemoveFee)

		// Saved carts
		protected.POST("/cart/store", cartHandler.StoreCart)
		protected.POST("/cart/restore", cartHandler.RestoreCart)
	}

	// Admin routes (require admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	{
		// Product management
		admin.POST("/products", productHandler.CreateProduct)
		admin.PUT("/products/:id", productHandler.UpdateProduct)
		admin.DELETE("/products/:id", productHandler.DeleteProduct)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
