package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"modestblooming-backend/config"
	"modestblooming-backend/controllers"
	"modestblooming-backend/middleware"
)

// Setup mengonfigurasi dan mengembalikan Gin engine.
func Setup(ctrl *controllers.Controller, cfg *config.AppConfig, log *slog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Batas percobaan untuk endpoint yang rawan brute force.
	loginLimit := middleware.NewWindowLimiter(ctrl.Cache, 10, 15*time.Minute)
	registerLimit := middleware.NewWindowLimiter(ctrl.Cache, 5, time.Hour)
	emailLimit := middleware.NewWindowLimiter(ctrl.Cache, 5, time.Hour)

	auth := middleware.AuthRequired(ctrl.Tokens, ctrl.Cache)
	admin := middleware.AdminOnly()

	api := r.Group("/api")
	{
		// Rute utilitas
		api.GET("/health", ctrl.HealthCheck)

		// Rute katalog
		api.GET("/products", ctrl.GetProducts)
		api.GET("/products/filter", ctrl.FilterProducts)
		api.GET("/products/filter-options", ctrl.GetFilterOptions)
		api.GET("/products/search", ctrl.SearchProducts)
		api.GET("/products/slug/:slug", ctrl.GetProductBySlug)
		api.GET("/products/:id", ctrl.GetProduct)

		// Rute otentikasi
		authGroup := api.Group("/auth")
		authGroup.POST("/register", middleware.RateLimit("register", registerLimit), ctrl.Register)
		authGroup.POST("/login", middleware.RateLimit("login", loginLimit), ctrl.Login)
		authGroup.GET("/verify-email", ctrl.VerifyEmail)
		authGroup.POST("/resend-verification", middleware.RateLimit("email", emailLimit), ctrl.ResendVerification)
		authGroup.POST("/forgot-password", middleware.RateLimit("email", emailLimit), ctrl.ForgotPassword)
		authGroup.POST("/reset-password", ctrl.ResetPassword)
		authGroup.POST("/logout", auth, ctrl.Logout)
		authGroup.GET("/me", auth, ctrl.Me)
		authGroup.PUT("/change-password", auth, ctrl.ChangePassword)

		// Webhook dipanggil Stripe, bukan pengguna.
		api.POST("/payments/webhook", ctrl.PaymentWebhook)

		// Rute pelanggan
		user := api.Group("", auth)
		user.GET("/cart", ctrl.GetCart)
		user.POST("/cart/items", ctrl.AddCartItem)
		user.POST("/cart/sync", ctrl.SyncCart)
		user.PUT("/cart/items/:productId", ctrl.UpdateCartItem)
		user.DELETE("/cart/items/:productId", ctrl.RemoveCartItem)
		user.DELETE("/cart", ctrl.ClearCart)

		user.GET("/wishlist", ctrl.GetWishlist)
		user.POST("/wishlist", ctrl.AddWishlist)
		user.POST("/wishlist/sync", ctrl.SyncWishlist)
		user.DELETE("/wishlist/:productId", ctrl.RemoveWishlist)

		user.POST("/orders", ctrl.Checkout)
		user.GET("/orders", ctrl.GetMyOrders)
		user.GET("/orders/:id", ctrl.GetOrder)

		// Rute admin
		adminGroup := api.Group("", auth, admin)
		adminGroup.POST("/products", ctrl.CreateProduct)
		adminGroup.PUT("/products/:id", ctrl.UpdateProduct)
		adminGroup.DELETE("/products/:id", ctrl.DeleteProduct)
		adminGroup.POST("/products/:id/clone", ctrl.CloneProduct)
		adminGroup.POST("/upload", ctrl.UploadImage)

		adminGroup.GET("/admin/users", ctrl.GetUsers)
		adminGroup.PUT("/admin/users/:id/role", ctrl.UpdateUserRole)
		adminGroup.DELETE("/admin/users/:id", ctrl.DeleteUser)
		adminGroup.GET("/admin/orders", ctrl.AdminListOrders)
		adminGroup.PUT("/admin/orders/:id/status", ctrl.UpdateOrderStatus)
		adminGroup.GET("/admin/stats", ctrl.GetStats)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
	return r
}
