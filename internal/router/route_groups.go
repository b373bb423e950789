package router

import (
	"roms_backend/internal/handlers"
	"roms_backend/internal/middleware"
	"roms_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupLocationRoutes registers the public customer-facing routes. Everything
// is scoped by the location's public code; geo tokens gate order creation.
func SetupLocationRoutes(rg *gin.RouterGroup, lh *handlers.LocationHandler, oh *handlers.OrderHandler, ph *handlers.PaymentHandler) {
	locations := rg.Group("/locations/:code")
	{
		locations.GET("", lh.ShowLocation)
		locations.GET("/menu", lh.GetMenu)
		locations.POST("/verify", lh.VerifyGeofence)
		locations.POST("/calculate-total", oh.CalculateTotal)
		locations.POST("/orders", oh.CreateOrder)
		locations.GET("/orders/:id", oh.GetOrder)
		locations.GET("/orders/:id/status", oh.GetOrderStatus)
		locations.POST("/orders/:id/payment-intent", ph.CreatePaymentIntent)
	}
}

// SetupWebhookRoutes registers the gateway event receiver.
func SetupWebhookRoutes(rg *gin.RouterGroup, wh *handlers.WebhookHandler) {
	rg.POST("/gateway/webhook", wh.HandleGatewayWebhook)
}

// SetupAuthRoutes registers registration/login plus the authenticated
// profile route.
func SetupAuthRoutes(rg *gin.RouterGroup, ah *handlers.AuthHandler, jwtSecret string) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", ah.RegisterUser)
		auth.POST("/login", ah.LoginUser)
		auth.GET("/me", middleware.AuthMiddleware(jwtSecret), ah.GetCurrentUser)
	}
}

// SetupDashboardRoutes registers the staff order-management routes.
func SetupDashboardRoutes(rg *gin.RouterGroup, dh *handlers.DashboardHandler, jwtSecret string) {
	dashboard := rg.Group("/dashboard")
	dashboard.Use(middleware.AuthMiddleware(jwtSecret))
	dashboard.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleOwner, models.RoleStaff))
	{
		dashboard.GET("/orders", dh.ListOrders)
		dashboard.GET("/orders/pending", dh.PendingOrders)
		dashboard.GET("/orders/:id", dh.GetOrder)
		dashboard.PATCH("/orders/:id/status", dh.UpdateOrderStatus)
		dashboard.PATCH("/orders/:id/mark-paid", dh.MarkPaid)
	}
}
