package router

import (
	"database/sql"

	"roms_backend/internal/config"
	"roms_backend/internal/gateway"
	"roms_backend/internal/handlers"
	"roms_backend/internal/repositories"
	"roms_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB, cfg *config.Config) {
	// Initialize Repositories
	authRepo := repositories.NewAuthRepository(db)
	locationRepo := repositories.NewLocationRepository(db)
	menuRepo := repositories.NewMenuRepository(db)
	geoTokenRepo := repositories.NewGeoTokenRepository(db)
	sequenceRepo := repositories.NewSequenceRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	feeRepo := repositories.NewPlatformFeeRepository(db)

	// Gateway client
	gatewayClient := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey)

	// Initialize Services
	dbx := repositories.NewDatabase(db)
	authService := services.NewAuthService(authRepo, cfg.JWTSecret, cfg.JWTExpiration)
	locationService := services.NewLocationService(locationRepo, menuRepo)
	geofenceService := services.NewGeofenceService(geoTokenRepo, cfg.Geofence)
	feeService := services.NewFeeService(feeRepo, orderRepo, gatewayClient, cfg.PlatformFeePercentage, dbx)
	orderService := services.NewOrderService(orderRepo, menuRepo, sequenceRepo, geoTokenRepo, geofenceService, feeService, dbx)
	paymentService := services.NewPaymentService(orderRepo, gatewayClient, cfg.Gateway, dbx)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	locationHandler := handlers.NewLocationHandler(locationService, geofenceService)
	orderHandler := handlers.NewOrderHandler(orderService, locationService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, locationService)
	dashboardHandler := handlers.NewDashboardHandler(orderService, locationService)
	webhookHandler := handlers.NewWebhookHandler(feeService, cfg.Gateway.WebhookSecret)

	apiV1 := engine.Group("/api/v1")

	// Public customer routes, scoped by location code
	SetupLocationRoutes(apiV1, locationHandler, orderHandler, paymentHandler)

	// Gateway webhook (signature-verified, no session auth)
	SetupWebhookRoutes(apiV1, webhookHandler)

	// Staff auth
	SetupAuthRoutes(apiV1, authHandler, cfg.JWTSecret)

	// Staff dashboard behind JWT + role check
	SetupDashboardRoutes(apiV1, dashboardHandler, cfg.JWTSecret)
}
