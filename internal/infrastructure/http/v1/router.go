// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/analytics"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/domain/inventory"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/http/v1/handlers"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/http/v1/middleware"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/internal/infrastructure/storage/postgres"
	"github.com/ZhuchkaTriplesix/ZhuchkaKeyboards-sub000/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation. When nil, the API runs open
	// (local development against the in-memory store).
	JWTValidator middleware.JWTValidator

	// Pool is the database connection (nil with the in-memory store).
	Pool *postgres.Pool

	// InventoryService is the stock movement engine.
	InventoryService *inventory.Service

	// AnalyticsService provides the read-side endpoints.
	AnalyticsService *analytics.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	api := router.Group("/api/v1")
	{
		protected := api.Group("")
		if cfg.JWTValidator != nil {
			protected.Use(middleware.Auth(cfg.JWTValidator))
		}

		baseHandler := handlers.NewBaseHandler()

		inventoryHandler := handlers.NewInventoryHandler(baseHandler, cfg.InventoryService)
		inventoryHandler.RegisterRoutes(protected.Group("/inventory"))

		analyticsHandler := handlers.NewAnalyticsHandler(baseHandler, cfg.AnalyticsService)
		analyticsHandler.RegisterRoutes(protected.Group("/analytics"))
	}

	return router
}
