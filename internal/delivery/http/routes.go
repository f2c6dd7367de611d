package http

import (
	"github.com/gin-gonic/gin"

	"github.com/cartsmash/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.POST("/validate", handler.ValidateProduct)
			products.POST("/validate-batch", handler.ValidateBatch)
		}

		cart := v1.Group("/cart")
		{
			cart.POST("/calculate", handler.CalculateCart)
			cart.POST("/checkout-link", handler.CheckoutLink)
		}

		v1.GET("/search/:retailer", handler.SearchRetailer)
	}

	return router
}
