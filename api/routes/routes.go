package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sushiloyalty/loyalty-backend/internal/config"
	"github.com/sushiloyalty/loyalty-backend/internal/handlers"
	"github.com/sushiloyalty/loyalty-backend/internal/middleware"
	"github.com/sushiloyalty/loyalty-backend/internal/services"
	"github.com/sushiloyalty/loyalty-backend/pkg/jwt"
)

// Dependencies are the collaborators the HTTP layer is built from
type Dependencies struct {
	Loyalty services.LoyaltyService
	Tokens  *jwt.TokenService
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Add middleware
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	loyaltyHandler := handlers.NewLoyaltyHandler(deps.Loyalty)
	webhookHandler := handlers.NewWebhookHandler(deps.Loyalty)
	adminHandler := handlers.NewAdminHandler(deps.Loyalty)

	// Public routes
	public := router.Group("/api/v1")
	{
		// Health check
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})

		public.GET("/loyalty/tiers", loyaltyHandler.GetTiers)
		public.GET("/loyalty/conversions", loyaltyHandler.GetConversions)
	}

	// Commerce platform webhooks
	webhooks := router.Group("/api/v1/webhooks")
	webhooks.Use(middleware.APIKeyMiddleware(cfg.Webhook.KeyHash))
	{
		webhooks.POST("/order-completed", webhookHandler.OrderCompleted)
	}

	// Customer routes
	protected := router.Group("/api/v1/loyalty")
	protected.Use(middleware.JWTAuthMiddleware(deps.Tokens))
	{
		protected.POST("/claim", loyaltyHandler.ClaimAccount)
		protected.POST("/redemptions", loyaltyHandler.Redeem)
		protected.GET("/profile", loyaltyHandler.GetProfile)
		protected.GET("/transactions", loyaltyHandler.GetTransactions)
	}

	// Back-office routes
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.APIKeyMiddleware(cfg.Admin.KeyHash))
	{
		admin.GET("/profiles/:email", adminHandler.GetProfile)
		admin.GET("/profiles/:email/transactions", adminHandler.GetTransactions)
		admin.GET("/profiles/:email/reconciliation", adminHandler.Reconcile)
	}

	return router
}
