package api

import (
	v1 "github.com/clinicore/clinicore/internal/api/v1"
	"github.com/clinicore/clinicore/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Payment       *v1.PaymentHandler
	Webhook       *v1.WebhookHandler
	Subscription  *v1.SubscriptionHandler
	GatewayConfig *v1.GatewayConfigHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(
		middleware.CORSMiddleware,
		middleware.RequestIDMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// The inbound webhook endpoint authenticates by token, not tenant header
	router.POST("/payments/webhook/:token", handlers.Webhook.HandleWebhook)

	private := router.Group("", middleware.TenantMiddleware)

	payments := private.Group("/payments")
	{
		payments.POST("/create-order", handlers.Payment.CreateOrder)
		payments.POST("/refund", handlers.Payment.Refund)
		payments.GET("/status/:orderId", handlers.Payment.GetStatus)
		payments.GET("", handlers.Payment.ListPayments)
	}

	subscriptions := private.Group("/subscriptions")
	{
		subscriptions.POST("", handlers.Subscription.CreateSubscription)
		subscriptions.GET("/current", handlers.Subscription.GetCurrentSubscription)
		subscriptions.POST("/switch-plan", handlers.Subscription.SwitchPlan)
		subscriptions.POST("/preview-price", handlers.Subscription.PreviewPrice)
		subscriptions.PATCH("/:id/seats", handlers.Subscription.SetSeatCount)
		subscriptions.POST("/:id/cancel", handlers.Subscription.Cancel)
		subscriptions.POST("/:id/reactivate", handlers.Subscription.Reactivate)
		subscriptions.GET("/:id/events", handlers.Subscription.ListEvents)
	}

	configs := private.Group("/gateway-configs")
	{
		configs.POST("", handlers.GatewayConfig.CreateConfig)
		configs.GET("", handlers.GatewayConfig.ListConfigs)
		configs.GET("/:id", handlers.GatewayConfig.GetConfig)
		configs.PUT("/:id", handlers.GatewayConfig.UpdateConfig)
	}

	webhooks := private.Group("/webhooks")
	{
		webhooks.GET("/failed", handlers.Webhook.ListFailed)
		webhooks.POST("/failed/:id/retry", handlers.Webhook.RetryFailed)
	}
}
