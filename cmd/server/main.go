package main

import (
	"context"
	"time"

	"github.com/clinicore/clinicore/internal/api"
	v1 "github.com/clinicore/clinicore/internal/api/v1"
	"github.com/clinicore/clinicore/internal/cache"
	"github.com/clinicore/clinicore/internal/config"
	"github.com/clinicore/clinicore/internal/gateway"
	"github.com/clinicore/clinicore/internal/gateway/razorpay"
	"github.com/clinicore/clinicore/internal/gateway/stripe"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/postgres"
	"github.com/clinicore/clinicore/internal/repository"
	"github.com/clinicore/clinicore/internal/service"
	"github.com/clinicore/clinicore/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// @title CliniCore Payments API
// @version 1.0
// @description Payment, subscription and webhook processing service
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewCache,

			// Postgres
			postgres.NewDB,
			provideDBClient,

			// Gateway adapters
			gateway.NewClient,
			provideGatewayRegistry,

			// Repositories
			repository.NewPaymentRepository,
			repository.NewWebhookEventRepository,
			repository.NewSubscriptionRepository,
			repository.NewPlanRepository,
			repository.NewRegionRepository,
			repository.NewCouponRepository,
			repository.NewGatewayConfigRepository,

			// Services
			service.NewServiceParams,
			service.NewGatewayConfigService,
			service.NewSubscriptionService,
			service.NewPaymentService,
			service.NewWebhookService,

			// API
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(startServer),
	)
	app.Run()
}

func provideDBClient(db *postgres.DB) postgres.IClient {
	return db
}

func provideGatewayRegistry(client gateway.Client, log *logger.Logger) *gateway.Registry {
	return gateway.NewRegistry(
		stripe.NewAdapter(client, log),
		razorpay.NewAdapter(client, log),
	)
}

func provideHandlers(
	log *logger.Logger,
	paymentService service.PaymentService,
	webhookService service.WebhookService,
	subscriptionService service.SubscriptionService,
	gatewayConfigService service.GatewayConfigService,
) api.Handlers {
	return api.Handlers{
		Payment:       v1.NewPaymentHandler(paymentService, log),
		Webhook:       v1.NewWebhookHandler(webhookService, log),
		Subscription:  v1.NewSubscriptionHandler(subscriptionService, log),
		GatewayConfig: v1.NewGatewayConfigHandler(gatewayConfigService, log),
	}
}

func startServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	db *postgres.DB,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infof("Starting API server on %s", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			db.Close()
			return nil
		},
	})
}
