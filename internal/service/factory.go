package service

import (
	"github.com/clinicore/clinicore/internal/cache"
	"github.com/clinicore/clinicore/internal/config"
	"github.com/clinicore/clinicore/internal/domain/coupon"
	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	"github.com/clinicore/clinicore/internal/domain/payment"
	"github.com/clinicore/clinicore/internal/domain/plan"
	"github.com/clinicore/clinicore/internal/domain/region"
	"github.com/clinicore/clinicore/internal/domain/subscription"
	"github.com/clinicore/clinicore/internal/domain/webhookevent"
	"github.com/clinicore/clinicore/internal/gateway"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache

	// Repositories
	PaymentRepo       payment.Repository
	WebhookEventRepo  webhookevent.Repository
	SubscriptionRepo  subscription.Repository
	PlanRepo          plan.Repository
	RegionRepo        region.Repository
	CouponRepo        coupon.Repository
	GatewayConfigRepo gatewayconfig.Repository

	// Gateway adapters
	GatewayRegistry *gateway.Registry
}

// NewServiceParams assembles the shared dependency set
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	paymentRepo payment.Repository,
	webhookEventRepo webhookevent.Repository,
	subscriptionRepo subscription.Repository,
	planRepo plan.Repository,
	regionRepo region.Repository,
	couponRepo coupon.Repository,
	gatewayConfigRepo gatewayconfig.Repository,
	gatewayRegistry *gateway.Registry,
) ServiceParams {
	return ServiceParams{
		Logger:            logger,
		Config:            config,
		DB:                db,
		Cache:             cache,
		PaymentRepo:       paymentRepo,
		WebhookEventRepo:  webhookEventRepo,
		SubscriptionRepo:  subscriptionRepo,
		PlanRepo:          planRepo,
		RegionRepo:        regionRepo,
		CouponRepo:        couponRepo,
		GatewayConfigRepo: gatewayConfigRepo,
		GatewayRegistry:   gatewayRegistry,
	}
}
