package repository

import (
	"github.com/clinicore/clinicore/internal/cache"
	"github.com/clinicore/clinicore/internal/domain/coupon"
	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	"github.com/clinicore/clinicore/internal/domain/payment"
	"github.com/clinicore/clinicore/internal/domain/plan"
	"github.com/clinicore/clinicore/internal/domain/region"
	"github.com/clinicore/clinicore/internal/domain/subscription"
	"github.com/clinicore/clinicore/internal/domain/webhookevent"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/postgres"
	postgresRepo "github.com/clinicore/clinicore/internal/repository/postgres"
)

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}

func NewWebhookEventRepository(db *postgres.DB, logger *logger.Logger) webhookevent.Repository {
	return postgresRepo.NewWebhookEventRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger, cache cache.Cache) plan.Repository {
	return postgresRepo.NewPlanRepository(db, logger, cache)
}

func NewRegionRepository(db *postgres.DB, logger *logger.Logger, cache cache.Cache) region.Repository {
	return postgresRepo.NewRegionRepository(db, logger, cache)
}

func NewCouponRepository(db *postgres.DB, logger *logger.Logger) coupon.Repository {
	return postgresRepo.NewCouponRepository(db, logger)
}

func NewGatewayConfigRepository(db *postgres.DB, logger *logger.Logger, cache cache.Cache) gatewayconfig.Repository {
	return postgresRepo.NewGatewayConfigRepository(db, logger, cache)
}
