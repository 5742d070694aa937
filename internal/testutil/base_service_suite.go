package testutil

import (
	"context"
	"time"

	"github.com/clinicore/clinicore/internal/cache"
	"github.com/clinicore/clinicore/internal/config"
	"github.com/clinicore/clinicore/internal/domain/coupon"
	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	"github.com/clinicore/clinicore/internal/domain/payment"
	"github.com/clinicore/clinicore/internal/domain/plan"
	"github.com/clinicore/clinicore/internal/domain/region"
	"github.com/clinicore/clinicore/internal/domain/subscription"
	"github.com/clinicore/clinicore/internal/domain/webhookevent"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/postgres"
	"github.com/clinicore/clinicore/internal/types"
	"github.com/clinicore/clinicore/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	PaymentRepo       payment.Repository
	WebhookEventRepo  webhookevent.Repository
	SubscriptionRepo  subscription.Repository
	PlanRepo          plan.Repository
	RegionRepo        region.Repository
	CouponRepo        coupon.Repository
	GatewayConfigRepo gatewayconfig.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     postgres.IClient
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.config = config.GetDefaultConfig()

	var err error
	s.logger, err = logger.NewLogger(s.config)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		PaymentRepo:       NewInMemoryPaymentStore(),
		WebhookEventRepo:  NewInMemoryWebhookEventStore(),
		SubscriptionRepo:  NewInMemorySubscriptionStore(),
		PlanRepo:          NewInMemoryPlanStore(),
		RegionRepo:        NewInMemoryRegionStore(),
		CouponRepo:        NewInMemoryCouponStore(),
		GatewayConfigRepo: NewInMemoryGatewayConfigStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.cache = cache.NewInMemoryCache(s.config)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.PaymentRepo.(*InMemoryPaymentStore).Clear()
	s.stores.WebhookEventRepo.(*InMemoryWebhookEventStore).Clear()
	s.stores.SubscriptionRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.PlanRepo.(*InMemoryPlanStore).Clear()
	s.stores.RegionRepo.(*InMemoryRegionStore).Clear()
	s.stores.CouponRepo.(*InMemoryCouponStore).Clear()
	s.stores.GatewayConfigRepo.(*InMemoryGatewayConfigStore).Clear()
	s.cache.Flush(context.Background())
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetContextForTenant returns a context scoped to another tenant
func (s *BaseServiceTestSuite) GetContextForTenant(tenantID string) context.Context {
	return SetupContextForTenant(tenantID)
}

// GetStores returns the repository stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the mock db client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current time for the test
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// GetUUID returns a fresh identifier
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
