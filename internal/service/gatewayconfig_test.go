package service

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/clinicore/clinicore/internal/api/dto"
	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/testutil"
	"github.com/clinicore/clinicore/internal/types"
)

type GatewayConfigServiceSuite struct {
	testutil.BaseServiceTestSuite
	service GatewayConfigService
}

func TestGatewayConfigService(t *testing.T) {
	suite.Run(t, new(GatewayConfigServiceSuite))
}

func (s *GatewayConfigServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.service = NewGatewayConfigService(ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.GetConfig(),
		DB:                s.GetDB(),
		Cache:             s.GetCache(),
		PaymentRepo:       s.GetStores().PaymentRepo,
		WebhookEventRepo:  s.GetStores().WebhookEventRepo,
		SubscriptionRepo:  s.GetStores().SubscriptionRepo,
		PlanRepo:          s.GetStores().PlanRepo,
		RegionRepo:        s.GetStores().RegionRepo,
		CouponRepo:        s.GetStores().CouponRepo,
		GatewayConfigRepo: s.GetStores().GatewayConfigRepo,
	})
}

func (s *GatewayConfigServiceSuite) createConfig(provider types.PaymentGatewayType, isDefault bool) *dto.GatewayConfigResponse {
	resp, err := s.service.CreateConfig(s.GetContext(), dto.CreateGatewayConfigRequest{
		Provider:      provider,
		APIKey:        "key_" + provider.String(),
		APISecret:     "secret_" + provider.String(),
		WebhookSecret: "whsec_" + provider.String(),
		IsDefault:     isDefault,
	})
	s.Require().NoError(err)
	return resp
}

func (s *GatewayConfigServiceSuite) TestCreateConfig() {
	resp := s.createConfig(types.PaymentGatewayTypeStripe, true)

	s.NotEmpty(resp.ID)
	s.Equal(types.PaymentGatewayTypeStripe, resp.Provider)
	s.True(resp.IsDefault)
	s.True(gatewayconfig.IsValidWebhookToken(resp.WebhookToken))
}

func (s *GatewayConfigServiceSuite) TestCreateConfigRejectsMissingCredentials() {
	_, err := s.service.CreateConfig(s.GetContext(), dto.CreateGatewayConfigRequest{
		Provider:      types.PaymentGatewayTypeStripe,
		WebhookSecret: "whsec",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateConfig(s.GetContext(), dto.CreateGatewayConfigRequest{
		Provider:  "paypal",
		APIKey:    "k",
		APISecret: "s",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *GatewayConfigServiceSuite) TestNewDefaultDisplacesOld() {
	first := s.createConfig(types.PaymentGatewayTypeStripe, true)
	second := s.createConfig(types.PaymentGatewayTypeRazorpay, true)

	def, err := s.GetStores().GatewayConfigRepo.GetDefault(s.GetContext())
	s.NoError(err)
	s.Equal(second.ID, def.ID)

	got, err := s.service.GetConfig(s.GetContext(), first.ID)
	s.NoError(err)
	s.False(got.IsDefault)
}

func (s *GatewayConfigServiceSuite) TestUpdateConfigRotatesToken() {
	created := s.createConfig(types.PaymentGatewayTypeStripe, true)

	resp, err := s.service.UpdateConfig(s.GetContext(), created.ID, dto.UpdateGatewayConfigRequest{
		RotateToken: true,
	})
	s.NoError(err)
	s.True(gatewayconfig.IsValidWebhookToken(resp.WebhookToken))
	s.NotEqual(created.WebhookToken, resp.WebhookToken)

	// the old token stops resolving the moment it is rotated
	_, err = s.service.ResolveWebhookToken(s.GetContext(), created.WebhookToken)
	s.Error(err)
	s.True(ierr.IsNotFound(err))

	cfg, err := s.service.ResolveWebhookToken(s.GetContext(), resp.WebhookToken)
	s.NoError(err)
	s.Equal(created.ID, cfg.ID)
}

func (s *GatewayConfigServiceSuite) TestUpdateConfigCredentials() {
	created := s.createConfig(types.PaymentGatewayTypeStripe, false)

	newKey := "key_rotated"
	newSecret := "secret_rotated"
	resp, err := s.service.UpdateConfig(s.GetContext(), created.ID, dto.UpdateGatewayConfigRequest{
		APIKey:    &newKey,
		APISecret: &newSecret,
	})
	s.NoError(err)
	s.Equal("key_rotated", resp.APIKey)
	// token untouched unless rotation is requested
	s.Equal(created.WebhookToken, resp.WebhookToken)
}

func (s *GatewayConfigServiceSuite) TestUpdateUnknownConfig() {
	isDefault := true
	_, err := s.service.UpdateConfig(s.GetContext(), "gwc_missing", dto.UpdateGatewayConfigRequest{
		IsDefault: &isDefault,
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *GatewayConfigServiceSuite) TestResolveWebhookToken() {
	created := s.createConfig(types.PaymentGatewayTypeStripe, true)

	cfg, err := s.service.ResolveWebhookToken(s.GetContext(), created.WebhookToken)
	s.NoError(err)
	s.Equal(created.ID, cfg.ID)
	s.Equal("whsec_stripe", cfg.WebhookSecret)

	// malformed tokens short-circuit without touching the store
	_, err = s.service.ResolveWebhookToken(s.GetContext(), "short")
	s.Error(err)
	s.True(ierr.IsNotFound(err))

	// well formed but unknown
	unknown := "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
	_, err = s.service.ResolveWebhookToken(s.GetContext(), unknown)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *GatewayConfigServiceSuite) TestListConfigs() {
	s.createConfig(types.PaymentGatewayTypeStripe, true)
	s.createConfig(types.PaymentGatewayTypeRazorpay, false)

	resp, err := s.service.ListConfigs(s.GetContext())
	s.NoError(err)
	s.Len(resp.Items, 2)

	// another tenant sees nothing
	other, err := s.service.ListConfigs(s.GetContextForTenant("tenant_other"))
	s.NoError(err)
	s.Empty(other.Items)
}
