package service

import (
	"context"

	"github.com/clinicore/clinicore/internal/api/dto"
	"github.com/clinicore/clinicore/internal/cache"
	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// GatewayConfigService manages tenant gateway credentials and the webhook
// tokens embedded in webhook URLs.
type GatewayConfigService interface {
	CreateConfig(ctx context.Context, req dto.CreateGatewayConfigRequest) (*dto.GatewayConfigResponse, error)
	GetConfig(ctx context.Context, id string) (*dto.GatewayConfigResponse, error)
	UpdateConfig(ctx context.Context, id string, req dto.UpdateGatewayConfigRequest) (*dto.GatewayConfigResponse, error)
	ListConfigs(ctx context.Context) (*dto.ListGatewayConfigsResponse, error)

	// ResolveWebhookToken maps a webhook URL token to the owning config.
	// Unknown or malformed tokens resolve to ErrNotFound so the webhook
	// endpoint can answer 404 without leaking validity information.
	ResolveWebhookToken(ctx context.Context, token string) (*gatewayconfig.GatewayConfig, error)
}

type gatewayConfigService struct {
	ServiceParams
}

// NewGatewayConfigService creates a new gateway config service
func NewGatewayConfigService(params ServiceParams) GatewayConfigService {
	return &gatewayConfigService{ServiceParams: params}
}

func (s *gatewayConfigService) CreateConfig(ctx context.Context, req dto.CreateGatewayConfigRequest) (*dto.GatewayConfigResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	token, err := gatewayconfig.GenerateWebhookToken()
	if err != nil {
		return nil, err
	}

	cfg := &gatewayconfig.GatewayConfig{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_GATEWAY_CONFIG),
		Provider:      req.Provider,
		APIKey:        req.APIKey,
		APISecret:     req.APISecret,
		WebhookSecret: req.WebhookSecret,
		WebhookToken:  token,
		IsDefault:     req.IsDefault,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}

	if err := s.GatewayConfigRepo.Create(ctx, cfg); err != nil {
		return nil, err
	}

	s.Logger.Infow("created gateway config",
		"config_id", cfg.ID,
		"provider", cfg.Provider,
		"is_default", cfg.IsDefault,
	)

	return dto.NewGatewayConfigResponse(cfg), nil
}

func (s *gatewayConfigService) GetConfig(ctx context.Context, id string) (*dto.GatewayConfigResponse, error) {
	cfg, err := s.GatewayConfigRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewGatewayConfigResponse(cfg), nil
}

func (s *gatewayConfigService) UpdateConfig(ctx context.Context, id string, req dto.UpdateGatewayConfigRequest) (*dto.GatewayConfigResponse, error) {
	cfg, err := s.GatewayConfigRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.APIKey != nil {
		cfg.APIKey = *req.APIKey
	}
	if req.APISecret != nil {
		cfg.APISecret = *req.APISecret
	}
	if req.WebhookSecret != nil {
		cfg.WebhookSecret = *req.WebhookSecret
	}
	if req.IsDefault != nil {
		cfg.IsDefault = *req.IsDefault
	}
	if req.RotateToken {
		token, err := gatewayconfig.GenerateWebhookToken()
		if err != nil {
			return nil, err
		}
		cfg.WebhookToken = token
	}
	cfg.UpdatedBy = types.GetUserID(ctx)

	if err := s.GatewayConfigRepo.Update(ctx, cfg); err != nil {
		return nil, err
	}

	// the repo invalidates its own caches; drop the token mapping here too
	// in case the token was rotated through a non-caching repo
	s.Cache.Invalidate(ctx, cache.PrefixWebhookToken)

	return dto.NewGatewayConfigResponse(cfg), nil
}

func (s *gatewayConfigService) ListConfigs(ctx context.Context) (*dto.ListGatewayConfigsResponse, error) {
	configs, err := s.GatewayConfigRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListGatewayConfigsResponse{
		Items: make([]*dto.GatewayConfigResponse, 0, len(configs)),
	}
	for _, cfg := range configs {
		resp.Items = append(resp.Items, dto.NewGatewayConfigResponse(cfg))
	}
	return resp, nil
}

func (s *gatewayConfigService) ResolveWebhookToken(ctx context.Context, token string) (*gatewayconfig.GatewayConfig, error) {
	if !gatewayconfig.IsValidWebhookToken(token) {
		return nil, ierr.NewError("unknown webhook token").
			WithHint("Not found").
			Mark(ierr.ErrNotFound)
	}
	return s.GatewayConfigRepo.GetByWebhookToken(ctx, token)
}
