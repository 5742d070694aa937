package dto

import (
	"time"

	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// CreateGatewayConfigRequest registers gateway credentials for the tenant
type CreateGatewayConfigRequest struct {
	Provider      types.PaymentGatewayType `json:"provider" binding:"required"`
	APIKey        string                   `json:"api_key" binding:"required"`
	APISecret     string                   `json:"api_secret" binding:"required"`
	WebhookSecret string                   `json:"webhook_secret" binding:"required"`
	IsDefault     bool                     `json:"is_default"`
}

func (r *CreateGatewayConfigRequest) Validate() error {
	if err := r.Provider.Validate(); err != nil {
		return err
	}
	if r.APIKey == "" || r.APISecret == "" {
		return ierr.NewError("gateway credentials are required").
			WithHint("API key and secret are required").
			Mark(ierr.ErrValidation)
	}
	if r.WebhookSecret == "" {
		return ierr.NewError("webhook secret is required").
			WithHint("Webhook secret is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UpdateGatewayConfigRequest rotates credentials or changes the default flag
type UpdateGatewayConfigRequest struct {
	APIKey        *string `json:"api_key,omitempty"`
	APISecret     *string `json:"api_secret,omitempty"`
	WebhookSecret *string `json:"webhook_secret,omitempty"`
	IsDefault     *bool   `json:"is_default,omitempty"`
	RotateToken   bool    `json:"rotate_token,omitempty"`
}

// GatewayConfigResponse represents a gateway config. Secrets are never
// echoed back; the webhook token is returned so the operator can build
// the webhook URL.
type GatewayConfigResponse struct {
	ID           string                   `json:"id"`
	Provider     types.PaymentGatewayType `json:"provider"`
	APIKey       string                   `json:"api_key"`
	WebhookToken string                   `json:"webhook_token"`
	IsDefault    bool                     `json:"is_default"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// NewGatewayConfigResponse creates a gateway config response
func NewGatewayConfigResponse(cfg *gatewayconfig.GatewayConfig) *GatewayConfigResponse {
	return &GatewayConfigResponse{
		ID:           cfg.ID,
		Provider:     cfg.Provider,
		APIKey:       cfg.APIKey,
		WebhookToken: cfg.WebhookToken,
		IsDefault:    cfg.IsDefault,
		CreatedAt:    cfg.CreatedAt,
		UpdatedAt:    cfg.UpdatedAt,
	}
}

// ListGatewayConfigsResponse represents the tenant's configured gateways
type ListGatewayConfigsResponse struct {
	Items []*GatewayConfigResponse `json:"items"`
}
