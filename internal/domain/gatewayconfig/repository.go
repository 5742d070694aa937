package gatewayconfig

import (
	"context"

	"github.com/clinicore/clinicore/internal/types"
)

// Repository defines the interface for gateway config persistence
type Repository interface {
	// Create inserts a config; when IsDefault is set the implementation
	// clears the previous default for the tenant in the same transaction
	Create(ctx context.Context, config *GatewayConfig) error
	Get(ctx context.Context, id string) (*GatewayConfig, error)
	Update(ctx context.Context, config *GatewayConfig) error
	List(ctx context.Context) ([]*GatewayConfig, error)
	// GetByWebhookToken resolves a config from the token in the webhook URL.
	// This lookup is NOT tenant-scoped: the token itself identifies the tenant.
	GetByWebhookToken(ctx context.Context, token string) (*GatewayConfig, error)
	// GetDefault returns the tenant's default active config
	GetDefault(ctx context.Context) (*GatewayConfig, error)
	// GetByProvider returns the tenant's active config for a provider
	GetByProvider(ctx context.Context, provider types.PaymentGatewayType) (*GatewayConfig, error)
}
