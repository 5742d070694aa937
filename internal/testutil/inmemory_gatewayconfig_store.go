package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// InMemoryGatewayConfigStore implements gatewayconfig.Repository
type InMemoryGatewayConfigStore struct {
	*InMemoryStore[*gatewayconfig.GatewayConfig]
	mu sync.Mutex
}

// NewInMemoryGatewayConfigStore creates a new in-memory gateway config repository
func NewInMemoryGatewayConfigStore() *InMemoryGatewayConfigStore {
	return &InMemoryGatewayConfigStore{
		InMemoryStore: NewInMemoryStore[*gatewayconfig.GatewayConfig](),
	}
}

func (m *InMemoryGatewayConfigStore) Create(ctx context.Context, cfg *gatewayconfig.GatewayConfig) error {
	if cfg == nil {
		return ierr.NewError("gateway config cannot be nil").
			WithHint("Gateway config cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg.IsDefault {
		m.clearDefault(ctx, cfg.TenantID, cfg.ID)
	}
	return m.InMemoryStore.Create(ctx, cfg.ID, cfg)
}

func (m *InMemoryGatewayConfigStore) clearDefault(ctx context.Context, tenantID, exceptID string) {
	items, _ := m.InMemoryStore.List(ctx,
		func(ctx context.Context, c *gatewayconfig.GatewayConfig) bool {
			return c.TenantID == tenantID && c.IsDefault && c.ID != exceptID
		},
		nil,
	)
	for _, c := range items {
		c.IsDefault = false
	}
}

func (m *InMemoryGatewayConfigStore) Get(ctx context.Context, id string) (*gatewayconfig.GatewayConfig, error) {
	cfg, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cfg.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewError("gateway config not found").
			WithHint("Gateway config not found").
			Mark(ierr.ErrNotFound)
	}
	return cfg, nil
}

// GetByWebhookToken matches the postgres behavior: no tenant scoping, the
// token itself identifies the tenant.
func (m *InMemoryGatewayConfigStore) GetByWebhookToken(ctx context.Context, token string) (*gatewayconfig.GatewayConfig, error) {
	items, err := m.InMemoryStore.List(ctx,
		func(ctx context.Context, c *gatewayconfig.GatewayConfig) bool {
			return c.WebhookToken == token && c.Status == types.StatusActive
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewError("gateway config not found").
			WithHint("Gateway config not found").
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

func (m *InMemoryGatewayConfigStore) GetDefault(ctx context.Context) (*gatewayconfig.GatewayConfig, error) {
	items, err := m.InMemoryStore.List(ctx,
		func(ctx context.Context, c *gatewayconfig.GatewayConfig) bool {
			return c.TenantID == types.GetTenantID(ctx) &&
				c.IsDefault &&
				c.Status == types.StatusActive
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewError("no default gateway config").
			WithHint("No default payment gateway configured").
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

func (m *InMemoryGatewayConfigStore) GetByProvider(ctx context.Context, provider types.PaymentGatewayType) (*gatewayconfig.GatewayConfig, error) {
	items, err := m.InMemoryStore.List(ctx,
		func(ctx context.Context, c *gatewayconfig.GatewayConfig) bool {
			return c.TenantID == types.GetTenantID(ctx) &&
				c.Provider == provider &&
				c.Status == types.StatusActive
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewError("gateway config not found").
			WithHint("No gateway config for this provider").
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

func (m *InMemoryGatewayConfigStore) Update(ctx context.Context, cfg *gatewayconfig.GatewayConfig) error {
	if cfg == nil {
		return ierr.NewError("gateway config cannot be nil").
			WithHint("Gateway config cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg.IsDefault {
		m.clearDefault(ctx, cfg.TenantID, cfg.ID)
	}
	cfg.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, cfg.ID, cfg)
}

func (m *InMemoryGatewayConfigStore) List(ctx context.Context) ([]*gatewayconfig.GatewayConfig, error) {
	return m.InMemoryStore.List(ctx,
		func(ctx context.Context, c *gatewayconfig.GatewayConfig) bool {
			return c.TenantID == types.GetTenantID(ctx) &&
				c.Status == types.StatusActive
		},
		func(i, j *gatewayconfig.GatewayConfig) bool {
			return i.CreatedAt.After(j.CreatedAt)
		},
	)
}
