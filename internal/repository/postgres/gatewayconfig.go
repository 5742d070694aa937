package postgres

import (
	"context"

	"github.com/clinicore/clinicore/internal/cache"
	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/postgres"
	"github.com/clinicore/clinicore/internal/types"
)

type gatewayConfigRepository struct {
	db     *postgres.DB
	logger *logger.Logger
	cache  cache.Cache
}

func NewGatewayConfigRepository(db *postgres.DB, logger *logger.Logger, cache cache.Cache) gatewayconfig.Repository {
	return &gatewayConfigRepository{db: db, logger: logger, cache: cache}
}

func (r *gatewayConfigRepository) Create(ctx context.Context, cfg *gatewayconfig.GatewayConfig) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if cfg.IsDefault {
			if err := r.clearDefault(ctx, cfg.TenantID); err != nil {
				return err
			}
		}

		query := `
			INSERT INTO gateway_configs (
				id,
				tenant_id,
				provider,
				api_key,
				api_secret,
				webhook_secret,
				webhook_token,
				is_default,
				status,
				created_at,
				updated_at,
				created_by,
				updated_by
			)
			VALUES (
				:id,
				:tenant_id,
				:provider,
				:api_key,
				:api_secret,
				:webhook_secret,
				:webhook_token,
				:is_default,
				:status,
				:created_at,
				:updated_at,
				:created_by,
				:updated_by
			)
		`

		_, err := r.db.NamedExecContext(ctx, query, cfg)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return ierr.WithError(err).
					WithHint("A gateway config for this provider already exists").
					Mark(ierr.ErrAlreadyExists)
			}
			r.logger.Errorw("failed to create gateway config", "error", err)
			return ierr.WithError(err).
				WithHint("Unable to create gateway config").
				Mark(ierr.ErrDatabase)
		}

		r.cache.Invalidate(ctx, cache.PrefixGatewayConfig)
		r.cache.Invalidate(ctx, cache.PrefixWebhookToken)
		return nil
	})
}

func (r *gatewayConfigRepository) clearDefault(ctx context.Context, tenantID string) error {
	query := `
		UPDATE gateway_configs
		SET is_default = false
		WHERE tenant_id = :tenant_id
		AND is_default = true
	`
	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"tenant_id": tenantID,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Unable to clear default gateway config").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *gatewayConfigRepository) Get(ctx context.Context, id string) (*gatewayconfig.GatewayConfig, error) {
	query := `
		SELECT * FROM gateway_configs
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusActive,
	})
}

// GetByWebhookToken is not tenant-scoped: it runs before any tenant is known
// and the matched config supplies the tenant for the rest of the request.
func (r *gatewayConfigRepository) GetByWebhookToken(ctx context.Context, token string) (*gatewayconfig.GatewayConfig, error) {
	cacheKey := cache.GenerateKey(cache.PrefixWebhookToken, token)
	if cached, found := r.cache.Get(ctx, cacheKey); found {
		if cfg, ok := cached.(*gatewayconfig.GatewayConfig); ok {
			return cfg, nil
		}
	}

	query := `
		SELECT * FROM gateway_configs
		WHERE webhook_token = :webhook_token
		AND status = :status
	`
	cfg, err := r.getOne(ctx, query, map[string]interface{}{
		"webhook_token": token,
		"status":        types.StatusActive,
	})
	if err != nil {
		return nil, err
	}

	r.cache.Set(ctx, cacheKey, cfg, cache.DefaultExpiration)
	return cfg, nil
}

func (r *gatewayConfigRepository) GetDefault(ctx context.Context) (*gatewayconfig.GatewayConfig, error) {
	query := `
		SELECT * FROM gateway_configs
		WHERE tenant_id = :tenant_id
		AND is_default = true
		AND status = :status
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusActive,
	})
}

func (r *gatewayConfigRepository) GetByProvider(ctx context.Context, provider types.PaymentGatewayType) (*gatewayconfig.GatewayConfig, error) {
	query := `
		SELECT * FROM gateway_configs
		WHERE tenant_id = :tenant_id
		AND provider = :provider
		AND status = :status
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"provider":  provider,
		"status":    types.StatusActive,
	})
}

func (r *gatewayConfigRepository) getOne(ctx context.Context, query string, args map[string]interface{}) (*gatewayconfig.GatewayConfig, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to fetch gateway config").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("gateway config not found").
			WithHint("Gateway config not found").
			Mark(ierr.ErrNotFound)
	}

	var cfg gatewayconfig.GatewayConfig
	if err := rows.StructScan(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to read gateway config").
			Mark(ierr.ErrDatabase)
	}
	return &cfg, nil
}

func (r *gatewayConfigRepository) Update(ctx context.Context, cfg *gatewayconfig.GatewayConfig) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if cfg.IsDefault {
			if err := r.clearDefault(ctx, cfg.TenantID); err != nil {
				return err
			}
		}

		query := `
			UPDATE gateway_configs
			SET api_key = :api_key,
			api_secret = :api_secret,
			webhook_secret = :webhook_secret,
			webhook_token = :webhook_token,
			is_default = :is_default,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
			WHERE id = :id
			AND tenant_id = :tenant_id
		`

		result, err := r.db.NamedExecContext(ctx, query, cfg)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Unable to update gateway config").
				Mark(ierr.ErrDatabase)
		}

		rowsAffected, err := result.RowsAffected()
		if err == nil && rowsAffected == 0 {
			return ierr.NewError("gateway config not found").
				WithHint("Gateway config not found").
				Mark(ierr.ErrNotFound)
		}

		r.cache.Invalidate(ctx, cache.PrefixGatewayConfig)
		r.cache.Invalidate(ctx, cache.PrefixWebhookToken)
		return nil
	})
}

func (r *gatewayConfigRepository) List(ctx context.Context) ([]*gatewayconfig.GatewayConfig, error) {
	query := `
		SELECT * FROM gateway_configs
		WHERE tenant_id = :tenant_id
		AND status = :status
		ORDER BY created_at DESC
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusActive,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to list gateway configs").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var configs []*gatewayconfig.GatewayConfig
	for rows.Next() {
		var cfg gatewayconfig.GatewayConfig
		if err := rows.StructScan(&cfg); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Unable to read gateway config").
				Mark(ierr.ErrDatabase)
		}
		configs = append(configs, &cfg)
	}
	return configs, nil
}
