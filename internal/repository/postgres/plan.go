package postgres

import (
	"context"

	"github.com/clinicore/clinicore/internal/cache"
	"github.com/clinicore/clinicore/internal/domain/plan"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/postgres"
	"github.com/clinicore/clinicore/internal/types"
)

type planRepository struct {
	db     *postgres.DB
	logger *logger.Logger
	cache  cache.Cache
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger, cache cache.Cache) plan.Repository {
	return &planRepository{db: db, logger: logger, cache: cache}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (
			id,
			tenant_id,
			slug,
			name,
			base_price_monthly,
			base_price_yearly,
			base_price_three_year,
			currency,
			max_users,
			max_clients,
			max_storage_gb,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		)
		VALUES (
			:id,
			:tenant_id,
			:slug,
			:name,
			:base_price_monthly,
			:base_price_yearly,
			:base_price_three_year,
			:currency,
			:max_users,
			:max_clients,
			:max_storage_gb,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A plan with this slug already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Unable to create plan").
			Mark(ierr.ErrDatabase)
	}

	r.cache.Invalidate(ctx, cache.PrefixPlan)
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	query := `
		SELECT * FROM plans
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

func (r *planRepository) GetBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	cacheKey := cache.GenerateKey(cache.PrefixPlan, types.GetTenantID(ctx), slug)
	if cached, found := r.cache.Get(ctx, cacheKey); found {
		if p, ok := cached.(*plan.Plan); ok {
			return p, nil
		}
	}

	query := `
		SELECT * FROM plans
		WHERE slug = :slug
		AND tenant_id = :tenant_id
		AND status = :status
	`
	p, err := r.getOne(ctx, query, map[string]interface{}{
		"slug":      slug,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusActive,
	})
	if err != nil {
		return nil, err
	}

	r.cache.Set(ctx, cacheKey, p, cache.DefaultExpiration)
	return p, nil
}

func (r *planRepository) getOne(ctx context.Context, query string, args map[string]interface{}) (*plan.Plan, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to fetch plan").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("plan not found").
			WithHint("Plan not found").
			Mark(ierr.ErrNotFound)
	}

	var p plan.Plan
	if err := rows.StructScan(&p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to read plan").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *planRepository) Update(ctx context.Context, p *plan.Plan) error {
	query := `
		UPDATE plans
		SET name = :name,
		base_price_monthly = :base_price_monthly,
		base_price_yearly = :base_price_yearly,
		base_price_three_year = :base_price_three_year,
		currency = :currency,
		max_users = :max_users,
		max_clients = :max_clients,
		max_storage_gb = :max_storage_gb,
		updated_at = :updated_at,
		updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
	`

	result, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Unable to update plan").
			Mark(ierr.ErrDatabase)
	}

	rowsAffected, err := result.RowsAffected()
	if err == nil && rowsAffected == 0 {
		return ierr.NewError("plan not found").
			WithHint("Plan not found").
			Mark(ierr.ErrNotFound)
	}

	r.cache.Invalidate(ctx, cache.PrefixPlan)
	return nil
}

func (r *planRepository) List(ctx context.Context) ([]*plan.Plan, error) {
	query := `
		SELECT * FROM plans
		WHERE tenant_id = :tenant_id
		AND status = :status
		ORDER BY base_price_monthly ASC
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusActive,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to list plans").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var plans []*plan.Plan
	for rows.Next() {
		var p plan.Plan
		if err := rows.StructScan(&p); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Unable to read plan").
				Mark(ierr.ErrDatabase)
		}
		plans = append(plans, &p)
	}
	return plans, nil
}
