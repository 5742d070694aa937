package postgres

import (
	"context"

	"github.com/clinicore/clinicore/internal/cache"
	"github.com/clinicore/clinicore/internal/domain/region"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/postgres"
	"github.com/clinicore/clinicore/internal/types"
)

type regionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
	cache  cache.Cache
}

func NewRegionRepository(db *postgres.DB, logger *logger.Logger, cache cache.Cache) region.Repository {
	return &regionRepository{db: db, logger: logger, cache: cache}
}

func (r *regionRepository) Create(ctx context.Context, reg *region.Region) error {
	query := `
		INSERT INTO regions (
			id,
			tenant_id,
			code,
			name,
			price_multiplier,
			currency,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		)
		VALUES (
			:id,
			:tenant_id,
			:code,
			:name,
			:price_multiplier,
			:currency,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, reg)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A region with this code already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Unable to create region").
			Mark(ierr.ErrDatabase)
	}

	r.cache.Invalidate(ctx, cache.PrefixRegion)
	return nil
}

func (r *regionRepository) Get(ctx context.Context, id string) (*region.Region, error) {
	query := `
		SELECT * FROM regions
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

func (r *regionRepository) GetByCode(ctx context.Context, code string) (*region.Region, error) {
	cacheKey := cache.GenerateKey(cache.PrefixRegion, types.GetTenantID(ctx), code)
	if cached, found := r.cache.Get(ctx, cacheKey); found {
		if reg, ok := cached.(*region.Region); ok {
			return reg, nil
		}
	}

	query := `
		SELECT * FROM regions
		WHERE code = :code
		AND tenant_id = :tenant_id
		AND status = :status
	`
	reg, err := r.getOne(ctx, query, map[string]interface{}{
		"code":      code,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusActive,
	})
	if err != nil {
		return nil, err
	}

	r.cache.Set(ctx, cacheKey, reg, cache.DefaultExpiration)
	return reg, nil
}

func (r *regionRepository) getOne(ctx context.Context, query string, args map[string]interface{}) (*region.Region, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to fetch region").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("region not found").
			WithHint("Region not found").
			Mark(ierr.ErrNotFound)
	}

	var reg region.Region
	if err := rows.StructScan(&reg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to read region").
			Mark(ierr.ErrDatabase)
	}
	return &reg, nil
}

func (r *regionRepository) List(ctx context.Context) ([]*region.Region, error) {
	query := `
		SELECT * FROM regions
		WHERE tenant_id = :tenant_id
		AND status = :status
		ORDER BY code ASC
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusActive,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to list regions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var regions []*region.Region
	for rows.Next() {
		var reg region.Region
		if err := rows.StructScan(&reg); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Unable to read region").
				Mark(ierr.ErrDatabase)
		}
		regions = append(regions, &reg)
	}
	return regions, nil
}
