package postgres

import (
	"context"

	"github.com/clinicore/clinicore/internal/domain/coupon"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/postgres"
	"github.com/clinicore/clinicore/internal/types"
)

type couponRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCouponRepository(db *postgres.DB, logger *logger.Logger) coupon.Repository {
	return &couponRepository{db: db, logger: logger}
}

func (r *couponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	query := `
		INSERT INTO coupons (
			id,
			tenant_id,
			code,
			coupon_type,
			value,
			min_purchase,
			valid_until,
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
			:coupon_type,
			:value,
			:min_purchase,
			:valid_until,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A coupon with this code already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Unable to create coupon").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *couponRepository) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	query := `
		SELECT * FROM coupons
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

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	query := `
		SELECT * FROM coupons
		WHERE code = :code
		AND tenant_id = :tenant_id
		AND status = :status
	`
	return r.getOne(ctx, query, map[string]interface{}{
		"code":      code,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusActive,
	})
}

func (r *couponRepository) getOne(ctx context.Context, query string, args map[string]interface{}) (*coupon.Coupon, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to fetch coupon").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("coupon not found").
			WithHint("Coupon not found").
			Mark(ierr.ErrNotFound)
	}

	var c coupon.Coupon
	if err := rows.StructScan(&c); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to read coupon").
			Mark(ierr.ErrDatabase)
	}
	return &c, nil
}
