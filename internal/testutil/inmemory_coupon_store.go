package testutil

import (
	"context"

	"github.com/clinicore/clinicore/internal/domain/coupon"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// InMemoryCouponStore implements coupon.Repository
type InMemoryCouponStore struct {
	*InMemoryStore[*coupon.Coupon]
}

// NewInMemoryCouponStore creates a new in-memory coupon repository
func NewInMemoryCouponStore() *InMemoryCouponStore {
	return &InMemoryCouponStore{
		InMemoryStore: NewInMemoryStore[*coupon.Coupon](),
	}
}

func (m *InMemoryCouponStore) Create(ctx context.Context, c *coupon.Coupon) error {
	if c == nil {
		return ierr.NewError("coupon cannot be nil").
			WithHint("Coupon cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, c.ID, c)
}

func (m *InMemoryCouponStore) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	c, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewError("coupon not found").
			WithHint("Coupon not found").
			Mark(ierr.ErrNotFound)
	}
	return c, nil
}

func (m *InMemoryCouponStore) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	items, err := m.InMemoryStore.List(ctx,
		func(ctx context.Context, c *coupon.Coupon) bool {
			return c.TenantID == types.GetTenantID(ctx) &&
				c.Code == code &&
				c.Status == types.StatusActive
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewError("coupon not found").
			WithHint("Coupon not found").
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}
