package testutil

import (
	"context"

	"github.com/clinicore/clinicore/internal/domain/region"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// InMemoryRegionStore implements region.Repository
type InMemoryRegionStore struct {
	*InMemoryStore[*region.Region]
}

// NewInMemoryRegionStore creates a new in-memory region repository
func NewInMemoryRegionStore() *InMemoryRegionStore {
	return &InMemoryRegionStore{
		InMemoryStore: NewInMemoryStore[*region.Region](),
	}
}

func (m *InMemoryRegionStore) Create(ctx context.Context, r *region.Region) error {
	if r == nil {
		return ierr.NewError("region cannot be nil").
			WithHint("Region cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, r.ID, r)
}

func (m *InMemoryRegionStore) Get(ctx context.Context, id string) (*region.Region, error) {
	r, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewError("region not found").
			WithHint("Region not found").
			Mark(ierr.ErrNotFound)
	}
	return r, nil
}

func (m *InMemoryRegionStore) GetByCode(ctx context.Context, code string) (*region.Region, error) {
	items, err := m.InMemoryStore.List(ctx,
		func(ctx context.Context, r *region.Region) bool {
			return r.TenantID == types.GetTenantID(ctx) &&
				r.Code == code &&
				r.Status == types.StatusActive
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewError("region not found").
			WithHint("Region not found").
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

func (m *InMemoryRegionStore) List(ctx context.Context) ([]*region.Region, error) {
	return m.InMemoryStore.List(ctx,
		func(ctx context.Context, r *region.Region) bool {
			return r.TenantID == types.GetTenantID(ctx) &&
				r.Status == types.StatusActive
		},
		func(i, j *region.Region) bool {
			return i.Code < j.Code
		},
	)
}
