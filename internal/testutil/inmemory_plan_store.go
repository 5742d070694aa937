package testutil

import (
	"context"
	"time"

	"github.com/clinicore/clinicore/internal/domain/plan"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
}

// NewInMemoryPlanStore creates a new in-memory plan repository
func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
	}
}

func (m *InMemoryPlanStore) Create(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return ierr.NewError("plan cannot be nil").
			WithHint("Plan cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, p.ID, p)
}

func (m *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	p, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewError("plan not found").
			WithHint("Plan not found").
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (m *InMemoryPlanStore) GetBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	items, err := m.InMemoryStore.List(ctx,
		func(ctx context.Context, p *plan.Plan) bool {
			return p.TenantID == types.GetTenantID(ctx) &&
				p.Slug == slug &&
				p.Status == types.StatusActive
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewError("plan not found").
			WithHint("Plan not found").
			Mark(ierr.ErrNotFound)
	}
	return items[0], nil
}

func (m *InMemoryPlanStore) List(ctx context.Context) ([]*plan.Plan, error) {
	return m.InMemoryStore.List(ctx,
		func(ctx context.Context, p *plan.Plan) bool {
			return p.TenantID == types.GetTenantID(ctx) &&
				p.Status == types.StatusActive
		},
		func(i, j *plan.Plan) bool {
			return i.BasePriceMonthly.LessThan(j.BasePriceMonthly)
		},
	)
}

func (m *InMemoryPlanStore) Update(ctx context.Context, p *plan.Plan) error {
	if p == nil {
		return ierr.NewError("plan cannot be nil").
			WithHint("Plan cannot be nil").
			Mark(ierr.ErrValidation)
	}
	p.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, p.ID, p)
}
