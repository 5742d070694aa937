package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/clinicore/clinicore/internal/domain/subscription"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
	events *InMemoryStore[*subscription.Event]
	mu     sync.Mutex
}

// NewInMemorySubscriptionStore creates a new in-memory subscription repository
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
		events:        NewInMemoryStore[*subscription.Event](),
	}
}

func (m *InMemorySubscriptionStore) Clear() {
	m.InMemoryStore.Clear()
	m.events.Clear()
}

func (m *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, sub.ID, sub)
}

func (m *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

// copySubscription keeps readers isolated from in-place mutation, the
// way rows scanned from the database are.
func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	c := *sub
	return &c
}

func (m *InMemorySubscriptionStore) GetByTenant(ctx context.Context) (*subscription.Subscription, error) {
	items, err := m.InMemoryStore.List(ctx,
		func(ctx context.Context, sub *subscription.Subscription) bool {
			return sub.TenantID == types.GetTenantID(ctx) &&
				sub.Status == types.StatusActive
		},
		func(i, j *subscription.Subscription) bool {
			return i.CreatedAt.After(j.CreatedAt)
		},
	)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(items[0]), nil
}

func (m *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	sub.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, sub.ID, sub)
}

// IncrementFailedPayments mirrors the atomic SQL counter bump, so
// concurrent failure events never lose an increment.
func (m *InMemorySubscriptionStore) IncrementFailedPayments(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, err := m.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if sub.SubscriptionStatus == types.SubscriptionStatusCancelled {
		return 0, nil
	}

	sub.FailedPaymentCount++
	sub.SubscriptionStatus = types.SubscriptionStatusPastDue
	sub.UpdatedAt = time.Now().UTC()
	if err := m.InMemoryStore.Update(ctx, sub.ID, sub); err != nil {
		return 0, err
	}
	return sub.FailedPaymentCount, nil
}

func (m *InMemorySubscriptionStore) CreateEvent(ctx context.Context, e *subscription.Event) error {
	if e == nil {
		return ierr.NewError("subscription event cannot be nil").
			WithHint("Subscription event cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.events.Create(ctx, e.ID, e)
}

func (m *InMemorySubscriptionStore) ListEvents(ctx context.Context, subscriptionID string, limit, offset int) ([]*subscription.Event, error) {
	items, err := m.events.List(ctx,
		func(ctx context.Context, e *subscription.Event) bool {
			return e.TenantID == types.GetTenantID(ctx) &&
				e.SubscriptionID == subscriptionID
		},
		func(i, j *subscription.Event) bool {
			return i.CreatedAt.After(j.CreatedAt)
		},
	)
	if err != nil {
		return nil, err
	}
	return paginate(items, limit, offset), nil
}
