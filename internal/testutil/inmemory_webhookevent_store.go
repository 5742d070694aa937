package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clinicore/clinicore/internal/domain/webhookevent"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// InMemoryWebhookEventStore implements webhookevent.Repository
type InMemoryWebhookEventStore struct {
	*InMemoryStore[*webhookevent.WebhookEvent]
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewInMemoryWebhookEventStore creates a new in-memory webhook event repository
func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{
		InMemoryStore: NewInMemoryStore[*webhookevent.WebhookEvent](),
		seen:          make(map[string]struct{}),
	}
}

func (m *InMemoryWebhookEventStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InMemoryStore.Clear()
	m.seen = make(map[string]struct{})
}

func dedupKey(e *webhookevent.WebhookEvent) string {
	return fmt.Sprintf("%s:%s:%s", e.TenantID, e.Provider, e.EventID)
}

// Create enforces the same (tenant, provider, event_id) uniqueness the
// database constraint does, so duplicate deliveries fail identically here.
func (m *InMemoryWebhookEventStore) Create(ctx context.Context, e *webhookevent.WebhookEvent) error {
	if e == nil {
		return ierr.NewError("webhook event cannot be nil").
			WithHint("Webhook event cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := dedupKey(e)
	if _, exists := m.seen[key]; exists {
		return ierr.NewError("webhook event already recorded").
			WithHint("Event already processed").
			WithReportableDetails(map[string]any{
				"provider": e.Provider,
				"event_id": e.EventID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	if err := m.InMemoryStore.Create(ctx, e.ID, e); err != nil {
		return err
	}
	m.seen[key] = struct{}{}
	return nil
}

func (m *InMemoryWebhookEventStore) Get(ctx context.Context, id string) (*webhookevent.WebhookEvent, error) {
	e, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewError("webhook event not found").
			WithHint("Webhook event not found").
			Mark(ierr.ErrNotFound)
	}
	return e, nil
}

func (m *InMemoryWebhookEventStore) Update(ctx context.Context, e *webhookevent.WebhookEvent) error {
	if e == nil {
		return ierr.NewError("webhook event cannot be nil").
			WithHint("Webhook event cannot be nil").
			Mark(ierr.ErrValidation)
	}
	e.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, e.ID, e)
}

func (m *InMemoryWebhookEventStore) ListFailed(ctx context.Context, limit, offset int) ([]*webhookevent.WebhookEvent, error) {
	items, err := m.InMemoryStore.List(ctx,
		func(ctx context.Context, e *webhookevent.WebhookEvent) bool {
			return e.TenantID == types.GetTenantID(ctx) &&
				e.EventStatus == types.WebhookEventStatusFailed
		},
		func(i, j *webhookevent.WebhookEvent) bool {
			return i.CreatedAt.After(j.CreatedAt)
		},
	)
	if err != nil {
		return nil, err
	}
	return paginate(items, limit, offset), nil
}
