package subscription

import (
	"context"
)

// Repository defines the interface for subscription persistence
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	// GetByTenant returns the tenant's subscription; one per tenant
	GetByTenant(ctx context.Context) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error

	// IncrementFailedPayments atomically bumps the failure counter and
	// moves the subscription to past_due, returning the new count.
	// Cancelled subscriptions are left untouched and report a zero count.
	IncrementFailedPayments(ctx context.Context, id string) (int, error)

	// CreateEvent appends to the immutable audit log
	CreateEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context, subscriptionID string, limit, offset int) ([]*Event, error)
}
