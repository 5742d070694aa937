package webhookevent

import (
	"context"
)

// Repository defines the interface for webhook event persistence
type Repository interface {
	// Create inserts the event row. It must return ErrAlreadyExists when the
	// (provider, event_id) uniqueness constraint rejects the insert; that
	// return value is what makes duplicate deliveries side-effect free.
	Create(ctx context.Context, event *WebhookEvent) error
	Get(ctx context.Context, id string) (*WebhookEvent, error)
	Update(ctx context.Context, event *WebhookEvent) error
	// ListFailed returns permanently failed events for the operator queue
	ListFailed(ctx context.Context, limit, offset int) ([]*WebhookEvent, error)
}
