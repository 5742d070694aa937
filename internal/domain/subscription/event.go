package subscription

import (
	"context"

	"github.com/clinicore/clinicore/internal/types"
)

// Event is one entry in the append-only audit log of lifecycle transitions.
// Rows are immutable once written.
type Event struct {
	ID             string                      `db:"id" json:"id"`
	SubscriptionID string                      `db:"subscription_id" json:"subscription_id"`
	EventType      types.SubscriptionEventType `db:"event_type" json:"event_type"`
	// Detail carries transition-specific fields (old/new plan, seat counts,
	// proration amounts) as string key-values
	Detail types.Metadata `db:"detail" json:"detail,omitempty"`

	types.BaseModel
}

// NewEvent builds an audit event for a subscription transition
func NewEvent(ctx context.Context, subscriptionID string, eventType types.SubscriptionEventType, detail types.Metadata) *Event {
	return &Event{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION_EVENT),
		SubscriptionID: subscriptionID,
		EventType:      eventType,
		Detail:         detail,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

// TableName returns the table name for the subscription event
func (e *Event) TableName() string {
	return "subscription_events"
}
