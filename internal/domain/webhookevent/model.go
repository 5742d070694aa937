package webhookevent

import (
	"encoding/json"
	"time"

	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// WebhookEvent is the durable record of an accepted webhook delivery.
// Uniqueness on (provider, event_id) is the concurrency gate: a duplicate
// delivery never creates a second row, and only the request that won the
// insert applies business side effects.
type WebhookEvent struct {
	ID string `db:"id" json:"id"`
	// Provider is the gateway that delivered the event
	Provider types.PaymentGatewayType `db:"provider" json:"provider"`
	// EventID is the provider-assigned identifier, unique per provider
	EventID string `db:"event_id" json:"event_id"`
	// EventType is the provider-native event type string
	EventType string `db:"event_type" json:"event_type"`
	// Payload is the raw request body, preserved verbatim for audit
	Payload json.RawMessage `db:"payload" json:"payload"`
	// EventStatus tracks downstream processing of the accepted event
	EventStatus types.WebhookEventStatus `db:"event_status" json:"event_status"`
	// RetryCount counts processing attempts after the dedup insert
	RetryCount int `db:"retry_count" json:"retry_count"`
	// LastError holds the most recent processing failure, nil otherwise
	LastError *string `db:"last_error" json:"last_error,omitempty"`
	// ProcessedAt is when downstream processing finished
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`

	types.BaseModel
}

// Validate validates the webhook event
func (e *WebhookEvent) Validate() error {
	if e.EventID == "" {
		return ierr.NewError("invalid event id").
			WithHint("Event id is required").
			Mark(ierr.ErrValidation)
	}
	if err := e.Provider.Validate(); err != nil {
		return err
	}
	if len(e.Payload) == 0 {
		return ierr.NewError("invalid payload").
			WithHint("Payload is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the webhook event
func (e *WebhookEvent) TableName() string {
	return "webhook_events"
}
