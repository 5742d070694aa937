package dto

import (
	"time"

	"github.com/clinicore/clinicore/internal/domain/webhookevent"
	"github.com/clinicore/clinicore/internal/types"
)

// WebhookAckResponse is the body returned to the delivering gateway
type WebhookAckResponse struct {
	Status string `json:"status"`
}

// Webhook acknowledgement statuses. Gateways only look at the HTTP code;
// the body distinguishes first delivery from replays for log correlation.
const (
	WebhookAckProcessed        = "processed"
	WebhookAckAlreadyProcessed = "already processed"
)

// WebhookEventResponse represents a stored webhook event
type WebhookEventResponse struct {
	ID          string                   `json:"id"`
	Provider    types.PaymentGatewayType `json:"provider"`
	EventID     string                   `json:"event_id"`
	EventType   string                   `json:"event_type"`
	EventStatus types.WebhookEventStatus `json:"event_status"`
	RetryCount  int                      `json:"retry_count"`
	LastError   *string                  `json:"last_error,omitempty"`
	ProcessedAt *time.Time               `json:"processed_at,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
}

// ListWebhookEventsResponse is the operator view of failed events
type ListWebhookEventsResponse struct {
	Items  []*WebhookEventResponse `json:"items"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// NewWebhookEventResponse creates a webhook event response
func NewWebhookEventResponse(e *webhookevent.WebhookEvent) *WebhookEventResponse {
	return &WebhookEventResponse{
		ID:          e.ID,
		Provider:    e.Provider,
		EventID:     e.EventID,
		EventType:   e.EventType,
		EventStatus: e.EventStatus,
		RetryCount:  e.RetryCount,
		LastError:   e.LastError,
		ProcessedAt: e.ProcessedAt,
		CreatedAt:   e.CreatedAt,
	}
}
