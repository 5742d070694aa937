package types

import (
	"fmt"

	"github.com/samber/lo"
)

// WebhookEventStatus represents the processing state of an accepted webhook event
type WebhookEventStatus string

const (
	WebhookEventStatusPending    WebhookEventStatus = "pending"
	WebhookEventStatusProcessing WebhookEventStatus = "processing"
	WebhookEventStatusProcessed  WebhookEventStatus = "processed"
	WebhookEventStatusFailed     WebhookEventStatus = "failed"
)

func (s WebhookEventStatus) String() string {
	return string(s)
}

func (s WebhookEventStatus) Validate() error {
	allowed := []WebhookEventStatus{
		WebhookEventStatusPending,
		WebhookEventStatusProcessing,
		WebhookEventStatusProcessed,
		WebhookEventStatusFailed,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid webhook event status: %s", s)
	}
	return nil
}

// MaxWebhookProcessingAttempts caps automatic retries of downstream
// processing after an event has won the deduplication insert. Beyond the cap
// the event stays failed and is surfaced to the operator queue.
const MaxWebhookProcessingAttempts = 3

// WebhookTimestampToleranceSeconds is the replay window for the mandatory
// x-webhook-timestamp header, in seconds either side of server time.
const WebhookTimestampToleranceSeconds = 300
