package service

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/clinicore/clinicore/internal/api/dto"
	"github.com/clinicore/clinicore/internal/domain/payment"
	"github.com/clinicore/clinicore/internal/domain/webhookevent"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/gateway"
	"github.com/clinicore/clinicore/internal/types"
)

// WebhookService runs the webhook security pipeline. The layers run in a
// fixed order and each failure is terminal: token lookup, mandatory
// timestamp, replay window, provider signature, atomic deduplication,
// dispatch. Later layers never see a request an earlier layer rejected.
type WebhookService interface {
	HandleWebhook(ctx context.Context, token string, headers http.Header, rawBody []byte) (*dto.WebhookAckResponse, error)

	// ListFailed returns permanently failed events for the operator queue
	ListFailed(ctx context.Context, limit, offset int) (*dto.ListWebhookEventsResponse, error)
	// RetryFailed reruns dispatch for one permanently failed event
	RetryFailed(ctx context.Context, eventID string) (*dto.WebhookEventResponse, error)
}

type webhookService struct {
	ServiceParams
	gatewayConfigService GatewayConfigService
	subscriptionService  SubscriptionService
}

// NewWebhookService creates a new webhook service
func NewWebhookService(params ServiceParams, gatewayConfigService GatewayConfigService, subscriptionService SubscriptionService) WebhookService {
	return &webhookService{
		ServiceParams:        params,
		gatewayConfigService: gatewayConfigService,
		subscriptionService:  subscriptionService,
	}
}

func (s *webhookService) HandleWebhook(ctx context.Context, token string, headers http.Header, rawBody []byte) (*dto.WebhookAckResponse, error) {
	// layer 1: token lookup. Unknown and malformed tokens both answer 404
	// so a caller learns nothing beyond "exists".
	cfg, err := s.gatewayConfigService.ResolveWebhookToken(ctx, token)
	if err != nil {
		return nil, err
	}

	// the token identifies the tenant; everything downstream is scoped to it
	ctx = types.SetTenantID(ctx, cfg.TenantID)

	// layer 2: the timestamp header is mandatory regardless of any other
	// header, closing the downgrade-to-no-replay-protection path
	if err := s.validateTimestamp(headers); err != nil {
		return nil, err
	}

	adapter, err := s.GatewayRegistry.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}

	// layer 3: provider signature over the raw body
	if err := adapter.VerifySignature(headers, rawBody, cfg.WebhookSecret); err != nil {
		s.Logger.Warnw("webhook signature verification failed",
			"provider", cfg.Provider,
			"tenant_id", cfg.TenantID,
		)
		return nil, err
	}

	event, err := adapter.ParseWebhookEvent(headers, rawBody)
	if err != nil {
		return nil, err
	}

	// layer 4: atomic deduplication. The insert is the concurrency gate;
	// of N simultaneous deliveries exactly one survives it.
	record := &webhookevent.WebhookEvent{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		Provider:    cfg.Provider,
		EventID:     event.EventID,
		EventType:   event.ProviderEventType,
		Payload:     rawBody,
		EventStatus: types.WebhookEventStatusProcessing,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := s.WebhookEventRepo.Create(ctx, record); err != nil {
		if ierr.IsAlreadyExists(err) {
			s.Logger.Infow("duplicate webhook delivery",
				"provider", cfg.Provider,
				"event_id", event.EventID,
			)
			return &dto.WebhookAckResponse{Status: dto.WebhookAckAlreadyProcessed}, nil
		}
		return nil, err
	}

	// layer 5: only the request that won the insert dispatches
	s.dispatchWithRetry(ctx, record, event)

	return &dto.WebhookAckResponse{Status: dto.WebhookAckProcessed}, nil
}

func (s *webhookService) validateTimestamp(headers http.Header) error {
	raw := headers.Get(types.HeaderWebhookTimestamp)
	if raw == "" {
		return ierr.NewError("timestamp required").
			WithHint("The x-webhook-timestamp header is required").
			Mark(ierr.ErrValidation)
	}

	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ierr.WithError(err).
			WithHint("The x-webhook-timestamp header must be Unix seconds").
			Mark(ierr.ErrValidation)
	}

	tolerance := int64(s.Config.Webhook.ToleranceSeconds)
	if tolerance <= 0 {
		tolerance = types.WebhookTimestampToleranceSeconds
	}

	skew := time.Now().UTC().Unix() - ts
	if skew > tolerance || skew < -tolerance {
		return ierr.NewError("timestamp out of window").
			WithHint("The webhook timestamp is outside the accepted window").
			WithReportableDetails(map[string]any{
				"tolerance_seconds": tolerance,
			}).
			Mark(ierr.ErrReplayDetected)
	}
	return nil
}

// dispatchWithRetry applies the event's side effects, retrying transient
// failures up to the attempt cap. Beyond the cap the event is permanently
// failed and left for the operator queue; it is never silently dropped and
// never retried automatically again.
func (s *webhookService) dispatchWithRetry(ctx context.Context, record *webhookevent.WebhookEvent, event *gateway.Event) {
	maxAttempts := s.Config.Webhook.MaxProcessingAttempts
	if maxAttempts <= 0 {
		maxAttempts = types.MaxWebhookProcessingAttempts
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 1 * time.Second

	operation := func() error {
		record.RetryCount++
		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			return s.applyEvent(ctx, event)
		})
		if err == nil {
			return nil
		}
		// business-invariant rejections are permanent; only transient
		// gateway and storage errors are worth another attempt
		if ierr.IsValidation(err) || ierr.IsInvalidOperation(err) || ierr.IsNotFound(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithMaxRetries(bo, uint64(maxAttempts-1)))

	now := time.Now().UTC()
	if err != nil {
		reason := err.Error()
		record.EventStatus = types.WebhookEventStatusFailed
		record.LastError = &reason
		s.Logger.Errorw("webhook event processing failed",
			"event_id", record.EventID,
			"provider", record.Provider,
			"retry_count", record.RetryCount,
			"error", err,
		)
	} else {
		record.EventStatus = types.WebhookEventStatusProcessed
		record.ProcessedAt = &now
	}

	if updateErr := s.WebhookEventRepo.Update(ctx, record); updateErr != nil {
		s.Logger.Errorw("failed to update webhook event status",
			"event_id", record.EventID,
			"error", updateErr,
		)
	}
}

// applyEvent translates one normalized gateway event into ledger and
// subscription mutations. Mutations are idempotent state-sets; the dedup
// layer guarantees this runs at most once per distinct event anyway.
func (s *webhookService) applyEvent(ctx context.Context, event *gateway.Event) error {
	switch event.Type {
	case types.GatewayEventPaymentSucceeded:
		return s.applyPaymentSucceeded(ctx, event)
	case types.GatewayEventPaymentFailed:
		return s.applyPaymentFailed(ctx, event)
	case types.GatewayEventRefundProcessed:
		return s.applyRefundProcessed(ctx, event)
	default:
		// unknown event types are accepted and stored for audit, nothing
		// to apply
		s.Logger.Debugw("ignoring unhandled webhook event type",
			"provider_event_type", event.ProviderEventType,
		)
		return nil
	}
}

// lookupPayment resolves the ledger row an event refers to, preferring the
// internal order id the gateway echoes back in metadata over the
// provider-assigned order id.
func (s *webhookService) lookupPayment(ctx context.Context, event *gateway.Event) (*payment.Payment, error) {
	if event.InternalOrderID != "" {
		p, err := s.PaymentRepo.GetByInternalOrderID(ctx, event.InternalOrderID)
		if err == nil {
			return p, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}
	if event.GatewayOrderID != "" {
		return s.PaymentRepo.GetByGatewayOrderID(ctx, event.GatewayOrderID)
	}
	return nil, ierr.NewError("event references no known order").
		WithHint("The webhook event does not reference a known order").
		Mark(ierr.ErrNotFound)
}

func (s *webhookService) applyPaymentSucceeded(ctx context.Context, event *gateway.Event) error {
	p, err := s.lookupPayment(ctx, event)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	p.PaymentStatus = types.PaymentStatusCompleted
	p.FailureReason = nil
	p.SucceededAt = &now
	if event.GatewayPaymentID != "" {
		p.GatewayPaymentID = &event.GatewayPaymentID
	}
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return err
	}

	if p.SubscriptionID != nil {
		return s.subscriptionService.HandlePaymentSucceeded(ctx, *p.SubscriptionID)
	}
	return nil
}

func (s *webhookService) applyPaymentFailed(ctx context.Context, event *gateway.Event) error {
	p, err := s.lookupPayment(ctx, event)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	p.PaymentStatus = types.PaymentStatusFailed
	p.FailedAt = &now
	if event.FailureReason != "" {
		reason := event.FailureReason
		p.FailureReason = &reason
	}
	if event.GatewayPaymentID != "" {
		p.GatewayPaymentID = &event.GatewayPaymentID
	}
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return err
	}

	if p.SubscriptionID != nil {
		return s.subscriptionService.HandlePaymentFailed(ctx, *p.SubscriptionID, event.FailureReason)
	}
	return nil
}

func (s *webhookService) applyRefundProcessed(ctx context.Context, event *gateway.Event) error {
	p, err := s.lookupPayment(ctx, event)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if event.Amount > 0 {
		p.RefundedAmount += event.Amount
		if p.RefundedAmount > p.Amount {
			p.RefundedAmount = p.Amount
		}
	} else {
		p.RefundedAmount = p.Amount
	}
	p.RefundedAt = &now
	if p.RefundedAmount >= p.Amount {
		p.PaymentStatus = types.PaymentStatusRefunded
	} else {
		p.PaymentStatus = types.PaymentStatusPartiallyRefunded
	}

	return s.PaymentRepo.Update(ctx, p)
}

func (s *webhookService) ListFailed(ctx context.Context, limit, offset int) (*dto.ListWebhookEventsResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	events, err := s.WebhookEventRepo.ListFailed(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListWebhookEventsResponse{
		Items:  make([]*dto.WebhookEventResponse, 0, len(events)),
		Limit:  limit,
		Offset: offset,
	}
	for _, e := range events {
		resp.Items = append(resp.Items, dto.NewWebhookEventResponse(e))
	}
	return resp, nil
}

// RetryFailed is the operator escape hatch: it reruns dispatch once for a
// permanently failed event, outside the automatic retry cap.
func (s *webhookService) RetryFailed(ctx context.Context, eventID string) (*dto.WebhookEventResponse, error) {
	record, err := s.WebhookEventRepo.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if record.EventStatus != types.WebhookEventStatusFailed {
		return nil, ierr.NewError("event is not failed").
			WithHint("Only failed webhook events can be retried").
			WithReportableDetails(map[string]any{
				"event_status": record.EventStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	adapter, err := s.GatewayRegistry.Get(record.Provider)
	if err != nil {
		return nil, err
	}
	// providers that carry the event id in a delivery header rather than
	// the payload get it replayed from the stored record
	headers := http.Header{}
	headers.Set(types.HeaderRazorpayEventID, record.EventID)
	event, err := adapter.ParseWebhookEvent(headers, record.Payload)
	if err != nil {
		return nil, err
	}

	record.RetryCount++
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.applyEvent(ctx, event)
	})

	now := time.Now().UTC()
	if err != nil {
		reason := err.Error()
		record.LastError = &reason
		if updateErr := s.WebhookEventRepo.Update(ctx, record); updateErr != nil {
			s.Logger.Errorw("failed to update webhook event after retry",
				"event_id", record.EventID, "error", updateErr)
		}
		return nil, err
	}

	record.EventStatus = types.WebhookEventStatusProcessed
	record.ProcessedAt = &now
	record.LastError = nil
	if err := s.WebhookEventRepo.Update(ctx, record); err != nil {
		return nil, err
	}

	s.Logger.Infow("manually retried webhook event",
		"event_id", record.EventID,
		"retry_count", record.RetryCount,
	)

	return dto.NewWebhookEventResponse(record), nil
}
