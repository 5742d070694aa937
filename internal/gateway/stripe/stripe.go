package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/gateway"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/types"
)

const defaultBaseURL = "https://api.stripe.com"

// metadataOrderKey carries our internal order id through the provider and
// back on webhook payloads
const metadataOrderKey = "internal_order_id"

var allowedCurrencies = []string{"usd", "eur", "gbp", "inr", "aud", "cad", "sgd"}

// Adapter implements gateway.Gateway for a Stripe-style provider: bearer
// auth, payment-intent objects, and a signed-timestamp signature header.
type Adapter struct {
	client  gateway.Client
	baseURL string
	logger  *logger.Logger
}

// NewAdapter creates a Stripe-style gateway adapter
func NewAdapter(client gateway.Client, logger *logger.Logger) *Adapter {
	return &Adapter{client: client, baseURL: defaultBaseURL, logger: logger}
}

// NewAdapterWithBaseURL creates an adapter pointed at a custom endpoint.
// Used by tests and sandbox environments.
func NewAdapterWithBaseURL(client gateway.Client, baseURL string, logger *logger.Logger) *Adapter {
	return &Adapter{client: client, baseURL: baseURL, logger: logger}
}

func (a *Adapter) Provider() types.PaymentGatewayType {
	return types.PaymentGatewayTypeStripe
}

// ValidateCurrency rejects currencies outside the ISO allow-list
func (a *Adapter) ValidateCurrency(currency string, amount int64) error {
	if !lo.Contains(allowedCurrencies, strings.ToLower(currency)) {
		return ierr.NewError("unsupported currency").
			WithHintf("Currency %s is not supported by this gateway", currency).
			WithReportableDetails(map[string]any{"allowed": allowedCurrencies}).
			Mark(ierr.ErrValidation)
	}
	if amount <= 0 {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CreateOrder creates a payment intent upstream
func (a *Adapter) CreateOrder(ctx context.Context, cfg *gatewayconfig.GatewayConfig, req *gateway.OrderRequest) (*gateway.Order, error) {
	metadata := map[string]string{metadataOrderKey: req.InternalOrderID}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	body, err := json.Marshal(orderRequest{
		Amount:   req.Amount,
		Currency: strings.ToLower(req.Currency),
		Customer: customerPayload{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Metadata: metadata,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to encode order request").
			Mark(ierr.ErrSystem)
	}

	resp, err := a.client.Send(ctx, &gateway.Request{
		Method: http.MethodPost,
		URL:    a.baseURL + "/v1/payment_intents",
		Headers: map[string]string{
			"Authorization": "Bearer " + cfg.APISecret,
		},
		Body: body,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, gatewayRejection("create order", resp)
	}

	var intent paymentIntent
	if err := json.Unmarshal(resp.Body, &intent); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to decode gateway response").
			Mark(ierr.ErrGateway)
	}

	a.logger.Infow("created payment intent",
		"gateway_order_id", intent.ID,
		"amount", intent.Amount,
		"currency", intent.Currency,
	)

	return &gateway.Order{
		GatewayOrderID: intent.ID,
		Amount:         intent.Amount,
		Currency:       strings.ToUpper(intent.Currency),
		ProviderStatus: intent.Status,
	}, nil
}

// VerifySignature checks the Stripe-style signature header
// "t=<unix>,v1=<hex hmac-sha256 of '<t>.<body>'>" against the webhook secret
func (a *Adapter) VerifySignature(headers http.Header, rawBody []byte, secret string) error {
	header := headers.Get(types.HeaderStripeSignature)
	if header == "" {
		return ierr.NewError("missing signature header").
			WithHint("Signature header is required").
			Mark(ierr.ErrSignatureInvalid)
	}

	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return ierr.NewError("malformed signature header").
			WithHint("Signature header must carry t and v1 values").
			Mark(ierr.ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return ierr.NewError("webhook signature verification failed").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrSignatureInvalid)
	}
	return nil
}

// ParseWebhookEvent decodes the provider envelope into the normalized shape
func (a *Adapter) ParseWebhookEvent(_ http.Header, rawBody []byte) (*gateway.Event, error) {
	var event StripeEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed webhook payload").
			Mark(ierr.ErrValidation)
	}
	if event.ID == "" {
		return nil, ierr.NewError("missing event id").
			WithHint("Webhook payload carries no event id").
			Mark(ierr.ErrValidation)
	}

	object := event.Data.Object
	normalized := &gateway.Event{
		EventID:           event.ID,
		ProviderEventType: event.Type,
		InternalOrderID:   object.Metadata[metadataOrderKey],
		GatewayOrderID:    object.ID,
		GatewayPaymentID:  object.LatestCharge,
		Amount:            object.Amount,
		Currency:          strings.ToUpper(object.Currency),
	}

	switch event.Type {
	case eventPaymentIntentSucceeded:
		normalized.Type = types.GatewayEventPaymentSucceeded
	case eventPaymentIntentFailed:
		normalized.Type = types.GatewayEventPaymentFailed
		if object.LastPaymentError != nil {
			normalized.FailureReason = object.LastPaymentError.Message
		}
	case eventChargeRefunded:
		normalized.Type = types.GatewayEventRefundProcessed
	default:
		normalized.Type = types.GatewayEventUnknown
	}

	return normalized, nil
}

// Refund issues a refund against a payment intent
func (a *Adapter) Refund(ctx context.Context, cfg *gatewayconfig.GatewayConfig, req *gateway.RefundRequest) (*gateway.RefundResult, error) {
	body, err := json.Marshal(refundRequest{
		PaymentIntent: req.GatewayPaymentID,
		Amount:        req.Amount,
		Reason:        req.Reason,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to encode refund request").
			Mark(ierr.ErrSystem)
	}

	resp, err := a.client.Send(ctx, &gateway.Request{
		Method: http.MethodPost,
		URL:    a.baseURL + "/v1/refunds",
		Headers: map[string]string{
			"Authorization": "Bearer " + cfg.APISecret,
		},
		Body: body,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, gatewayRejection("refund", resp)
	}

	var refund refundObject
	if err := json.Unmarshal(resp.Body, &refund); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to decode gateway response").
			Mark(ierr.ErrGateway)
	}

	return &gateway.RefundResult{
		GatewayRefundID: refund.ID,
		Amount:          refund.Amount,
		ProviderStatus:  refund.Status,
	}, nil
}

// QueryStatus fetches the current state of a payment intent
func (a *Adapter) QueryStatus(ctx context.Context, cfg *gatewayconfig.GatewayConfig, gatewayOrderID string) (*gateway.StatusResult, error) {
	resp, err := a.client.Send(ctx, &gateway.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v1/payment_intents/%s", a.baseURL, gatewayOrderID),
		Headers: map[string]string{
			"Authorization": "Bearer " + cfg.APISecret,
		},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, gatewayRejection("query status", resp)
	}

	var intent paymentIntent
	if err := json.Unmarshal(resp.Body, &intent); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to decode gateway response").
			Mark(ierr.ErrGateway)
	}

	return &gateway.StatusResult{
		GatewayOrderID:   intent.ID,
		GatewayPaymentID: intent.LatestCharge,
		Status:           mapIntentStatus(intent.Status),
		ProviderStatus:   intent.Status,
	}, nil
}

func mapIntentStatus(status string) types.PaymentStatus {
	switch status {
	case "succeeded":
		return types.PaymentStatusCompleted
	case "canceled":
		return types.PaymentStatusFailed
	default:
		return types.PaymentStatusPending
	}
}

func gatewayRejection(op string, resp *gateway.Response) error {
	return ierr.NewError("gateway rejected " + op).
		WithHintf("Gateway rejected the %s request", op).
		WithReportableDetails(map[string]any{"status": resp.StatusCode}).
		Mark(ierr.ErrGateway)
}
