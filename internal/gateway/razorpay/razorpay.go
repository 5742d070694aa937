package razorpay

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

const defaultBaseURL = "https://api.razorpay.com"

// notesOrderKey carries our internal order id through provider notes and
// back on webhook payloads
const notesOrderKey = "internal_order_id"

// minAmountMinorUnits is the provider-enforced order minimum
const minAmountMinorUnits = 100

var allowedCurrencies = []string{"INR", "USD"}

// Adapter implements gateway.Gateway for a Razorpay-style provider: basic
// auth, order/payment entities, and a plain body-HMAC signature header.
type Adapter struct {
	client  gateway.Client
	baseURL string
	logger  *logger.Logger
}

// NewAdapter creates a Razorpay-style gateway adapter
func NewAdapter(client gateway.Client, logger *logger.Logger) *Adapter {
	return &Adapter{client: client, baseURL: defaultBaseURL, logger: logger}
}

// NewAdapterWithBaseURL creates an adapter pointed at a custom endpoint.
// Used by tests and sandbox environments.
func NewAdapterWithBaseURL(client gateway.Client, baseURL string, logger *logger.Logger) *Adapter {
	return &Adapter{client: client, baseURL: baseURL, logger: logger}
}

func (a *Adapter) Provider() types.PaymentGatewayType {
	return types.PaymentGatewayTypeRazorpay
}

// ValidateCurrency rejects currencies outside the allow-list and amounts
// below the provider's 100 minor unit minimum
func (a *Adapter) ValidateCurrency(currency string, amount int64) error {
	if !lo.Contains(allowedCurrencies, strings.ToUpper(currency)) {
		return ierr.NewError("unsupported currency").
			WithHintf("Currency %s is not supported by this gateway", currency).
			WithReportableDetails(map[string]any{"allowed": allowedCurrencies}).
			Mark(ierr.ErrValidation)
	}
	if amount < minAmountMinorUnits {
		return ierr.NewError("amount below gateway minimum").
			WithHintf("Amount must be at least %d minor units", minAmountMinorUnits).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CreateOrder creates an order upstream
func (a *Adapter) CreateOrder(ctx context.Context, cfg *gatewayconfig.GatewayConfig, req *gateway.OrderRequest) (*gateway.Order, error) {
	notes := map[string]string{notesOrderKey: req.InternalOrderID}
	for k, v := range req.Metadata {
		notes[k] = v
	}

	body, err := json.Marshal(orderRequest{
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
		Receipt:  req.InternalOrderID,
		Notes:    notes,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to encode order request").
			Mark(ierr.ErrSystem)
	}

	resp, err := a.client.Send(ctx, &gateway.Request{
		Method:   http.MethodPost,
		URL:      a.baseURL + "/v1/orders",
		Username: cfg.APIKey,
		Password: cfg.APISecret,
		Body:     body,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, gatewayRejection("create order", resp)
	}

	var order orderObject
	if err := json.Unmarshal(resp.Body, &order); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to decode gateway response").
			Mark(ierr.ErrGateway)
	}

	a.logger.Infow("created gateway order",
		"gateway_order_id", order.ID,
		"amount", order.Amount,
		"currency", order.Currency,
	)

	return &gateway.Order{
		GatewayOrderID: order.ID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		ProviderStatus: order.Status,
	}, nil
}

// VerifySignature checks the provider's hex HMAC-SHA256 of the raw body
func (a *Adapter) VerifySignature(headers http.Header, rawBody []byte, secret string) error {
	signature := headers.Get(types.HeaderRazorpaySignature)
	if signature == "" {
		return ierr.NewError("missing signature header").
			WithHint("Signature header is required").
			Mark(ierr.ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ierr.NewError("webhook signature verification failed").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrSignatureInvalid)
	}
	return nil
}

// ParseWebhookEvent decodes the provider envelope into the normalized
// shape. The event id travels in a header, unique per event.
func (a *Adapter) ParseWebhookEvent(headers http.Header, rawBody []byte) (*gateway.Event, error) {
	var event RazorpayEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed webhook payload").
			Mark(ierr.ErrValidation)
	}

	eventID := headers.Get(types.HeaderRazorpayEventID)
	if eventID == "" {
		return nil, ierr.NewError("missing event id header").
			WithHint("Webhook delivery carries no event id").
			Mark(ierr.ErrValidation)
	}

	normalized := &gateway.Event{
		EventID:           eventID,
		ProviderEventType: event.Event,
	}

	switch event.Event {
	case eventPaymentCaptured, eventPaymentFailed:
		if event.Payload.Payment == nil {
			return nil, ierr.NewError("missing payment entity").
				WithHint("Webhook payload carries no payment entity").
				Mark(ierr.ErrValidation)
		}
		entity := event.Payload.Payment.Entity
		normalized.InternalOrderID = entity.Notes[notesOrderKey]
		normalized.GatewayOrderID = entity.OrderID
		normalized.GatewayPaymentID = entity.ID
		normalized.Amount = entity.Amount
		normalized.Currency = entity.Currency
		if event.Event == eventPaymentCaptured {
			normalized.Type = types.GatewayEventPaymentSucceeded
		} else {
			normalized.Type = types.GatewayEventPaymentFailed
			normalized.FailureReason = entity.ErrorDescription
		}
	case eventRefundProcessed:
		if event.Payload.Refund == nil {
			return nil, ierr.NewError("missing refund entity").
				WithHint("Webhook payload carries no refund entity").
				Mark(ierr.ErrValidation)
		}
		entity := event.Payload.Refund.Entity
		normalized.Type = types.GatewayEventRefundProcessed
		normalized.GatewayPaymentID = entity.PaymentID
		normalized.Amount = entity.Amount
	default:
		normalized.Type = types.GatewayEventUnknown
	}

	return normalized, nil
}

// Refund issues a refund against a captured payment
func (a *Adapter) Refund(ctx context.Context, cfg *gatewayconfig.GatewayConfig, req *gateway.RefundRequest) (*gateway.RefundResult, error) {
	notes := map[string]string{}
	if req.Reason != "" {
		notes["reason"] = req.Reason
	}

	body, err := json.Marshal(refundRequest{Amount: req.Amount, Notes: notes})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to encode refund request").
			Mark(ierr.ErrSystem)
	}

	resp, err := a.client.Send(ctx, &gateway.Request{
		Method:   http.MethodPost,
		URL:      fmt.Sprintf("%s/v1/payments/%s/refund", a.baseURL, req.GatewayPaymentID),
		Username: cfg.APIKey,
		Password: cfg.APISecret,
		Body:     body,
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

// QueryStatus fetches the current state of an order
func (a *Adapter) QueryStatus(ctx context.Context, cfg *gatewayconfig.GatewayConfig, gatewayOrderID string) (*gateway.StatusResult, error) {
	resp, err := a.client.Send(ctx, &gateway.Request{
		Method:   http.MethodGet,
		URL:      fmt.Sprintf("%s/v1/orders/%s", a.baseURL, gatewayOrderID),
		Username: cfg.APIKey,
		Password: cfg.APISecret,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, gatewayRejection("query status", resp)
	}

	var order orderObject
	if err := json.Unmarshal(resp.Body, &order); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to decode gateway response").
			Mark(ierr.ErrGateway)
	}

	return &gateway.StatusResult{
		GatewayOrderID: order.ID,
		Status:         mapOrderStatus(order.Status),
		ProviderStatus: order.Status,
	}, nil
}

func mapOrderStatus(status string) types.PaymentStatus {
	switch status {
	case "paid":
		return types.PaymentStatusCompleted
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
