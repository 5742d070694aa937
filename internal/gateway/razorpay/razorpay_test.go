package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/config"
	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/gateway"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/types"
)

type stubClient struct {
	lastRequest *gateway.Request
	response    *gateway.Response
	err         error
}

func (c *stubClient) Send(_ context.Context, req *gateway.Request) (*gateway.Response, error) {
	c.lastRequest = req
	if c.err != nil {
		return nil, c.err
	}
	return c.response, nil
}

func newTestAdapter(t *testing.T, client gateway.Client) *Adapter {
	t.Helper()
	log, err := logger.NewLogger(config.GetDefaultConfig())
	require.NoError(t, err)
	return NewAdapter(client, log)
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidateCurrency(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})

	assert.NoError(t, a.ValidateCurrency("INR", 100))
	assert.NoError(t, a.ValidateCurrency("inr", 100))
	assert.NoError(t, a.ValidateCurrency("USD", 100))

	err := a.ValidateCurrency("EUR", 100)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestValidateCurrencyEnforcesMinimum(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})

	err := a.ValidateCurrency("INR", 99)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	assert.NoError(t, a.ValidateCurrency("INR", 100))
}

func TestCreateOrderUsesBasicAuthAndNotes(t *testing.T) {
	client := &stubClient{
		response: &gateway.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"id":"order_abc","amount":5000,"currency":"INR","status":"created"}`),
		},
	}
	a := newTestAdapter(t, client)

	order, err := a.CreateOrder(context.Background(), &gatewayconfig.GatewayConfig{
		APIKey:    "rzp_key",
		APISecret: "rzp_secret",
	}, &gateway.OrderRequest{
		InternalOrderID: "ord_abc",
		Amount:          5000,
		Currency:        "inr",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.GatewayOrderID)
	assert.Equal(t, int64(5000), order.Amount)

	assert.Equal(t, "rzp_key", client.lastRequest.Username)
	assert.Equal(t, "rzp_secret", client.lastRequest.Password)
	assert.Contains(t, string(client.lastRequest.Body), `"currency":"INR"`)
	assert.Contains(t, string(client.lastRequest.Body), `"internal_order_id":"ord_abc"`)
}

func TestVerifySignature(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{"event":"payment.captured"}`)
	secret := "webhook_secret"

	headers := http.Header{}
	headers.Set(types.HeaderRazorpaySignature, signBody(secret, body))
	assert.NoError(t, a.VerifySignature(headers, body, secret))
}

func TestVerifySignatureRejectsBadSignature(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{"event":"payment.captured"}`)

	headers := http.Header{}
	headers.Set(types.HeaderRazorpaySignature, signBody("wrong_secret", body))

	err := a.VerifySignature(headers, body, "webhook_secret")
	require.Error(t, err)
	assert.True(t, ierr.IsSignatureInvalid(err))
}

func TestVerifySignatureRejectsMissingHeader(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})

	err := a.VerifySignature(http.Header{}, []byte(`{}`), "webhook_secret")
	require.Error(t, err)
	assert.True(t, ierr.IsSignatureInvalid(err))
}

func TestParseWebhookEventCaptured(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_1",
			"order_id": "order_abc",
			"amount": 5000,
			"currency": "INR",
			"notes": {"internal_order_id": "ord_abc"}
		}}}
	}`)

	headers := http.Header{}
	headers.Set(types.HeaderRazorpayEventID, "evt_rzp_1")

	event, err := a.ParseWebhookEvent(headers, body)
	require.NoError(t, err)
	assert.Equal(t, "evt_rzp_1", event.EventID)
	assert.Equal(t, types.GatewayEventPaymentSucceeded, event.Type)
	assert.Equal(t, "ord_abc", event.InternalOrderID)
	assert.Equal(t, "order_abc", event.GatewayOrderID)
	assert.Equal(t, "pay_1", event.GatewayPaymentID)
	assert.Equal(t, int64(5000), event.Amount)
}

func TestParseWebhookEventFailureCarriesReason(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{
		"event": "payment.failed",
		"payload": {"payment": {"entity": {
			"id": "pay_1",
			"order_id": "order_abc",
			"error_description": "Payment declined by bank"
		}}}
	}`)

	headers := http.Header{}
	headers.Set(types.HeaderRazorpayEventID, "evt_rzp_2")

	event, err := a.ParseWebhookEvent(headers, body)
	require.NoError(t, err)
	assert.Equal(t, types.GatewayEventPaymentFailed, event.Type)
	assert.Equal(t, "Payment declined by bank", event.FailureReason)
}

func TestParseWebhookEventRefund(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{
		"event": "refund.processed",
		"payload": {"refund": {"entity": {
			"id": "rfnd_1",
			"payment_id": "pay_1",
			"amount": 2500
		}}}
	}`)

	headers := http.Header{}
	headers.Set(types.HeaderRazorpayEventID, "evt_rzp_3")

	event, err := a.ParseWebhookEvent(headers, body)
	require.NoError(t, err)
	assert.Equal(t, types.GatewayEventRefundProcessed, event.Type)
	assert.Equal(t, "pay_1", event.GatewayPaymentID)
	assert.Equal(t, int64(2500), event.Amount)
}

func TestParseWebhookEventRequiresEventIDHeader(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{"event": "payment.captured", "payload": {"payment": {"entity": {"id": "pay_1"}}}}`)

	_, err := a.ParseWebhookEvent(http.Header{}, body)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestParseWebhookEventMissingEntity(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	headers := http.Header{}
	headers.Set(types.HeaderRazorpayEventID, "evt_rzp_4")

	_, err := a.ParseWebhookEvent(headers, []byte(`{"event": "payment.captured", "payload": {}}`))
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestParseWebhookEventUnknownType(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	headers := http.Header{}
	headers.Set(types.HeaderRazorpayEventID, "evt_rzp_5")

	event, err := a.ParseWebhookEvent(headers, []byte(`{"event": "invoice.paid", "payload": {}}`))
	require.NoError(t, err)
	assert.Equal(t, types.GatewayEventUnknown, event.Type)
}
