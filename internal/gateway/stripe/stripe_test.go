package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
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

func signBody(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidateCurrency(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})

	assert.NoError(t, a.ValidateCurrency("USD", 100))
	assert.NoError(t, a.ValidateCurrency("usd", 1))
	assert.NoError(t, a.ValidateCurrency("EUR", 100))

	err := a.ValidateCurrency("XYZ", 100)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	err = a.ValidateCurrency("USD", 0)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestCreateOrderCarriesInternalOrderID(t *testing.T) {
	client := &stubClient{
		response: &gateway.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"id":"pi_123","amount":1000,"currency":"usd","status":"requires_payment_method"}`),
		},
	}
	a := newTestAdapter(t, client)

	order, err := a.CreateOrder(context.Background(), &gatewayconfig.GatewayConfig{APISecret: "sk_test"}, &gateway.OrderRequest{
		InternalOrderID: "ord_abc",
		Amount:          1000,
		Currency:        "USD",
		Customer:        gateway.Customer{Name: "Test", Email: "t@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", order.GatewayOrderID)
	assert.Equal(t, int64(1000), order.Amount)
	assert.Equal(t, "USD", order.Currency)

	assert.Contains(t, string(client.lastRequest.Body), `"internal_order_id":"ord_abc"`)
	assert.Equal(t, "Bearer sk_test", client.lastRequest.Headers["Authorization"])
}

func TestCreateOrderGatewayRejection(t *testing.T) {
	client := &stubClient{
		response: &gateway.Response{StatusCode: http.StatusPaymentRequired, Body: []byte(`{}`)},
	}
	a := newTestAdapter(t, client)

	_, err := a.CreateOrder(context.Background(), &gatewayconfig.GatewayConfig{}, &gateway.OrderRequest{
		InternalOrderID: "ord_abc",
		Amount:          1000,
		Currency:        "USD",
	})
	require.Error(t, err)
	assert.True(t, ierr.IsGateway(err))
}

func TestVerifySignature(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	ts := "1700000000"

	headers := http.Header{}
	headers.Set(types.HeaderStripeSignature, fmt.Sprintf("t=%s,v1=%s", ts, signBody(secret, ts, body)))
	assert.NoError(t, a.VerifySignature(headers, body, secret))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	ts := "1700000000"

	headers := http.Header{}
	headers.Set(types.HeaderStripeSignature, fmt.Sprintf("t=%s,v1=%s", ts, signBody(secret, ts, body)))

	err := a.VerifySignature(headers, []byte(`{"id":"evt_2"}`), secret)
	require.Error(t, err)
	assert.True(t, ierr.IsSignatureInvalid(err))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{"id":"evt_1"}`)
	ts := "1700000000"

	headers := http.Header{}
	headers.Set(types.HeaderStripeSignature, fmt.Sprintf("t=%s,v1=%s", ts, signBody("whsec_other", ts, body)))

	err := a.VerifySignature(headers, body, "whsec_test")
	require.Error(t, err)
	assert.True(t, ierr.IsSignatureInvalid(err))
}

func TestVerifySignatureMissingOrMalformedHeader(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{}`)

	err := a.VerifySignature(http.Header{}, body, "whsec_test")
	require.Error(t, err)
	assert.True(t, ierr.IsSignatureInvalid(err))

	headers := http.Header{}
	headers.Set(types.HeaderStripeSignature, "t=1700000000")
	err = a.VerifySignature(headers, body, "whsec_test")
	require.Error(t, err)
	assert.True(t, ierr.IsSignatureInvalid(err))
}

func TestParseWebhookEventSucceeded(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_123",
			"amount": 1000,
			"currency": "usd",
			"latest_charge": "ch_9",
			"metadata": {"internal_order_id": "ord_abc"}
		}}
	}`)

	event, err := a.ParseWebhookEvent(http.Header{}, body)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.EventID)
	assert.Equal(t, types.GatewayEventPaymentSucceeded, event.Type)
	assert.Equal(t, "ord_abc", event.InternalOrderID)
	assert.Equal(t, "pi_123", event.GatewayOrderID)
	assert.Equal(t, "ch_9", event.GatewayPaymentID)
	assert.Equal(t, int64(1000), event.Amount)
	assert.Equal(t, "USD", event.Currency)
}

func TestParseWebhookEventFailureCarriesReason(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{
		"id": "evt_2",
		"type": "payment_intent.payment_failed",
		"data": {"object": {
			"id": "pi_123",
			"last_payment_error": {"code": "card_declined", "message": "Your card was declined."}
		}}
	}`)

	event, err := a.ParseWebhookEvent(http.Header{}, body)
	require.NoError(t, err)
	assert.Equal(t, types.GatewayEventPaymentFailed, event.Type)
	assert.Equal(t, "Your card was declined.", event.FailureReason)
}

func TestParseWebhookEventUnknownType(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})
	body := []byte(`{"id": "evt_3", "type": "customer.created", "data": {"object": {}}}`)

	event, err := a.ParseWebhookEvent(http.Header{}, body)
	require.NoError(t, err)
	assert.Equal(t, types.GatewayEventUnknown, event.Type)
}

func TestParseWebhookEventRejectsMissingID(t *testing.T) {
	a := newTestAdapter(t, &stubClient{})

	_, err := a.ParseWebhookEvent(http.Header{}, []byte(`{"type": "payment_intent.succeeded"}`))
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	_, err = a.ParseWebhookEvent(http.Header{}, []byte(`not json`))
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestRefund(t *testing.T) {
	client := &stubClient{
		response: &gateway.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"id":"re_1","amount":500,"status":"succeeded"}`),
		},
	}
	a := newTestAdapter(t, client)

	result, err := a.Refund(context.Background(), &gatewayconfig.GatewayConfig{APISecret: "sk_test"}, &gateway.RefundRequest{
		GatewayPaymentID: "pi_123",
		Amount:           500,
	})
	require.NoError(t, err)
	assert.Equal(t, "re_1", result.GatewayRefundID)
	assert.Equal(t, int64(500), result.Amount)
	assert.Contains(t, string(client.lastRequest.Body), `"payment_intent":"pi_123"`)
}

func TestQueryStatusMapsProviderStates(t *testing.T) {
	tests := []struct {
		providerStatus string
		want           types.PaymentStatus
	}{
		{"succeeded", types.PaymentStatusCompleted},
		{"canceled", types.PaymentStatusFailed},
		{"processing", types.PaymentStatusPending},
	}

	for _, tt := range tests {
		client := &stubClient{
			response: &gateway.Response{
				StatusCode: http.StatusOK,
				Body:       []byte(fmt.Sprintf(`{"id":"pi_123","status":%q}`, tt.providerStatus)),
			},
		}
		a := newTestAdapter(t, client)

		result, err := a.QueryStatus(context.Background(), &gatewayconfig.GatewayConfig{}, "pi_123")
		require.NoError(t, err)
		assert.Equal(t, tt.want, result.Status, "provider status %s", tt.providerStatus)
	}
}
