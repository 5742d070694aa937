package gateway

import (
	"context"
	"net/http"

	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	"github.com/clinicore/clinicore/internal/types"
)

// Customer is the payer details forwarded to the gateway when creating an order
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// OrderRequest asks a gateway to create a payable order. Amount is integer
// minor units in the given currency.
type OrderRequest struct {
	InternalOrderID string
	Amount          int64
	Currency        string
	Customer        Customer
	Metadata        types.Metadata
}

// Order is the provider's view of a created order
type Order struct {
	GatewayOrderID string
	Amount         int64
	Currency       string
	// ProviderStatus is the provider-native status string, kept for audit
	ProviderStatus string
}

// RefundRequest asks a gateway to refund part or all of a captured payment
type RefundRequest struct {
	GatewayPaymentID string
	Amount           int64
	Reason           string
}

// RefundResult is the provider's view of an issued refund
type RefundResult struct {
	GatewayRefundID string
	Amount          int64
	ProviderStatus  string
}

// StatusResult is the provider's view of an order's payment state
type StatusResult struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Status           types.PaymentStatus
	ProviderStatus   string
}

// Event is the normalized shape every provider webhook payload is decoded
// into at the boundary. Downstream logic never sees provider-native JSON.
type Event struct {
	// EventID is the provider-assigned id used for deduplication
	EventID string
	// Type is the normalized event type
	Type types.GatewayEventType
	// ProviderEventType is the provider-native type string, kept for audit
	ProviderEventType string
	// InternalOrderID links the event back to our ledger when present
	InternalOrderID string
	GatewayOrderID   string
	GatewayPaymentID string
	// Amount in minor units when the event carries one
	Amount   int64
	Currency string
	// FailureReason is set for payment failure events
	FailureReason string
}

// Gateway normalizes "create order", "verify signature", "refund" and
// "query status" across heterogeneous payment providers. Implementations
// must validate currency against their own allow-list and minimums.
type Gateway interface {
	Provider() types.PaymentGatewayType

	// ValidateCurrency rejects currencies outside the provider allow-list
	// and amounts below the provider minimum
	ValidateCurrency(currency string, amount int64) error

	// CreateOrder creates a payable order upstream
	CreateOrder(ctx context.Context, cfg *gatewayconfig.GatewayConfig, req *OrderRequest) (*Order, error)

	// VerifySignature checks the provider signature over the raw body
	VerifySignature(headers http.Header, rawBody []byte, secret string) error

	// ParseWebhookEvent decodes a provider-native payload into the
	// normalized Event shape
	ParseWebhookEvent(headers http.Header, rawBody []byte) (*Event, error)

	// Refund issues a refund against a captured payment
	Refund(ctx context.Context, cfg *gatewayconfig.GatewayConfig, req *RefundRequest) (*RefundResult, error)

	// QueryStatus fetches the current payment state of an order
	QueryStatus(ctx context.Context, cfg *gatewayconfig.GatewayConfig, gatewayOrderID string) (*StatusResult, error)
}
