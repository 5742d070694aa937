package types

import (
	ierr "github.com/clinicore/clinicore/internal/errors"
)

// PaymentGatewayType represents the type of payment gateway
type PaymentGatewayType string

const (
	PaymentGatewayTypeStripe   PaymentGatewayType = "stripe"
	PaymentGatewayTypeRazorpay PaymentGatewayType = "razorpay"
)

// Validate validates the payment gateway type
func (p PaymentGatewayType) Validate() error {
	switch p {
	case PaymentGatewayTypeStripe, PaymentGatewayTypeRazorpay:
		return nil
	default:
		return ierr.NewError("invalid payment gateway type").
			WithHint("Please provide a valid payment gateway type").
			WithReportableDetails(map[string]any{
				"allowed": []PaymentGatewayType{
					PaymentGatewayTypeStripe,
					PaymentGatewayTypeRazorpay,
				},
			}).
			Mark(ierr.ErrValidation)
	}
}

// String returns the string representation of the payment gateway type
func (p PaymentGatewayType) String() string {
	return string(p)
}

// GatewayEventType is the normalized event type every provider payload is
// decoded into at the webhook boundary
type GatewayEventType string

const (
	GatewayEventPaymentSucceeded GatewayEventType = "payment.succeeded"
	GatewayEventPaymentFailed    GatewayEventType = "payment.failed"
	GatewayEventRefundProcessed  GatewayEventType = "refund.processed"
	GatewayEventUnknown          GatewayEventType = "unknown"
)

func (t GatewayEventType) String() string {
	return string(t)
}

// Well known webhook headers
const (
	HeaderWebhookTimestamp  = "x-webhook-timestamp"
	HeaderStripeSignature   = "stripe-signature"
	HeaderRazorpaySignature = "x-razorpay-signature"
	HeaderRazorpayEventID   = "x-razorpay-event-id"
)
