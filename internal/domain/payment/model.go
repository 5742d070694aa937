package payment

import (
	"time"

	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// Payment is one row of the payment/refund ledger. Amounts are integer
// minor units (cents, paise); the pricing calculator is the only place
// money is handled in decimal form.
type Payment struct {
	// Unique identifier for this payment transaction
	ID string `db:"id" json:"id"`
	// InternalOrderID is the tenant-generated, globally unique order reference
	InternalOrderID string `db:"internal_order_id" json:"internal_order_id"`
	// Gateway that processed (or will process) this payment
	Gateway types.PaymentGatewayType `db:"gateway" json:"gateway"`
	// GatewayOrderID is the provider-assigned order id, nil until the order is created upstream
	GatewayOrderID *string `db:"gateway_order_id" json:"gateway_order_id,omitempty"`
	// GatewayPaymentID is the provider-assigned payment id, nil until confirmed
	GatewayPaymentID *string `db:"gateway_payment_id" json:"gateway_payment_id,omitempty"`
	// SubscriptionID links this payment to a platform subscription when it funds one
	SubscriptionID *string `db:"subscription_id" json:"subscription_id,omitempty"`
	// Amount in integer minor units
	Amount int64 `db:"amount" json:"amount"`
	// Currency is a three-letter ISO code
	Currency string `db:"currency" json:"currency"`
	// PaymentStatus is the current ledger state of this payment
	PaymentStatus types.PaymentStatus `db:"payment_status" json:"payment_status"`
	// FailureReason explains why the payment failed, nil otherwise
	FailureReason *string `db:"failure_reason" json:"failure_reason,omitempty"`
	// RefundedAmount is the cumulative refunded value in minor units, never above Amount
	RefundedAmount int64 `db:"refunded_amount" json:"refunded_amount"`
	// AttemptCount tracks processing attempts against the gateway
	AttemptCount int `db:"attempt_count" json:"attempt_count"`
	// SucceededAt is when the payment completed
	SucceededAt *time.Time `db:"succeeded_at" json:"succeeded_at,omitempty"`
	// FailedAt is when the payment failed
	FailedAt *time.Time `db:"failed_at" json:"failed_at,omitempty"`
	// RefundedAt is when the payment was last refunded against
	RefundedAt *time.Time `db:"refunded_at" json:"refunded_at,omitempty"`

	types.BaseModel
}

// Validate validates the payment
func (p *Payment) Validate() error {
	if p.Amount <= 0 {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if p.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	if p.InternalOrderID == "" {
		return ierr.NewError("invalid internal order id").
			WithHint("Internal order id is required").
			Mark(ierr.ErrValidation)
	}
	if err := p.Gateway.Validate(); err != nil {
		return err
	}
	if p.RefundedAmount < 0 || p.RefundedAmount > p.Amount {
		return ierr.NewError("invalid refunded amount").
			WithHint("Refunded amount cannot exceed the payment amount").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RemainingRefundable returns how much of the payment can still be refunded
func (p *Payment) RemainingRefundable() int64 {
	return p.Amount - p.RefundedAmount
}

// TableName returns the table name for the payment
func (p *Payment) TableName() string {
	return "payments"
}
