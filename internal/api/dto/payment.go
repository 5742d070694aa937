package dto

import (
	"strings"
	"time"

	"github.com/clinicore/clinicore/internal/domain/payment"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// CreateOrderRequest represents a request to create a payment order
type CreateOrderRequest struct {
	Amount         int64                    `json:"amount" binding:"required"`
	Currency       string                   `json:"currency" binding:"required"`
	Customer       CustomerInfo             `json:"customer" binding:"required"`
	Gateway        types.PaymentGatewayType `json:"gateway,omitempty"`
	SubscriptionID string                   `json:"subscription_id,omitempty"`
	Metadata       types.Metadata           `json:"metadata,omitempty"`
}

// CustomerInfo identifies the paying customer for the gateway
type CustomerInfo struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone,omitempty"`
}

func (r *CreateOrderRequest) Validate() error {
	if r.Amount <= 0 {
		return ierr.NewError("amount must be greater than zero").
			WithHint("Amount must be a positive number of minor units").
			WithReportableDetails(map[string]any{"amount": r.Amount}).
			Mark(ierr.ErrValidation)
	}
	if len(r.Currency) != 3 {
		return ierr.NewError("invalid currency code").
			WithHint("Currency must be a 3-letter ISO code").
			WithReportableDetails(map[string]any{"currency": r.Currency}).
			Mark(ierr.ErrValidation)
	}
	if r.Gateway != "" {
		if err := r.Gateway.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NormalizedCurrency returns the currency in upper case
func (r *CreateOrderRequest) NormalizedCurrency() string {
	return strings.ToUpper(r.Currency)
}

// CreateOrderResponse represents a newly created gateway order
type CreateOrderResponse struct {
	Order   OrderInfo                `json:"order"`
	Gateway types.PaymentGatewayType `json:"gateway"`
}

// OrderInfo carries the identifiers a client needs to complete checkout
type OrderInfo struct {
	OrderID         string `json:"order_id"`
	InternalOrderID string `json:"internal_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// RefundPaymentRequest represents a refund request against a payment
type RefundPaymentRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	// Amount in minor units; zero or absent means a full refund of the
	// remaining refundable balance
	Amount int64  `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (r *RefundPaymentRequest) Validate() error {
	if r.PaymentID == "" {
		return ierr.NewError("payment_id is required").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.Amount < 0 {
		return ierr.NewError("refund amount cannot be negative").
			WithHint("Refund amount cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RefundPaymentResponse represents the outcome of a refund
type RefundPaymentResponse struct {
	PaymentID      string              `json:"payment_id"`
	RefundedAmount int64               `json:"refunded_amount"`
	PaymentStatus  types.PaymentStatus `json:"payment_status"`
	GatewayRefundID string             `json:"gateway_refund_id,omitempty"`
}

// PaymentResponse represents a payment ledger row
type PaymentResponse struct {
	ID               string                   `json:"id"`
	InternalOrderID  string                   `json:"internal_order_id"`
	Gateway          types.PaymentGatewayType `json:"gateway"`
	GatewayOrderID   *string                  `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string                  `json:"gateway_payment_id,omitempty"`
	SubscriptionID   *string                  `json:"subscription_id,omitempty"`
	Amount           int64                    `json:"amount"`
	Currency         string                   `json:"currency"`
	PaymentStatus    types.PaymentStatus      `json:"payment_status"`
	FailureReason    *string                  `json:"failure_reason,omitempty"`
	RefundedAmount   int64                    `json:"refunded_amount"`
	AttemptCount     int                      `json:"attempt_count"`
	SucceededAt      *time.Time               `json:"succeeded_at,omitempty"`
	FailedAt         *time.Time               `json:"failed_at,omitempty"`
	RefundedAt       *time.Time               `json:"refunded_at,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// ListPaymentsResponse represents a paginated list of payments
type ListPaymentsResponse struct {
	Items  []*PaymentResponse `json:"items"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// NewPaymentResponse creates a payment response from a ledger row
func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:               p.ID,
		InternalOrderID:  p.InternalOrderID,
		Gateway:          p.Gateway,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		SubscriptionID:   p.SubscriptionID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		PaymentStatus:    p.PaymentStatus,
		FailureReason:    p.FailureReason,
		RefundedAmount:   p.RefundedAmount,
		AttemptCount:     p.AttemptCount,
		SucceededAt:      p.SucceededAt,
		FailedAt:         p.FailedAt,
		RefundedAt:       p.RefundedAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
