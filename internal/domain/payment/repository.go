package payment

import (
	"context"
)

// Repository defines the interface for payment ledger persistence. Every
// read is tenant-scoped through the context.
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	Update(ctx context.Context, payment *Payment) error
	List(ctx context.Context, limit, offset int) ([]*Payment, error)
	GetByInternalOrderID(ctx context.Context, internalOrderID string) (*Payment, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Payment, error)

	// ReserveRefund atomically adds amount to the refunded total and moves
	// the payment to its post-refund status, failing with
	// ErrInvalidOperation when the cumulative total would exceed the
	// payment amount. Of N concurrent reservations against the same
	// remaining balance, at most the balance is ever reserved.
	ReserveRefund(ctx context.Context, id string, amount int64) (*Payment, error)
	// ReleaseRefund gives a reserved amount back after a failed gateway
	// call, restoring the pre-reservation status.
	ReleaseRefund(ctx context.Context, id string, amount int64) error
}
