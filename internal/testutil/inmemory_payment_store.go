package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/clinicore/clinicore/internal/domain/payment"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
	mu sync.Mutex
}

// NewInMemoryPaymentStore creates a new in-memory payment repository
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func (m *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			WithHint("Payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if p.ID == "" {
		return ierr.NewError("payment ID cannot be empty").
			WithHint("Payment ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, p.ID, p)
}

func (m *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewError("payment not found").
			WithHint("Payment not found").
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(p), nil
}

// copyPayment keeps readers isolated from in-place mutation, the way
// rows scanned from the database are.
func copyPayment(p *payment.Payment) *payment.Payment {
	c := *p
	return &c
}

func (m *InMemoryPaymentStore) Update(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			WithHint("Payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	p.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, p.ID, p)
}

func (m *InMemoryPaymentStore) List(ctx context.Context, limit, offset int) ([]*payment.Payment, error) {
	items, err := m.InMemoryStore.List(ctx,
		func(ctx context.Context, p *payment.Payment) bool {
			return p.TenantID == types.GetTenantID(ctx)
		},
		func(i, j *payment.Payment) bool {
			return i.CreatedAt.After(j.CreatedAt)
		},
	)
	if err != nil {
		return nil, err
	}
	page := paginate(items, limit, offset)
	out := make([]*payment.Payment, len(page))
	for i, p := range page {
		out[i] = copyPayment(p)
	}
	return out, nil
}

// ReserveRefund serializes refund reservations the way the database
// conditional update does, so concurrent refunds see the same cap.
func (m *InMemoryPaymentStore) ReserveRefund(ctx context.Context, id string, amount int64) (*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.RefundedAmount+amount > p.Amount {
		return nil, ierr.NewError("refund exceeds refundable amount").
			WithHint("Cumulative refunds cannot exceed the original payment amount").
			WithReportableDetails(map[string]any{
				"payment_id": id,
				"requested":  amount,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	now := time.Now().UTC()
	p.RefundedAmount += amount
	p.RefundedAt = &now
	if p.RefundedAmount >= p.Amount {
		p.PaymentStatus = types.PaymentStatusRefunded
	} else {
		p.PaymentStatus = types.PaymentStatusPartiallyRefunded
	}
	p.UpdatedAt = now
	p.UpdatedBy = types.GetUserID(ctx)
	if err := m.InMemoryStore.Update(ctx, p.ID, p); err != nil {
		return nil, err
	}
	return copyPayment(p), nil
}

func (m *InMemoryPaymentStore) ReleaseRefund(ctx context.Context, id string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.Get(ctx, id)
	if err != nil {
		return err
	}

	p.RefundedAmount -= amount
	if p.RefundedAmount > 0 {
		p.PaymentStatus = types.PaymentStatusPartiallyRefunded
	} else {
		p.RefundedAmount = 0
		p.PaymentStatus = types.PaymentStatusCompleted
		p.RefundedAt = nil
	}
	p.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, p.ID, p)
}

func (m *InMemoryPaymentStore) GetByInternalOrderID(ctx context.Context, internalOrderID string) (*payment.Payment, error) {
	return m.findOne(ctx, func(p *payment.Payment) bool {
		return p.InternalOrderID == internalOrderID
	})
}

func (m *InMemoryPaymentStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*payment.Payment, error) {
	return m.findOne(ctx, func(p *payment.Payment) bool {
		return p.GatewayOrderID != nil && *p.GatewayOrderID == gatewayOrderID
	})
}

func (m *InMemoryPaymentStore) findOne(ctx context.Context, match func(*payment.Payment) bool) (*payment.Payment, error) {
	items, err := m.InMemoryStore.List(ctx,
		func(ctx context.Context, p *payment.Payment) bool {
			return p.TenantID == types.GetTenantID(ctx) && match(p)
		},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewError("payment not found").
			WithHint("Payment not found").
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(items[0]), nil
}
