package service

import (
	"context"
	"time"

	"github.com/clinicore/clinicore/internal/api/dto"
	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	"github.com/clinicore/clinicore/internal/domain/payment"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/gateway"
	"github.com/clinicore/clinicore/internal/types"
)

// PaymentService owns the payment/refund ledger and outbound gateway calls.
type PaymentService interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*dto.CreateOrderResponse, error)
	Refund(ctx context.Context, req dto.RefundPaymentRequest) (*dto.RefundPaymentResponse, error)
	// GetStatus is an idempotent read keyed by the tenant-generated order id
	GetStatus(ctx context.Context, internalOrderID string) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	ListPayments(ctx context.Context, limit, offset int) (*dto.ListPaymentsResponse, error)
}

type paymentService struct {
	ServiceParams
}

// NewPaymentService creates a new payment service
func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{ServiceParams: params}
}

// resolveGateway applies the selection policy: an explicit gateway field
// wins; otherwise the tenant default is used; no active config is an
// operator-actionable error, not a crash.
func (s *paymentService) resolveGateway(ctx context.Context, requested types.PaymentGatewayType) (gateway.Gateway, *gatewayconfig.GatewayConfig, error) {
	var cfg *gatewayconfig.GatewayConfig
	var err error

	if requested != "" {
		cfg, err = s.GatewayConfigRepo.GetByProvider(ctx, requested)
	} else {
		cfg, err = s.GatewayConfigRepo.GetDefault(ctx)
	}
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil, ierr.WithError(err).
				WithHint("No active payment gateway is configured for this tenant").
				Mark(ierr.ErrNoGatewayConfigured)
		}
		return nil, nil, err
	}

	adapter, err := s.GatewayRegistry.Get(cfg.Provider)
	if err != nil {
		return nil, nil, err
	}
	return adapter, cfg, nil
}

func (s *paymentService) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*dto.CreateOrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	adapter, cfg, err := s.resolveGateway(ctx, req.Gateway)
	if err != nil {
		return nil, err
	}

	currency := req.NormalizedCurrency()
	if err := adapter.ValidateCurrency(currency, req.Amount); err != nil {
		return nil, err
	}

	p := &payment.Payment{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		InternalOrderID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		Gateway:         cfg.Provider,
		Amount:          req.Amount,
		Currency:        currency,
		PaymentStatus:   types.PaymentStatusPending,
		AttemptCount:    1,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if req.SubscriptionID != "" {
		p.SubscriptionID = &req.SubscriptionID
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// the ledger row is written before the upstream call so a crashed or
	// timed-out create still leaves an auditable pending record
	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	order, err := adapter.CreateOrder(ctx, cfg, &gateway.OrderRequest{
		InternalOrderID: p.InternalOrderID,
		Amount:          req.Amount,
		Currency:        currency,
		Customer: gateway.Customer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Metadata: req.Metadata,
	})
	if err != nil {
		reason := err.Error()
		now := time.Now().UTC()
		p.PaymentStatus = types.PaymentStatusFailed
		p.FailureReason = &reason
		p.FailedAt = &now
		if updateErr := s.PaymentRepo.Update(ctx, p); updateErr != nil {
			s.Logger.Errorw("failed to record order creation failure",
				"payment_id", p.ID, "error", updateErr)
		}
		return nil, err
	}

	p.GatewayOrderID = &order.GatewayOrderID
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("created payment order",
		"payment_id", p.ID,
		"internal_order_id", p.InternalOrderID,
		"gateway", cfg.Provider,
		"amount", req.Amount,
		"currency", currency,
	)

	return &dto.CreateOrderResponse{
		Order: dto.OrderInfo{
			OrderID:         order.GatewayOrderID,
			InternalOrderID: p.InternalOrderID,
			Amount:          order.Amount,
			Currency:        order.Currency,
		},
		Gateway: cfg.Provider,
	}, nil
}

func (s *paymentService) Refund(ctx context.Context, req dto.RefundPaymentRequest) (*dto.RefundPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PaymentRepo.Get(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}

	switch p.PaymentStatus {
	case types.PaymentStatusCompleted, types.PaymentStatusPartiallyRefunded:
		// refundable
	case types.PaymentStatusRefunded:
		return nil, ierr.NewError("payment already fully refunded").
			WithHint("This payment has already been fully refunded").
			WithReportableDetails(map[string]any{"payment_id": p.ID}).
			Mark(ierr.ErrAlreadyRefunded)
	default:
		return nil, ierr.NewError("payment is not refundable").
			WithHint("Only completed payments can be refunded").
			WithReportableDetails(map[string]any{
				"payment_id":     p.ID,
				"payment_status": p.PaymentStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	remaining := p.RemainingRefundable()
	amount := req.Amount
	if amount == 0 {
		amount = remaining
	}
	if amount > remaining {
		return nil, ierr.NewError("refund exceeds refundable amount").
			WithHint("Cumulative refunds cannot exceed the original payment amount").
			WithReportableDetails(map[string]any{
				"requested": amount,
				"remaining": remaining,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if p.GatewayPaymentID == nil {
		return nil, ierr.NewError("payment has no gateway payment id").
			WithHint("Payment was never captured by the gateway").
			Mark(ierr.ErrInvalidOperation)
	}

	adapter, err := s.GatewayRegistry.Get(p.Gateway)
	if err != nil {
		return nil, err
	}
	cfg, err := s.GatewayConfigRepo.GetByProvider(ctx, p.Gateway)
	if err != nil {
		return nil, err
	}

	gatewayPaymentID := *p.GatewayPaymentID

	// the amount is reserved in the ledger before the gateway sees the
	// refund; of two concurrent requests against the same balance only one
	// can pass the cumulative cap
	p, err = s.PaymentRepo.ReserveRefund(ctx, p.ID, amount)
	if err != nil {
		if ierr.IsInvalidOperation(err) {
			if fresh, ferr := s.PaymentRepo.Get(ctx, req.PaymentID); ferr == nil && fresh.RemainingRefundable() == 0 {
				return nil, ierr.NewError("payment already fully refunded").
					WithHint("This payment has already been fully refunded").
					WithReportableDetails(map[string]any{"payment_id": req.PaymentID}).
					Mark(ierr.ErrAlreadyRefunded)
			}
		}
		return nil, err
	}

	result, err := adapter.Refund(ctx, cfg, &gateway.RefundRequest{
		GatewayPaymentID: gatewayPaymentID,
		Amount:           amount,
		Reason:           req.Reason,
	})
	if err != nil {
		// the gateway never received the refund, give the reservation back
		if relErr := s.PaymentRepo.ReleaseRefund(ctx, p.ID, amount); relErr != nil {
			s.Logger.Errorw("failed to release reserved refund",
				"payment_id", p.ID, "amount", amount, "error", relErr)
		}
		return nil, err
	}

	s.Logger.Infow("refunded payment",
		"payment_id", p.ID,
		"amount", amount,
		"refunded_total", p.RefundedAmount,
		"payment_status", p.PaymentStatus,
	)

	return &dto.RefundPaymentResponse{
		PaymentID:       p.ID,
		RefundedAmount:  p.RefundedAmount,
		PaymentStatus:   p.PaymentStatus,
		GatewayRefundID: result.GatewayRefundID,
	}, nil
}

func (s *paymentService) GetStatus(ctx context.Context, internalOrderID string) (*dto.PaymentResponse, error) {
	p, err := s.PaymentRepo.GetByInternalOrderID(ctx, internalOrderID)
	if err != nil {
		return nil, err
	}

	// a row still pending may just mean the webhook has not arrived yet;
	// reconcile against the gateway on read so the client sees the live
	// state without waiting for the delivery
	if p.PaymentStatus == types.PaymentStatusPending && p.GatewayOrderID != nil {
		if reconciled, err := s.reconcilePending(ctx, p); err == nil {
			p = reconciled
		} else {
			s.Logger.Warnw("gateway status reconciliation failed",
				"payment_id", p.ID, "error", err)
		}
	}

	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) reconcilePending(ctx context.Context, p *payment.Payment) (*payment.Payment, error) {
	adapter, err := s.GatewayRegistry.Get(p.Gateway)
	if err != nil {
		return nil, err
	}
	cfg, err := s.GatewayConfigRepo.GetByProvider(ctx, p.Gateway)
	if err != nil {
		return nil, err
	}

	result, err := adapter.QueryStatus(ctx, cfg, *p.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if result.Status == p.PaymentStatus {
		return p, nil
	}

	now := time.Now().UTC()
	p.PaymentStatus = result.Status
	if result.GatewayPaymentID != "" {
		p.GatewayPaymentID = &result.GatewayPaymentID
	}
	switch result.Status {
	case types.PaymentStatusCompleted:
		p.SucceededAt = &now
	case types.PaymentStatusFailed:
		p.FailedAt = &now
	}
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) ListPayments(ctx context.Context, limit, offset int) (*dto.ListPaymentsResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	payments, err := s.PaymentRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListPaymentsResponse{
		Items:  make([]*dto.PaymentResponse, 0, len(payments)),
		Limit:  limit,
		Offset: offset,
	}
	for _, p := range payments {
		resp.Items = append(resp.Items, dto.NewPaymentResponse(p))
	}
	return resp, nil
}
