package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/clinicore/clinicore/internal/api/dto"
	"github.com/clinicore/clinicore/internal/domain/gatewayconfig"
	"github.com/clinicore/clinicore/internal/domain/payment"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/gateway"
	"github.com/clinicore/clinicore/internal/gateway/razorpay"
	"github.com/clinicore/clinicore/internal/gateway/stripe"
	"github.com/clinicore/clinicore/internal/testutil"
	"github.com/clinicore/clinicore/internal/types"
)

// stubGatewayClient replays canned responses so real adapters can run
// without network access
type stubGatewayClient struct {
	mu       sync.Mutex
	respond  func(req *gateway.Request) (*gateway.Response, error)
	requests []*gateway.Request
}

func (c *stubGatewayClient) Send(_ context.Context, req *gateway.Request) (*gateway.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	respond := c.respond
	c.mu.Unlock()

	if respond != nil {
		return respond(req)
	}
	return &gateway.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
}

func (c *stubGatewayClient) requestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

const testWebhookToken = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service    PaymentService
	stubClient *stubGatewayClient
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.stubClient = &stubGatewayClient{}
	registry := gateway.NewRegistry(
		stripe.NewAdapter(s.stubClient, s.GetLogger()),
		razorpay.NewAdapter(s.stubClient, s.GetLogger()),
	)

	s.service = NewPaymentService(ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.GetConfig(),
		DB:                s.GetDB(),
		Cache:             s.GetCache(),
		PaymentRepo:       s.GetStores().PaymentRepo,
		WebhookEventRepo:  s.GetStores().WebhookEventRepo,
		SubscriptionRepo:  s.GetStores().SubscriptionRepo,
		PlanRepo:          s.GetStores().PlanRepo,
		RegionRepo:        s.GetStores().RegionRepo,
		CouponRepo:        s.GetStores().CouponRepo,
		GatewayConfigRepo: s.GetStores().GatewayConfigRepo,
		GatewayRegistry:   registry,
	})
}

func (s *PaymentServiceSuite) seedGatewayConfig(provider types.PaymentGatewayType, isDefault bool) *gatewayconfig.GatewayConfig {
	cfg := &gatewayconfig.GatewayConfig{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_GATEWAY_CONFIG),
		Provider:      provider,
		APIKey:        "key_" + provider.String(),
		APISecret:     "secret_" + provider.String(),
		WebhookSecret: "whsec_" + provider.String(),
		WebhookToken:  testWebhookToken,
		IsDefault:     isDefault,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().GatewayConfigRepo.Create(s.GetContext(), cfg))
	return cfg
}

func (s *PaymentServiceSuite) seedPayment(status types.PaymentStatus, amount, refunded int64) *payment.Payment {
	gatewayPaymentID := "pi_seed"
	p := &payment.Payment{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		InternalOrderID:  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
		Gateway:          types.PaymentGatewayTypeStripe,
		GatewayPaymentID: &gatewayPaymentID,
		Amount:           amount,
		Currency:         "USD",
		PaymentStatus:    status,
		RefundedAmount:   refunded,
		AttemptCount:     1,
		BaseModel:        types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PaymentRepo.Create(s.GetContext(), p))
	return p
}

func (s *PaymentServiceSuite) TestCreateOrder() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	s.stubClient.respond = func(_ *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"id":"pi_123","amount":1000,"currency":"usd","status":"requires_payment_method"}`),
		}, nil
	}

	resp, err := s.service.CreateOrder(s.GetContext(), dto.CreateOrderRequest{
		Amount:   1000,
		Currency: "usd",
		Customer: dto.CustomerInfo{Name: "Test", Email: "t@example.com"},
	})
	s.NoError(err)
	s.Equal("pi_123", resp.Order.OrderID)
	s.Equal(types.PaymentGatewayTypeStripe, resp.Gateway)
	s.NotEmpty(resp.Order.InternalOrderID)

	// ledger row exists with the gateway order attached
	p, err := s.GetStores().PaymentRepo.GetByInternalOrderID(s.GetContext(), resp.Order.InternalOrderID)
	s.NoError(err)
	s.Equal(types.PaymentStatusPending, p.PaymentStatus)
	s.NotNil(p.GatewayOrderID)
	s.Equal("pi_123", *p.GatewayOrderID)
}

func (s *PaymentServiceSuite) TestCreateOrderExplicitGatewayOverridesDefault() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	razorpayCfg := &gatewayconfig.GatewayConfig{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_GATEWAY_CONFIG),
		Provider:      types.PaymentGatewayTypeRazorpay,
		APIKey:        "rzp_key",
		APISecret:     "rzp_secret",
		WebhookSecret: "rzp_whsec",
		WebhookToken:  "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().GatewayConfigRepo.Create(s.GetContext(), razorpayCfg))

	s.stubClient.respond = func(_ *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"id":"order_xyz","amount":5000,"currency":"INR","status":"created"}`),
		}, nil
	}

	resp, err := s.service.CreateOrder(s.GetContext(), dto.CreateOrderRequest{
		Amount:   5000,
		Currency: "INR",
		Gateway:  types.PaymentGatewayTypeRazorpay,
		Customer: dto.CustomerInfo{Name: "Test", Email: "t@example.com"},
	})
	s.NoError(err)
	s.Equal(types.PaymentGatewayTypeRazorpay, resp.Gateway)
	s.Equal("order_xyz", resp.Order.OrderID)
}

func (s *PaymentServiceSuite) TestCreateOrderNoGatewayConfigured() {
	_, err := s.service.CreateOrder(s.GetContext(), dto.CreateOrderRequest{
		Amount:   1000,
		Currency: "usd",
		Customer: dto.CustomerInfo{Name: "Test", Email: "t@example.com"},
	})
	s.Error(err)
	s.True(ierr.IsNoGatewayConfigured(err))
}

func (s *PaymentServiceSuite) TestCreateOrderRejectsUnsupportedCurrency() {
	s.seedGatewayConfig(types.PaymentGatewayTypeRazorpay, true)

	_, err := s.service.CreateOrder(s.GetContext(), dto.CreateOrderRequest{
		Amount:   1000,
		Currency: "GBP",
		Customer: dto.CustomerInfo{Name: "Test", Email: "t@example.com"},
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	// rejected before any ledger row is written
	list, err := s.GetStores().PaymentRepo.List(s.GetContext(), 10, 0)
	s.NoError(err)
	s.Empty(list)
}

func (s *PaymentServiceSuite) TestCreateOrderRejectsAmountBelowGatewayMinimum() {
	s.seedGatewayConfig(types.PaymentGatewayTypeRazorpay, true)

	_, err := s.service.CreateOrder(s.GetContext(), dto.CreateOrderRequest{
		Amount:   99,
		Currency: "INR",
		Customer: dto.CustomerInfo{Name: "Test", Email: "t@example.com"},
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestCreateOrderGatewayFailureRecordedInLedger() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	s.stubClient.respond = func(_ *gateway.Request) (*gateway.Response, error) {
		return nil, ierr.NewError("gateway unreachable").
			WithHint("Payment gateway is unreachable").
			Mark(ierr.ErrGateway)
	}

	_, err := s.service.CreateOrder(s.GetContext(), dto.CreateOrderRequest{
		Amount:   1000,
		Currency: "usd",
		Customer: dto.CustomerInfo{Name: "Test", Email: "t@example.com"},
	})
	s.Error(err)
	s.True(ierr.IsGateway(err))

	list, err := s.GetStores().PaymentRepo.List(s.GetContext(), 10, 0)
	s.NoError(err)
	s.Len(list, 1)
	s.Equal(types.PaymentStatusFailed, list[0].PaymentStatus)
	s.NotNil(list[0].FailureReason)
	s.NotNil(list[0].FailedAt)
}

func (s *PaymentServiceSuite) TestRefundFull() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	p := s.seedPayment(types.PaymentStatusCompleted, 1000, 0)
	s.stubClient.respond = func(_ *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"id":"re_1","amount":1000,"status":"succeeded"}`),
		}, nil
	}

	resp, err := s.service.Refund(s.GetContext(), dto.RefundPaymentRequest{PaymentID: p.ID})
	s.NoError(err)
	s.Equal(int64(1000), resp.RefundedAmount)
	s.Equal(types.PaymentStatusRefunded, resp.PaymentStatus)
	s.Equal("re_1", resp.GatewayRefundID)
}

func (s *PaymentServiceSuite) TestRefundPartialThenRemainder() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	p := s.seedPayment(types.PaymentStatusCompleted, 1000, 0)
	s.stubClient.respond = func(_ *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"id":"re_1","amount":400,"status":"succeeded"}`),
		}, nil
	}

	resp, err := s.service.Refund(s.GetContext(), dto.RefundPaymentRequest{PaymentID: p.ID, Amount: 400})
	s.NoError(err)
	s.Equal(int64(400), resp.RefundedAmount)
	s.Equal(types.PaymentStatusPartiallyRefunded, resp.PaymentStatus)

	// zero amount means refund whatever remains
	resp, err = s.service.Refund(s.GetContext(), dto.RefundPaymentRequest{PaymentID: p.ID})
	s.NoError(err)
	s.Equal(int64(1000), resp.RefundedAmount)
	s.Equal(types.PaymentStatusRefunded, resp.PaymentStatus)
}

func (s *PaymentServiceSuite) TestConcurrentFullRefundsChargeGatewayOnce() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	p := s.seedPayment(types.PaymentStatusCompleted, 1000, 0)

	// hold each gateway call open long enough for the requests to overlap
	s.stubClient.respond = func(_ *gateway.Request) (*gateway.Response, error) {
		time.Sleep(50 * time.Millisecond)
		return &gateway.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"id":"re_race","amount":1000,"status":"succeeded"}`),
		}, nil
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.Refund(s.GetContext(), dto.RefundPaymentRequest{PaymentID: p.ID})
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		rejected++
		s.True(ierr.IsAlreadyRefunded(err) || ierr.IsInvalidOperation(err))
	}
	s.Equal(1, succeeded)
	s.Equal(1, rejected)
	s.Equal(1, s.stubClient.requestCount())

	got, err := s.GetStores().PaymentRepo.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(int64(1000), got.RefundedAmount)
	s.Equal(types.PaymentStatusRefunded, got.PaymentStatus)
}

func (s *PaymentServiceSuite) TestRefundReservationReleasedOnGatewayFailure() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	p := s.seedPayment(types.PaymentStatusCompleted, 1000, 0)
	s.stubClient.respond = func(_ *gateway.Request) (*gateway.Response, error) {
		return nil, ierr.NewError("gateway unreachable").
			WithHint("Payment gateway is unreachable").
			Mark(ierr.ErrGateway)
	}

	_, err := s.service.Refund(s.GetContext(), dto.RefundPaymentRequest{PaymentID: p.ID})
	s.Error(err)
	s.True(ierr.IsGateway(err))

	// the reserved amount is given back, so a later refund still works
	got, err := s.GetStores().PaymentRepo.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(int64(0), got.RefundedAmount)
	s.Equal(types.PaymentStatusCompleted, got.PaymentStatus)
	s.Nil(got.RefundedAt)

	s.stubClient.respond = func(_ *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"id":"re_2","amount":1000,"status":"succeeded"}`),
		}, nil
	}
	resp, err := s.service.Refund(s.GetContext(), dto.RefundPaymentRequest{PaymentID: p.ID})
	s.NoError(err)
	s.Equal(types.PaymentStatusRefunded, resp.PaymentStatus)
}

func (s *PaymentServiceSuite) TestRefundExceedingRemainingRejected() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	p := s.seedPayment(types.PaymentStatusPartiallyRefunded, 1000, 800)

	_, err := s.service.Refund(s.GetContext(), dto.RefundPaymentRequest{PaymentID: p.ID, Amount: 300})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PaymentServiceSuite) TestRefundAlreadyRefunded() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	p := s.seedPayment(types.PaymentStatusRefunded, 1000, 1000)

	_, err := s.service.Refund(s.GetContext(), dto.RefundPaymentRequest{PaymentID: p.ID})
	s.Error(err)
	s.True(ierr.IsAlreadyRefunded(err))
}

func (s *PaymentServiceSuite) TestRefundPendingPaymentRejected() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	p := s.seedPayment(types.PaymentStatusPending, 1000, 0)

	_, err := s.service.Refund(s.GetContext(), dto.RefundPaymentRequest{PaymentID: p.ID})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PaymentServiceSuite) TestGetStatusReconcilesPendingAgainstGateway() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	p := s.seedPayment(types.PaymentStatusPending, 1000, 0)
	gatewayOrderID := "pi_pending_1"
	p.GatewayOrderID = &gatewayOrderID
	s.NoError(s.GetStores().PaymentRepo.Update(s.GetContext(), p))

	s.stubClient.respond = func(_ *gateway.Request) (*gateway.Response, error) {
		return &gateway.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"id":"pi_pending_1","amount":1000,"currency":"usd","status":"succeeded","latest_charge":"ch_rec_1"}`),
		}, nil
	}

	resp, err := s.service.GetStatus(s.GetContext(), p.InternalOrderID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, resp.PaymentStatus)
	s.Equal("ch_rec_1", *resp.GatewayPaymentID)

	// the reconciled state is persisted
	got, err := s.GetStores().PaymentRepo.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, got.PaymentStatus)
	s.NotNil(got.SucceededAt)
}

func (s *PaymentServiceSuite) TestGetStatusKeepsLedgerWhenGatewayUnreachable() {
	s.seedGatewayConfig(types.PaymentGatewayTypeStripe, true)
	p := s.seedPayment(types.PaymentStatusPending, 1000, 0)
	gatewayOrderID := "pi_pending_2"
	p.GatewayOrderID = &gatewayOrderID
	s.NoError(s.GetStores().PaymentRepo.Update(s.GetContext(), p))

	s.stubClient.respond = func(_ *gateway.Request) (*gateway.Response, error) {
		return nil, ierr.NewError("gateway unreachable").
			WithHint("Payment gateway is unreachable").
			Mark(ierr.ErrGateway)
	}

	resp, err := s.service.GetStatus(s.GetContext(), p.InternalOrderID)
	s.NoError(err)
	s.Equal(types.PaymentStatusPending, resp.PaymentStatus)
}

func (s *PaymentServiceSuite) TestGetStatusByInternalOrderID() {
	p := s.seedPayment(types.PaymentStatusCompleted, 1000, 0)

	resp, err := s.service.GetStatus(s.GetContext(), p.InternalOrderID)
	s.NoError(err)
	s.Equal(p.ID, resp.ID)
	s.Equal(types.PaymentStatusCompleted, resp.PaymentStatus)

	_, err = s.service.GetStatus(s.GetContext(), "ord_unknown")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *PaymentServiceSuite) TestListPaymentsPagination() {
	for i := 0; i < 5; i++ {
		p := s.seedPayment(types.PaymentStatusCompleted, 1000, 0)
		p.CreatedAt = p.CreatedAt.Add(time.Duration(i) * time.Second)
		s.NoError(s.GetStores().PaymentRepo.Update(s.GetContext(), p))
	}

	resp, err := s.service.ListPayments(s.GetContext(), 2, 0)
	s.NoError(err)
	s.Len(resp.Items, 2)
	s.Equal(2, resp.Limit)

	resp, err = s.service.ListPayments(s.GetContext(), 2, 4)
	s.NoError(err)
	s.Len(resp.Items, 1)
}

func (s *PaymentServiceSuite) TestCrossTenantIsolation() {
	p := s.seedPayment(types.PaymentStatusCompleted, 1000, 0)

	otherCtx := s.GetContextForTenant("tenant_other")
	_, err := s.service.GetPayment(otherCtx, p.ID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))

	list, err := s.service.ListPayments(otherCtx, 10, 0)
	s.NoError(err)
	s.Empty(list.Items)
}
