package service

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/clinicore/clinicore/internal/api/dto"
	"github.com/clinicore/clinicore/internal/domain/coupon"
	"github.com/clinicore/clinicore/internal/domain/plan"
	"github.com/clinicore/clinicore/internal/domain/region"
	"github.com/clinicore/clinicore/internal/domain/subscription"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/testutil"
	"github.com/clinicore/clinicore/internal/types"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  SubscriptionService
	testData struct {
		proPlan   *plan.Plan
		basicPlan *plan.Plan
		region    *region.Region
		coupon    *coupon.Coupon
	}
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSubscriptionService(ServiceParams{
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
	})
	s.setupTestData()
}

func (s *SubscriptionServiceSuite) setupTestData() {
	s.testData.proPlan = &plan.Plan{
		ID:                 "plan_pro",
		Slug:               "pro",
		Name:               "Pro",
		BasePriceMonthly:   decimal.NewFromInt(23),
		BasePriceYearly:    decimal.NewFromInt(19),
		BasePriceThreeYear: decimal.NewFromInt(15),
		Currency:           "USD",
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PlanRepo.Create(s.GetContext(), s.testData.proPlan))

	s.testData.basicPlan = &plan.Plan{
		ID:                 "plan_basic",
		Slug:               "basic",
		Name:               "Basic",
		BasePriceMonthly:   decimal.NewFromInt(9),
		BasePriceYearly:    decimal.NewFromInt(7),
		BasePriceThreeYear: decimal.NewFromInt(6),
		Currency:           "USD",
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PlanRepo.Create(s.GetContext(), s.testData.basicPlan))

	multiplier := decimal.NewFromFloat(0.35)
	s.testData.region = &region.Region{
		ID:              "region_in",
		Code:            "IN",
		Name:            "India",
		PriceMultiplier: &multiplier,
		Currency:        "USD",
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().RegionRepo.Create(s.GetContext(), s.testData.region))

	s.testData.coupon = &coupon.Coupon{
		ID:        "coupon_save20",
		Code:      "SAVE20",
		Type:      types.CouponTypePercentage,
		Value:     decimal.NewFromInt(20),
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().CouponRepo.Create(s.GetContext(), s.testData.coupon))
}

// seedSubscription writes a subscription directly into the store, bypassing
// the service, so tests can start from arbitrary lifecycle states
func (s *SubscriptionServiceSuite) seedSubscription(status types.SubscriptionStatus) *subscription.Subscription {
	now := time.Now().UTC()
	sub := &subscription.Subscription{
		ID:                 "subs_seed",
		PlanID:             s.testData.proPlan.ID,
		PlanSlug:           s.testData.proPlan.Slug,
		BillingCycle:       types.BillingCycleMonthly,
		SeatCount:          1,
		SubscriptionStatus: status,
		CurrentPeriodStart: now.AddDate(0, 0, -10),
		CurrentPeriodEnd:   now.AddDate(0, 0, 20),
		MonthlyPrice:       decimal.NewFromInt(23),
		Currency:           "USD",
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *SubscriptionServiceSuite) TestCreateSubscription() {
	resp, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		PlanSlug:     "pro",
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    1,
	})
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, resp.SubscriptionStatus)
	s.Equal("23.00", resp.MonthlyPrice.StringFixed(2))
	s.Equal("USD", resp.Currency)
	s.Nil(resp.TrialEnd)
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionWithTrial() {
	resp, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		PlanSlug:     "pro",
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    1,
		TrialDays:    14,
	})
	s.NoError(err)
	s.Equal(types.SubscriptionStatusTrialing, resp.SubscriptionStatus)
	s.NotNil(resp.TrialEnd)
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionWithRegion() {
	resp, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		PlanSlug:     "pro",
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    1,
		RegionCode:   "IN",
	})
	s.NoError(err)
	s.Equal("8.05", resp.MonthlyPrice.StringFixed(2))
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionRejectsSecondActive() {
	s.seedSubscription(types.SubscriptionStatusActive)

	_, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		PlanSlug:     "basic",
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    1,
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionUnknownPlan() {
	_, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		PlanSlug:     "enterprise",
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    1,
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestSwitchPlanDowngrade() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)

	resp, err := s.service.SwitchPlan(s.GetContext(), dto.SwitchPlanRequest{
		PlanSlug:     "basic",
		BillingCycle: types.BillingCycleMonthly,
	})
	s.NoError(err)
	s.Equal("basic", resp.Subscription.PlanSlug)
	s.Equal("9.00", resp.Subscription.MonthlyPrice.StringFixed(2))
	s.True(resp.Proration.NetAmount.IsNegative(), "downgrade should net a credit")

	events, err := s.GetStores().SubscriptionRepo.ListEvents(s.GetContext(), sub.ID, 10, 0)
	s.NoError(err)
	s.Len(events, 1)
	s.Equal(types.SubscriptionEventPlanDowngraded, events[0].EventType)
}

func (s *SubscriptionServiceSuite) TestSwitchPlanUpgrade() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)
	sub.PlanSlug = "basic"
	sub.PlanID = s.testData.basicPlan.ID
	sub.MonthlyPrice = decimal.NewFromInt(9)
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	resp, err := s.service.SwitchPlan(s.GetContext(), dto.SwitchPlanRequest{
		PlanSlug:     "pro",
		BillingCycle: types.BillingCycleMonthly,
	})
	s.NoError(err)
	s.Equal("pro", resp.Subscription.PlanSlug)
	s.True(resp.Proration.NetAmount.IsPositive(), "upgrade should net a charge")

	events, err := s.GetStores().SubscriptionRepo.ListEvents(s.GetContext(), sub.ID, 10, 0)
	s.NoError(err)
	s.Len(events, 1)
	s.Equal(types.SubscriptionEventPlanUpgraded, events[0].EventType)
}

func (s *SubscriptionServiceSuite) TestSwitchPlanRejectsSamePlanAndCycle() {
	s.seedSubscription(types.SubscriptionStatusActive)

	_, err := s.service.SwitchPlan(s.GetContext(), dto.SwitchPlanRequest{
		PlanSlug:     "pro",
		BillingCycle: types.BillingCycleMonthly,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestSwitchPlanSamePlanDifferentCycle() {
	s.seedSubscription(types.SubscriptionStatusActive)

	resp, err := s.service.SwitchPlan(s.GetContext(), dto.SwitchPlanRequest{
		PlanSlug:     "pro",
		BillingCycle: types.BillingCycleYearly,
	})
	s.NoError(err)
	s.Equal(types.BillingCycleYearly, resp.Subscription.BillingCycle)
	s.Equal("19.00", resp.Subscription.MonthlyPrice.StringFixed(2))
}

func (s *SubscriptionServiceSuite) TestSetSeatCount() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)

	resp, err := s.service.SetSeatCount(s.GetContext(), sub.ID, dto.SetSeatsRequest{SeatCount: 3})
	s.NoError(err)
	s.Equal(3, resp.Subscription.SeatCount)
	// 23 + 2*23 = 69, below the first volume tier
	s.Equal("69.00", resp.Subscription.MonthlyPrice.StringFixed(2))

	events, err := s.GetStores().SubscriptionRepo.ListEvents(s.GetContext(), sub.ID, 10, 0)
	s.NoError(err)
	s.Len(events, 1)
	s.Equal(types.SubscriptionEventSeatsChanged, events[0].EventType)
}

func (s *SubscriptionServiceSuite) TestSetSeatCountUnchangedRejected() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)

	_, err := s.service.SetSeatCount(s.GetContext(), sub.ID, dto.SetSeatsRequest{SeatCount: 1})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestSetSeatCountAppliesVolumeTier() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)

	resp, err := s.service.SetSeatCount(s.GetContext(), sub.ID, dto.SetSeatsRequest{SeatCount: 25})
	s.NoError(err)
	// 23 + 24*23*0.90 = 519.80
	s.Equal("519.80", resp.Subscription.MonthlyPrice.StringFixed(2))
}

func (s *SubscriptionServiceSuite) TestCancelAndReactivate() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)

	resp, err := s.service.Cancel(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, resp.SubscriptionStatus)

	_, err = s.service.Cancel(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	resp, err = s.service.Reactivate(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, resp.SubscriptionStatus)

	events, err := s.GetStores().SubscriptionRepo.ListEvents(s.GetContext(), sub.ID, 10, 0)
	s.NoError(err)
	s.Len(events, 2)
}

func (s *SubscriptionServiceSuite) TestReactivateRequiresCancelled() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)

	_, err := s.service.Reactivate(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestExpireTrial() {
	sub := s.seedSubscription(types.SubscriptionStatusTrialing)
	past := time.Now().UTC().Add(-time.Hour)
	sub.TrialEnd = &past
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	resp, err := s.service.ExpireTrial(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusTrialExpired, resp.SubscriptionStatus)
}

func (s *SubscriptionServiceSuite) TestExpireTrialBeforeTrialEndRejected() {
	sub := s.seedSubscription(types.SubscriptionStatusTrialing)
	future := time.Now().UTC().Add(24 * time.Hour)
	sub.TrialEnd = &future
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	_, err := s.service.ExpireTrial(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestExpireTrialRequiresTrialingState() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)

	_, err := s.service.ExpireTrial(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestHandlePaymentSucceededRecoversPastDue() {
	sub := s.seedSubscription(types.SubscriptionStatusPastDue)
	sub.FailedPaymentCount = 2
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	s.NoError(s.service.HandlePaymentSucceeded(s.GetContext(), sub.ID))

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, updated.SubscriptionStatus)
	s.Equal(0, updated.FailedPaymentCount)
	s.True(updated.CurrentPeriodEnd.After(time.Now().UTC()))
}

func (s *SubscriptionServiceSuite) TestHandlePaymentSucceededIsIdempotent() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)

	s.NoError(s.service.HandlePaymentSucceeded(s.GetContext(), sub.ID))
	first, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)

	s.NoError(s.service.HandlePaymentSucceeded(s.GetContext(), sub.ID))
	second, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)

	s.Equal(first.SubscriptionStatus, second.SubscriptionStatus)
	s.Equal(first.FailedPaymentCount, second.FailedPaymentCount)
}

func (s *SubscriptionServiceSuite) TestHandlePaymentSucceededDoesNotResurrectCancelled() {
	sub := s.seedSubscription(types.SubscriptionStatusCancelled)

	s.NoError(s.service.HandlePaymentSucceeded(s.GetContext(), sub.ID))

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, updated.SubscriptionStatus)
}

func (s *SubscriptionServiceSuite) TestHandlePaymentSucceededClearsTrial() {
	sub := s.seedSubscription(types.SubscriptionStatusTrialing)
	trialEnd := time.Now().UTC().Add(24 * time.Hour)
	sub.TrialEnd = &trialEnd
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	s.NoError(s.service.HandlePaymentSucceeded(s.GetContext(), sub.ID))

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, updated.SubscriptionStatus)
	s.Nil(updated.TrialEnd)
}

func (s *SubscriptionServiceSuite) TestHandlePaymentFailedMovesToPastDue() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)

	s.NoError(s.service.HandlePaymentFailed(s.GetContext(), sub.ID, "card declined"))

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, updated.SubscriptionStatus)
	s.Equal(1, updated.FailedPaymentCount)

	// no ops event below the failure limit
	events, err := s.GetStores().SubscriptionRepo.ListEvents(s.GetContext(), sub.ID, 10, 0)
	s.NoError(err)
	s.Empty(events)
}

func (s *SubscriptionServiceSuite) TestHandlePaymentFailedFlagsOpsAtThreeFailures() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)

	for i := 0; i < 3; i++ {
		s.NoError(s.service.HandlePaymentFailed(s.GetContext(), sub.ID, "card declined"))
	}

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(3, updated.FailedPaymentCount)

	events, err := s.GetStores().SubscriptionRepo.ListEvents(s.GetContext(), sub.ID, 10, 0)
	s.NoError(err)
	s.Len(events, 1)
	s.Equal(types.SubscriptionEventPaymentFailureLimit, events[0].EventType)
}

func (s *SubscriptionServiceSuite) TestHandlePaymentFailedCountsConcurrentFailures() {
	sub := s.seedSubscription(types.SubscriptionStatusActive)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.service.HandlePaymentFailed(s.GetContext(), sub.ID, "card declined"))
		}()
	}
	wg.Wait()

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(3, updated.FailedPaymentCount)
	s.Equal(types.SubscriptionStatusPastDue, updated.SubscriptionStatus)

	// exactly one of the three failures crossed the limit
	events, err := s.GetStores().SubscriptionRepo.ListEvents(s.GetContext(), sub.ID, 10, 0)
	s.NoError(err)
	s.Len(events, 1)
	s.Equal(types.SubscriptionEventPaymentFailureLimit, events[0].EventType)
}

func (s *SubscriptionServiceSuite) TestHandlePaymentFailedIgnoresCancelled() {
	sub := s.seedSubscription(types.SubscriptionStatusCancelled)

	s.NoError(s.service.HandlePaymentFailed(s.GetContext(), sub.ID, "card declined"))

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, updated.SubscriptionStatus)
	s.Equal(0, updated.FailedPaymentCount)
}

func (s *SubscriptionServiceSuite) TestPreviewPrice() {
	resp, err := s.service.PreviewPrice(s.GetContext(), dto.PricePreviewRequest{
		PlanSlug:     "pro",
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    25,
		RegionCode:   "",
		CouponCode:   "SAVE20",
	})
	s.NoError(err)
	// 519.80 then 20% off = 415.84
	s.Equal("415.84", resp.Total.StringFixed(2))
	s.True(resp.CouponApplied)
	s.Equal(25, resp.SeatCount)
}

func (s *SubscriptionServiceSuite) TestGetCurrentSubscriptionCrossTenantIsolation() {
	s.seedSubscription(types.SubscriptionStatusActive)

	otherCtx := s.GetContextForTenant("tenant_other")
	_, err := s.service.GetCurrentSubscription(otherCtx)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
