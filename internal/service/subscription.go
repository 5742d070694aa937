package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicore/clinicore/internal/api/dto"
	"github.com/clinicore/clinicore/internal/domain/coupon"
	"github.com/clinicore/clinicore/internal/domain/region"
	"github.com/clinicore/clinicore/internal/domain/subscription"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/pricing"
	"github.com/clinicore/clinicore/internal/types"
)

// SubscriptionService is the lifecycle engine. It is the sole mutator of
// subscription status; webhook handlers and API handlers both go through it.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	GetCurrentSubscription(ctx context.Context) (*dto.SubscriptionResponse, error)

	SwitchPlan(ctx context.Context, req dto.SwitchPlanRequest) (*dto.SwitchPlanResponse, error)
	SetSeatCount(ctx context.Context, subscriptionID string, req dto.SetSeatsRequest) (*dto.SwitchPlanResponse, error)
	Cancel(ctx context.Context, subscriptionID string) (*dto.SubscriptionResponse, error)
	Reactivate(ctx context.Context, subscriptionID string) (*dto.SubscriptionResponse, error)
	// ExpireTrial moves a trialing subscription past its trial end
	ExpireTrial(ctx context.Context, subscriptionID string) (*dto.SubscriptionResponse, error)

	// HandlePaymentSucceeded and HandlePaymentFailed are idempotent
	// state-sets consumed by the webhook pipeline; events for the same
	// subscription may arrive in any order.
	HandlePaymentSucceeded(ctx context.Context, subscriptionID string) error
	HandlePaymentFailed(ctx context.Context, subscriptionID string, reason string) error

	ListEvents(ctx context.Context, subscriptionID string, limit, offset int) (*dto.ListSubscriptionEventsResponse, error)
	PreviewPrice(ctx context.Context, req dto.PricePreviewRequest) (*dto.PricePreviewResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

// computeMonthlyPrice resolves plan, region and coupon and runs the
// calculator for the given cycle and seats.
func (s *subscriptionService) computeMonthlyPrice(ctx context.Context, planSlug string, cycle types.BillingCycle, seats int, regionID *string, couponCode string) (*pricing.PriceResult, string, string, error) {
	p, err := s.PlanRepo.GetBySlug(ctx, planSlug)
	if err != nil {
		return nil, "", "", err
	}

	var reg *region.Region
	if regionID != nil {
		reg, err = s.RegionRepo.Get(ctx, *regionID)
		if err != nil {
			return nil, "", "", err
		}
	}

	var c *coupon.Coupon
	if couponCode != "" {
		c, err = s.CouponRepo.GetByCode(ctx, couponCode)
		if err != nil {
			return nil, "", "", err
		}
	}

	params := pricing.PriceParams{
		BasePrice:    p.BasePriceFor(cycle),
		BillingCycle: cycle,
		SeatCount:    decimal.NewFromInt(int64(seats)),
		Coupon:       c,
		Now:          time.Now().UTC(),
	}
	if reg != nil {
		params.RegionMultiplier = reg.PriceMultiplier
	}

	result, err := pricing.ComputePrice(params)
	if err != nil {
		return nil, "", "", err
	}
	return result, p.ID, p.Currency, nil
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if existing, err := s.SubscriptionRepo.GetByTenant(ctx); err == nil && existing != nil {
		return nil, ierr.NewError("subscription already exists").
			WithHint("The tenant already has an active subscription").
			WithReportableDetails(map[string]any{"subscription_id": existing.ID}).
			Mark(ierr.ErrAlreadyExists)
	}

	var regionID *string
	if req.RegionCode != "" {
		reg, err := s.RegionRepo.GetByCode(ctx, req.RegionCode)
		if err != nil {
			return nil, err
		}
		regionID = &reg.ID
	}

	result, planID, currency, err := s.computeMonthlyPrice(ctx, req.PlanSlug, req.BillingCycle, req.SeatCount, regionID, req.CouponCode)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:             planID,
		PlanSlug:           req.PlanSlug,
		BillingCycle:       req.BillingCycle,
		SeatCount:          req.SeatCount,
		SubscriptionStatus: types.SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   req.BillingCycle.NextPeriodEnd(now),
		MonthlyPrice:       result.Total,
		Currency:           currency,
		RegionID:           regionID,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	if req.TrialDays > 0 {
		trialEnd := now.AddDate(0, 0, req.TrialDays)
		sub.SubscriptionStatus = types.SubscriptionStatusTrialing
		sub.TrialEnd = &trialEnd
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	if err := s.SubscriptionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("created subscription",
		"subscription_id", sub.ID,
		"plan_slug", sub.PlanSlug,
		"billing_cycle", sub.BillingCycle,
		"seat_count", sub.SeatCount,
		"monthly_price", sub.MonthlyPrice,
	)

	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubscriptionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) GetCurrentSubscription(ctx context.Context) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubscriptionRepo.GetByTenant(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) SwitchPlan(ctx context.Context, req dto.SwitchPlanRequest) (*dto.SwitchPlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubscriptionRepo.GetByTenant(ctx)
	if err != nil {
		return nil, err
	}

	if sub.PlanSlug == req.PlanSlug && sub.BillingCycle == req.BillingCycle {
		return nil, ierr.NewError("already on this plan and cycle").
			WithHint("The subscription is already on the requested plan and billing cycle").
			Mark(ierr.ErrInvalidOperation)
	}

	result, planID, _, err := s.computeMonthlyPrice(ctx, req.PlanSlug, req.BillingCycle, sub.SeatCount, sub.RegionID, "")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	proration, err := pricing.Prorate(pricing.ProrationParams{
		OldMonthlyPrice: sub.MonthlyPrice,
		NewMonthlyPrice: result.Total,
		PeriodStart:     sub.CurrentPeriodStart,
		PeriodEnd:       sub.CurrentPeriodEnd,
		ChangeAt:        now,
	})
	if err != nil {
		return nil, err
	}

	eventType := types.SubscriptionEventPlanUpgraded
	if result.Total.LessThan(sub.MonthlyPrice) {
		eventType = types.SubscriptionEventPlanDowngraded
	}

	oldPlan := sub.PlanSlug
	oldCycle := sub.BillingCycle

	// upgrades and downgrades both take effect immediately; limits change
	// at once and the proration delta settles the difference
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub.PlanID = planID
		sub.PlanSlug = req.PlanSlug
		sub.BillingCycle = req.BillingCycle
		sub.MonthlyPrice = result.Total
		sub.UpdatedBy = types.GetUserID(ctx)
		if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
			return err
		}

		event := subscription.NewEvent(ctx, sub.ID, eventType, types.Metadata{
			"old_plan":   oldPlan,
			"new_plan":   req.PlanSlug,
			"old_cycle":  oldCycle.String(),
			"new_cycle":  req.BillingCycle.String(),
			"net_amount": proration.NetAmount.String(),
		})
		return s.SubscriptionRepo.CreateEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("switched plan",
		"subscription_id", sub.ID,
		"old_plan", oldPlan,
		"new_plan", req.PlanSlug,
		"event_type", eventType,
		"net_amount", proration.NetAmount,
	)

	return &dto.SwitchPlanResponse{
		Subscription: dto.NewSubscriptionResponse(sub),
		Proration: &dto.ProrationInfo{
			DaysRemaining: proration.DaysRemaining,
			UnusedCredit:  proration.UnusedCredit,
			NewCharge:     proration.NewCharge,
			NetAmount:     proration.NetAmount,
		},
	}, nil
}

func (s *subscriptionService) SetSeatCount(ctx context.Context, subscriptionID string, req dto.SetSeatsRequest) (*dto.SwitchPlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubscriptionRepo.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.SeatCount == req.SeatCount {
		return nil, ierr.NewError("seat count unchanged").
			WithHint("The subscription already has this seat count").
			Mark(ierr.ErrInvalidOperation)
	}

	result, _, _, err := s.computeMonthlyPrice(ctx, sub.PlanSlug, sub.BillingCycle, req.SeatCount, sub.RegionID, "")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	proration, err := pricing.Prorate(pricing.ProrationParams{
		OldMonthlyPrice: sub.MonthlyPrice,
		NewMonthlyPrice: result.Total,
		PeriodStart:     sub.CurrentPeriodStart,
		PeriodEnd:       sub.CurrentPeriodEnd,
		ChangeAt:        now,
	})
	if err != nil {
		return nil, err
	}

	oldSeats := sub.SeatCount

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub.SeatCount = req.SeatCount
		sub.MonthlyPrice = result.Total
		sub.UpdatedBy = types.GetUserID(ctx)
		if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
			return err
		}

		event := subscription.NewEvent(ctx, sub.ID, types.SubscriptionEventSeatsChanged, types.Metadata{
			"old_seat_count": fmt.Sprintf("%d", oldSeats),
			"new_seat_count": fmt.Sprintf("%d", req.SeatCount),
			"net_amount":     proration.NetAmount.String(),
		})
		return s.SubscriptionRepo.CreateEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("changed seat count",
		"subscription_id", sub.ID,
		"old_seat_count", oldSeats,
		"new_seat_count", req.SeatCount,
		"net_amount", proration.NetAmount,
	)

	return &dto.SwitchPlanResponse{
		Subscription: dto.NewSubscriptionResponse(sub),
		Proration: &dto.ProrationInfo{
			DaysRemaining: proration.DaysRemaining,
			UnusedCredit:  proration.UnusedCredit,
			NewCharge:     proration.NewCharge,
			NetAmount:     proration.NetAmount,
		},
	}, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, subscriptionID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubscriptionRepo.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.SubscriptionStatus == types.SubscriptionStatusCancelled {
		return nil, ierr.NewError("subscription already cancelled").
			WithHint("The subscription is already cancelled").
			Mark(ierr.ErrInvalidOperation)
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub.SubscriptionStatus = types.SubscriptionStatusCancelled
		sub.UpdatedBy = types.GetUserID(ctx)
		if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
			return err
		}
		event := subscription.NewEvent(ctx, sub.ID, types.SubscriptionEventCancelled, nil)
		return s.SubscriptionRepo.CreateEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) Reactivate(ctx context.Context, subscriptionID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubscriptionRepo.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.SubscriptionStatus != types.SubscriptionStatusCancelled {
		return nil, ierr.NewError("only cancelled subscriptions can be reactivated").
			WithHint("Only a cancelled subscription can be reactivated").
			WithReportableDetails(map[string]any{
				"subscription_status": sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub.SubscriptionStatus = types.SubscriptionStatusActive
		sub.UpdatedBy = types.GetUserID(ctx)
		if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
			return err
		}
		event := subscription.NewEvent(ctx, sub.ID, types.SubscriptionEventReactivated, nil)
		return s.SubscriptionRepo.CreateEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) ExpireTrial(ctx context.Context, subscriptionID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubscriptionRepo.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.SubscriptionStatus != types.SubscriptionStatusTrialing {
		return nil, ierr.NewError("subscription is not trialing").
			WithHint("Only a trialing subscription can expire").
			Mark(ierr.ErrInvalidOperation)
	}
	if sub.TrialEnd == nil || time.Now().UTC().Before(*sub.TrialEnd) {
		return nil, ierr.NewError("trial has not ended").
			WithHint("The trial period has not ended yet").
			Mark(ierr.ErrInvalidOperation)
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub.SubscriptionStatus = types.SubscriptionStatusTrialExpired
		sub.UpdatedBy = types.GetUserID(ctx)
		if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
			return err
		}
		event := subscription.NewEvent(ctx, sub.ID, types.SubscriptionEventTrialExpired, nil)
		return s.SubscriptionRepo.CreateEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	return dto.NewSubscriptionResponse(sub), nil
}

// HandlePaymentSucceeded sets the subscription active, clears the failure
// counter and extends the period by one billing cycle. It is a state-set,
// not a delta, so replays and out-of-order arrivals are harmless.
func (s *subscriptionService) HandlePaymentSucceeded(ctx context.Context, subscriptionID string) error {
	sub, err := s.SubscriptionRepo.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}

	if sub.SubscriptionStatus == types.SubscriptionStatusCancelled {
		// a payment for a cancelled subscription is recorded in the ledger
		// but does not resurrect the subscription
		s.Logger.Warnw("payment succeeded for cancelled subscription",
			"subscription_id", sub.ID)
		return nil
	}

	now := time.Now().UTC()
	sub.SubscriptionStatus = types.SubscriptionStatusActive
	sub.FailedPaymentCount = 0
	sub.CurrentPeriodStart = now
	sub.CurrentPeriodEnd = sub.BillingCycle.NextPeriodEnd(now)
	sub.TrialEnd = nil

	return s.SubscriptionRepo.Update(ctx, sub)
}

// HandlePaymentFailed moves the subscription to past_due and increments the
// failure counter. At three or more consecutive failures an audit event
// flags the tenant for the billing-ops notifier; the engine itself never
// sends notifications.
func (s *subscriptionService) HandlePaymentFailed(ctx context.Context, subscriptionID string, reason string) error {
	sub, err := s.SubscriptionRepo.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}

	if sub.SubscriptionStatus == types.SubscriptionStatusCancelled {
		return nil
	}

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		// the counter bump is atomic at the storage layer, so failure
		// events processed concurrently never lose an increment
		count, err := s.SubscriptionRepo.IncrementFailedPayments(ctx, sub.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			// cancelled between the read above and the increment
			return nil
		}

		if count >= 3 {
			event := subscription.NewEvent(ctx, sub.ID, types.SubscriptionEventPaymentFailureLimit, types.Metadata{
				"failed_payment_count": fmt.Sprintf("%d", count),
				"last_failure_reason":  reason,
			})
			if err := s.SubscriptionRepo.CreateEvent(ctx, event); err != nil {
				return err
			}
			s.Logger.Warnw("subscription reached payment failure limit",
				"subscription_id", sub.ID,
				"failed_payment_count", count,
			)
		}
		return nil
	})
}

func (s *subscriptionService) ListEvents(ctx context.Context, subscriptionID string, limit, offset int) (*dto.ListSubscriptionEventsResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	events, err := s.SubscriptionRepo.ListEvents(ctx, subscriptionID, limit, offset)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListSubscriptionEventsResponse{
		Items:  make([]*dto.SubscriptionEventResponse, 0, len(events)),
		Limit:  limit,
		Offset: offset,
	}
	for _, e := range events {
		resp.Items = append(resp.Items, dto.NewSubscriptionEventResponse(e))
	}
	return resp, nil
}

func (s *subscriptionService) PreviewPrice(ctx context.Context, req dto.PricePreviewRequest) (*dto.PricePreviewResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var regionID *string
	if req.RegionCode != "" {
		reg, err := s.RegionRepo.GetByCode(ctx, req.RegionCode)
		if err != nil {
			return nil, err
		}
		regionID = &reg.ID
	}

	result, _, currency, err := s.computeMonthlyPrice(ctx, req.PlanSlug, req.BillingCycle, req.SeatCount, regionID, req.CouponCode)
	if err != nil {
		return nil, err
	}

	return &dto.PricePreviewResponse{
		Total:         result.Total,
		PerSeatBase:   result.PerSeatBase,
		SeatCount:     result.SeatCount,
		TierDiscount:  result.TierDiscount,
		CouponApplied: result.CouponApplied,
		Currency:      currency,
	}, nil
}
