package types

import (
	"time"

	"github.com/samber/lo"

	ierr "github.com/clinicore/clinicore/internal/errors"
)

// SubscriptionStatus represents the lifecycle state of a platform subscription
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing     SubscriptionStatus = "trialing"
	SubscriptionStatusActive       SubscriptionStatus = "active"
	SubscriptionStatusPastDue      SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled    SubscriptionStatus = "cancelled"
	SubscriptionStatusTrialExpired SubscriptionStatus = "trial_expired"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusTrialing,
		SubscriptionStatusActive,
		SubscriptionStatusPastDue,
		SubscriptionStatusCancelled,
		SubscriptionStatusTrialExpired,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Please provide a valid subscription status").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// BillingCycle represents how often a subscription is billed
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleYearly    BillingCycle = "yearly"
	BillingCycleThreeYear BillingCycle = "3_year"
)

func (c BillingCycle) String() string {
	return string(c)
}

func (c BillingCycle) Validate() error {
	allowed := []BillingCycle{
		BillingCycleMonthly,
		BillingCycleYearly,
		BillingCycleThreeYear,
	}
	if !lo.Contains(allowed, c) {
		return ierr.NewError("invalid billing cycle").
			WithHint("Billing cycle must be monthly, yearly or 3_year").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Months returns the number of calendar months one billing period spans
func (c BillingCycle) Months() int {
	switch c {
	case BillingCycleYearly:
		return 12
	case BillingCycleThreeYear:
		return 36
	default:
		return 1
	}
}

// NextPeriodEnd advances a period end by exactly one billing cycle unit
func (c BillingCycle) NextPeriodEnd(from time.Time) time.Time {
	return from.AddDate(0, c.Months(), 0)
}

// SubscriptionEventType identifies an entry in the append-only audit log of
// lifecycle transitions
type SubscriptionEventType string

const (
	SubscriptionEventPlanUpgraded        SubscriptionEventType = "plan_upgraded"
	SubscriptionEventPlanDowngraded      SubscriptionEventType = "plan_downgraded"
	SubscriptionEventSeatsChanged        SubscriptionEventType = "seats_changed"
	SubscriptionEventCancelled           SubscriptionEventType = "cancelled"
	SubscriptionEventReactivated         SubscriptionEventType = "reactivated"
	SubscriptionEventTrialExpired        SubscriptionEventType = "trial_expired"
	SubscriptionEventPaymentFailureLimit SubscriptionEventType = "payment_failure_limit_reached"
)

func (t SubscriptionEventType) String() string {
	return string(t)
}
