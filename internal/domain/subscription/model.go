package subscription

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// Subscription is a tenant's platform subscription. MonthlyPrice is a price
// snapshot taken when the current period was billed; catalog price changes
// never retroactively alter an existing period.
type Subscription struct {
	ID string `db:"id" json:"id"`
	// PlanID references the catalog plan currently subscribed to
	PlanID string `db:"plan_id" json:"plan_id"`
	// PlanSlug is denormalized for display and switch-plan comparisons
	PlanSlug string `db:"plan_slug" json:"plan_slug"`
	// BillingCycle is how often the subscription renews
	BillingCycle types.BillingCycle `db:"billing_cycle" json:"billing_cycle"`
	// SeatCount is the number of billed seats, always >= 1
	SeatCount int `db:"seat_count" json:"seat_count"`
	// SubscriptionStatus is the lifecycle state, mutated only by the lifecycle engine
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	// CurrentPeriodStart and CurrentPeriodEnd bound the billed period
	CurrentPeriodStart time.Time `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   time.Time `db:"current_period_end" json:"current_period_end"`
	// TrialEnd is when a trialing subscription expires without payment
	TrialEnd *time.Time `db:"trial_end" json:"trial_end,omitempty"`
	// MonthlyPrice is the immutable monthly-equivalent price snapshot (MRR)
	MonthlyPrice decimal.Decimal `db:"monthly_price" json:"monthly_price"`
	// Currency the subscription is billed in
	Currency string `db:"currency" json:"currency"`
	// RegionID resolves the PPP multiplier used when pricing this subscription
	RegionID *string `db:"region_id" json:"region_id,omitempty"`
	// FailedPaymentCount counts consecutive failed renewal payments
	FailedPaymentCount int `db:"failed_payment_count" json:"failed_payment_count"`

	types.BaseModel
}

// Validate validates the subscription
func (s *Subscription) Validate() error {
	if s.PlanID == "" {
		return ierr.NewError("invalid plan id").
			WithHint("Plan id is required").
			Mark(ierr.ErrValidation)
	}
	if s.SeatCount < 1 {
		return ierr.NewError("invalid seat count").
			WithHint("Seat count must be at least 1").
			Mark(ierr.ErrValidation)
	}
	if err := s.BillingCycle.Validate(); err != nil {
		return err
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return err
	}
	return nil
}

// IsBillable reports whether renewal payments are expected for this subscription
func (s *Subscription) IsBillable() bool {
	switch s.SubscriptionStatus {
	case types.SubscriptionStatusActive, types.SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// TableName returns the table name for the subscription
func (s *Subscription) TableName() string {
	return "platform_subscriptions"
}
