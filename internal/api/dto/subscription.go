package dto

import (
	"time"

	"github.com/clinicore/clinicore/internal/domain/subscription"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
	"github.com/shopspring/decimal"
)

// CreateSubscriptionRequest starts a subscription for the tenant
type CreateSubscriptionRequest struct {
	PlanSlug     string             `json:"plan_slug" binding:"required"`
	BillingCycle types.BillingCycle `json:"billing_cycle" binding:"required"`
	SeatCount    int                `json:"seat_count" binding:"required"`
	RegionCode   string             `json:"region_code,omitempty"`
	CouponCode   string             `json:"coupon_code,omitempty"`
	TrialDays    int                `json:"trial_days,omitempty"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := r.BillingCycle.Validate(); err != nil {
		return err
	}
	if r.SeatCount <= 0 {
		return ierr.NewError("seat count must be positive").
			WithHint("Seat count must be at least 1").
			WithReportableDetails(map[string]any{"seat_count": r.SeatCount}).
			Mark(ierr.ErrValidation)
	}
	if r.TrialDays < 0 {
		return ierr.NewError("trial days cannot be negative").
			WithHint("Trial days cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SwitchPlanRequest moves the tenant's subscription to another plan or cycle
type SwitchPlanRequest struct {
	PlanSlug     string             `json:"plan_slug" binding:"required"`
	BillingCycle types.BillingCycle `json:"billing_cycle" binding:"required"`
}

func (r *SwitchPlanRequest) Validate() error {
	if r.PlanSlug == "" {
		return ierr.NewError("plan_slug is required").
			WithHint("Plan slug is required").
			Mark(ierr.ErrValidation)
	}
	return r.BillingCycle.Validate()
}

// SwitchPlanResponse reports the proration outcome of a plan switch
type SwitchPlanResponse struct {
	Subscription *SubscriptionResponse `json:"subscription"`
	Proration    *ProrationInfo        `json:"proration"`
}

// ProrationInfo describes the mid-cycle charge or credit
type ProrationInfo struct {
	DaysRemaining int             `json:"days_remaining"`
	UnusedCredit  decimal.Decimal `json:"unused_credit"`
	NewCharge     decimal.Decimal `json:"new_charge"`
	// NetAmount positive means charge now, negative means credit issued
	NetAmount decimal.Decimal `json:"net_amount"`
}

// SetSeatsRequest changes the subscription's seat count
type SetSeatsRequest struct {
	SeatCount int `json:"seat_count" binding:"required"`
}

func (r *SetSeatsRequest) Validate() error {
	if r.SeatCount <= 0 {
		return ierr.NewError("seat count must be positive").
			WithHint("Seat count must be at least 1").
			WithReportableDetails(map[string]any{"seat_count": r.SeatCount}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscriptionResponse represents a subscription
type SubscriptionResponse struct {
	ID                 string                   `json:"id"`
	PlanID             string                   `json:"plan_id"`
	PlanSlug           string                   `json:"plan_slug"`
	BillingCycle       types.BillingCycle       `json:"billing_cycle"`
	SeatCount          int                      `json:"seat_count"`
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`
	CurrentPeriodStart time.Time                `json:"current_period_start"`
	CurrentPeriodEnd   time.Time                `json:"current_period_end"`
	TrialEnd           *time.Time               `json:"trial_end,omitempty"`
	MonthlyPrice       decimal.Decimal          `json:"monthly_price"`
	Currency           string                   `json:"currency"`
	FailedPaymentCount int                      `json:"failed_payment_count"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// NewSubscriptionResponse creates a subscription response from the domain model
func NewSubscriptionResponse(s *subscription.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:                 s.ID,
		PlanID:             s.PlanID,
		PlanSlug:           s.PlanSlug,
		BillingCycle:       s.BillingCycle,
		SeatCount:          s.SeatCount,
		SubscriptionStatus: s.SubscriptionStatus,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		TrialEnd:           s.TrialEnd,
		MonthlyPrice:       s.MonthlyPrice,
		Currency:           s.Currency,
		FailedPaymentCount: s.FailedPaymentCount,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// SubscriptionEventResponse represents one audit log entry
type SubscriptionEventResponse struct {
	ID             string                      `json:"id"`
	SubscriptionID string                      `json:"subscription_id"`
	EventType      types.SubscriptionEventType `json:"event_type"`
	Detail         types.Metadata              `json:"detail,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// ListSubscriptionEventsResponse represents a paginated audit log
type ListSubscriptionEventsResponse struct {
	Items  []*SubscriptionEventResponse `json:"items"`
	Limit  int                          `json:"limit"`
	Offset int                          `json:"offset"`
}

// NewSubscriptionEventResponse creates an audit entry response
func NewSubscriptionEventResponse(e *subscription.Event) *SubscriptionEventResponse {
	return &SubscriptionEventResponse{
		ID:             e.ID,
		SubscriptionID: e.SubscriptionID,
		EventType:      e.EventType,
		Detail:         e.Detail,
		CreatedAt:      e.CreatedAt,
	}
}

// PricePreviewRequest asks for a computed price without changing anything
type PricePreviewRequest struct {
	PlanSlug     string             `json:"plan_slug" binding:"required"`
	BillingCycle types.BillingCycle `json:"billing_cycle" binding:"required"`
	SeatCount    int                `json:"seat_count" binding:"required"`
	RegionCode   string             `json:"region_code,omitempty"`
	CouponCode   string             `json:"coupon_code,omitempty"`
}

func (r *PricePreviewRequest) Validate() error {
	if err := r.BillingCycle.Validate(); err != nil {
		return err
	}
	if r.SeatCount <= 0 {
		return ierr.NewError("seat count must be positive").
			WithHint("Seat count must be at least 1").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PricePreviewResponse returns the computed monthly-equivalent price
type PricePreviewResponse struct {
	Total         decimal.Decimal `json:"total"`
	PerSeatBase   decimal.Decimal `json:"per_seat_base"`
	SeatCount     int             `json:"seat_count"`
	TierDiscount  decimal.Decimal `json:"tier_discount"`
	CouponApplied bool            `json:"coupon_applied"`
	Currency      string          `json:"currency"`
}
