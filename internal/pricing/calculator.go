package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicore/clinicore/internal/domain/coupon"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// seatTier is a volume discount bracket selected by the total seat count.
// The discount applies to additional seats only; seat one is always billed
// at the undiscounted per-seat rate.
type seatTier struct {
	minSeats int
	discount decimal.Decimal // fraction, e.g. 0.10
}

var seatTiers = []seatTier{
	{minSeats: 100, discount: decimal.NewFromFloat(0.15)},
	{minSeats: 50, discount: decimal.NewFromFloat(0.12)},
	{minSeats: 25, discount: decimal.NewFromFloat(0.10)},
	{minSeats: 10, discount: decimal.NewFromFloat(0.07)},
	{minSeats: 5, discount: decimal.NewFromFloat(0.05)},
	{minSeats: 0, discount: decimal.Zero},
}

// PriceParams are the inputs to one price computation. BasePrice is the
// catalog per-seat monthly-equivalent rate for the chosen billing cycle;
// the cycle discount is already baked into that catalog value, so no
// further cycle step runs here.
type PriceParams struct {
	// BasePrice is the plan's cycle-specific per-seat base price
	BasePrice decimal.Decimal
	// BillingCycle the base price was selected for
	BillingCycle types.BillingCycle
	// RegionMultiplier is the PPP factor; nil defaults to 1.0
	RegionMultiplier *decimal.Decimal
	// SeatCount may be fractional from upstream aggregation; it is always
	// rounded up so a tenant is never under-billed
	SeatCount decimal.Decimal
	// Coupon is optional; a coupon below its minimum purchase or past its
	// validity is silently not applied
	Coupon *coupon.Coupon
	// Now anchors coupon validity checks; the calculator itself does no I/O
	Now time.Time
}

// PriceResult is the outcome of one price computation. Total is rounded to
// two decimal places as the final step only; every intermediate value keeps
// full precision so large seat counts do not accumulate cent drift.
type PriceResult struct {
	Total decimal.Decimal
	// PerSeatBase is the regionally adjusted per-seat rate before seat tiers
	PerSeatBase decimal.Decimal
	// SeatCount after rounding up
	SeatCount int
	// TierDiscount is the fraction applied to additional seats
	TierDiscount decimal.Decimal
	// CouponApplied reports whether the coupon changed the total
	CouponApplied bool
}

// ComputePrice computes the final charge for a plan, region, seat count and
// coupon. The order of operations is fixed: cycle base price, then the PPP
// multiplier, then the seat volume discount on additional seats, then the
// coupon, then a single rounding to two decimal places.
func ComputePrice(params PriceParams) (*PriceResult, error) {
	if params.BasePrice.IsNegative() {
		return nil, ierr.NewError("invalid base price").
			WithHint("Base price cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if params.SeatCount.LessThanOrEqual(decimal.Zero) {
		return nil, ierr.NewError("invalid seat count").
			WithHint("Seat count must be a positive number").
			Mark(ierr.ErrValidation)
	}

	// Fractional seat counts round up, never down
	seats := int(params.SeatCount.Ceil().IntPart())

	// Region PPP adjustment; a missing multiplier means no adjustment
	perSeat := params.BasePrice
	if params.RegionMultiplier != nil {
		perSeat = perSeat.Mul(*params.RegionMultiplier)
	}

	// Seat volume discount on additional seats only
	tier := tierFor(seats)
	additionalSeats := decimal.NewFromInt(int64(seats - 1))
	total := perSeat.Add(
		additionalSeats.Mul(perSeat).Mul(decimal.NewFromInt(1).Sub(tier)),
	)

	// Coupon application
	couponApplied := false
	if c := params.Coupon; c != nil && !c.IsExpired(params.Now) {
		if total.GreaterThanOrEqual(c.MinPurchase) {
			switch c.Type {
			case types.CouponTypePercentage:
				total = total.Mul(decimal.NewFromInt(1).Sub(c.Value.Div(decimal.NewFromInt(100))))
				couponApplied = true
			case types.CouponTypeFixed:
				total = total.Sub(c.Value)
				couponApplied = true
			}
			// A coupon can never take the total below zero
			if total.IsNegative() {
				total = decimal.Zero
			}
		}
	}

	return &PriceResult{
		Total:         total.Round(2),
		PerSeatBase:   perSeat,
		SeatCount:     seats,
		TierDiscount:  tier,
		CouponApplied: couponApplied,
	}, nil
}

func tierFor(seats int) decimal.Decimal {
	for _, t := range seatTiers {
		if seats >= t.minSeats {
			return t.discount
		}
	}
	return decimal.Zero
}
