package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/clinicore/clinicore/internal/errors"
)

// ProrationParams describe a mid-cycle plan or seat change. Both prices are
// monthly-equivalent rates for the current billing period.
type ProrationParams struct {
	OldMonthlyPrice decimal.Decimal
	NewMonthlyPrice decimal.Decimal
	PeriodStart     time.Time
	PeriodEnd       time.Time
	// ChangeAt is when the change takes effect, inside the period
	ChangeAt time.Time
}

// ProrationResult is the partial-period charge and credit for a change.
// NetAmount is positive when the tenant owes money now and negative when a
// credit is issued.
type ProrationResult struct {
	DaysTotal     int
	DaysRemaining int
	// UnusedCredit is the value of remaining days on the old rate
	UnusedCredit decimal.Decimal
	// NewCharge is the cost of remaining days on the new rate
	NewCharge decimal.Decimal
	// NetAmount = NewCharge - UnusedCredit
	NetAmount decimal.Decimal
}

// Prorate computes the daily-rate charge/credit delta for a mid-cycle
// change. Day counts use calendar days in UTC, inclusive of the change day
// and exclusive of the period end. All arithmetic keeps full precision;
// each reported amount is rounded to two decimal places at the end.
func Prorate(params ProrationParams) (*ProrationResult, error) {
	if params.PeriodEnd.Before(params.PeriodStart) {
		return nil, ierr.NewError("invalid billing period").
			WithHint("Period end cannot be before period start").
			Mark(ierr.ErrValidation)
	}
	if params.OldMonthlyPrice.IsNegative() || params.NewMonthlyPrice.IsNegative() {
		return nil, ierr.NewError("invalid price").
			WithHint("Prices cannot be negative").
			Mark(ierr.ErrValidation)
	}

	totalDays := daysBetween(params.PeriodStart, params.PeriodEnd)
	if totalDays <= 0 {
		return nil, ierr.NewError("invalid billing period").
			WithHint("Billing period must span at least one day").
			Mark(ierr.ErrValidation)
	}

	remainingDays := daysBetween(params.ChangeAt, params.PeriodEnd)
	if remainingDays < 0 {
		remainingDays = 0 // change after period end
	}
	if remainingDays > totalDays {
		remainingDays = totalDays
	}

	decimalTotal := decimal.NewFromInt(int64(totalDays))
	decimalRemaining := decimal.NewFromInt(int64(remainingDays))

	oldDailyRate := params.OldMonthlyPrice.Div(decimalTotal)
	newDailyRate := params.NewMonthlyPrice.Div(decimalTotal)

	unusedCredit := oldDailyRate.Mul(decimalRemaining)
	newCharge := newDailyRate.Mul(decimalRemaining)

	return &ProrationResult{
		DaysTotal:     totalDays,
		DaysRemaining: remainingDays,
		UnusedCredit:  unusedCredit.Round(2),
		NewCharge:     newCharge.Round(2),
		NetAmount:     newCharge.Sub(unusedCredit).Round(2),
	}, nil
}

// daysBetween counts calendar days between two points in time, normalized
// to UTC day boundaries, inclusive start and exclusive end
func daysBetween(start, end time.Time) int {
	start = start.UTC()
	end = end.UTC()
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(endDay.Sub(startDay).Hours() / 24)
}
