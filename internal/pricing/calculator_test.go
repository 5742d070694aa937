package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/domain/coupon"
	"github.com/clinicore/clinicore/internal/types"
)

func mult(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func TestComputePriceSingleSeat(t *testing.T) {
	result, err := ComputePrice(PriceParams{
		BasePrice:    decimal.NewFromInt(23),
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    decimal.NewFromInt(1),
		Now:          time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, result.Total.Equal(decimal.NewFromInt(23)), "got %s", result.Total)
	assert.Equal(t, 1, result.SeatCount)
	assert.True(t, result.TierDiscount.IsZero())
}

func TestComputePriceRegionMultiplier(t *testing.T) {
	// 23 * 0.35 = 8.05 for a low-PPP region
	result, err := ComputePrice(PriceParams{
		BasePrice:        decimal.NewFromInt(23),
		BillingCycle:     types.BillingCycleMonthly,
		RegionMultiplier: mult(0.35),
		SeatCount:        decimal.NewFromInt(1),
		Now:              time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, "8.05", result.Total.StringFixed(2))
}

func TestComputePriceNilMultiplierDefaultsToOne(t *testing.T) {
	withNil, err := ComputePrice(PriceParams{
		BasePrice:    decimal.NewFromInt(23),
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    decimal.NewFromInt(3),
		Now:          time.Now().UTC(),
	})
	require.NoError(t, err)

	withOne, err := ComputePrice(PriceParams{
		BasePrice:        decimal.NewFromInt(23),
		BillingCycle:     types.BillingCycleMonthly,
		RegionMultiplier: mult(1.0),
		SeatCount:        decimal.NewFromInt(3),
		Now:              time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, withNil.Total.Equal(withOne.Total))
}

func TestComputePriceSeatTierOnAdditionalSeats(t *testing.T) {
	// 25 seats at 23: first seat full price, 24 additional at 10% off.
	// 23 + 24*23*0.90 = 519.80
	result, err := ComputePrice(PriceParams{
		BasePrice:    decimal.NewFromInt(23),
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    decimal.NewFromInt(25),
		Now:          time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, "519.80", result.Total.StringFixed(2))
	assert.Equal(t, "0.1", result.TierDiscount.String())
}

func TestComputePriceSeatTierBrackets(t *testing.T) {
	tests := []struct {
		seats    int64
		discount string
	}{
		{1, "0"},
		{4, "0"},
		{5, "0.05"},
		{9, "0.05"},
		{10, "0.07"},
		{25, "0.1"},
		{50, "0.12"},
		{100, "0.15"},
		{500, "0.15"},
	}

	for _, tt := range tests {
		result, err := ComputePrice(PriceParams{
			BasePrice:    decimal.NewFromInt(10),
			BillingCycle: types.BillingCycleMonthly,
			SeatCount:    decimal.NewFromInt(tt.seats),
			Now:          time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.Equal(t, tt.discount, result.TierDiscount.String(), "seats=%d", tt.seats)
	}
}

func TestComputePriceFractionalSeatsRoundUp(t *testing.T) {
	result, err := ComputePrice(PriceParams{
		BasePrice:    decimal.NewFromInt(10),
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    decimal.NewFromFloat(2.1),
		Now:          time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.SeatCount)
	assert.Equal(t, "30.00", result.Total.StringFixed(2))
}

func TestComputePricePercentageCoupon(t *testing.T) {
	result, err := ComputePrice(PriceParams{
		BasePrice:    decimal.NewFromInt(100),
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    decimal.NewFromInt(1),
		Coupon: &coupon.Coupon{
			Code:  "SAVE20",
			Type:  types.CouponTypePercentage,
			Value: decimal.NewFromInt(20),
		},
		Now: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, result.CouponApplied)
	assert.Equal(t, "80.00", result.Total.StringFixed(2))
}

func TestComputePriceFixedCouponFloorsAtZero(t *testing.T) {
	result, err := ComputePrice(PriceParams{
		BasePrice:    decimal.NewFromInt(10),
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    decimal.NewFromInt(1),
		Coupon: &coupon.Coupon{
			Code:  "BIGCREDIT",
			Type:  types.CouponTypeFixed,
			Value: decimal.NewFromInt(50),
		},
		Now: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, result.CouponApplied)
	assert.True(t, result.Total.IsZero(), "got %s", result.Total)
}

func TestComputePriceCouponBelowMinPurchaseSkipped(t *testing.T) {
	result, err := ComputePrice(PriceParams{
		BasePrice:    decimal.NewFromInt(10),
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    decimal.NewFromInt(1),
		Coupon: &coupon.Coupon{
			Code:        "SAVE20",
			Type:        types.CouponTypePercentage,
			Value:       decimal.NewFromInt(20),
			MinPurchase: decimal.NewFromInt(50),
		},
		Now: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, result.CouponApplied)
	assert.Equal(t, "10.00", result.Total.StringFixed(2))
}

func TestComputePriceExpiredCouponSkipped(t *testing.T) {
	now := time.Now().UTC()
	expired := now.Add(-time.Hour)
	result, err := ComputePrice(PriceParams{
		BasePrice:    decimal.NewFromInt(100),
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    decimal.NewFromInt(1),
		Coupon: &coupon.Coupon{
			Code:       "STALE",
			Type:       types.CouponTypePercentage,
			Value:      decimal.NewFromInt(20),
			ValidUntil: &expired,
		},
		Now: now,
	})
	require.NoError(t, err)
	assert.False(t, result.CouponApplied)
	assert.Equal(t, "100.00", result.Total.StringFixed(2))
}

func TestComputePriceCouponAppliesAfterTiersAndRegion(t *testing.T) {
	// 5 seats at 20 with 0.5 multiplier: per seat 10,
	// total = 10 + 4*10*0.95 = 48, then 10% off = 43.2
	result, err := ComputePrice(PriceParams{
		BasePrice:        decimal.NewFromInt(20),
		BillingCycle:     types.BillingCycleMonthly,
		RegionMultiplier: mult(0.5),
		SeatCount:        decimal.NewFromInt(5),
		Coupon: &coupon.Coupon{
			Code:  "SAVE10",
			Type:  types.CouponTypePercentage,
			Value: decimal.NewFromInt(10),
		},
		Now: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, "43.20", result.Total.StringFixed(2))
}

func TestComputePriceRoundingHappensLast(t *testing.T) {
	// 3 seats at 9.99 with multiplier 0.333: full precision until the end
	result, err := ComputePrice(PriceParams{
		BasePrice:        decimal.NewFromFloat(9.99),
		BillingCycle:     types.BillingCycleMonthly,
		RegionMultiplier: mult(0.333),
		SeatCount:        decimal.NewFromInt(3),
		Now:              time.Now().UTC(),
	})
	require.NoError(t, err)

	perSeat := decimal.NewFromFloat(9.99).Mul(decimal.NewFromFloat(0.333))
	expected := perSeat.Add(decimal.NewFromInt(2).Mul(perSeat)).Round(2)
	assert.True(t, result.Total.Equal(expected), "got %s want %s", result.Total, expected)
}

func TestComputePriceRejectsInvalidInputs(t *testing.T) {
	_, err := ComputePrice(PriceParams{
		BasePrice:    decimal.NewFromInt(-1),
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    decimal.NewFromInt(1),
	})
	assert.Error(t, err)

	_, err = ComputePrice(PriceParams{
		BasePrice:    decimal.NewFromInt(10),
		BillingCycle: types.BillingCycleMonthly,
		SeatCount:    decimal.Zero,
	})
	assert.Error(t, err)
}
