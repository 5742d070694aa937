package coupon

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// Coupon discounts a computed price. Percentage coupons multiply the
// running total; fixed coupons subtract from it.
type Coupon struct {
	ID   string           `db:"id" json:"id"`
	Code string           `db:"code" json:"code"`
	Type types.CouponType `db:"coupon_type" json:"type"`
	// Value is a percentage (0-100) for percentage coupons, or an amount in
	// the price currency for fixed coupons
	Value decimal.Decimal `db:"value" json:"value"`
	// MinPurchase is the minimum total the coupon applies to; below it the
	// coupon is silently skipped
	MinPurchase decimal.Decimal `db:"min_purchase" json:"min_purchase"`
	// ValidUntil is when the coupon stops applying, nil for no expiry
	ValidUntil *time.Time `db:"valid_until" json:"valid_until,omitempty"`

	types.BaseModel
}

// Validate validates the coupon
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return ierr.NewError("invalid coupon code").
			WithHint("Coupon code is required").
			Mark(ierr.ErrValidation)
	}
	if err := c.Type.Validate(); err != nil {
		return err
	}
	if c.Value.IsNegative() {
		return ierr.NewError("invalid coupon value").
			WithHint("Coupon value cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if c.Type == types.CouponTypePercentage && c.Value.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("invalid coupon percentage").
			WithHint("Percentage coupons cannot exceed 100").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsExpired reports whether the coupon has passed its validity window
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ValidUntil != nil && now.After(*c.ValidUntil)
}

// TableName returns the table name for the coupon
func (c *Coupon) TableName() string {
	return "coupons"
}
