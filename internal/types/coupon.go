package types

import (
	"github.com/samber/lo"

	ierr "github.com/clinicore/clinicore/internal/errors"
)

// CouponType represents how a coupon discounts the running total
type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

func (t CouponType) String() string {
	return string(t)
}

func (t CouponType) Validate() error {
	allowed := []CouponType{CouponTypePercentage, CouponTypeFixed}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid coupon type").
			WithHint("Coupon type must be percentage or fixed").
			Mark(ierr.ErrValidation)
	}
	return nil
}
