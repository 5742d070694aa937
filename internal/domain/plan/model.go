package plan

import (
	"github.com/shopspring/decimal"

	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/types"
)

// Plan is a catalog entry. The yearly and 3-year bases are independent
// catalog prices, not derivations of the monthly base; choosing a longer
// cycle means billing at that cycle's own (lower) monthly-equivalent rate.
type Plan struct {
	ID   string `db:"id" json:"id"`
	Slug string `db:"slug" json:"slug"`
	Name string `db:"name" json:"name"`
	// BasePriceMonthly is the per-seat monthly price in USD before regional adjustment
	BasePriceMonthly decimal.Decimal `db:"base_price_monthly" json:"base_price_monthly"`
	// BasePriceYearly is the per-seat monthly-equivalent rate when billed yearly
	BasePriceYearly decimal.Decimal `db:"base_price_yearly" json:"base_price_yearly"`
	// BasePriceThreeYear is the per-seat monthly-equivalent rate when billed for 3 years
	BasePriceThreeYear decimal.Decimal `db:"base_price_three_year" json:"base_price_three_year"`
	// Currency the base prices are denominated in
	Currency string `db:"currency" json:"currency"`
	// Resource limits
	MaxUsers     int `db:"max_users" json:"max_users"`
	MaxClients   int `db:"max_clients" json:"max_clients"`
	MaxStorageGB int `db:"max_storage_gb" json:"max_storage_gb"`

	types.BaseModel
}

// BasePriceFor returns the catalog monthly-equivalent base price for the
// given billing cycle
func (p *Plan) BasePriceFor(cycle types.BillingCycle) decimal.Decimal {
	switch cycle {
	case types.BillingCycleYearly:
		return p.BasePriceYearly
	case types.BillingCycleThreeYear:
		return p.BasePriceThreeYear
	default:
		return p.BasePriceMonthly
	}
}

// Validate validates the plan
func (p *Plan) Validate() error {
	if p.Slug == "" {
		return ierr.NewError("invalid plan slug").
			WithHint("Plan slug is required").
			Mark(ierr.ErrValidation)
	}
	if p.BasePriceMonthly.IsNegative() || p.BasePriceYearly.IsNegative() || p.BasePriceThreeYear.IsNegative() {
		return ierr.NewError("invalid base price").
			WithHint("Base prices cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the plan
func (p *Plan) TableName() string {
	return "subscription_plans"
}
