package region

import (
	"github.com/shopspring/decimal"

	"github.com/clinicore/clinicore/internal/types"
)

// Region is a purchasing-power-parity pricing region relative to the USD
// baseline. A missing multiplier means no adjustment, never an error.
type Region struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
	// PriceMultiplier is the PPP factor applied to USD base prices; nil
	// defaults to 1.0
	PriceMultiplier *decimal.Decimal `db:"price_multiplier" json:"price_multiplier,omitempty"`
	// Currency prices resolve to in this region
	Currency string `db:"currency" json:"currency"`

	types.BaseModel
}

// Multiplier returns the effective PPP factor
func (r *Region) Multiplier() decimal.Decimal {
	if r == nil || r.PriceMultiplier == nil {
		return decimal.NewFromInt(1)
	}
	return *r.PriceMultiplier
}

// TableName returns the table name for the region
func (r *Region) TableName() string {
	return "pricing_regions"
}
