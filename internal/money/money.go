package money

import (
	"github.com/shopspring/decimal"
)

// MinorUnitPlaces is the number of decimal places of the smallest currency unit.
const MinorUnitPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// Zero is the zero amount.
var Zero = decimal.Zero

// Round rounds v to the smallest currency unit, half up.
// Every money-producing function calls it exactly once on its final value.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(MinorUnitPlaces)
}

// Percent returns amount * pct / 100 without rounding.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// NonNegative clamps v to zero from below.
func NonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// FromInt builds an amount of whole currency units.
func FromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// MustParse parses a decimal literal and panics on malformed input. Intended for tests and constants.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
