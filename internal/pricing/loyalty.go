package pricing

import (
	"checkout-service/internal/money"

	"github.com/shopspring/decimal"
)

// PointValueUnits is the number of whole currency units one loyalty point is worth.
const PointValueUnits int64 = 1

var pointValue = decimal.NewFromInt(PointValueUnits)

// MaxRedeemable is min(available, floor(payable / point value)), never negative.
func MaxRedeemable(available int64, payable decimal.Decimal) int64 {
	if available <= 0 {
		return 0
	}
	payable = money.NonNegative(payable)
	byAmount := payable.Div(pointValue).Floor().IntPart()
	if byAmount < available {
		return byAmount
	}
	return available
}

// ClampUserInput bounds a requested redemption to [0, max]. It never fails.
func ClampUserInput(requested, max int64) int64 {
	if max < 0 {
		max = 0
	}
	if requested < 0 {
		return 0
	}
	if requested > max {
		return max
	}
	return requested
}

// RedemptionValue converts points to currency.
func RedemptionValue(points int64) decimal.Decimal {
	if points <= 0 {
		return decimal.Zero
	}
	return money.Round(decimal.NewFromInt(points).Mul(pointValue))
}
