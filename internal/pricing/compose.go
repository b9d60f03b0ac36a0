package pricing

import (
	"checkout-service/internal/models"
	"checkout-service/internal/money"

	"github.com/shopspring/decimal"
)

// Input is everything the total pipeline needs. Offer and Method are nil until chosen.
type Input struct {
	Subtotal        decimal.Decimal
	Offer           *models.ShippingOffer
	Method          *models.PaymentMethod
	AvailablePoints int64
	RequestedPoints int64
}

// Breakdown is the authoritative price of a checkout.
type Breakdown struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	ShippingFee         decimal.Decimal `json:"shipping_fee"`
	AmountWithShipping  decimal.Decimal `json:"amount_with_shipping"`
	Surcharge           decimal.Decimal `json:"surcharge"`
	MethodTotal         decimal.Decimal `json:"method_total"`
	MaxRedeemablePoints int64           `json:"max_redeemable_points"`
	PointsRedeemed      int64           `json:"points_redeemed"`
	Redemption          decimal.Decimal `json:"redemption"`
	FinalTotal          decimal.Decimal `json:"final_total"`
}

// Compose runs the fixed pipeline: shipping, then surcharge on the amount with
// shipping, then redemption bounded by that same amount, then the final total.
// Redemption never exceeds the pre-surcharge amount, so the final total is never negative.
func Compose(in Input) Breakdown {
	subtotal := money.Round(money.NonNegative(in.Subtotal))

	shippingFee := decimal.Zero
	if in.Offer != nil {
		shippingFee = money.Round(money.NonNegative(in.Offer.Fee))
	}
	withShipping := subtotal.Add(shippingFee)

	surcharge := decimal.Zero
	if in.Method != nil {
		surcharge = ComputeSurcharge(*in.Method, withShipping)
	}

	maxPoints := MaxRedeemable(in.AvailablePoints, withShipping)
	points := ClampUserInput(in.RequestedPoints, maxPoints)
	redemption := RedemptionValue(points)

	final := withShipping.Add(surcharge).Sub(redemption)

	return Breakdown{
		Subtotal:            subtotal,
		ShippingFee:         shippingFee,
		AmountWithShipping:  withShipping,
		Surcharge:           surcharge,
		MethodTotal:         withShipping.Add(surcharge),
		MaxRedeemablePoints: maxPoints,
		PointsRedeemed:      points,
		Redemption:          redemption,
		FinalTotal:          money.NonNegative(final),
	}
}
