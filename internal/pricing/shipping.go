package pricing

import (
	"errors"
	"math"
	"strings"

	"checkout-service/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultUnitWeightKg is the assumed weight of one cart unit whose product has
// no recorded weight. It is a coarse approximation, not a physical measurement;
// deployments override it through configuration.
const DefaultUnitWeightKg = 0.5

var (
	ErrOfferNegativeFee = errors.New("shipping offer fee is negative")
	ErrOfferDayRange    = errors.New("shipping offer min days exceeds max days")
)

// EstimateWeight approximates parcel weight in kilograms. Lines with a known
// per-unit weight use it; other lines contribute unitWeightKg per unit.
func EstimateWeight(items []models.CartItem, unitWeightKg float64) float64 {
	if unitWeightKg < 0 {
		unitWeightKg = 0
	}
	var total float64
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		w := it.WeightKg
		if w <= 0 {
			w = unitWeightKg
		}
		total += w * float64(it.Quantity)
	}
	return math.Round(total*1000) / 1000
}

// ValidateOffer checks the per-offer invariants.
func ValidateOffer(o models.ShippingOffer) error {
	if o.Fee.IsNegative() {
		return ErrOfferNegativeFee
	}
	if o.MinDays > o.MaxDays {
		return ErrOfferDayRange
	}
	return nil
}

// NormalizeZone canonicalises a zone key for comparisons and cache keys.
func NormalizeZone(zone string) string {
	return strings.ToUpper(strings.TrimSpace(zone))
}

func inWeightBand(o models.ShippingOffer, weightKg float64) bool {
	if !o.WeightBanded() {
		return true
	}
	w := decimal.NewFromFloat(weightKg)
	if o.MinWeightKg.Valid && w.LessThan(o.MinWeightKg.Decimal) {
		return false
	}
	if o.MaxWeightKg.Valid && w.GreaterThan(o.MaxWeightKg.Decimal) {
		return false
	}
	return true
}

// ListOffers returns the active, valid offers of zone that accept weightKg,
// in the order they were given. Offers without a weight band ignore weight.
// An empty, non-nil slice means shipping is unavailable.
func ListOffers(offers []models.ShippingOffer, zone string, weightKg float64) []models.ShippingOffer {
	zone = NormalizeZone(zone)
	out := make([]models.ShippingOffer, 0, len(offers))
	for _, o := range offers {
		if !o.Active || NormalizeZone(o.Zone) != zone {
			continue
		}
		if ValidateOffer(o) != nil {
			continue
		}
		if !inWeightBand(o, weightKg) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// FindOffer looks an offer up by id.
func FindOffer(offers []models.ShippingOffer, id int64) (models.ShippingOffer, bool) {
	for _, o := range offers {
		if o.ID == id {
			return o, true
		}
	}
	return models.ShippingOffer{}, false
}

// DefaultOffer keeps previousID when it is still offered, otherwise falls back
// to the first offer. It reports false when offers is empty.
func DefaultOffer(offers []models.ShippingOffer, previousID int64) (models.ShippingOffer, bool) {
	if previousID != 0 {
		if o, ok := FindOffer(offers, previousID); ok {
			return o, true
		}
	}
	if len(offers) == 0 {
		return models.ShippingOffer{}, false
	}
	return offers[0], true
}
