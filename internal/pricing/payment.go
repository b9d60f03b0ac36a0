package pricing

import (
	"checkout-service/internal/models"
	"checkout-service/internal/money"

	"github.com/shopspring/decimal"
)

// ComputeSurcharge returns fixedFee + base * percentageFee / 100, rounded once.
func ComputeSurcharge(m models.PaymentMethod, base decimal.Decimal) decimal.Decimal {
	base = money.NonNegative(base)
	fee := m.FixedFee.Add(money.Percent(base, m.PercentageFee))
	return money.NonNegative(money.Round(fee))
}

// IsEligible reports whether base lies within the method's amount bounds. A missing bound is open.
func IsEligible(m models.PaymentMethod, base decimal.Decimal) bool {
	if m.MinAmount.Valid && base.LessThan(m.MinAmount.Decimal) {
		return false
	}
	if m.MaxAmount.Valid && base.GreaterThan(m.MaxAmount.Decimal) {
		return false
	}
	return true
}

// EligibleMethods keeps the active methods that accept base.
func EligibleMethods(methods []models.PaymentMethod, base decimal.Decimal) []models.PaymentMethod {
	out := make([]models.PaymentMethod, 0, len(methods))
	for _, m := range methods {
		if m.Active && IsEligible(m, base) {
			out = append(out, m)
		}
	}
	return out
}

// FindMethod looks a method up by id.
func FindMethod(methods []models.PaymentMethod, id int64) (models.PaymentMethod, bool) {
	for _, m := range methods {
		if m.ID == id {
			return m, true
		}
	}
	return models.PaymentMethod{}, false
}

// MethodQuote is a method with the cost it adds to a given base.
type MethodQuote struct {
	Method    models.PaymentMethod `json:"method"`
	Surcharge decimal.Decimal      `json:"surcharge"`
	Total     decimal.Decimal      `json:"total"`
}

// QuoteMethods prices every eligible method against base.
func QuoteMethods(methods []models.PaymentMethod, base decimal.Decimal) []MethodQuote {
	eligible := EligibleMethods(methods, base)
	quotes := make([]MethodQuote, 0, len(eligible))
	for _, m := range eligible {
		surcharge := ComputeSurcharge(m, base)
		quotes = append(quotes, MethodQuote{
			Method:    m,
			Surcharge: surcharge,
			Total:     money.Round(base.Add(surcharge)),
		})
	}
	return quotes
}
