package pricing

import (
	"testing"

	"checkout-service/internal/models"
	"checkout-service/internal/money"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeSurcharge(t *testing.T) {
	card := models.PaymentMethod{ID: 1, FixedFee: money.FromInt(100), PercentageFee: money.MustParse("1.5"), Active: true}
	assert.True(t, money.FromInt(805).Equal(ComputeSurcharge(card, money.FromInt(47000))))

	free := models.PaymentMethod{ID: 2, Active: true}
	assert.True(t, decimal.Zero.Equal(ComputeSurcharge(free, money.FromInt(47000))))

	odd := models.PaymentMethod{ID: 3, PercentageFee: money.MustParse("2.5"), Active: true}
	assert.Equal(t, "0.26", ComputeSurcharge(odd, money.MustParse("10.3")).StringFixed(2))
}

func TestIsEligible(t *testing.T) {
	m := models.PaymentMethod{
		MinAmount: decimal.NewNullDecimal(money.FromInt(1000)),
		MaxAmount: decimal.NewNullDecimal(money.FromInt(50000)),
	}
	assert.False(t, IsEligible(m, money.FromInt(999)))
	assert.True(t, IsEligible(m, money.FromInt(1000)))
	assert.True(t, IsEligible(m, money.FromInt(50000)))
	assert.False(t, IsEligible(m, money.FromInt(50001)))
	assert.True(t, IsEligible(models.PaymentMethod{}, money.FromInt(1_000_000_000)))
}

func TestQuoteMethodsSkipsIneligible(t *testing.T) {
	methods := []models.PaymentMethod{
		{ID: 1, Name: "Wave", Kind: models.PaymentKindMobileMoney, PercentageFee: money.FromInt(1), Active: true},
		{ID: 2, Name: "Cash", Kind: models.PaymentKindCash, MaxAmount: decimal.NewNullDecimal(money.FromInt(20000)), Active: true},
		{ID: 3, Name: "Old", Kind: models.PaymentKindCard, Active: false},
	}
	quotes := QuoteMethods(methods, money.FromInt(47000))
	if assert.Len(t, quotes, 1) {
		assert.Equal(t, int64(1), quotes[0].Method.ID)
		assert.True(t, money.FromInt(470).Equal(quotes[0].Surcharge))
		assert.True(t, money.FromInt(47470).Equal(quotes[0].Total))
	}
}
