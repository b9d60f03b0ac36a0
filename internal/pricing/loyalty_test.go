package pricing

import (
	"testing"

	"checkout-service/internal/money"

	"github.com/stretchr/testify/assert"
)

func TestMaxRedeemableBounds(t *testing.T) {
	payables := []string{"0", "0.99", "1", "47000", "47000.75", "123456.5"}
	for _, p := range payables {
		payable := money.MustParse(p)
		for _, available := range []int64{0, 1, 500, 10000, 1_000_000} {
			got := MaxRedeemable(available, payable)
			assert.LessOrEqual(t, got, available)
			assert.LessOrEqual(t, got, payable.Floor().IntPart())
			assert.GreaterOrEqual(t, got, int64(0))
		}
	}
	assert.Equal(t, int64(0), MaxRedeemable(-5, money.FromInt(100)))
	assert.Equal(t, int64(0), MaxRedeemable(100, money.FromInt(-100)))
}

func TestClampUserInputIsIdempotent(t *testing.T) {
	for _, max := range []int64{-3, 0, 10, 10000} {
		for _, x := range []int64{-100, -1, 0, 5, 10, 50000} {
			once := ClampUserInput(x, max)
			assert.Equal(t, once, ClampUserInput(once, max))
			assert.GreaterOrEqual(t, once, int64(0))
			if max >= 0 {
				assert.LessOrEqual(t, once, max)
			}
		}
	}
}

func TestRedemptionValue(t *testing.T) {
	assert.True(t, money.FromInt(10000).Equal(RedemptionValue(10000)))
	assert.True(t, money.Zero.Equal(RedemptionValue(-2)))
}
