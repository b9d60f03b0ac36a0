package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundHalfUp(t *testing.T) {
	assert.True(t, MustParse("10.01").Equal(Round(MustParse("10.005"))))
	assert.True(t, MustParse("10.00").Equal(Round(MustParse("10.004"))))
	assert.True(t, MustParse("705").Equal(Round(Percent(FromInt(47000), MustParse("1.5")))))
}

func TestNonNegative(t *testing.T) {
	assert.True(t, Zero.Equal(NonNegative(FromInt(-5))))
	assert.True(t, FromInt(5).Equal(NonNegative(FromInt(5))))
}
