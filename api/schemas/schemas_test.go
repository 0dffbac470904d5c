package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTierRoundTrip(t *testing.T) {
	for _, tier := range []ConfidenceTier{TierVeryHigh, TierHigh, TierMedium, TierLow, TierVeryLow} {
		assert.Equal(t, tier, ParseTier(tier.String()), tier.String())
	}
}

func TestParseTierUnknownIsStrictestMinimum(t *testing.T) {
	min := ParseTier("definitely-not-a-tier")
	assert.Equal(t, TierVeryHigh, min)

	// Only very-high-confidence fixes clear a mistyped minimum.
	assert.True(t, TierVeryHigh.AtLeast(min))
	assert.False(t, TierHigh.AtLeast(min))
	assert.False(t, TierVeryLow.AtLeast(min))
}
