package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllConflictsBaseline(t *testing.T) {
	all := AllConflicts(normalRegime(), testInputs())

	require.Len(t, all, 8)
	for i, c := range all {
		assert.Equal(t, fmt.Sprintf("C%d", i+1), c.ConflictID)
		assert.False(t, c.Detected, "conflict %s", c.ConflictID)
		assert.NotEmpty(t, c.Resolution)
	}

	assert.Empty(t, DetectConflicts(normalRegime(), testInputs()))
}

func TestDetectConflictIVVsTrend(t *testing.T) {
	in := testInputs()
	in.Vol.VIXPercentile1Y = 80.0
	in.Spot.SPXLevel = 5400.0 // below 200 DMA

	detected := DetectConflicts(normalRegime(), in)

	require.Len(t, detected, 1)
	assert.Equal(t, "C1", detected[0].ConflictID)
	assert.Equal(t, "Defined-risk spreads only. 50% size. No naked short.", detected[0].Resolution)
}

func TestDetectConflictEventVsCarry(t *testing.T) {
	in := testInputs()
	in.Events.DaysToCPI = 2 // IV rank 42 > 40

	detected := DetectConflicts(normalRegime(), in)

	require.Len(t, detected, 1)
	assert.Equal(t, "C2", detected[0].ConflictID)
}

func TestDetectConflictCreditVsVIX(t *testing.T) {
	in := testInputs()
	in.Credit.HYOAS20DChange = 60.0 // VIX 17.5 < 18

	detected := DetectConflicts(normalRegime(), in)

	require.Len(t, detected, 1)
	assert.Equal(t, "C4", detected[0].ConflictID)
	assert.Contains(t, detected[0].Resolution, "Credit leads equity vol 2-4 weeks")
}

func TestDetectConflictLowConfidence(t *testing.T) {
	regime := Regime{Regime: RegimeNormal, Confidence: ConfidenceLow}

	detected := DetectConflicts(regime, testInputs())

	require.Len(t, detected, 1)
	assert.Equal(t, "C6", detected[0].ConflictID)
}

func TestDetectConflictVVIXElevated(t *testing.T) {
	in := testInputs()
	in.Vol.VVIX = 23.0 // VIX 17.5 in [15, 20]

	detected := DetectConflicts(normalRegime(), in)

	require.Len(t, detected, 1)
	assert.Equal(t, "C7", detected[0].ConflictID)
}

func TestDetectConflictInvertedTermStructure(t *testing.T) {
	in := testInputs()
	in.TermStructure.TS1M3M = -0.5 // VIX 17.5 < 25

	detected := DetectConflicts(normalRegime(), in)

	require.Len(t, detected, 1)
	assert.Equal(t, "C8", detected[0].ConflictID)
	assert.Equal(t, "Activate tail trading framework (3-pillar). This is the signal.", detected[0].Resolution)
}

func TestDetectConflictsMultiple(t *testing.T) {
	in := testInputs()
	in.Credit.HYOAS20DChange = 60.0
	in.TermStructure.TS1M3M = -0.5

	detected := DetectConflicts(normalRegime(), in)

	require.Len(t, detected, 2)
	assert.Equal(t, "C4", detected[0].ConflictID)
	assert.Equal(t, "C8", detected[1].ConflictID)
}
