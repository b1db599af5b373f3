package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier() *Classifier {
	return NewClassifier(zerolog.Nop())
}

func TestClassifyBaseline(t *testing.T) {
	r := newTestClassifier().Classify(testInputs())

	assert.Equal(t, RegimeNormal, r.Regime)
	assert.Equal(t, TrendStrongUptrend, r.Trend)
	assert.False(t, r.EventActive)
	assert.Equal(t, EventNone, r.EventType)
	assert.False(t, r.MultiEvent)
	assert.False(t, r.VolUnstable)
	// Positive term structure and quiet credit confirm the NORMAL level.
	assert.Equal(t, 2, r.ConfirmingSignals)
	assert.Equal(t, ConfidenceMedium, r.Confidence)
	assert.Equal(t, []string{
		"Standard position sizes, balanced approach",
		"Uptrend: favor bullish strategies, maintain hedges",
	}, r.Actions)
}

func TestClassifyCrisis(t *testing.T) {
	in := testInputs()
	in.Vol.VIX = 38.0
	in.Vol.VIX1DChange = 6.0
	in.Credit.HYOAS20DChange = 60.0
	in.TermStructure.TS1M3M = -0.5
	in.Liquidity.BidAskWidening = 2.3

	r := newTestClassifier().Classify(in)

	require.Equal(t, RegimeCrisis, r.Regime)
	assert.Equal(t, ConfidenceHigh, r.Confidence)
	assert.Equal(t, 8, r.ConfirmingSignals)
	assert.Contains(t, r.Actions, "CLOSE all naked short vol positions immediately")
	assert.Contains(t, r.Actions, "CLOSE all positions if VIX > 35 [GS Vol Vitals]")
}

func TestClassifyCrisisMediumConfidence(t *testing.T) {
	in := testInputs()
	// Exactly three signal points: VIX > 30 (+2), inverted term structure (+1).
	in.Vol.VIX = 32.0
	in.TermStructure.TS1M3M = -0.2

	r := newTestClassifier().Classify(in)

	require.Equal(t, RegimeCrisis, r.Regime)
	assert.Equal(t, 3, r.ConfirmingSignals)
	assert.Equal(t, ConfidenceMedium, r.Confidence)
}

func TestClassifyCrisisKeepsTrend(t *testing.T) {
	in := testInputs()
	in.Vol.VIX = 38.0
	in.Vol.VIX1DChange = 6.0
	in.Spot.SPXLevel = 5400.0
	in.Spot.BreadthPctAbove50DMA = 25.0

	r := newTestClassifier().Classify(in)

	require.Equal(t, RegimeCrisis, r.Regime)
	assert.Equal(t, TrendStrongDowntrend, r.Trend)
	assert.False(t, r.EventActive)
}

func TestClassifyLiquidityStress(t *testing.T) {
	in := testInputs()
	in.Liquidity.BidAskWidening = 1.6
	in.Liquidity.EminiDepth = 800.0

	r := newTestClassifier().Classify(in)

	require.Equal(t, RegimeLiquidityStress, r.Regime)
	assert.Equal(t, ConfidenceMedium, r.Confidence)
	assert.Equal(t, 2, r.ConfirmingSignals)
	assert.Contains(t, r.Actions, "REDUCE all positions by 25-50%")
	assert.Contains(t, r.Actions, "NO new naked short vol positions")
}

func TestClassifyElevatedUptrend(t *testing.T) {
	in := testInputs()
	in.Vol.VIX = 22.0
	in.Vol.VVIX = 20.0
	in.Vol.IVRVSpread = 4.0
	in.Vol.RV20D = in.Vol.IVATM1M - 4.0
	in.Skew.PutSkew25D1M = 6.5
	in.Spot.BreadthPctAbove50DMA = 65.0
	in.Credit.HYOAS20DChange = 10.0

	r := newTestClassifier().Classify(in)

	assert.Equal(t, RegimeElevated, r.Regime)
	assert.Equal(t, TrendStrongUptrend, r.Trend)
	assert.False(t, r.EventActive)
	assert.Equal(t, ConfidenceMedium, r.Confidence)
	assert.Contains(t, r.Actions, "Reduce selling to 50% size; defined-risk only for new trades")
}

func TestClassifyEventWindow(t *testing.T) {
	in := testInputs()
	in.Vol.VIX = 17.0
	in.Events.DaysToFOMC = 25
	in.Events.DaysToCPI = 2
	in.Events.DaysToNFP = 25
	in.Events.DaysToEarnings = 25
	in.Events.EventsNext5D = 1

	r := newTestClassifier().Classify(in)

	assert.Equal(t, RegimeNormal, r.Regime)
	assert.True(t, r.EventActive)
	assert.Equal(t, EventCPI, r.EventType)
	assert.False(t, r.MultiEvent)
	assert.Contains(t, r.Actions, "Event window active - use event playbook")
}

func TestClassifyEventPriority(t *testing.T) {
	in := testInputs()
	in.Events.DaysToFOMC = 5
	in.Events.DaysToCPI = 1
	in.Events.EventsNext5D = 2

	r := newTestClassifier().Classify(in)

	assert.True(t, r.EventActive)
	assert.Equal(t, EventFOMC, r.EventType)
	assert.True(t, r.MultiEvent)
}

func TestVolLevelBands(t *testing.T) {
	cases := []struct {
		vix  float64
		want VolRegime
	}{
		{11.9, RegimeVeryLow},
		{12.0, RegimeLow},
		{14.9, RegimeLow},
		{15.0, RegimeNormal},
		{19.9, RegimeNormal},
		{20.0, RegimeElevated},
		{24.9, RegimeElevated},
		{25.0, RegimeHigh},
		{30.0, RegimeHigh},
		{30.1, RegimeExtreme},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, volLevel(tc.vix), "vix=%v", tc.vix)
	}
}

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		name    string
		level   float64
		breadth float64
		want    Trend
	}{
		{"strong uptrend", 5900, 65, TrendStrongUptrend},
		{"uptrend", 5900, 55, TrendUptrend},
		{"range bound", 5600, 50, TrendRangeBound},
		{"downtrend", 5400, 50, TrendDowntrend},
		{"strong downtrend", 5400, 30, TrendStrongDowntrend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spot := SpotData{
				SPXLevel:             tc.level,
				SPXSMA50:             5780,
				SPXSMA200:            5520,
				BreadthPctAbove50DMA: tc.breadth,
			}
			assert.Equal(t, tc.want, classifyTrend(spot))
		})
	}
}

func TestClassifyVVIXUnstable(t *testing.T) {
	in := testInputs()
	in.Vol.VVIX = 23.0

	r := newTestClassifier().Classify(in)

	assert.True(t, r.VolUnstable)
	assert.Contains(t, r.Actions, "VVIX > 22: vol surface unstable, reduce sizes 25-50%")

	in.Vol.VVIX = 22.0
	r = newTestClassifier().Classify(in)
	assert.False(t, r.VolUnstable)
}

func TestClassifyHighConfidenceLowVol(t *testing.T) {
	in := testInputs()
	in.Vol.VIX = 13.0
	in.Vol.IVRVSpread = 1.0
	in.Vol.RV20D = in.Vol.IVATM1M - 1.0
	in.Skew.PutSkew25D1M = 3.0
	in.Credit.HYOAS20DChange = 10.0

	r := newTestClassifier().Classify(in)

	require.Equal(t, RegimeLow, r.Regime)
	assert.Equal(t, 4, r.ConfirmingSignals)
	assert.Equal(t, ConfidenceHigh, r.Confidence)
}

func TestClassifyActionOrdering(t *testing.T) {
	in := testInputs()
	in.Vol.VVIX = 25.0
	in.Events.DaysToCPI = 2
	in.Spot.SPXLevel = 5400.0

	r := newTestClassifier().Classify(in)

	require.Len(t, r.Actions, 4)
	assert.Equal(t, "Standard position sizes, balanced approach", r.Actions[0])
	assert.Equal(t, "Event window active - use event playbook", r.Actions[1])
	assert.Equal(t, "VVIX > 22: vol surface unstable, reduce sizes 25-50%", r.Actions[2])
	assert.Equal(t, "Downtrend: favor bearish strategies, tighten upside", r.Actions[3])
}
