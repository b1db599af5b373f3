package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSelector() *Selector {
	return NewSelector(NewUniverse(), zerolog.Nop())
}

func TestSelectIncomeNormalRegime(t *testing.T) {
	in := testInputs()
	in.Vol.VVIX = 17.0 // stable surface, no size haircut

	regime := newTestClassifier().Classify(in)
	require.Equal(t, RegimeNormal, regime.Regime)
	require.Equal(t, ConfidenceMedium, regime.Confidence)

	rec := newTestSelector().Select(regime, in, "income")

	require.Equal(t, RecommendationTrade, rec.Recommendation)
	require.Len(t, rec.Strategies, 3)
	assert.Equal(t, "put_credit_spread", rec.Strategies[0].Name)
	assert.Equal(t, "iron_condor", rec.Strategies[1].Name)
	assert.Equal(t, "cash_secured_put", rec.Strategies[2].Name)

	assert.InDelta(t, 7.20, rec.Strategies[0].Scores.Total, 0.02)
	assert.InDelta(t, 7.10, rec.Strategies[1].Scores.Total, 0.02)
	assert.InDelta(t, 6.77, rec.Strategies[2].Scores.Total, 0.02)

	condor := rec.Strategies[1].Params
	assert.Equal(t, 37, condor.DTE)
	assert.Equal(t, 0.75, condor.SizeMultiplier)
	assert.Equal(t, map[string]int{
		"short_put": 17, "long_put": 7, "short_call": 17, "long_call": 7,
	}, condor.Deltas)
}

func TestSelectIncomeCrisisNoTrade(t *testing.T) {
	in := testInputs()
	in.Vol.VIX = 38.0
	in.Vol.VIX1DChange = 6.0

	regime := newTestClassifier().Classify(in)
	require.Equal(t, RegimeCrisis, regime.Regime)

	rec := newTestSelector().Select(regime, in, "income")

	assert.Equal(t, RecommendationNoTrade, rec.Recommendation)
	assert.Empty(t, rec.Strategies)
	assert.Equal(t, "No strategy passes all filters in current regime", rec.Note)
}

func TestSelectLowConfidenceDefinedRiskOnly(t *testing.T) {
	in := testInputs()
	regime := Regime{Regime: RegimeNormal, Confidence: ConfidenceLow}

	rec := newTestSelector().Select(regime, in, "income")

	require.Equal(t, RecommendationTradeCautious, rec.Recommendation)
	assert.Equal(t, "Low confidence regime - defined risk only, 50% size", rec.Note)
	require.NotEmpty(t, rec.Strategies)
	for _, c := range rec.Strategies {
		assert.GreaterOrEqual(t, c.Template.Legs, 2, "strategy %s", c.Name)
		// Half size on low confidence, stacked on the VVIX haircut.
		assert.InDelta(t, 0.32, c.Params.SizeMultiplier, 0.001, "strategy %s", c.Name)
	}
}

func TestSelectRegimeUncertain(t *testing.T) {
	in := testInputs()
	regime := Regime{Regime: RegimeVeryLow, Confidence: ConfidenceLow}

	// Only the single-leg scheduled convexity program survives VERY_LOW for
	// hedging, so no defined-risk candidate remains.
	rec := newTestSelector().Select(regime, in, "hedging")

	assert.Equal(t, RecommendationRegimeUncertain, rec.Recommendation)
	assert.Empty(t, rec.Strategies)
	assert.Equal(t, "Mixed signals; no defined-risk strategies available. WAIT.", rec.Note)
}

func TestSelectLowConviction(t *testing.T) {
	in := testInputs()
	in.Vol.VIXPercentile1Y = 90.0 // convexity expensive
	in.Liquidity.SPXBidAsk = 0.25
	regime := Regime{Regime: RegimeVeryLow, Confidence: ConfidenceMedium}

	rec := newTestSelector().Select(regime, in, "hedging")

	require.Equal(t, RecommendationLowConviction, rec.Recommendation)
	assert.Equal(t, "Reduce size by 50% or wait for better setup", rec.Note)
	require.Len(t, rec.Strategies, 1)
	assert.Equal(t, "scheduled_convexity", rec.Strategies[0].Name)
	assert.Less(t, rec.Strategies[0].Scores.Total, 5.0)
}

func TestCheckGatesIVRankFloor(t *testing.T) {
	in := testInputs()
	in.Vol.VIXPercentile1Y = 20.0
	regime := Regime{Regime: RegimeNormal, Confidence: ConfidenceMedium}

	csp, err := NewUniverse().ByName("cash_secured_put")
	require.NoError(t, err)

	gates := newTestSelector().checkGates(csp, regime, in)
	require.NotEmpty(t, gates)
	assert.Equal(t, "G1_iv_rank", gates[0].GateName)
	assert.False(t, gates[0].Passed)
	assert.Equal(t, "IV rank below 25th pctile - insufficient premium", gates[0].Reason)
}

func TestCheckGatesStrangleIVRankMin(t *testing.T) {
	in := testInputs() // IV rank 42, below the strangle's 50th pctile floor
	regime := Regime{Regime: RegimeNormal, Confidence: ConfidenceMedium}

	strangle, err := NewUniverse().ByName("short_strangle")
	require.NoError(t, err)

	gates := newTestSelector().checkGates(strangle, regime, in)
	var g7 *GateCheck
	for i := range gates {
		if gates[i].GateName == "G7_iv_rank_min" {
			g7 = &gates[i]
		}
	}
	require.NotNil(t, g7)
	assert.False(t, g7.Passed)
	assert.Equal(t, "IV rank 42 below strategy min 50", g7.Reason)
}

func TestCheckGatesVIXMax(t *testing.T) {
	in := testInputs()
	in.Vol.VIX = 22.5
	regime := Regime{Regime: RegimeElevated, Confidence: ConfidenceMedium}

	vcs, err := NewUniverse().ByName("vix_call_spread")
	require.NoError(t, err)

	gates := newTestSelector().checkGates(vcs, regime, in)
	var g7 *GateCheck
	for i := range gates {
		if gates[i].GateName == "G7_vix_max" {
			g7 = &gates[i]
		}
	}
	require.NotNil(t, g7)
	assert.False(t, g7.Passed)
	assert.Equal(t, "VIX 22.5 above strategy max 20", g7.Reason)
}

func TestCheckGatesEventBlock(t *testing.T) {
	in := testInputs()
	in.Events.DaysToCPI = 2
	regime := Regime{
		Regime:      RegimeNormal,
		EventActive: true,
		EventType:   EventCPI,
		Confidence:  ConfidenceMedium,
	}

	csp, err := NewUniverse().ByName("cash_secured_put")
	require.NoError(t, err)

	gates := newTestSelector().checkGates(csp, regime, in)
	var g2 *GateCheck
	for i := range gates {
		if gates[i].GateName == "G2_event_avoidance" {
			g2 = &gates[i]
		}
	}
	require.NotNil(t, g2)
	assert.False(t, g2.Passed)
	assert.Equal(t, "Event (CPI) within blocking window", g2.Reason)
}

func TestParameterizeEventPushesDTEOut(t *testing.T) {
	in := testInputs()
	in.Events.DaysToFOMC = 28
	in.Events.DaysToCPI = 26
	in.Events.DaysToNFP = 30
	in.Events.DaysToEarnings = 40
	regime := Regime{
		Regime:      RegimeNormal,
		EventActive: true,
		EventType:   EventCPI,
		Confidence:  ConfidenceMedium,
	}

	covered, err := NewUniverse().ByName("covered_call")
	require.NoError(t, err)

	// Nearest event in 26 days; base 30 DTE lands inside the window, so the
	// tenor moves to event + 10.
	p := parameterize(covered, regime, in)
	assert.Equal(t, 36, p.DTE)
}

func TestParameterizeSymbolicDTE(t *testing.T) {
	in := testInputs()
	regime := Regime{Regime: RegimeNormal, Confidence: ConfidenceMedium}

	calendar, err := NewUniverse().ByName("calendar_spread_short_front")
	require.NoError(t, err)

	p := parameterize(calendar, regime, in)
	assert.Equal(t, 37, p.DTE)
}

func TestAdjustDelta(t *testing.T) {
	cases := []struct {
		base   int
		regime VolRegime
		want   int
	}{
		{17, RegimeNormal, 17},
		{17, RegimeHigh, 10},
		{12, RegimeCrisis, 6},
		{12, RegimeVeryLow, 14},
		{17, RegimeLiquidityStress, 12},
		{1, RegimeCrisis, 1}, // floor at 1
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, adjustDelta(tc.base, tc.regime), "base=%d regime=%s", tc.base, tc.regime)
	}
}
