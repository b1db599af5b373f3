package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalRegime() Regime {
	return Regime{Regime: RegimeNormal, Confidence: ConfidenceMedium}
}

func ruleIDs(evals []RuleEvaluation) []string {
	ids := make([]string, 0, len(evals))
	for _, e := range evals {
		ids = append(ids, e.RuleID)
	}
	return ids
}

func TestAdjustmentRuleDefinitions(t *testing.T) {
	rules := AdjustmentRules()
	require.Len(t, rules, 9)
	assert.Equal(t, "A1", rules[0].RuleID)
	assert.Equal(t, "A9", rules[8].RuleID)
	assert.Equal(t, PriorityCritical, adjustmentRule("A2").Priority)
	assert.Equal(t, PriorityCritical, adjustmentRule("A6").Priority)
	assert.Equal(t, PriorityCritical, adjustmentRule("A8").Priority)
}

func TestEvaluateAdjustmentsHealthyPosition(t *testing.T) {
	evals := EvaluateAdjustments(PositionView{ID: "p1"}, normalRegime(), testInputs(), nil)
	assert.Empty(t, evals)
}

func TestAdjustmentTimeRoll(t *testing.T) {
	pos := PositionView{DTE: iptr(20)}

	evals := EvaluateAdjustments(pos, normalRegime(), testInputs(), nil)

	require.Equal(t, []string{"A1"}, ruleIDs(evals))
	assert.Equal(t, PriorityHigh, evals[0].Priority)
	assert.Equal(t, "Position DTE=20, below 21-day roll threshold", evals[0].Details)
}

func TestAdjustmentTimeClose(t *testing.T) {
	pos := PositionView{DTE: iptr(5)}

	evals := EvaluateAdjustments(pos, normalRegime(), testInputs(), nil)

	// Inside the gamma zone A2 fires instead of A1.
	require.Equal(t, []string{"A2"}, ruleIDs(evals))
	assert.Equal(t, PriorityCritical, evals[0].Priority)
}

func TestAdjustmentTimeCloseSkipsZeroDTE(t *testing.T) {
	pos := PositionView{DTE: iptr(0), IsZeroDTE: true}
	evals := EvaluateAdjustments(pos, normalRegime(), testInputs(), nil)
	assert.Empty(t, evals)
}

func TestAdjustmentDeltaBreach(t *testing.T) {
	pos := PositionView{CurrentDelta: 35}

	evals := EvaluateAdjustments(pos, normalRegime(), testInputs(), nil)

	require.Equal(t, []string{"A3"}, ruleIDs(evals))
	assert.Equal(t, "Delta moved from 15 to 35", evals[0].Details)
}

func TestAdjustmentDeltaBreachSkipsAggressiveEntry(t *testing.T) {
	// Entered at 35 delta on purpose: moving above 30 is not a breach.
	pos := PositionView{CurrentDelta: 35, InitialDelta: fptr(35)}
	evals := EvaluateAdjustments(pos, normalRegime(), testInputs(), nil)
	assert.Empty(t, evals)
}

func TestAdjustmentStrangleTest(t *testing.T) {
	pos := PositionView{Strategy: "iron_condor", TestedBreachStd: 1.4}

	evals := EvaluateAdjustments(pos, normalRegime(), testInputs(), nil)

	require.Equal(t, []string{"A4"}, ruleIDs(evals))
	assert.Equal(t, "Tested side breached by 1.4 std deviations", evals[0].Details)
}

func TestAdjustmentDeltaHedge(t *testing.T) {
	pos := PositionView{PortfolioDeltaPct: 0.18}

	evals := EvaluateAdjustments(pos, normalRegime(), testInputs(), nil)

	require.Equal(t, []string{"A5"}, ruleIDs(evals))
	assert.Equal(t, "Portfolio delta at 18.0% of NAV", evals[0].Details)
}

func TestAdjustmentVolSpike(t *testing.T) {
	in := testInputs()
	in.Vol.VIX1DChange = 6.0

	evals := EvaluateAdjustments(PositionView{}, normalRegime(), in, nil)

	require.Equal(t, []string{"A6"}, ruleIDs(evals))
	assert.Equal(t, "Reduce all short vega by 50%. If VIX > 35: close ALL naked short vol.", evals[0].Action)
}

func TestAdjustmentVolSpikeAboveVIX35(t *testing.T) {
	in := testInputs()
	in.Vol.VIX = 40.0
	in.Vol.VIX1DChange = 6.0

	evals := EvaluateAdjustments(PositionView{}, normalRegime(), in, nil)

	require.Equal(t, []string{"A6"}, ruleIDs(evals))
	assert.Equal(t, "CRITICAL: VIX > 35 - close ALL naked short vol immediately", evals[0].Action)
}

func TestAdjustmentVolSpikeFiveDay(t *testing.T) {
	in := testInputs()
	in.Vol.VIX = 26.0
	in.Vol.VIX5DChange = 7.0 // from 19: +36.8%

	evals := EvaluateAdjustments(PositionView{}, normalRegime(), in, nil)

	require.Equal(t, []string{"A6"}, ruleIDs(evals))
	assert.Contains(t, evals[0].Details, "5d change: 36.8%")
}

func TestAdjustmentEarningsDodge(t *testing.T) {
	in := testInputs()
	in.Events.DaysToEarnings = 3
	pos := PositionView{IsCoveredCall: true}

	evals := EvaluateAdjustments(pos, normalRegime(), in, nil)

	require.Equal(t, []string{"A7"}, ruleIDs(evals))
	assert.Equal(t, "Earnings in 3 days for covered call", evals[0].Details)
}

func TestAdjustmentRegimeChange(t *testing.T) {
	prev := Regime{Regime: RegimeNormal}
	current := Regime{Regime: RegimeElevated, Confidence: ConfidenceMedium}

	evals := EvaluateAdjustments(PositionView{}, current, testInputs(), &prev)

	require.Equal(t, []string{"A8"}, ruleIDs(evals))
	assert.Equal(t, "Regime changed: NORMAL -> ELEVATED", evals[0].Details)
}

func TestAdjustmentRegimeChangeNoPrevious(t *testing.T) {
	current := Regime{Regime: RegimeElevated, Confidence: ConfidenceMedium}
	evals := EvaluateAdjustments(PositionView{}, current, testInputs(), nil)
	assert.Empty(t, evals)
}

func TestAdjustmentCorrelationSpike(t *testing.T) {
	in := testInputs()
	in.Correlation.CorrPctile1Y = 85.0
	pos := PositionView{IsDispersion: true}

	evals := EvaluateAdjustments(pos, normalRegime(), in, nil)

	require.Equal(t, []string{"A9"}, ruleIDs(evals))
	assert.Equal(t, "Implied correlation at 85th percentile", evals[0].Details)
}

func TestExitRuleDefinitions(t *testing.T) {
	rules := ExitRuleDefinitions()
	require.Len(t, rules, 7)
	assert.Equal(t, "X1", rules[0].RuleID)
	assert.Equal(t, "X7", rules[6].RuleID)
	assert.Equal(t, "ALL short_premium strategies", rules[0].AppliesTo)
}

func TestExitCreditProfitTarget(t *testing.T) {
	pos := PositionView{
		Family:        FamilyShortPremium,
		MaxProfit:     1000,
		UnrealizedPnL: 500,
	}

	evals := EvaluateExits(pos, normalRegime(), testInputs(), nil, 100_000)

	require.Equal(t, []string{"X1"}, ruleIDs(evals))
	assert.Equal(t, PriorityHigh, evals[0].Priority)
	assert.Equal(t, "Profit 500.00 >= 50% of max 1000.00", evals[0].Details)
}

func TestExitDebitProfitTarget(t *testing.T) {
	pos := PositionView{
		Family:        FamilyLongPremium,
		PremiumPaid:   400,
		UnrealizedPnL: 420,
	}

	evals := EvaluateExits(pos, normalRegime(), testInputs(), nil, 100_000)

	require.Equal(t, []string{"X2"}, ruleIDs(evals))
}

func TestExitCreditStopLoss(t *testing.T) {
	pos := PositionView{
		Family:          FamilyShortPremium,
		PremiumReceived: 300,
		UnrealizedPnL:   -600,
	}

	evals := EvaluateExits(pos, normalRegime(), testInputs(), nil, 100_000)

	require.Equal(t, []string{"X3"}, ruleIDs(evals))
	assert.Equal(t, PriorityCritical, evals[0].Priority)
}

func TestExitDebitStopLoss(t *testing.T) {
	pos := PositionView{
		Family:        FamilyLongPremium,
		PremiumPaid:   400,
		UnrealizedPnL: -200,
	}

	evals := EvaluateExits(pos, normalRegime(), testInputs(), nil, 100_000)

	require.Equal(t, []string{"X4"}, ruleIDs(evals))
	assert.Equal(t, PriorityHigh, evals[0].Priority)
}

func TestExitTimeStop(t *testing.T) {
	pos := PositionView{DTE: iptr(6)}

	evals := EvaluateExits(pos, normalRegime(), testInputs(), nil, 100_000)

	require.Equal(t, []string{"X5"}, ruleIDs(evals))
	assert.Equal(t, "DTE=6, gamma acceleration zone", evals[0].Details)

	pos.IsZeroDTE = true
	assert.Empty(t, EvaluateExits(pos, normalRegime(), testInputs(), nil, 100_000))
}

func TestExitRegimeExit(t *testing.T) {
	prev := Regime{Regime: RegimeNormal}
	current := Regime{Regime: RegimeCrisis, Confidence: ConfidenceHigh}
	pos := PositionView{RegimeAllowed: []string{"LOW", "NORMAL"}}

	evals := EvaluateExits(pos, current, testInputs(), &prev, 100_000)

	require.Equal(t, []string{"X6"}, ruleIDs(evals))
	assert.Equal(t, PriorityCritical, evals[0].Priority)
	assert.Equal(t, "New regime CRISIS not in allowed [LOW NORMAL]", evals[0].Details)

	// ALL-regime positions survive any transition.
	pos.RegimeAllowed = []string{"ALL"}
	assert.Empty(t, EvaluateExits(pos, current, testInputs(), &prev, 100_000))
}

func TestExitDailyPnLStop(t *testing.T) {
	pos := PositionView{DailyPnL: -2_000}

	evals := EvaluateExits(pos, normalRegime(), testInputs(), nil, 100_000)

	require.Equal(t, []string{"X7"}, ruleIDs(evals))
	assert.Equal(t, "Daily loss -2.00% exceeds 1.5% limit", evals[0].Details)
}
