package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTailRiskManager() *TailRiskManager {
	return NewTailRiskManager(zerolog.Nop())
}

func TestAssessBaseline(t *testing.T) {
	a := newTestTailRiskManager().Assess(testInputs())

	assert.Equal(t, 0, a.ActiveWarningsCount)
	assert.False(t, a.CrisisProtocolActive)
	assert.Empty(t, a.CrisisActions)
	assert.False(t, a.TailTrading.SignalActive)
	assert.False(t, a.TailTrading.DeltaPillarActive)

	require.Len(t, a.EarlyWarnings, 4)
	for _, w := range a.EarlyWarnings {
		assert.False(t, w.Triggered, "signal %q", w.Signal)
	}
}

func TestAssessHedgeAllocation(t *testing.T) {
	a := newTestTailRiskManager().Assess(testInputs())

	assert.Equal(t, 0.02, a.HedgeAllocation.AnnualBudgetPct)
	require.Len(t, a.HedgeAllocation.Instruments, 3)

	sum := 0.0
	for _, inst := range a.HedgeAllocation.Instruments {
		sum += inst.Allocation
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	assert.Equal(t, "VIX Call Spreads", a.HedgeAllocation.Instruments[0].Name)
	assert.Equal(t, 0.60, a.HedgeAllocation.Instruments[0].Allocation)
	assert.Equal(t, "buy VIX call at spot+4, sell at spot+12", a.HedgeAllocation.Instruments[0].Structure)
}

func TestAssessCrisisOnVIX(t *testing.T) {
	in := testInputs()
	in.Vol.VIX = 36.0

	a := newTestTailRiskManager().Assess(in)

	assert.True(t, a.CrisisProtocolActive)
	require.Len(t, a.CrisisActions, 6)
	assert.Equal(t, "Close ALL naked short vol immediately", a.CrisisActions[0])
	assert.Equal(t, "Do NOT sell vol until VIX establishes downtrend from peak", a.CrisisActions[5])
}

func TestAssessCrisisOnWarningCount(t *testing.T) {
	in := testInputs()
	in.Credit.HYOAS20DChange = 60.0
	in.Liquidity.BidAskWidening = 1.6
	in.Vol.VVIX = 29.0

	a := newTestTailRiskManager().Assess(in)

	assert.Equal(t, 3, a.ActiveWarningsCount)
	assert.True(t, a.CrisisProtocolActive)
}

func TestAssessTwoWarningsNotCrisis(t *testing.T) {
	in := testInputs()
	in.Credit.HYOAS20DChange = 60.0
	in.Vol.VVIX = 29.0

	a := newTestTailRiskManager().Assess(in)

	assert.Equal(t, 2, a.ActiveWarningsCount)
	assert.False(t, a.CrisisProtocolActive)
}

func TestEarlyWarningReadings(t *testing.T) {
	in := testInputs()
	in.Credit.HYOAS20DChange = 60.0

	warnings := earlyWarnings(in)
	require.Len(t, warnings, 4)

	credit := warnings[0]
	assert.True(t, credit.Triggered)
	assert.Equal(t, "Double hedge allocation", credit.Action)
	require.NotNil(t, credit.CurrentValue)
	assert.Equal(t, 60.0, *credit.CurrentValue)
	require.NotNil(t, credit.Threshold)
	assert.Equal(t, 50.0, *credit.Threshold)
}

func TestTailSignalInversion(t *testing.T) {
	in := testInputs()
	in.TermStructure.TS1M3M = -0.5

	a := newTestTailRiskManager().Assess(in)

	assert.True(t, a.TailTrading.SignalActive)
	assert.Equal(t, -0.5, a.TailTrading.TSValue)
	// All three pillars activate on the same signal.
	assert.True(t, a.TailTrading.DeltaPillarActive)
	assert.True(t, a.TailTrading.GammaPillarActive)
	assert.True(t, a.TailTrading.VegaPillarActive)
}
