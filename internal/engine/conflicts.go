package engine

// conflictDefs are the eight paired-signal conflict scenarios with their
// standing resolutions. Detection predicates live in AllConflicts.
var conflictDefs = []ConflictScenario{
	{
		ConflictID:  "C1",
		Description: "IV says sell, Trend says caution",
		SignalA:     "IV Rank > 75",
		SignalB:     "SPX below 200 DMA",
		Resolution:  "Defined-risk spreads only. 50% size. No naked short.",
	},
	{
		ConflictID:  "C2",
		Description: "Event approaching, carry attractive",
		SignalA:     "Theta > 0 carry setup",
		SignalB:     "FOMC/CPI in 3 days",
		Resolution:  "WAIT. Enter T+1 post-event. IV crush creates better entry.",
	},
	{
		ConflictID:  "C3",
		Description: "Low vol + Steep skew",
		SignalA:     "VIX < 15",
		SignalB:     "25d skew > 80th pctile",
		Resolution:  "Risk reversals or put ladders to monetize skew. No naked short puts.",
	},
	{
		ConflictID:  "C4",
		Description: "Credit widening, VIX still low",
		SignalA:     "HY OAS +50bps / 20d",
		SignalB:     "VIX < 18",
		Resolution:  "Reduce short vol 25%. Add VIX call spread. Credit leads equity vol 2-4 weeks.",
	},
	{
		ConflictID:  "C5",
		Description: "Dispersion high, correlation low",
		SignalA:     "Implied corr < 30th pctile",
		SignalB:     "Sector dispersion elevated",
		Resolution:  "Enter dispersion trade at 50% standard size. Defined risk preferred.",
	},
	{
		ConflictID:  "C6",
		Description: "Regime confidence = LOW",
		SignalA:     "Mixed signals",
		SignalB:     "No clear regime",
		Resolution:  "Defined-risk only. 50% size. No new naked positions. WAIT for clarity.",
	},
	{
		ConflictID:  "C7",
		Description: "VVIX elevated, VIX normal",
		SignalA:     "VVIX > 22",
		SignalB:     "VIX 15-20",
		Resolution:  "Vol surface unstable. Reduce all sizes 25-50%. Avoid long-dated vega.",
	},
	{
		ConflictID:  "C8",
		Description: "Term structure inverted",
		SignalA:     "1M IV > 3M IV",
		SignalB:     "VIX < 25",
		Resolution:  "Activate tail trading framework (3-pillar). This is the signal.",
	},
}

// AllConflicts evaluates every scenario and returns all eight with their
// detection status.
func AllConflicts(regime Regime, in MarketInputs) []ConflictScenario {
	detected := [8]bool{
		in.Vol.VIXPercentile1Y > 75 && in.Spot.SPXLevel < in.Spot.SPXSMA200,
		min3(in.Events.DaysToFOMC, in.Events.DaysToCPI, in.Events.DaysToNFP) <= 3 && in.Vol.VIXPercentile1Y > 40,
		in.Vol.VIX < 15 && in.Skew.SkewPctile1Y > 80,
		in.Credit.HYOAS20DChange > 50 && in.Vol.VIX < 18,
		in.Correlation.CorrPctile1Y < 30 && in.Correlation.Dispersion > 10,
		regime.Confidence == ConfidenceLow,
		in.Vol.VVIX > 22 && in.Vol.VIX >= 15 && in.Vol.VIX <= 20,
		in.TermStructure.TS1M3M < 0 && in.Vol.VIX < 25,
	}

	out := make([]ConflictScenario, len(conflictDefs))
	for i, def := range conflictDefs {
		out[i] = def
		out[i].Detected = detected[i]
	}
	return out
}

// DetectConflicts returns only the scenarios detected on this snapshot.
func DetectConflicts(regime Regime, in MarketInputs) []ConflictScenario {
	var out []ConflictScenario
	for _, c := range AllConflicts(regime, in) {
		if c.Detected {
			out = append(out, c)
		}
	}
	return out
}
