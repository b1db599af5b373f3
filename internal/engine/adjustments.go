package engine

import (
	"fmt"
	"math"
)

var adjustmentRules = []AdjustmentRule{
	{
		RuleID:    "A1",
		Name:      "Time Roll",
		Trigger:   "dte <= 21",
		Action:    "Roll to next month (same delta) or close",
		Rationale: "Gamma acceleration beyond 21 DTE [GS Art of Put Selling]",
		Priority:  PriorityHigh,
	},
	{
		RuleID:    "A2",
		Name:      "Time Close",
		Trigger:   "dte <= 7 AND strategy != '0DTE'",
		Action:    "Close position regardless of P&L",
		Rationale: "Gamma fundamentally changes position character [JPM P&L Attribution]",
		Priority:  PriorityCritical,
	},
	{
		RuleID:    "A3",
		Name:      "Delta Breach",
		Trigger:   "short_strike_delta > 30 (from initial 10-20)",
		Action:    "Roll strike further OTM and out in time",
		Rationale: "Underlying moved significantly toward strike [JPM Resilient Option Carry]",
		Priority:  PriorityHigh,
	},
	{
		RuleID:    "A4",
		Name:      "Strangle Test",
		Trigger:   "tested side breached by > 1 standard deviation",
		Action:    "Close tested side; leave untested as standalone if profitable. Do NOT double down.",
		Rationale: "[GS Art of Put Selling]",
		Priority:  PriorityHigh,
	},
	{
		RuleID:    "A5",
		Name:      "Delta Hedge",
		Trigger:   "portfolio_delta > +/-15% NAV",
		Action:    "Add delta hedges via futures or ATM options",
		Rationale: "[Inference from JPM position management framework]",
		Priority:  PriorityHigh,
	},
	{
		RuleID:    "A6",
		Name:      "Vol Spike",
		Trigger:   "vix_1d_change > 5 OR vix_5d_change > 30%",
		Action:    "Reduce all short vega by 50%. If VIX > 35: close ALL naked short vol.",
		Rationale: "[GS Vol Vitals; GS State of Vol]",
		Priority:  PriorityCritical,
	},
	{
		RuleID:    "A7",
		Name:      "Earnings Dodge",
		Trigger:   "days_to_earnings <= 5 AND position is covered_call on that name",
		Action:    "Roll or close calls before earnings",
		Rationale: "Failure costs 3-6% annually [GS Overwriting 16yr study]",
		Priority:  PriorityHigh,
	},
	{
		RuleID:    "A8",
		Name:      "Regime Change",
		Trigger:   "regime classification changes (e.g., NORMAL -> ELEVATED)",
		Action:    "Review ALL positions. Close any not appropriate for new regime.",
		Rationale: "[JPM Systematic Vol]",
		Priority:  PriorityCritical,
	},
	{
		RuleID:    "A9",
		Name:      "Correlation Spike",
		Trigger:   "implied_corr rises above 80th pctile within 5 days",
		Action:    "Close all dispersion trades. Review short vol positions for systemic risk.",
		Rationale: "[JPM Equity Vol Strategy]",
		Priority:  PriorityHigh,
	},
}

// AdjustmentRules returns the A1-A9 rule definitions.
func AdjustmentRules() []AdjustmentRule {
	return append([]AdjustmentRule{}, adjustmentRules...)
}

func adjustmentRule(id string) AdjustmentRule {
	for _, r := range adjustmentRules {
		if r.RuleID == id {
			return r
		}
	}
	return AdjustmentRule{}
}

// EvaluateAdjustments tests rules A1-A9 against a position and the current
// market state. Only triggered rules are returned, in rule order.
func EvaluateAdjustments(pos PositionView, regime Regime, in MarketInputs, previous *Regime) []RuleEvaluation {
	var results []RuleEvaluation
	trigger := func(id, details string) {
		r := adjustmentRule(id)
		results = append(results, RuleEvaluation{
			RuleID:    r.RuleID,
			RuleName:  r.Name,
			Triggered: true,
			Priority:  r.Priority,
			Action:    r.Action,
			Details:   details,
		})
	}

	// A1: roll window before the gamma acceleration zone.
	dte := pos.dte()
	if dte <= 21 && dte > 7 {
		trigger("A1", fmt.Sprintf("Position DTE=%d, below 21-day roll threshold", dte))
	}

	// A2: inside the gamma acceleration zone.
	if dte <= 7 && !pos.IsZeroDTE {
		trigger("A2", fmt.Sprintf("Position DTE=%d, gamma acceleration zone", dte))
	}

	// A3: short strike delta breached from a conservative entry.
	if math.Abs(pos.CurrentDelta) > 30 && math.Abs(pos.initialDelta()) <= 20 {
		trigger("A3", fmt.Sprintf("Delta moved from %g to %g", pos.initialDelta(), pos.CurrentDelta))
	}

	// A4: tested side of a strangle or condor.
	if (pos.Strategy == "short_strangle" || pos.Strategy == "iron_condor") && pos.TestedBreachStd > 1.0 {
		trigger("A4", fmt.Sprintf("Tested side breached by %.1f std deviations", pos.TestedBreachStd))
	}

	// A5: portfolio delta beyond the hedge band.
	if math.Abs(pos.PortfolioDeltaPct) > 0.15 {
		trigger("A5", fmt.Sprintf("Portfolio delta at %.1f%% of NAV", pos.PortfolioDeltaPct*100))
	}

	// A6: vol spike. The 5d change is fractional against the pre-spike level.
	vix1d := in.Vol.VIX1DChange
	vix5dPct := 0.0
	if in.Vol.VIX > 0 {
		vix5dPct = in.Vol.VIX5DChange / math.Max(in.Vol.VIX-in.Vol.VIX5DChange, 1)
	}
	if vix1d > 5 || vix5dPct > 0.30 {
		r := adjustmentRule("A6")
		action := r.Action
		if in.Vol.VIX > 35 {
			action = "CRITICAL: VIX > 35 - close ALL naked short vol immediately"
		}
		results = append(results, RuleEvaluation{
			RuleID:    r.RuleID,
			RuleName:  r.Name,
			Triggered: true,
			Priority:  r.Priority,
			Action:    action,
			Details:   fmt.Sprintf("VIX 1d change: %+.1f, 5d change: %.1f%%", vix1d, vix5dPct*100),
		})
	}

	// A7: covered calls into earnings.
	if pos.IsCoveredCall && in.Events.DaysToEarnings <= 5 {
		trigger("A7", fmt.Sprintf("Earnings in %d days for covered call", in.Events.DaysToEarnings))
	}

	// A8: regime transition since the last classification.
	if previous != nil && previous.Regime != regime.Regime {
		trigger("A8", fmt.Sprintf("Regime changed: %s -> %s", previous.Regime, regime.Regime))
	}

	// A9: correlation spike against dispersion books.
	if in.Correlation.CorrPctile1Y > 80 && pos.IsDispersion {
		trigger("A9", fmt.Sprintf("Implied correlation at %.0fth percentile", in.Correlation.CorrPctile1Y))
	}

	return results
}
