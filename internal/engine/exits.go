package engine

import (
	"fmt"
	"math"
)

var exitRules = []ExitRule{
	{
		RuleID:    "X1",
		Name:      "Credit Profit Target",
		Trigger:   "unrealized_profit >= 50% of max_profit",
		Action:    "Close. Set limit order at entry.",
		Rationale: "Maximizes risk-adjusted returns [GS Art of Put Selling 10yr]",
		AppliesTo: "ALL short_premium strategies",
	},
	{
		RuleID:    "X2",
		Name:      "Debit Profit Target",
		Trigger:   "unrealized_profit >= 100% of debit_paid",
		Action:    "Close (2:1 R/R achieved). For event trades: close within 24hrs post-event.",
		Rationale: "[GS Trading Events]",
		AppliesTo: "ALL long_premium strategies",
	},
	{
		RuleID:    "X3",
		Name:      "Credit Stop Loss",
		Trigger:   "unrealized_loss >= 2x premium_received",
		Action:    "Close. Expected recovery is negative beyond this point.",
		Rationale: "[GS Art of Put Selling]",
		AppliesTo: "ALL short_premium strategies",
	},
	{
		RuleID:    "X4",
		Name:      "Debit Stop Loss",
		Trigger:   "unrealized_loss >= 50% of premium_paid AND no catalyst change",
		Action:    "Close. Re-evaluate thesis before re-entering.",
		AppliesTo: "ALL long_premium strategies",
	},
	{
		RuleID:    "X5",
		Name:      "Time Stop",
		Trigger:   "dte <= 7 AND strategy_type != '0DTE'",
		Action:    "Close. Gamma acceleration makes position fundamentally different.",
		Rationale: "[JPM P&L Attribution; JPM Same-day Options]",
	},
	{
		RuleID:    "X6",
		Name:      "Regime Exit",
		Trigger:   "regime_classifier output changes to incompatible regime",
		Action:    "Close ALL positions not appropriate for new regime immediately.",
		Rationale: "[JPM Systematic Vol]",
	},
	{
		RuleID:    "X7",
		Name:      "Daily P&L Stop",
		Trigger:   "daily_pnl_loss > 1.5% of NAV",
		Action:    "Reduce exposure by 50%. No new trades today.",
		Rationale: "[JPM Systematic Vol]",
	},
}

// ExitRuleDefinitions returns the X1-X7 rule definitions.
func ExitRuleDefinitions() []ExitRule {
	return append([]ExitRule{}, exitRules...)
}

func exitRule(id string) ExitRule {
	for _, r := range exitRules {
		if r.RuleID == id {
			return r
		}
	}
	return ExitRule{}
}

// EvaluateExits tests rules X1-X7 against a position. Profit targets and
// stops depend on the premium direction; time and regime stops apply to all
// families. Only triggered rules are returned.
func EvaluateExits(pos PositionView, regime Regime, in MarketInputs, previous *Regime, nav float64) []RuleEvaluation {
	var results []RuleEvaluation
	trigger := func(id string, priority RulePriority, details string) {
		r := exitRule(id)
		results = append(results, RuleEvaluation{
			RuleID:    r.RuleID,
			RuleName:  r.Name,
			Triggered: true,
			Priority:  priority,
			Action:    r.Action,
			Details:   details,
		})
	}

	pnl := pos.UnrealizedPnL

	// X1: credit profit target.
	if pos.Family == FamilyShortPremium && pos.MaxProfit > 0 && pnl >= pos.MaxProfit*0.50 {
		trigger("X1", PriorityHigh, fmt.Sprintf("Profit %.2f >= 50%% of max %.2f", pnl, pos.MaxProfit))
	}

	// X2: debit profit target.
	if pos.Family == FamilyLongPremium && pos.PremiumPaid > 0 && pnl >= pos.PremiumPaid {
		trigger("X2", PriorityHigh, fmt.Sprintf("Profit %.2f >= 100%% of debit %.2f", pnl, pos.PremiumPaid))
	}

	// X3: credit stop loss.
	if pos.Family == FamilyShortPremium && pos.PremiumReceived > 0 && pnl < 0 && math.Abs(pnl) >= pos.PremiumReceived*2 {
		trigger("X3", PriorityCritical, fmt.Sprintf("Loss %.2f >= 2x premium %.2f", pnl, pos.PremiumReceived))
	}

	// X4: debit stop loss.
	if pos.Family == FamilyLongPremium && pos.PremiumPaid > 0 && pnl < 0 && math.Abs(pnl) >= pos.PremiumPaid*0.50 {
		trigger("X4", PriorityHigh, fmt.Sprintf("Loss %.2f >= 50%% of debit %.2f", pnl, pos.PremiumPaid))
	}

	// X5: time stop.
	if dte := pos.dte(); dte <= 7 && !pos.IsZeroDTE {
		trigger("X5", PriorityCritical, fmt.Sprintf("DTE=%d, gamma acceleration zone", dte))
	}

	// X6: new regime incompatible with this strategy.
	if previous != nil && previous.Regime != regime.Regime && len(pos.RegimeAllowed) > 0 {
		name := string(regime.Regime)
		if !contains(pos.RegimeAllowed, name) && !contains(pos.RegimeAllowed, "ALL") {
			trigger("X6", PriorityCritical, fmt.Sprintf("New regime %s not in allowed %v", name, pos.RegimeAllowed))
		}
	}

	// X7: daily portfolio P&L stop.
	if nav > 0 && pos.DailyPnL < 0 && math.Abs(pos.DailyPnL/nav) > 0.015 {
		trigger("X7", PriorityCritical, fmt.Sprintf("Daily loss %.2f%% exceeds 1.5%% limit", pos.DailyPnL/nav*100))
	}

	return results
}
