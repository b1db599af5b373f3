package engine

import (
	"fmt"
	"strings"

	"github.com/voltlab/volguard/internal/domain"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

// templateOrder fixes catalog listing order; ties in selector ranking are
// broken by this order.
var templateOrder = []string{
	"cash_secured_put",
	"put_credit_spread",
	"short_strangle",
	"iron_condor",
	"covered_call",
	"calendar_spread_short_front",
	"put_debit_spread",
	"call_debit_spread",
	"long_straddle",
	"put_ladder_1x2",
	"vix_call_spread",
	"vix_collar_zero_cost",
	"scheduled_convexity",
	"tail_delta_pillar",
	"tail_gamma_pillar",
	"tail_vega_pillar",
	"dispersion_long",
	"variance_swap_ko",
	"sector_iv_rv",
}

var templates = map[string]StrategyTemplate{
	"cash_secured_put": {
		Name:           "cash_secured_put",
		Family:         FamilyShortPremium,
		Objective:      ObjectiveIncome,
		Legs:           1,
		BaseDelta:      12,
		BaseDTE:        37,
		ProfitTarget:   0.50,
		StopLoss:       2.0,
		RollDTE:        iptr(21),
		WinRate:        fptr(0.74),
		SharpeHist:     fptr(0.50),
		RegimeAllowed:  []string{"VERY_LOW", "LOW", "NORMAL", "ELEVATED"},
		RegimeExcluded: []string{"HIGH", "EXTREME", "CRISIS"},
		EventBlock:     true,
		Description:    "GS Art of Put Selling: 10-15 delta, 74% win rate, 30-45 DTE",
	},
	"put_credit_spread": {
		Name:           "put_credit_spread",
		Family:         FamilyShortPremium,
		Objective:      ObjectiveIncome,
		Legs:           2,
		BaseDeltas:     map[string]int{"short": 17, "long": 7},
		BaseDTE:        37,
		WidthPct:       fptr(0.07),
		ProfitTarget:   0.50,
		StopLoss:       1.0,
		RollDTE:        iptr(21),
		RegimeAllowed:  []string{"VERY_LOW", "LOW", "NORMAL", "ELEVATED", "HIGH"},
		RegimeExcluded: []string{"CRISIS"},
		EventBlock:     true,
		Description:    "Defined-risk put spread, 7% width between strikes",
	},
	"short_strangle": {
		Name:           "short_strangle",
		Family:         FamilyShortPremium,
		Objective:      ObjectiveIncome,
		Legs:           2,
		BaseDeltas:     map[string]int{"put": 17, "call": 17},
		BaseDTE:        37,
		ProfitTarget:   0.50,
		StopLoss:       2.0,
		RollDTE:        iptr(21),
		RegimeAllowed:  []string{"LOW", "NORMAL"},
		RegimeExcluded: []string{"ELEVATED", "HIGH", "EXTREME", "CRISIS"},
		EventBlock:     true,
		IVRankMin:      iptr(50),
		Description:    "Naked strangle, only in low/normal vol with IV rank > 50th",
	},
	"iron_condor": {
		Name:           "iron_condor",
		Family:         FamilyShortPremium,
		Objective:      ObjectiveIncome,
		Legs:           4,
		BaseDeltas:     map[string]int{"short_put": 17, "long_put": 7, "short_call": 17, "long_call": 7},
		BaseDTE:        37,
		ProfitTarget:   0.50,
		StopLoss:       0.25,
		RollDTE:        iptr(21),
		RegimeAllowed:  []string{"LOW", "NORMAL", "ELEVATED"},
		RegimeExcluded: []string{"HIGH", "EXTREME", "CRISIS"},
		EventBlock:     true,
		Description:    "4-leg defined-risk; close at 50% profit or 25% of max loss early",
	},
	"covered_call": {
		Name:           "covered_call",
		Family:         FamilyShortPremium,
		Objective:      ObjectiveIncome,
		Legs:           1,
		BaseDelta:      30,
		BaseDTE:        30,
		SharpeHist:     fptr(0.76),
		RegimeAllowed:  []string{"VERY_LOW", "LOW", "NORMAL", "ELEVATED"},
		RegimeExcluded: []string{"CRISIS"},
		Description:    "GS Overwriting: large-cap Sharpe 0.76, Q5 FCF yield = 8.8%",
	},
	"calendar_spread_short_front": {
		Name:             "calendar_spread_short_front",
		Family:           FamilyShortPremium,
		Objective:        ObjectiveEventHarvest,
		Legs:             2,
		BaseDelta:        50,
		BaseDTESymbol:    "event_dte",
		ProfitTargetRule: "front_expires_worthless",
		StopLossRule:     "realized_move > 1.5x implied_move",
		RegimeAllowed:    []string{"ALL"},
		RegimeExcluded:   []string{"CRISIS"},
		EventRequired:    true,
		Description:      "ATM calendar selling front-end event IV, buying back-month",
	},
	"put_debit_spread": {
		Name:          "put_debit_spread",
		Family:        FamilyLongPremium,
		Objective:     ObjectiveDirectionalBearish,
		Legs:          2,
		BaseDeltas:    map[string]int{"long": 35, "short": 17},
		BaseDTE:       52,
		WidthPct:      fptr(0.12),
		ProfitTarget:  1.00,
		StopLoss:      0.50,
		RegimeAllowed: []string{"ELEVATED", "HIGH", "NORMAL"},
		Description:   "Bearish debit spread, 45-60 DTE, 2:1 R/R target",
	},
	"call_debit_spread": {
		Name:          "call_debit_spread",
		Family:        FamilyLongPremium,
		Objective:     ObjectiveDirectionalBullish,
		Legs:          2,
		BaseDeltas:    map[string]int{"long": 45, "short": 27},
		BaseDTE:       52,
		ProfitTarget:  1.00,
		StopLoss:      0.50,
		RegimeAllowed: []string{"VERY_LOW", "LOW", "NORMAL"},
		Description:   "Bullish debit spread, 45-60 DTE, 2:1 R/R target",
	},
	"long_straddle": {
		Name:             "long_straddle",
		Family:           FamilyLongPremium,
		Objective:        ObjectiveEventVol,
		Legs:             2,
		BaseDelta:        50,
		BaseDTESymbol:    "event_dte + 7",
		ProfitTargetRule: "realized > 1.5x implied",
		StopLossRule:     "theta > 25% of premium with no move",
		IVRankMax:        iptr(30),
		RegimeAllowed:    []string{"LOW", "NORMAL"},
		EventRequired:    true,
		Description:      "ATM straddle for event vol, only when IV rank < 30th",
	},
	"put_ladder_1x2": {
		Name:          "put_ladder_1x2",
		Family:        FamilyHedging,
		Objective:     ObjectivePortfolioHedge,
		Legs:          3,
		Structure:     "buy 1x ATM-5% put, sell 2x ATM-15% puts",
		BaseDTE:       75,
		Cost:          "zero_or_credit",
		RegimeAllowed: []string{"ELEVATED", "HIGH"},
		Description:   "Put ladder monetizing rich skew, protection -5% to -15%",
	},
	"vix_call_spread": {
		Name:          "vix_call_spread",
		Family:        FamilyHedging,
		Objective:     ObjectiveTailHedge,
		Legs:          2,
		Structure:     "buy VIX call at current+4, sell at current+12",
		BaseDTE:       45,
		CostBudget:    fptr(0.01),
		RegimeAllowed: []string{"LOW", "NORMAL"},
		VIXMax:        fptr(20),
		Description:   "3-5x convexity vs SPX puts in crises (GS Hedging Toolkit)",
	},
	"vix_collar_zero_cost": {
		Name:          "vix_collar_zero_cost",
		Family:        FamilyHedging,
		Objective:     ObjectivePortfolioHedge,
		Legs:          3,
		Structure:     "buy VIX call, sell higher VIX call, sell VIX put to fund",
		Cost:          "zero",
		RegimeAllowed: []string{"NORMAL"},
		Description:   "Zero-cost VIX collar (JPM Equity Vol Strategy)",
	},
	"scheduled_convexity": {
		Name:          "scheduled_convexity",
		Family:        FamilyHedging,
		Objective:     ObjectiveSystematicTail,
		Legs:          1,
		Structure:     "buy 5-10 delta OTM puts monthly on schedule",
		CostBudget:    fptr(0.01),
		RegimeAllowed: []string{"ALL"},
		Description:   "GS Asymmetric 27yr: scheduled > discretionary convexity",
	},
	"tail_delta_pillar": {
		Name:          "tail_delta_pillar",
		Family:        FamilyTailTrading,
		Objective:     ObjectiveSpotRecovery,
		Legs:          2,
		Structure:     "Long SPX 1M ATM-25D call spread",
		RegimeAllowed: []string{"ELEVATED", "HIGH", "CRISIS"},
		Description:   "Pillar 1: captures spot recovery, 1/22 notional per signal",
	},
	"tail_gamma_pillar": {
		Name:          "tail_gamma_pillar",
		Family:        FamilyTailTrading,
		Objective:     ObjectiveRealizedVolCapture,
		Legs:          1,
		Structure:     "Long SPX 5D 25-delta calls, daily hedge at close",
		WinRate:       fptr(0.622),
		RegimeAllowed: []string{"ELEVATED", "HIGH", "CRISIS"},
		Description:   "Pillar 2: 62.2% hit rate capturing realized vol on recovery bounces",
	},
	"tail_vega_pillar": {
		Name:          "tail_vega_pillar",
		Family:        FamilyTailTrading,
		Objective:     ObjectiveVIXNormalization,
		Legs:          3,
		Structure:     "Long VIX 1M ATM-25-10D put ladder",
		RegimeAllowed: []string{"ELEVATED", "HIGH", "CRISIS"},
		Description:   "Pillar 3: VIX mean reversion, 1/26 notional, match gamma vega",
	},
	"dispersion_long": {
		Name:          "dispersion_long",
		Family:        FamilyRelativeValue,
		Objective:     ObjectiveCorrelationRV,
		Legs:          2,
		Structure:     "sell index vol, buy single-stock vol basket",
		BaseDTE:       90,
		WinRate:       fptr(0.5529),
		RegimeAllowed: []string{"NORMAL", "LOW"},
		Description:   "JPM: 55.29% normal hit rate, enter when implied corr > 70th pctile",
	},
	"variance_swap_ko": {
		Name:          "variance_swap_ko",
		Family:        FamilyShortPremium,
		Objective:     ObjectiveCarryWithProtection,
		Legs:          1,
		Structure:     "short KO variance swap (KO at 2.5x strike vol)",
		BaseDTE:       60,
		RegimeAllowed: []string{"LOW", "NORMAL"},
		Description:   "JPM: caps left-tail at barrier, retains 85-90% of carry",
	},
	"sector_iv_rv": {
		Name:          "sector_iv_rv",
		Family:        FamilyRelativeValue,
		Objective:     ObjectiveSectorMeanReversion,
		Legs:          2,
		Structure:     "sell top-decile sector IV, buy bottom-decile",
		BaseDTE:       60,
		RegimeAllowed: []string{"NORMAL", "LOW"},
		Description:   "Sector IV divergence > 40pts (5Y lookback) mean reversion",
	},
}

// Universe is the immutable strategy template catalog.
type Universe struct{}

// NewUniverse creates the catalog accessor.
func NewUniverse() *Universe { return &Universe{} }

// Names returns all template names in catalog order.
func (u *Universe) Names() []string {
	return append([]string{}, templateOrder...)
}

// List returns all templates in catalog order.
func (u *Universe) List() []StrategyTemplate {
	out := make([]StrategyTemplate, 0, len(templateOrder))
	for _, name := range templateOrder {
		out = append(out, templates[name])
	}
	return out
}

// ByName looks up a template.
func (u *Universe) ByName(name string) (StrategyTemplate, error) {
	tpl, ok := templates[name]
	if !ok {
		return StrategyTemplate{}, fmt.Errorf("%w: strategy %q (available: %s)",
			domain.ErrUnknownName, name, strings.Join(templateOrder, ", "))
	}
	return tpl, nil
}

// ByFamily filters templates by family, preserving catalog order.
func (u *Universe) ByFamily(family StrategyFamily) []StrategyTemplate {
	var out []StrategyTemplate
	for _, name := range templateOrder {
		if tpl := templates[name]; tpl.Family == family {
			out = append(out, tpl)
		}
	}
	return out
}

// ByObjective filters templates by objective, preserving catalog order.
func (u *Universe) ByObjective(objective StrategyObjective) []StrategyTemplate {
	var out []StrategyTemplate
	for _, name := range templateOrder {
		if tpl := templates[name]; tpl.Objective == objective {
			out = append(out, tpl)
		}
	}
	return out
}
