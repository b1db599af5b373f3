package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// deltaAdjustments scales strike deltas by regime: sell closer to the money
// when vol is cheap, further out when it is stressed.
var deltaAdjustments = map[VolRegime]float64{
	RegimeVeryLow:         1.2,
	RegimeLow:             1.1,
	RegimeNormal:          1.0,
	RegimeElevated:        0.8,
	RegimeHigh:            0.6,
	RegimeCrisis:          0.5,
	RegimeExtreme:         0.5,
	RegimeLiquidityStress: 0.7,
}

func adjustDelta(base int, regime VolRegime) int {
	factor, ok := deltaAdjustments[regime]
	if !ok {
		factor = 1.0
	}
	adj := int(math.Round(float64(base) * factor))
	if adj < 1 {
		adj = 1
	}
	return adj
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Selector runs the gate -> objective -> score -> parameterize -> rank
// pipeline over the strategy catalog.
type Selector struct {
	universe *Universe
	log      zerolog.Logger
}

// NewSelector creates a strategy selector over the given catalog.
func NewSelector(universe *Universe, log zerolog.Logger) *Selector {
	return &Selector{
		universe: universe,
		log:      log.With().Str("component", "selector").Logger(),
	}
}

// Select produces up to three ranked candidates, or a fallback verdict when
// nothing passes, conviction is low, or the regime read is uncertain.
func (s *Selector) Select(regime Regime, in MarketInputs, objective string) StrategyRecommendation {
	var candidates []StrategyCandidate

	for _, tpl := range s.universe.List() {
		gates := s.checkGates(tpl, regime, in)
		if !allPassed(gates) {
			continue
		}
		if !matchesObjective(tpl, objective) {
			continue
		}
		candidates = append(candidates, StrategyCandidate{
			Name:     tpl.Name,
			Template: tpl,
			Scores:   scoreTemplate(tpl, regime, in),
			Params:   parameterize(tpl, regime, in),
			Gates:    gates,
		})
	}

	// Stable sort keeps catalog order among equal totals.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Scores.Total > candidates[j].Scores.Total
	})
	top := candidates
	if len(top) > 3 {
		top = top[:3]
	}

	now := time.Now().UTC()
	if len(top) == 0 {
		s.log.Info().Str("objective", objective).Str("regime", string(regime.Regime)).Msg("no strategy passed gates")
		return StrategyRecommendation{
			Recommendation: RecommendationNoTrade,
			Regime:         regime,
			Note:           "No strategy passes all filters in current regime",
			Timestamp:      now,
		}
	}

	if top[0].Scores.Total < 5.0 {
		return StrategyRecommendation{
			Recommendation: RecommendationLowConviction,
			Strategies:     top,
			Regime:         regime,
			Note:           "Reduce size by 50% or wait for better setup",
			Timestamp:      now,
		}
	}

	if regime.Confidence == ConfidenceLow {
		var defined []StrategyCandidate
		for _, c := range top {
			if c.Template.Legs >= 2 {
				defined = append(defined, c)
			}
		}
		if len(defined) == 0 {
			return StrategyRecommendation{
				Recommendation: RecommendationRegimeUncertain,
				Regime:         regime,
				Note:           "Mixed signals; no defined-risk strategies available. WAIT.",
				Timestamp:      now,
			}
		}
		return StrategyRecommendation{
			Recommendation: RecommendationTradeCautious,
			Strategies:     defined,
			Regime:         regime,
			Note:           "Low confidence regime - defined risk only, 50% size",
			Timestamp:      now,
		}
	}

	return StrategyRecommendation{
		Recommendation: RecommendationTrade,
		Strategies:     top,
		Regime:         regime,
		Timestamp:      now,
	}
}

func allPassed(gates []GateCheck) bool {
	for _, g := range gates {
		if !g.Passed {
			return false
		}
	}
	return true
}

// checkGates applies entry gates G1-G7. Conditional gates are only recorded
// when applicable, so the gate list documents what was actually checked.
func (s *Selector) checkGates(tpl StrategyTemplate, regime Regime, in MarketInputs) []GateCheck {
	var gates []GateCheck

	// G1: IV rank floor for premium selling.
	if tpl.Family == FamilyShortPremium {
		passed := in.Vol.VIXPercentile1Y >= 25
		gates = append(gates, gate("G1_iv_rank", passed, "IV rank below 25th pctile - insufficient premium"))
	}

	// G2: event avoidance.
	if tpl.EventBlock && regime.EventActive {
		blocked := false
		ev := in.Events
		switch regime.EventType {
		case EventFOMC, EventCPI, EventNFP:
			if min3(ev.DaysToFOMC, ev.DaysToCPI, ev.DaysToNFP) <= 10 {
				blocked = true
			}
		case EventEarnings:
			if ev.DaysToEarnings <= 5 {
				blocked = true
			}
		}
		gates = append(gates, gate("G2_event_avoidance", !blocked,
			fmt.Sprintf("Event (%s) within blocking window", regime.EventType)))
	}

	// G3: liquidity.
	gates = append(gates, gate("G3_liquidity", in.Liquidity.SPXBidAsk <= 0.30,
		"Bid-ask > 30% of mid - abort entry"))

	// G4: theta/gamma needs live Greeks; passes here, enforced at execution.
	if tpl.Family == FamilyShortPremium {
		gates = append(gates, GateCheck{
			GateName: "G4_theta_gamma",
			Passed:   true,
			Reason:   "Theta/gamma check deferred to execution",
		})
	}

	// G5: regime compatibility.
	regimeName := string(regime.Regime)
	var compatible bool
	if contains(tpl.RegimeAllowed, "ALL") {
		compatible = !contains(tpl.RegimeExcluded, regimeName)
	} else {
		compatible = contains(tpl.RegimeAllowed, regimeName) && !contains(tpl.RegimeExcluded, regimeName)
	}
	gates = append(gates, gate("G5_regime_compat", compatible,
		fmt.Sprintf("Strategy not allowed in %s regime", regimeName)))

	// G6: no naked short vol while the vol surface is unstable.
	if regime.VolUnstable && tpl.Family == FamilyShortPremium {
		gates = append(gates, gate("G6_vvix_stability", tpl.Legs >= 2,
			"VVIX > 22 - no naked short vol"))
	}

	// G7: per-template IV rank and VIX constraints.
	if tpl.IVRankMin != nil {
		passed := in.Vol.VIXPercentile1Y >= float64(*tpl.IVRankMin)
		gates = append(gates, gate("G7_iv_rank_min", passed,
			fmt.Sprintf("IV rank %.0f below strategy min %d", in.Vol.VIXPercentile1Y, *tpl.IVRankMin)))
	}
	if tpl.IVRankMax != nil {
		passed := in.Vol.VIXPercentile1Y <= float64(*tpl.IVRankMax)
		gates = append(gates, gate("G7_iv_rank_max", passed,
			fmt.Sprintf("IV rank %.0f above strategy max %d", in.Vol.VIXPercentile1Y, *tpl.IVRankMax)))
	}
	if tpl.VIXMax != nil {
		passed := in.Vol.VIX <= *tpl.VIXMax
		gates = append(gates, gate("G7_vix_max", passed,
			fmt.Sprintf("VIX %.1f above strategy max %g", in.Vol.VIX, *tpl.VIXMax)))
	}

	return gates
}

func gate(name string, passed bool, failReason string) GateCheck {
	g := GateCheck{GateName: name, Passed: passed}
	if !passed {
		g.Reason = failReason
	}
	return g
}

// matchesObjective maps the requested objective bucket onto template
// families and flags. Unknown objectives fall back to "all".
func matchesObjective(tpl StrategyTemplate, objective string) bool {
	switch objective {
	case "income":
		return tpl.Family == FamilyShortPremium
	case "directional":
		return tpl.Objective == ObjectiveDirectionalBullish ||
			tpl.Objective == ObjectiveDirectionalBearish ||
			tpl.Objective == ObjectiveSpotRecovery
	case "hedging":
		return tpl.Family == FamilyHedging
	case "event":
		return tpl.EventRequired
	case "relative_value":
		return tpl.Family == FamilyRelativeValue
	case "tail":
		return tpl.Family == FamilyTailTrading
	default:
		return true
	}
}

// scoreTemplate computes the six-dimension weighted score, each dimension in
// [0,10] and the total rounded to 2 decimals.
func scoreTemplate(tpl StrategyTemplate, regime Regime, in MarketInputs) StrategyScore {
	// Edge (25%): premium sellers want IV rich vs realized; buyers want it cheap.
	ivRankScore := in.Vol.VIXPercentile1Y / 10.0
	var edge float64
	if tpl.Family == FamilyShortPremium {
		ivrvBonus := math.Min(math.Max(in.Vol.IVRVSpread, 0), 3.0)
		edge = math.Min(ivRankScore+ivrvBonus, 10.0)
	} else {
		edge = math.Max(10.0-ivRankScore, 0.0)
	}

	// Carry vs convexity fit (20%).
	var carryFit float64
	switch tpl.Objective {
	case ObjectiveIncome, ObjectiveCarryWithProtection:
		carryFit = 8.0
		if regime.Regime == RegimeElevated || regime.Regime == RegimeHigh {
			carryFit = 6.0
		}
	case ObjectiveTailHedge, ObjectiveSystematicTail, ObjectiveEventVol:
		carryFit = 5.0
		if in.Vol.VIXPercentile1Y < 30 {
			carryFit = 8.0
		}
	default:
		carryFit = 5.0
	}

	// Tail risk exposure (20%, 10 = least risk).
	var tail float64
	switch {
	case tpl.Legs >= 4:
		tail = 9.0
	case tpl.Legs >= 2:
		tail = 7.0
	case tpl.Legs == 1:
		if tpl.Family == FamilyShortPremium {
			tail = 3.0
			if regime.Regime == RegimeElevated {
				tail = 2.0
			}
		} else {
			tail = 8.0
		}
	default:
		tail = 5.0
	}

	// Robustness (15%): historical win rate and Sharpe, with priors for
	// templates lacking backtest statistics.
	winRate, sharpe := 0.55, 0.50
	if tpl.WinRate != nil {
		winRate = *tpl.WinRate
	}
	if tpl.SharpeHist != nil {
		sharpe = *tpl.SharpeHist
	}
	robust := math.Min((winRate*10)*0.6+(sharpe*5)*0.4, 10.0)

	// Liquidity (10%).
	var liquid float64
	switch baPct := in.Liquidity.SPXBidAsk * 100; {
	case baPct < 5:
		liquid = 10.0
	case baPct < 10:
		liquid = 8.0
	case baPct < 20:
		liquid = 5.0
	case baPct < 30:
		liquid = 3.0
	}

	// Complexity penalty (10%, 10 = simplest).
	var complexity float64
	switch tpl.Legs {
	case 1:
		complexity = 10.0
	case 2:
		complexity = 8.0
	case 3:
		complexity = 5.0
	default:
		complexity = 3.0
	}

	total := 0.25*edge + 0.20*carryFit + 0.20*tail + 0.15*robust + 0.10*liquid + 0.10*complexity

	return StrategyScore{
		Total:      round2(total),
		Edge:       round2(edge),
		CarryFit:   round2(carryFit),
		TailRisk:   round2(tail),
		Robustness: round2(robust),
		Liquidity:  round2(liquid),
		Complexity: round2(complexity),
	}
}

// parameterize resolves execution parameters: regime-adjusted deltas,
// event-aware DTE, and the combined size multiplier.
func parameterize(tpl StrategyTemplate, regime Regime, in MarketInputs) StrategyParams {
	p := StrategyParams{
		ProfitTarget: tpl.ProfitTarget,
		StopLoss:     tpl.StopLoss,
		RollDTE:      tpl.RollDTE,
	}

	if len(tpl.BaseDeltas) > 0 {
		p.Deltas = make(map[string]int, len(tpl.BaseDeltas))
		for leg, d := range tpl.BaseDeltas {
			p.Deltas[leg] = adjustDelta(d, regime.Regime)
		}
	} else if tpl.BaseDelta > 0 {
		d := adjustDelta(tpl.BaseDelta, regime.Regime)
		p.Delta = &d
	}

	dte := tpl.BaseDTE
	if tpl.BaseDTESymbol != "" {
		// Symbolic event-linked tenors resolve to the standard cycle.
		dte = 37
	} else if regime.EventActive && !tpl.EventRequired {
		ev := in.Events
		eventDays := min3(ev.DaysToFOMC, ev.DaysToCPI, ev.DaysToNFP)
		if ev.DaysToEarnings < eventDays {
			eventDays = ev.DaysToEarnings
		}
		if eventDays+10 > dte {
			dte = eventDays + 10
		}
	}
	p.DTE = dte

	sell, buy := sizeMultiplier(regime.Regime)
	mult := buy
	if tpl.Family == FamilyShortPremium {
		mult = sell
	}
	mult *= vvixAdjustment(in.Vol.VVIX)
	if regime.Confidence == ConfidenceLow {
		mult *= 0.50
	}
	p.SizeMultiplier = round2(mult)

	return p
}

func contains(vals []string, v string) bool {
	for _, s := range vals {
		if s == v {
			return true
		}
	}
	return false
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
