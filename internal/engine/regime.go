package engine

import (
	"time"

	"github.com/rs/zerolog"
)

// normalEminiDepth is the baseline E-mini top-of-book depth in contracts
// used to detect liquidity withdrawal.
const normalEminiDepth = 1500.0

// Classifier assigns a volatility regime to a market snapshot. It is
// stateless; regime-transition tracking lives in the Engine.
type Classifier struct {
	log zerolog.Logger
}

// NewClassifier creates a regime classifier.
func NewClassifier(log zerolog.Logger) *Classifier {
	return &Classifier{
		log: log.With().Str("component", "regime").Logger(),
	}
}

// Classify evaluates categories in strict priority order: crisis and
// liquidity stress short-circuit; the event window, vol level, trend and
// VVIX instability are combined on the normal path.
func (c *Classifier) Classify(in MarketInputs) Regime {
	trend := classifyTrend(in.Spot)

	if n := crisisSignals(in); n >= 3 {
		conf := ConfidenceMedium
		if n >= 5 {
			conf = ConfidenceHigh
		}
		c.log.Warn().Int("signals", n).Float64("vix", in.Vol.VIX).Msg("crisis regime")
		return Regime{
			Regime:            RegimeCrisis,
			Trend:             trend,
			EventType:         EventNone,
			Confidence:        conf,
			ConfirmingSignals: n,
			Actions:           crisisActions(),
			Timestamp:         time.Now().UTC(),
		}
	}

	if n := liquiditySignals(in); n >= 2 {
		c.log.Warn().Int("signals", n).Msg("liquidity stress regime")
		return Regime{
			Regime:            RegimeLiquidityStress,
			Trend:             trend,
			EventType:         EventNone,
			Confidence:        ConfidenceMedium,
			ConfirmingSignals: n,
			Actions:           liquidityStressActions(),
			Timestamp:         time.Now().UTC(),
		}
	}

	eventActive, eventType := detectEvent(in.Events)
	multiEvent := in.Events.EventsNext5D >= 2
	level := volLevel(in.Vol.VIX)
	volUnstable := in.Vol.VVIX > 22

	confirming := confirmingSignals(level, in)
	conf := ConfidenceLow
	switch {
	case confirming >= 3:
		conf = ConfidenceHigh
	case confirming >= 2:
		conf = ConfidenceMedium
	}

	actions := append([]string{}, levelActions(level)...)
	if eventActive {
		actions = append(actions, "Event window active - use event playbook")
	}
	if volUnstable {
		actions = append(actions, "VVIX > 22: vol surface unstable, reduce sizes 25-50%")
	}
	switch trend {
	case TrendDowntrend, TrendStrongDowntrend:
		actions = append(actions, "Downtrend: favor bearish strategies, tighten upside")
	case TrendUptrend, TrendStrongUptrend:
		actions = append(actions, "Uptrend: favor bullish strategies, maintain hedges")
	}

	c.log.Debug().
		Str("regime", string(level)).
		Str("trend", string(trend)).
		Str("confidence", string(conf)).
		Int("confirming", confirming).
		Msg("classified regime")

	return Regime{
		Regime:            level,
		Trend:             trend,
		EventActive:       eventActive,
		EventType:         eventType,
		MultiEvent:        multiEvent,
		VolUnstable:       volUnstable,
		Confidence:        conf,
		ConfirmingSignals: confirming,
		Actions:           actions,
		Timestamp:         time.Now().UTC(),
	}
}

// crisisSignals totals the weighted crisis indicators.
func crisisSignals(in MarketInputs) int {
	n := 0
	if in.Vol.VIX > 30 {
		n += 2
	}
	if in.Vol.VIX1DChange > 5 {
		n += 2
	}
	if in.Vol.VIX > 35 {
		n++
	}
	if in.Credit.HYOAS20DChange > 50 {
		n++
	}
	if in.TermStructure.TS1M3M < 0 {
		n++
	}
	if in.Liquidity.BidAskWidening > 2.0 {
		n++
	}
	return n
}

// liquiditySignals counts independent liquidity-withdrawal indicators.
func liquiditySignals(in MarketInputs) int {
	n := 0
	if in.Liquidity.BidAskWidening > 1.5 {
		n++
	}
	if in.Liquidity.SPXBidAsk > in.Liquidity.SPXBidAsk20DMA*1.3 {
		n++
	}
	if in.Liquidity.EminiDepth < normalEminiDepth*0.6 {
		n++
	}
	if in.Credit.HYOAS20DChange > 30 {
		n++
	}
	return n
}

// detectEvent returns the nearest event window, FOMC taking priority.
func detectEvent(ev EventCalendarData) (bool, EventType) {
	switch {
	case ev.DaysToFOMC <= 5:
		return true, EventFOMC
	case ev.DaysToCPI <= 3:
		return true, EventCPI
	case ev.DaysToNFP <= 3:
		return true, EventNFP
	case ev.DaysToEarnings <= 3:
		return true, EventEarnings
	}
	return false, EventNone
}

// volLevel bands the VIX spot level.
func volLevel(vix float64) VolRegime {
	switch {
	case vix < 12:
		return RegimeVeryLow
	case vix < 15:
		return RegimeLow
	case vix < 20:
		return RegimeNormal
	case vix < 25:
		return RegimeElevated
	case vix <= 30:
		return RegimeHigh
	}
	return RegimeExtreme
}

// classifyTrend places SPX against its 50- and 200-day moving averages,
// with breadth promoting the trend to strong.
func classifyTrend(spot SpotData) Trend {
	above50 := spot.SPXLevel > spot.SPXSMA50
	above200 := spot.SPXLevel > spot.SPXSMA200
	switch {
	case above50 && above200:
		if spot.BreadthPctAbove50DMA > 60 {
			return TrendStrongUptrend
		}
		return TrendUptrend
	case !above50 && !above200:
		if spot.BreadthPctAbove50DMA < 40 {
			return TrendStrongDowntrend
		}
		return TrendDowntrend
	}
	return TrendRangeBound
}

// confirmingSignals counts secondary signals that agree with the assigned
// vol level: IV-RV spread, put skew, term-structure sign and HY-OAS drift.
func confirmingSignals(level VolRegime, in MarketInputs) int {
	n := 0

	lowish := level == RegimeLow || level == RegimeVeryLow
	stressed := level == RegimeElevated || level == RegimeHigh
	calm := level == RegimeLow || level == RegimeNormal

	if lowish && in.Vol.IVRVSpread < 2 {
		n++
	} else if stressed && in.Vol.IVRVSpread > 3 {
		n++
	}

	if stressed && in.Skew.PutSkew25D1M > 6 {
		n++
	} else if lowish && in.Skew.PutSkew25D1M < 4 {
		n++
	}

	if calm && in.TermStructure.TS1M3M > 0 {
		n++
	} else if level == RegimeHigh && in.TermStructure.TS1M3M < 1 {
		n++
	}

	if calm && in.Credit.HYOAS20DChange < 20 {
		n++
	} else if stressed && in.Credit.HYOAS20DChange > 30 {
		n++
	}

	return n
}

// levelActions is the advisory checklist for each vol level.
func levelActions(level VolRegime) []string {
	switch level {
	case RegimeVeryLow:
		return []string{
			"Maximize premium selling at full size",
			"Cheap convexity available - consider tail hedges",
		}
	case RegimeLow:
		return []string{
			"Full premium selling allowed",
			"Begin building convexity positions",
		}
	case RegimeNormal:
		return []string{"Standard position sizes, balanced approach"}
	case RegimeElevated:
		return []string{
			"Reduce selling to 50% size; defined-risk only for new trades",
			"Review all naked positions for rolling/closing",
		}
	case RegimeHigh:
		return []string{
			"Only defined-risk spreads at 25% size",
			"Consider long convexity positions",
		}
	case RegimeExtreme:
		return []string{
			"No premium selling",
			"Buy convexity only; activate crisis protocol",
		}
	}
	return nil
}

// crisisActions is the fixed crisis checklist.
func crisisActions() []string {
	return []string{
		"CLOSE all naked short vol positions immediately",
		"CLOSE all positions if VIX > 35 [GS Vol Vitals]",
		"ONLY defined-risk spreads allowed (5-10 delta, 14-21 DTE)",
		"Position size: 25% of baseline or FLAT",
		"Activate tail hedges if not already on",
		"Monitor for VIX peak (avg duration 2-4 weeks, avg peak ~45)",
	}
}

// liquidityStressActions is the fixed liquidity-withdrawal checklist.
func liquidityStressActions() []string {
	return []string{
		"REDUCE all positions by 25-50%",
		"NO new naked short vol positions",
		"Tighten stops on existing positions",
		"Begin adding tail hedges (VIX call spreads)",
		"Monitor: if persists >10 days, move to crisis protocol",
	}
}
