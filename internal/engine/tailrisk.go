package engine

import (
	"time"

	"github.com/rs/zerolog"
)

// standingHedgeAllocation is the permanent tail-hedge book: 2% of NAV per
// year split across three instruments.
var standingHedgeAllocation = HedgeAllocation{
	AnnualBudgetPct: 0.02,
	Instruments: []HedgeInstrument{
		{
			Name:       "VIX Call Spreads",
			Allocation: 0.60,
			Structure:  "buy VIX call at spot+4, sell at spot+12",
			Tenor:      "30-60 DTE, roll monthly",
			Rationale:  "3-5x convexity vs SPX puts in true crises [GS Hedging Toolkit]",
		},
		{
			Name:       "SPX Put Spreads",
			Allocation: 0.25,
			Structure:  "buy 5% OTM put, sell 15% OTM put",
			Tenor:      "90 DTE, roll quarterly",
			Rationale:  "Better for moderate corrections (5-10%), Sharpe 0.88 [GS Asymmetric 27yr]",
		},
		{
			Name:       "Scheduled OTM Puts",
			Allocation: 0.15,
			Structure:  "buy 5-10 delta SPX puts monthly",
			Tenor:      "Monthly schedule",
			Rationale:  "DCA into convexity > discretionary [GS Asymmetric 27yr]",
		},
	},
}

// crisisProtocolActions is the fixed crisis-protocol checklist, distinct from
// the classifier's crisis regime actions.
var crisisProtocolActions = []string{
	"Close ALL naked short vol immediately",
	"Reduce defined-risk short vol by 75%",
	"Deploy remaining hedge budget into convexity",
	"Cash position to minimum 40% of NAV",
	"Monitor for VIX peak (avg 2-4 weeks, avg peak ~45) [GS Vol Vitals]",
	"Do NOT sell vol until VIX establishes downtrend from peak",
}

// TailRiskManager evaluates the hedge book, early-warning signals, the
// crisis protocol, and the three-pillar tail trading signal.
type TailRiskManager struct {
	log zerolog.Logger
}

// NewTailRiskManager creates a tail risk manager.
func NewTailRiskManager(log zerolog.Logger) *TailRiskManager {
	return &TailRiskManager{
		log: log.With().Str("component", "tailrisk").Logger(),
	}
}

// Assess runs the full tail-risk assessment on a snapshot.
func (m *TailRiskManager) Assess(in MarketInputs) TailRiskAssessment {
	warnings := earlyWarnings(in)
	active := 0
	for _, w := range warnings {
		if w.Triggered {
			active++
		}
	}

	crisis := in.Vol.VIX > 35 || active >= 3
	var crisisActions []string
	if crisis {
		crisisActions = append([]string{}, crisisProtocolActions...)
		m.log.Warn().Float64("vix", in.Vol.VIX).Int("warnings", active).Msg("crisis protocol active")
	}

	return TailRiskAssessment{
		HedgeAllocation:      standingHedgeAllocation,
		EarlyWarnings:        warnings,
		ActiveWarningsCount:  active,
		CrisisProtocolActive: crisis,
		CrisisActions:        crisisActions,
		TailTrading:          tailSignal(in),
		Timestamp:            time.Now().UTC(),
	}
}

// earlyWarnings evaluates the four leading indicators with live readings.
func earlyWarnings(in MarketInputs) []EarlyWarningSignal {
	return []EarlyWarningSignal{
		{
			Signal:       "HY OAS widens > 50bps in 20 days",
			Action:       "Double hedge allocation",
			LeadTime:     "2-4 weeks before equity vol spike [GS Equity Vol & Economy]",
			Triggered:    in.Credit.HYOAS20DChange > 50,
			CurrentValue: fptr(in.Credit.HYOAS20DChange),
			Threshold:    fptr(50.0),
		},
		{
			Signal:       "Bid-ask spreads widen > 50% above 20d MA for > 10 days",
			Action:       "Activate crisis protocol",
			LeadTime:     "2-4 weeks [GS Rising Importance of Falling Liquidity]",
			Triggered:    in.Liquidity.BidAskWidening > 1.5,
			CurrentValue: fptr(in.Liquidity.BidAskWidening),
			Threshold:    fptr(1.5),
		},
		{
			Signal:       "Implied correlation rises above 80th pctile in 5 days",
			Action:       "Close all dispersion; review all short vol [JPM Equity Vol Strategy]",
			Triggered:    in.Correlation.CorrPctile1Y > 80,
			CurrentValue: fptr(in.Correlation.CorrPctile1Y),
			Threshold:    fptr(80.0),
		},
		{
			Signal:       "VVIX > 28 sustained for 3+ days",
			Action:       "Reduce all position sizes by 50% [GS Vol Vitals]",
			Triggered:    in.Vol.VVIX > 28,
			CurrentValue: fptr(in.Vol.VVIX),
			Threshold:    fptr(28.0),
		},
	}
}

// tailSignal checks the three-pillar tail trading signal: 1M-3M implied vol
// term structure inversion. Fewer than 80 occurrences since 2004; all three
// pillars activate together.
func tailSignal(in MarketInputs) TailTradingStatus {
	active := in.TermStructure.TS1M3M < 0
	return TailTradingStatus{
		SignalActive:      active,
		TSValue:           in.TermStructure.TS1M3M,
		DeltaPillarActive: active,
		GammaPillarActive: active,
		VegaPillarActive:  active,
	}
}
