package engine

import (
	"fmt"

	"github.com/voltlab/volguard/internal/domain"
)

var fomcPlaybook = EventPlaybook{
	EventType: EventFOMC,
	Phases: []PlaybookPhaseDetail{
		{
			Phase:      PhasePreEvent,
			Timing:     "T-5 to T-3",
			IVBehavior: "Front-end IV expansion begins [GS Trading Events 15yr]",
			Strategy:   "Buy calendar spreads (sell front-week, buy front+30 DTE)",
			Sizing:     "Standard",
		},
		{
			Phase:      PhaseEventEve,
			Timing:     "T-1",
			IVBehavior: "IV peaks. Premium richest.",
			Strategy:   "Initiate short front-end vol (straddle sell or calendar) if comfortable",
			Sizing:     "50% of standard (gap risk)",
		},
		{
			Phase:      PhasePostEvent,
			Timing:     "T+0 to T+1",
			IVBehavior: "30-60% of front-end excess IV evaporates within 24hrs [GS Trading Events]",
			Strategy:   "Close calendars. If directional view, enter cheap debit spreads.",
			Sizing:     "Standard (post-crush, vol cheap)",
		},
	},
	Notes: []string{
		"FOMC produces largest implied moves of all macro events [GS 15yr]",
		"Multi-event weeks (FOMC + CPI): IV premium rises ~40% above baseline",
		"Fed rate decisions show most persistent significance [GS Trading Events]",
	},
}

var earningsPlaybook = EventPlaybook{
	EventType: EventEarnings,
	Phases: []PlaybookPhaseDetail{
		{
			Phase:      PhasePreEvent,
			Timing:     "T-5 to T-3",
			IVBehavior: "20-40% above normal IV [JPM Earnings & Options]",
			Strategy: "VIX-conditional: <20 = calendars; 20-35 = iron condors at implied move; " +
				"35-45 = call buying (+37% avg ROP); >45 = short strangles (+8% ROP)",
			Sizing: "Standard",
		},
		{
			Phase:      PhaseEventEve,
			Timing:     "T-1",
			IVBehavior: "Peak IV expansion",
			Strategy:   "Position per VIX-conditional matrix above; no adjustments day-of",
			Sizing:     "50% if first earnings play",
		},
		{
			Phase:      PhasePostEvent,
			Timing:     "T+0 to T+1",
			IVBehavior: "IV crush of 30-60%",
			Strategy:   "Close all event-specific positions within 24 hours post-report",
			Sizing:     "N/A - closing only",
		},
	},
	KeyRules: []string{
		"Avg S&P stock moves +/-4.3% on earnings (18yr avg) [GS Earnings 18yr]",
		"Options market prices +/-5.6% (systematically overestimates) [GS Earnings 18yr]",
		"Sticker shock: stocks >$100 have underpriced earnings moves [GS Earnings 18yr]",
		"Call buying profitable 15/15 years, +13% avg ROP [GS Earnings Vol]",
		"Tech implied moves 1.5-2.0x realized [JPM Earnings & Options]",
		"Financials implied ~1.1-1.2x realized [JPM Earnings & Options]",
	},
}

var cpiPlaybook = EventPlaybook{
	EventType: EventCPI,
	Phases: []PlaybookPhaseDetail{
		{
			Phase:      PhasePreEvent,
			Timing:     "T-3 to T-1",
			IVBehavior: "Front-end IV expansion, less than FOMC [GS Trading Events]",
			Strategy:   "Calendar spreads or short front-end straddles",
			Sizing:     "75% of standard",
		},
		{
			Phase:      PhaseEventEve,
			Timing:     "T-1",
			IVBehavior: "IV peaks pre-release",
			Strategy:   "Short front-end vol if IV expansion > 20% above normal",
			Sizing:     "50% of standard",
		},
		{
			Phase:      PhasePostEvent,
			Timing:     "T+0",
			IVBehavior: "Quick IV crush, often completes within hours",
			Strategy:   "Close event trades. Directional entries if view formed.",
			Sizing:     "Standard post-event",
		},
	},
	Notes: []string{
		"CPI second-most impactful after FOMC [GS Trading Events 15yr]",
		"Multi-event weeks add ~40% IV premium",
	},
}

var nfpPlaybook = EventPlaybook{
	EventType: EventNFP,
	Phases: []PlaybookPhaseDetail{
		{
			Phase:      PhasePreEvent,
			Timing:     "T-3 to T-1",
			IVBehavior: "Moderate front-end IV expansion [GS Trading Events]",
			Strategy:   "Calendar spreads if IV premium > 15% above normal",
			Sizing:     "75% of standard",
		},
		{
			Phase:      PhaseEventEve,
			Timing:     "T-1 (Thursday before)",
			IVBehavior: "IV plateaus",
			Strategy:   "Short front-end straddle if premium rich, or wait",
			Sizing:     "50% of standard",
		},
		{
			Phase:      PhasePostEvent,
			Timing:     "T+0 (Friday)",
			IVBehavior: "IV normalizes",
			Strategy:   "Close event positions",
			Sizing:     "Standard post-event",
		},
	},
	Notes: []string{
		"NFP less impactful than FOMC/CPI but still material [GS Trading Events]",
		"Often coincides with Friday 0DTE elevated premium",
	},
}

var zeroDTEPlaybook = ZeroDTEPlaybook{
	Characteristics: map[string]any{
		"theta":               "100% decays in single day [JPM Same-day Options]",
		"gamma":               "Extreme - binary-like instruments",
		"sizing":              "0.1-0.25% of NAV per trade (max)",
		"ndx_vol_correlation": 0.88,
		"ndx_market_share":    "~60% of Nasdaq 100 option volume [JPM]",
	},
	Days: []ZeroDTEDayInfo{
		{Day: Monday, Premium: "HIGH (3.2-4.5%)", Bias: "SELL straddles at 10am", GammaImbalance: "-175 to -125bps"},
		{Day: Tuesday, Premium: "HIGH", Bias: "SELL straddles at 10am", GammaImbalance: "-125 to -100bps"},
		{Day: Wednesday, Premium: "LOW (2.2-2.5%)", Bias: "AVOID or buy premium", GammaImbalance: "-50bps"},
		{Day: Thursday, Premium: "LOW", Bias: "Selective selling only", GammaImbalance: "-75bps"},
		{Day: Friday, Premium: "ELEVATED", Bias: "SELL if no weekend event risk", GammaImbalance: "-150bps"},
	},
	EntryRule:  "Theta must exceed 2x expected intraday move [JPM P&L Attribution]",
	EventBlock: "No 0DTE on FOMC/CPI/NFP days [JPM Same-day Options]",
}

var playbooks = map[EventType]EventPlaybook{
	EventFOMC:     fomcPlaybook,
	EventEarnings: earningsPlaybook,
	EventCPI:      cpiPlaybook,
	EventNFP:      nfpPlaybook,
}

// PlaybookFor returns the playbook for a macro event type.
func PlaybookFor(et EventType) (EventPlaybook, error) {
	pb, ok := playbooks[et]
	if !ok {
		return EventPlaybook{}, fmt.Errorf("%w: no playbook for event type %q (available: FOMC, EARNINGS, CPI, NFP)",
			domain.ErrUnknownName, et)
	}
	return pb, nil
}

// ZeroDTE returns the same-day expiration playbook.
func ZeroDTE() ZeroDTEPlaybook { return zeroDTEPlaybook }

// ZeroDTEDay returns the 0DTE profile for one weekday.
func ZeroDTEDay(day DayOfWeek) (ZeroDTEDayInfo, error) {
	for _, d := range zeroDTEPlaybook.Days {
		if d.Day == day {
			return d, nil
		}
	}
	return ZeroDTEDayInfo{}, fmt.Errorf("%w: no 0DTE data for %q (available: Monday-Friday)",
		domain.ErrUnknownName, day)
}

// ParseEventType validates an event type string.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventFOMC, EventCPI, EventNFP, EventEarnings, EventNone:
		return EventType(s), nil
	}
	return "", fmt.Errorf("%w: event type %q (available: FOMC, CPI, NFP, EARNINGS, NONE)",
		domain.ErrUnknownName, s)
}

// ParseDayOfWeek validates a trading weekday string.
func ParseDayOfWeek(s string) (DayOfWeek, error) {
	switch DayOfWeek(s) {
	case Monday, Tuesday, Wednesday, Thursday, Friday:
		return DayOfWeek(s), nil
	}
	return "", fmt.Errorf("%w: day %q (available: Monday, Tuesday, Wednesday, Thursday, Friday)",
		domain.ErrUnknownName, s)
}
