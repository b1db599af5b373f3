package engine

// PositionView is the caller-supplied snapshot of an open position consumed
// by the adjustment and exit rules. All fields are optional: a missing
// numeric field defaults to zero (or the documented default) and the
// corresponding rule simply does not trigger, so partial data degrades rule
// coverage rather than the whole evaluation.
type PositionView struct {
	ID       string         `json:"id,omitempty"`
	Strategy string         `json:"strategy,omitempty"`
	Family   StrategyFamily `json:"family,omitempty"`

	// DTE defaults to 999 (far from expiry) when absent.
	DTE       *int `json:"dte,omitempty"`
	IsZeroDTE bool `json:"is_0dte,omitempty"`

	CurrentDelta float64 `json:"current_delta,omitempty"`
	// InitialDelta defaults to 15 when absent.
	InitialDelta      *float64 `json:"initial_delta,omitempty"`
	TestedBreachStd   float64  `json:"tested_breach_std,omitempty"`
	PortfolioDeltaPct float64  `json:"portfolio_delta_pct,omitempty"`

	IsCoveredCall bool `json:"is_covered_call,omitempty"`
	IsDispersion  bool `json:"is_dispersion,omitempty"`

	UnrealizedPnL   float64 `json:"unrealized_pnl,omitempty"`
	MaxProfit       float64 `json:"max_profit,omitempty"`
	PremiumPaid     float64 `json:"premium_paid,omitempty"`
	PremiumReceived float64 `json:"premium_received,omitempty"`
	DailyPnL        float64 `json:"daily_pnl,omitempty"`

	RegimeAllowed []string `json:"regime_allowed,omitempty"`
}

func (p PositionView) dte() int {
	if p.DTE == nil {
		return 999
	}
	return *p.DTE
}

func (p PositionView) initialDelta() float64 {
	if p.InitialDelta == nil {
		return 15
	}
	return *p.InitialDelta
}
