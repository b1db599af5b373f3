package engine

import (
	"fmt"
	"math"
)

// defaultPremiumBudgetPct allocates 0.5% of NAV per trade in premium. Fixed
// dollar premium, not fixed notional, so size naturally shrinks when vol is
// high.
const defaultPremiumBudgetPct = 0.005

// sizeMultiplier returns the (sell-premium, buy-premium) multipliers for a
// regime. Unknown regimes get the conservative default.
func sizeMultiplier(regime VolRegime) (sell, buy float64) {
	switch regime {
	case RegimeVeryLow:
		return 1.00, 0.50
	case RegimeLow:
		return 1.00, 0.75
	case RegimeNormal:
		return 0.75, 1.00
	case RegimeElevated:
		return 0.50, 1.00
	case RegimeHigh:
		return 0.25, 1.00
	case RegimeExtreme, RegimeCrisis:
		return 0.00, 1.00
	case RegimeLiquidityStress:
		return 0.25, 0.75
	}
	return 0.50, 0.75
}

// vvixAdjustment scales size down as vol-of-vol rises; VVIX > 22 means the
// surface is unstable [GS Vol Vitals].
func vvixAdjustment(vvix float64) float64 {
	switch {
	case vvix <= 18:
		return 1.00
	case vvix <= 22:
		return 0.85
	case vvix <= 28:
		return 0.65
	}
	return 0.50
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

// SizingRequest carries the portfolio snapshot for one sizing calculation.
// BudgetPct of zero means the standard 0.5% premium budget.
type SizingRequest struct {
	NAV            float64 `json:"nav"`
	SellPremium    bool    `json:"sell_premium"`
	BudgetPct      float64 `json:"budget_pct,omitempty"`
	PortfolioVega  float64 `json:"portfolio_vega,omitempty"`
	PortfolioDelta float64 `json:"portfolio_delta,omitempty"`
	DailyPnL       float64 `json:"daily_pnl,omitempty"`
	WeeklyPnL      float64 `json:"weekly_pnl,omitempty"`
}

// Sizer computes premium budgets from regime, VVIX, and confidence, and
// reports portfolio risk-limit breaches.
type Sizer struct {
	limits RiskLimits
}

// NewSizer creates a sizer with the given limits.
func NewSizer(limits RiskLimits) *Sizer {
	return &Sizer{limits: limits}
}

// Limits returns the standing risk limits.
func (s *Sizer) Limits() RiskLimits { return s.limits }

// Calculate applies the full multiplier chain and limit checks.
func (s *Sizer) Calculate(regime Regime, in MarketInputs, req SizingRequest) PositionSizeResult {
	sell, buy := sizeMultiplier(regime.Regime)
	vvixAdj := vvixAdjustment(in.Vol.VVIX)
	confAdj := 1.0
	if regime.Confidence == ConfidenceLow {
		confAdj = 0.50
	}

	finalSell := round4(sell * vvixAdj * confAdj)
	finalBuy := round4(buy * vvixAdj * confAdj)

	mult := finalBuy
	if req.SellPremium {
		mult = finalSell
	}

	budgetPct := req.BudgetPct
	if budgetPct == 0 {
		budgetPct = defaultPremiumBudgetPct
	}
	budget := req.NAV * budgetPct * mult

	breaches := s.checkLimits(req)

	return PositionSizeResult{
		PremiumBudget:  round2(budget),
		SizeMultiplier: mult,
		MultiplierBreakdown: SizeMultipliers{
			SellPremium:          sell,
			BuyPremium:           buy,
			VVIXAdjustment:       vvixAdj,
			ConfidenceAdjustment: confAdj,
			FinalSell:            finalSell,
			FinalBuy:             finalBuy,
		},
		RiskLimitBreaches: breaches,
		WithinLimits:      len(breaches) == 0,
	}
}

func (s *Sizer) checkLimits(req SizingRequest) []string {
	breaches := []string{}
	nav := req.NAV
	if nav <= 0 {
		return breaches
	}
	if math.Abs(req.PortfolioVega/nav) > s.limits.MaxPortfolioVega {
		breaches = append(breaches, fmt.Sprintf(
			"Portfolio vega %.4f exceeds limit %g", req.PortfolioVega/nav, s.limits.MaxPortfolioVega))
	}
	if math.Abs(req.PortfolioDelta/nav) > s.limits.MaxPortfolioDelta {
		breaches = append(breaches, fmt.Sprintf(
			"Portfolio delta %.2f%% exceeds limit %.0f%%", req.PortfolioDelta/nav*100, s.limits.MaxPortfolioDelta*100))
	}
	if req.DailyPnL < 0 && math.Abs(req.DailyPnL/nav) > s.limits.DailyPnLStop {
		breaches = append(breaches, fmt.Sprintf(
			"Daily P&L loss %.2f%% exceeds limit %.1f%%", req.DailyPnL/nav*100, s.limits.DailyPnLStop*100))
	}
	if req.WeeklyPnL < 0 && math.Abs(req.WeeklyPnL/nav) > s.limits.WeeklyPnLStop {
		breaches = append(breaches, fmt.Sprintf(
			"Weekly P&L loss %.2f%% exceeds limit %.1f%%", req.WeeklyPnL/nav*100, s.limits.WeeklyPnLStop*100))
	}
	return breaches
}
