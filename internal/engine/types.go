// Package engine implements the options-trading decision engine: regime
// classification, strategy selection and sizing, position health rules,
// tail-risk management, conflict detection, and the event playbooks and
// reference tables the selector draws on.
//
// The engine is a deterministic staged pipeline over an immutable
// MarketInputs snapshot. All stages are pure; the only engine state is the
// previous-regime slot used by the regime-change rules.
package engine

import "time"

// VolRegime is the volatility regime level.
type VolRegime string

const (
	RegimeVeryLow         VolRegime = "VERY_LOW"
	RegimeLow             VolRegime = "LOW"
	RegimeNormal          VolRegime = "NORMAL"
	RegimeElevated        VolRegime = "ELEVATED"
	RegimeHigh            VolRegime = "HIGH"
	RegimeExtreme         VolRegime = "EXTREME"
	RegimeCrisis          VolRegime = "CRISIS"
	RegimeLiquidityStress VolRegime = "LIQUIDITY_STRESS"
)

// Trend is the price trend classification.
type Trend string

const (
	TrendStrongUptrend   Trend = "STRONG_UPTREND"
	TrendUptrend         Trend = "UPTREND"
	TrendRangeBound      Trend = "RANGE_BOUND"
	TrendDowntrend       Trend = "DOWNTREND"
	TrendStrongDowntrend Trend = "STRONG_DOWNTREND"
)

// Confidence grades how well secondary signals confirm the classification.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// EventType identifies the macro event driving an event window.
type EventType string

const (
	EventFOMC     EventType = "FOMC"
	EventCPI      EventType = "CPI"
	EventNFP      EventType = "NFP"
	EventEarnings EventType = "EARNINGS"
	EventNone     EventType = "NONE"
)

// StrategyFamily groups templates by premium direction and purpose.
type StrategyFamily string

const (
	FamilyShortPremium  StrategyFamily = "short_premium"
	FamilyLongPremium   StrategyFamily = "long_premium"
	FamilyHedging       StrategyFamily = "hedging"
	FamilyTailTrading   StrategyFamily = "tail_trading"
	FamilyRelativeValue StrategyFamily = "relative_value"
)

// StrategyObjective is the purpose a template serves in a portfolio.
type StrategyObjective string

const (
	ObjectiveIncome              StrategyObjective = "income"
	ObjectiveDirectionalBullish  StrategyObjective = "directional_bullish"
	ObjectiveDirectionalBearish  StrategyObjective = "directional_bearish"
	ObjectiveEventHarvest        StrategyObjective = "event_harvest"
	ObjectiveEventVol            StrategyObjective = "event_vol"
	ObjectivePortfolioHedge      StrategyObjective = "portfolio_hedge"
	ObjectiveTailHedge           StrategyObjective = "tail_hedge"
	ObjectiveSystematicTail      StrategyObjective = "systematic_tail"
	ObjectiveSpotRecovery        StrategyObjective = "spot_recovery"
	ObjectiveRealizedVolCapture  StrategyObjective = "realized_vol_capture"
	ObjectiveVIXNormalization    StrategyObjective = "vix_normalization"
	ObjectiveCorrelationRV       StrategyObjective = "correlation_RV"
	ObjectiveCarryWithProtection StrategyObjective = "carry_with_protection"
	ObjectiveSectorMeanReversion StrategyObjective = "sector_mean_reversion"
)

// RulePriority orders rule evaluations by urgency.
type RulePriority string

const (
	PriorityCritical RulePriority = "CRITICAL"
	PriorityHigh     RulePriority = "HIGH"
	PriorityMedium   RulePriority = "MEDIUM"
	PriorityLow      RulePriority = "LOW"
)

// RecommendationType is the outer verdict of the strategy selector.
type RecommendationType string

const (
	RecommendationTrade           RecommendationType = "TRADE"
	RecommendationTradeCautious   RecommendationType = "TRADE_CAUTIOUS"
	RecommendationLowConviction   RecommendationType = "LOW_CONVICTION"
	RecommendationNoTrade         RecommendationType = "NO_TRADE"
	RecommendationRegimeUncertain RecommendationType = "REGIME_UNCERTAIN"
)

// PlaybookPhase sequences an event playbook.
type PlaybookPhase string

const (
	PhasePreEvent  PlaybookPhase = "pre_event"
	PhaseEventEve  PlaybookPhase = "event_eve"
	PhasePostEvent PlaybookPhase = "post_event"
)

// DayOfWeek names a 0DTE trading day.
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
)

// SpotData describes the underlying index level and trend context.
type SpotData struct {
	SPXLevel             float64 `json:"spx_level"`
	SPXRet1D             float64 `json:"spx_ret_1d"`
	SPXRet5D             float64 `json:"spx_ret_5d"`
	SPXRet20D            float64 `json:"spx_ret_20d"`
	SPXSMA50             float64 `json:"spx_sma_50"`
	SPXSMA200            float64 `json:"spx_sma_200"`
	BreadthPctAbove50DMA float64 `json:"breadth_pct_above_50dma"`
}

// VolData describes the volatility complex. Changes are in points, spreads
// in vol points.
type VolData struct {
	VIX             float64 `json:"vix"`
	VIX1DChange     float64 `json:"vix_1d_change"`
	VIX5DChange     float64 `json:"vix_5d_change"`
	VIXPercentile1Y float64 `json:"vix_percentile_1y"`
	VVIX            float64 `json:"vvix"`
	VIX9D           float64 `json:"vix9d"`
	IVATM1M         float64 `json:"iv_atm_1m"`
	IVATM3M         float64 `json:"iv_atm_3m"`
	IVATM6M         float64 `json:"iv_atm_6m"`
	RV10D           float64 `json:"rv_10d"`
	RV20D           float64 `json:"rv_20d"`
	RV30D           float64 `json:"rv_30d"`
	IVRVSpread      float64 `json:"iv_rv_spread"`
}

// SkewData describes put skew and risk reversals.
type SkewData struct {
	PutSkew25D1M    float64 `json:"put_skew_25d_1m"`
	PutSkew25D3M    float64 `json:"put_skew_25d_3m"`
	RiskReversal25D float64 `json:"risk_reversal_25d"`
	SkewPctile1Y    float64 `json:"skew_pctile_1y"`
}

// TermStructureData describes the IV term structure and VIX futures curve.
// TS1M3M is 3M IV minus 1M IV, positive in contango.
type TermStructureData struct {
	TS1M3M       float64 `json:"ts_1m_3m"`
	TS3M6M       float64 `json:"ts_3m_6m"`
	TSSlope      float64 `json:"ts_slope"`
	VIXFutures1M float64 `json:"vix_futures_1m"`
	VIXFutures3M float64 `json:"vix_futures_3m"`
	RollYield    float64 `json:"roll_yield"`
}

// EventCalendarData counts trading days to upcoming macro events.
type EventCalendarData struct {
	DaysToFOMC     int `json:"days_to_fomc"`
	DaysToCPI      int `json:"days_to_cpi"`
	DaysToNFP      int `json:"days_to_nfp"`
	DaysToEarnings int `json:"days_to_earnings"`
	EventsNext5D   int `json:"events_next_5d"`
	EventsNext20D  int `json:"events_next_20d"`
}

// CreditMacroData describes credit spreads (bps) and rates (pct).
type CreditMacroData struct {
	HYOAS          float64 `json:"hy_oas"`
	HYOAS20DChange float64 `json:"hy_oas_20d_change"`
	IGSpread       float64 `json:"ig_spread"`
	FedFundsRate   float64 `json:"fed_funds_rate"`
	US10YYield     float64 `json:"us_10y_yield"`
	US2s10s        float64 `json:"us_2s10s"`
}

// LiquidityData describes options market liquidity. BidAskWidening is the
// current spread over its 20-day average.
type LiquidityData struct {
	SPXBidAsk       float64 `json:"spx_bid_ask"`
	SPXBidAsk20DMA  float64 `json:"spx_bid_ask_20d_ma"`
	BidAskWidening  float64 `json:"bid_ask_widening"`
	EminiDepth      float64 `json:"emini_depth"`
	OptionsVolumeOI float64 `json:"options_volume_oi"`
}

// CorrelationData describes index correlation and dispersion.
type CorrelationData struct {
	ImpliedCorr     float64 `json:"implied_corr"`
	RealizedCorr20D float64 `json:"realized_corr_20d"`
	CorrPctile1Y    float64 `json:"corr_pctile_1y"`
	Dispersion      float64 `json:"dispersion"`
}

// MarketInputs is the immutable snapshot the engine consumes.
type MarketInputs struct {
	Spot          SpotData          `json:"spot"`
	Vol           VolData           `json:"vol"`
	Skew          SkewData          `json:"skew"`
	TermStructure TermStructureData `json:"term_structure"`
	Events        EventCalendarData `json:"events"`
	Credit        CreditMacroData   `json:"credit"`
	Liquidity     LiquidityData     `json:"liquidity"`
	Correlation   CorrelationData   `json:"correlation"`
	Timestamp     time.Time         `json:"timestamp"`
}

// Regime is the output of the regime classifier.
type Regime struct {
	Regime            VolRegime  `json:"regime"`
	Trend             Trend      `json:"trend"`
	EventActive       bool       `json:"event_active"`
	EventType         EventType  `json:"event_type"`
	MultiEvent        bool       `json:"multi_event"`
	VolUnstable       bool       `json:"vol_unstable"`
	Confidence        Confidence `json:"confidence"`
	ConfirmingSignals int        `json:"confirming_signals"`
	Actions           []string   `json:"actions"`
	Timestamp         time.Time  `json:"timestamp"`
}

// StrategyTemplate is an immutable catalog record. Optional gate parameters
// and performance statistics are pointers so absence is explicit. A
// non-empty BaseDTESymbol marks a symbolic tenor resolved at
// parameterization time; BaseDeltas overrides BaseDelta for multi-leg
// structures with per-leg deltas.
type StrategyTemplate struct {
	Name          string            `json:"name"`
	Family        StrategyFamily    `json:"family"`
	Objective     StrategyObjective `json:"objective"`
	Legs          int               `json:"legs"`
	BaseDelta     int               `json:"base_delta"`
	BaseDeltas    map[string]int    `json:"base_deltas,omitempty"`
	BaseDTE       int               `json:"base_dte"`
	BaseDTESymbol string            `json:"base_dte_symbol,omitempty"`
	WidthPct      *float64          `json:"width_pct,omitempty"`
	ProfitTarget  float64           `json:"profit_target"`
	StopLoss      float64           `json:"stop_loss"`

	// Rule variants carry non-numeric targets for event-linked structures.
	ProfitTargetRule string `json:"profit_target_rule,omitempty"`
	StopLossRule     string `json:"stop_loss_rule,omitempty"`

	RollDTE        *int     `json:"roll_dte,omitempty"`
	WinRate        *float64 `json:"win_rate,omitempty"`
	SharpeHist     *float64 `json:"sharpe_hist,omitempty"`
	RegimeAllowed  []string `json:"regime_allowed"`
	RegimeExcluded []string `json:"regime_excluded,omitempty"`
	EventBlock     bool     `json:"event_block"`
	EventRequired  bool     `json:"event_required"`
	IVRankMin      *int     `json:"iv_rank_min,omitempty"`
	IVRankMax      *int     `json:"iv_rank_max,omitempty"`
	VIXMax         *float64 `json:"vix_max,omitempty"`
	Structure      string   `json:"structure,omitempty"`
	Cost           string   `json:"cost,omitempty"`
	CostBudget     *float64 `json:"cost_budget,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// StrategyScore is the six-dimension strategy score, each in [0,10].
type StrategyScore struct {
	Total      float64 `json:"total"`
	Edge       float64 `json:"edge"`
	CarryFit   float64 `json:"carry_fit"`
	TailRisk   float64 `json:"tail_risk"`
	Robustness float64 `json:"robustness"`
	Liquidity  float64 `json:"liquidity"`
	Complexity float64 `json:"complexity"`
}

// StrategyParams are execution-ready parameters for a candidate.
type StrategyParams struct {
	Delta          *int           `json:"delta,omitempty"`
	Deltas         map[string]int `json:"deltas,omitempty"`
	DTE            int            `json:"dte"`
	SizeMultiplier float64        `json:"size_multiplier"`
	ProfitTarget   float64        `json:"profit_target"`
	StopLoss       float64        `json:"stop_loss"`
	RollDTE        *int           `json:"roll_dte,omitempty"`
}

// GateCheck records the outcome of a single entry gate.
type GateCheck struct {
	GateName string `json:"gate_name"`
	Passed   bool   `json:"passed"`
	Reason   string `json:"reason,omitempty"`
}

// StrategyCandidate is a scored, parameterized template that passed all gates.
type StrategyCandidate struct {
	Name     string           `json:"name"`
	Template StrategyTemplate `json:"template"`
	Scores   StrategyScore    `json:"scores"`
	Params   StrategyParams   `json:"params"`
	Gates    []GateCheck      `json:"gates"`
}

// StrategyRecommendation is the final output of the strategy selector.
type StrategyRecommendation struct {
	Recommendation RecommendationType  `json:"recommendation"`
	Strategies     []StrategyCandidate `json:"strategies"`
	Regime         Regime              `json:"regime"`
	Note           string              `json:"note,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
}

// SizeMultipliers breaks down the premium sizing multiplier chain.
type SizeMultipliers struct {
	SellPremium          float64 `json:"sell_premium"`
	BuyPremium           float64 `json:"buy_premium"`
	VVIXAdjustment       float64 `json:"vvix_adjustment"`
	ConfidenceAdjustment float64 `json:"confidence_adjustment"`
	FinalSell            float64 `json:"final_sell"`
	FinalBuy             float64 `json:"final_buy"`
}

// PositionSizeResult is the output of the position sizer.
type PositionSizeResult struct {
	PremiumBudget       float64         `json:"premium_budget"`
	SizeMultiplier      float64         `json:"size_multiplier"`
	MultiplierBreakdown SizeMultipliers `json:"multiplier_breakdown"`
	RiskLimitBreaches   []string        `json:"risk_limit_breaches"`
	WithinLimits        bool            `json:"within_limits"`
}

// RiskLimits are portfolio-level limits checked by the sizer. Greek limits
// are per dollar of NAV, stops are fractions of NAV.
type RiskLimits struct {
	MaxPortfolioVega       float64 `json:"max_portfolio_vega"`
	MaxPortfolioDelta      float64 `json:"max_portfolio_delta"`
	MaxPortfolioGammaT7    float64 `json:"max_portfolio_gamma_t7"`
	MaxSingleNamePct       float64 `json:"max_single_name_pct"`
	MaxSectorPct           float64 `json:"max_sector_pct"`
	MaxCorrelatedPositions int     `json:"max_correlated_positions"`
	DailyPnLStop           float64 `json:"daily_pnl_stop"`
	WeeklyPnLStop          float64 `json:"weekly_pnl_stop"`
	CashReserveMin         float64 `json:"cash_reserve_min"`
}

// DefaultRiskLimits returns the standing portfolio limits.
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxPortfolioVega:       0.005,
		MaxPortfolioDelta:      0.20,
		MaxPortfolioGammaT7:    0.003,
		MaxSingleNamePct:       0.05,
		MaxSectorPct:           0.20,
		MaxCorrelatedPositions: 3,
		DailyPnLStop:           0.015,
		WeeklyPnLStop:          0.030,
		CashReserveMin:         0.20,
	}
}

// AdjustmentRule is a position adjustment rule definition.
type AdjustmentRule struct {
	RuleID    string       `json:"rule_id"`
	Name      string       `json:"name"`
	Trigger   string       `json:"trigger"`
	Action    string       `json:"action"`
	Rationale string       `json:"rationale,omitempty"`
	Priority  RulePriority `json:"priority"`
}

// ExitRule is a position exit rule definition.
type ExitRule struct {
	RuleID    string `json:"rule_id"`
	Name      string `json:"name"`
	Trigger   string `json:"trigger"`
	Action    string `json:"action"`
	Rationale string `json:"rationale,omitempty"`
	AppliesTo string `json:"applies_to"`
}

// RuleEvaluation is the result of testing one rule against a position.
type RuleEvaluation struct {
	RuleID    string       `json:"rule_id"`
	RuleName  string       `json:"rule_name"`
	Triggered bool         `json:"triggered"`
	Priority  RulePriority `json:"priority"`
	Action    string       `json:"action,omitempty"`
	Details   string       `json:"details,omitempty"`
}

// PlaybookPhaseDetail is one phase of an event playbook.
type PlaybookPhaseDetail struct {
	Phase      PlaybookPhase `json:"phase"`
	Timing     string        `json:"timing"`
	IVBehavior string        `json:"iv_behavior,omitempty"`
	Strategy   string        `json:"strategy"`
	Sizing     string        `json:"sizing"`
	Notes      []string      `json:"notes,omitempty"`
}

// EventPlaybook is the complete playbook for a macro event.
type EventPlaybook struct {
	EventType EventType             `json:"event_type"`
	Phases    []PlaybookPhaseDetail `json:"phases"`
	Notes     []string              `json:"notes,omitempty"`
	KeyRules  []string              `json:"key_rules,omitempty"`
}

// ZeroDTEDayInfo is the same-day-expiry profile for one weekday.
type ZeroDTEDayInfo struct {
	Day            DayOfWeek `json:"day"`
	Premium        string    `json:"premium"`
	Bias           string    `json:"bias"`
	GammaImbalance string    `json:"gamma_imbalance,omitempty"`
}

// ZeroDTEPlaybook is the same-day expiration trading playbook.
type ZeroDTEPlaybook struct {
	Characteristics map[string]any   `json:"characteristics"`
	Days            []ZeroDTEDayInfo `json:"days"`
	EntryRule       string           `json:"entry_rule"`
	EventBlock      string           `json:"event_block"`
}

// HedgeInstrument is a single tail-hedge instrument allocation. Allocation
// is a fraction of the annual hedge budget.
type HedgeInstrument struct {
	Name       string  `json:"name"`
	Allocation float64 `json:"allocation"`
	Structure  string  `json:"structure"`
	Tenor      string  `json:"tenor,omitempty"`
	Rationale  string  `json:"rationale,omitempty"`
}

// HedgeAllocation is the standing tail-hedge allocation.
type HedgeAllocation struct {
	AnnualBudgetPct float64           `json:"annual_budget_pct"`
	Instruments     []HedgeInstrument `json:"instruments"`
}

// EarlyWarningSignal is one tail-risk early warning with live readings.
type EarlyWarningSignal struct {
	Signal       string   `json:"signal"`
	Action       string   `json:"action"`
	LeadTime     string   `json:"lead_time,omitempty"`
	Triggered    bool     `json:"triggered"`
	CurrentValue *float64 `json:"current_value,omitempty"`
	Threshold    *float64 `json:"threshold,omitempty"`
}

// TailTradingStatus reports the term-structure tail signal and which of the
// three pillars it activates.
type TailTradingStatus struct {
	SignalActive      bool    `json:"signal_active"`
	TSValue           float64 `json:"ts_value"`
	DeltaPillarActive bool    `json:"delta_pillar_active"`
	GammaPillarActive bool    `json:"gamma_pillar_active"`
	VegaPillarActive  bool    `json:"vega_pillar_active"`
}

// TailRiskAssessment is the full tail-risk output.
type TailRiskAssessment struct {
	HedgeAllocation      HedgeAllocation      `json:"hedge_allocation"`
	EarlyWarnings        []EarlyWarningSignal `json:"early_warnings"`
	ActiveWarningsCount  int                  `json:"active_warnings_count"`
	CrisisProtocolActive bool                 `json:"crisis_protocol_active"`
	CrisisActions        []string             `json:"crisis_actions,omitempty"`
	TailTrading          TailTradingStatus    `json:"tail_trading"`
	Timestamp            time.Time            `json:"timestamp"`
}

// ConflictScenario is one paired-signal conflict with its detection status.
type ConflictScenario struct {
	ConflictID  string `json:"conflict_id"`
	Description string `json:"description"`
	SignalA     string `json:"signal_a"`
	SignalB     string `json:"signal_b"`
	Resolution  string `json:"resolution"`
	Detected    bool   `json:"detected"`
}

// PositionHealthCheck summarizes rule evaluation for a single position.
type PositionHealthCheck struct {
	PositionID        string           `json:"position_id"`
	AdjustmentRules   []RuleEvaluation `json:"adjustment_rules"`
	ExitRules         []RuleEvaluation `json:"exit_rules"`
	TriggeredCount    int              `json:"triggered_count"`
	CriticalCount     int              `json:"critical_count"`
	RecommendedAction string           `json:"recommended_action"`
}

// FullAnalysisResult is the complete decision engine analysis.
type FullAnalysisResult struct {
	Regime         Regime                 `json:"regime"`
	Recommendation StrategyRecommendation `json:"recommendation"`
	TailRisk       TailRiskAssessment     `json:"tail_risk"`
	Conflicts      []ConflictScenario     `json:"conflicts"`
	ActivePlaybook *EventPlaybook         `json:"active_playbook,omitempty"`
	PositionHealth []PositionHealthCheck  `json:"position_health"`
	MarketInputs   MarketInputs           `json:"market_inputs"`
	Timestamp      time.Time              `json:"timestamp"`
}

// PnLAttribution splits realized P&L across the Greeks.
type PnLAttribution struct {
	Theta float64 `json:"theta"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Total float64 `json:"total"`
}

// PostTradeReview is a post-trade review record.
type PostTradeReview struct {
	TradeID   string           `json:"trade_id"`
	EntryDate time.Time        `json:"entry_date"`
	ExitDate  *time.Time       `json:"exit_date,omitempty"`
	Strategy  string           `json:"strategy"`
	Legs      []map[string]any `json:"legs,omitempty"`

	RegimeAtEntry Regime  `json:"regime_at_entry"`
	RegimeAtExit  *Regime `json:"regime_at_exit,omitempty"`
	RegimeChanged bool    `json:"regime_changed"`

	EntryScore  float64  `json:"entry_score"`
	EntryThesis string   `json:"entry_thesis,omitempty"`
	GatesPassed []string `json:"gates_passed,omitempty"`

	GrossPnL    float64        `json:"gross_pnl"`
	PnLPct      float64        `json:"pnl_pct"`
	Attribution PnLAttribution `json:"attribution"`

	AdjustmentsMade  []string `json:"adjustments_made,omitempty"`
	ExitTrigger      string   `json:"exit_trigger,omitempty"`
	AllRulesFollowed bool     `json:"all_rules_followed"`
	Deviations       []string `json:"deviations,omitempty"`

	WhatWorked   string `json:"what_worked,omitempty"`
	WhatFailed   string `json:"what_failed,omitempty"`
	RuleAddition string `json:"rule_addition,omitempty"`
}
