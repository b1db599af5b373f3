// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Market represents a supported market region
type Market string

const (
	// MarketUS represents United States exchanges (NYSE, NASDAQ, CBOE)
	MarketUS Market = "US"
	// MarketJP represents the Tokyo Stock Exchange
	MarketJP Market = "JP"
	// MarketHK represents the Hong Kong Stock Exchange
	MarketHK Market = "HK"
)

// AllMarkets lists every supported market code.
var AllMarkets = []Market{MarketUS, MarketJP, MarketHK}

// ParseMarket validates a market code string. An empty string defaults to US.
func ParseMarket(s string) (Market, error) {
	if s == "" {
		return MarketUS, nil
	}
	m := Market(strings.ToUpper(s))
	for _, known := range AllMarkets {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown market %q (valid: US, JP, HK)", ErrInvalidInputs, s)
}

// OptionType distinguishes calls from puts
type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

// Greeks holds option price sensitivities
type Greeks struct {
	Delta float64 `json:"delta"` // Rate of change of option price vs underlying
	Gamma float64 `json:"gamma"` // Rate of change of delta
	Theta float64 `json:"theta"` // Time decay per day
	Vega  float64 `json:"vega"`  // Sensitivity to volatility
	Rho   float64 `json:"rho"`   // Sensitivity to interest rate
}

// Quote is a real-time price quote
type Quote struct {
	Symbol        string    `json:"symbol"`
	Market        Market    `json:"market"`
	Price         float64   `json:"price"`
	Change        *float64  `json:"change,omitempty"`
	ChangePercent *float64  `json:"change_percent,omitempty"`
	Bid           *float64  `json:"bid,omitempty"`
	Ask           *float64  `json:"ask,omitempty"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// OptionContract is a single option contract
type OptionContract struct {
	Symbol            string     `json:"symbol"`
	Underlying        string     `json:"underlying"`
	Strike            float64    `json:"strike"`
	Expiration        time.Time  `json:"expiration"`
	OptionType        OptionType `json:"option_type"`
	Bid               *float64   `json:"bid,omitempty"`
	Ask               *float64   `json:"ask,omitempty"`
	LastPrice         *float64   `json:"last_price,omitempty"`
	Volume            int64      `json:"volume"`
	OpenInterest      int64      `json:"open_interest"`
	ImpliedVolatility *float64   `json:"implied_volatility,omitempty"`
	Greeks            *Greeks    `json:"greeks,omitempty"`
}

// OptionChain holds the option chain for an underlying
type OptionChain struct {
	Underlying  string           `json:"underlying"`
	Market      Market           `json:"market"`
	Expirations []time.Time      `json:"expirations"`
	Calls       []OptionContract `json:"calls"`
	Puts        []OptionContract `json:"puts"`
	Timestamp   time.Time        `json:"timestamp"`
}

// VolatilitySurface is an implied volatility grid indexed [expiration][strike]
type VolatilitySurface struct {
	Symbol      string      `json:"symbol"`
	Market      Market      `json:"market"`
	Strikes     []float64   `json:"strikes"`
	Expirations []time.Time `json:"expirations"`
	CallIVs     [][]float64 `json:"call_ivs"`
	PutIVs      [][]float64 `json:"put_ivs"`
	Timestamp   time.Time   `json:"timestamp"`
}

// PriceBar is a single OHLCV bar
type PriceBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// PriceHistory holds historical bars for a symbol
type PriceHistory struct {
	Symbol   string     `json:"symbol"`
	Market   Market     `json:"market"`
	Interval string     `json:"interval"`
	Bars     []PriceBar `json:"bars"`
}

// IVAnalysis summarizes where current implied volatility sits in its 1-year range
type IVAnalysis struct {
	Symbol       string    `json:"symbol"`
	Market       Market    `json:"market"`
	CurrentIV    float64   `json:"current_iv"`
	IVRank       float64   `json:"iv_rank"`
	IVPercentile float64   `json:"iv_percentile"`
	IV52WHigh    float64   `json:"iv_52w_high"`
	IV52WLow     float64   `json:"iv_52w_low"`
	IV30DAvg     float64   `json:"iv_30d_avg"`
	Timestamp    time.Time `json:"timestamp"`
}

// MarketSentiment summarizes option-flow derived sentiment for a symbol
type MarketSentiment struct {
	Symbol           string    `json:"symbol"`
	Market           Market    `json:"market"`
	PutCallRatio     float64   `json:"put_call_ratio"`
	TotalCallVolume  int64     `json:"total_call_volume"`
	TotalPutVolume   int64     `json:"total_put_volume"`
	CallOpenInterest int64     `json:"call_open_interest"`
	PutOpenInterest  int64     `json:"put_open_interest"`
	Sentiment        string    `json:"sentiment"`
	Timestamp        time.Time `json:"timestamp"`
}

// UnusualActivityAlert flags anomalous option flow on a symbol
type UnusualActivityAlert struct {
	Symbol       string         `json:"symbol"`
	Market       Market         `json:"market"`
	AlertType    string         `json:"alert_type"`
	Description  string         `json:"description"`
	Significance float64        `json:"significance"`
	Details      map[string]any `json:"details"`
	Timestamp    time.Time      `json:"timestamp"`
}

// UnusualActivityReport holds alerts sorted by significance descending
type UnusualActivityReport struct {
	Alerts []UnusualActivityAlert `json:"alerts"`
}

// MarketConditions describes the environment a strategy suggestion was made in
type MarketConditions struct {
	VIXLevel          string `json:"vix_level"`
	IVRank            string `json:"iv_rank"`
	Trend             string `json:"trend"`
	VolatilityOutlook string `json:"volatility_outlook"`
}

// StrategySuggestion is a single suggested option strategy
type StrategySuggestion struct {
	Strategy    string `json:"strategy"`
	DisplayName string `json:"display_name"`
	Suitability int    `json:"suitability"`
	Reasoning   string `json:"reasoning"`
	RiskLevel   string `json:"risk_level"`
	MaxProfit   string `json:"max_profit"`
	MaxLoss     string `json:"max_loss"`
}

// StrategySuggestions holds ranked suggestions with their market context
type StrategySuggestions struct {
	Symbol           string               `json:"symbol"`
	Market           Market               `json:"market"`
	MarketConditions MarketConditions     `json:"market_conditions"`
	Suggestions      []StrategySuggestion `json:"suggestions"`
	Timestamp        time.Time            `json:"timestamp"`
}

// MarketInfo describes a supported market region
type MarketInfo struct {
	Code         Market   `json:"code"`
	Name         string   `json:"name"`
	Currency     string   `json:"currency"`
	Timezone     string   `json:"timezone"`
	TradingHours string   `json:"trading_hours"`
	Indices      []string `json:"indices"`
}

// Float64Ptr returns a pointer to v. Convenience for optional quote fields.
func Float64Ptr(v float64) *float64 {
	return &v
}
