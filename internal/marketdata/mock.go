// Package marketdata provides market data providers, the aggregated
// fallback layer and the engine inputs collector.
package marketdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"time"

	"github.com/voltlab/volguard/internal/domain"
)

// mockStocks maps market -> symbol -> base price. Unknown symbols fall back
// to 100.0 so any ticker resolves.
var mockStocks = map[domain.Market]map[string]float64{
	domain.MarketUS: {
		"AAPL":  185.50,
		"MSFT":  378.25,
		"GOOGL": 141.80,
		"NVDA":  495.20,
		"SPY":   478.50,
		"QQQ":   412.30,
		"DIA":   385.75,
		"IWM":   198.40,
		"VIX":   18.45,
	},
	domain.MarketJP: {
		"7203.T": 2850.0,
		"9984.T": 8250.0,
		"6758.T": 12500.0,
		"NKY":    38450.0,
	},
	domain.MarketHK: {
		"0700.HK": 375.40,
		"9988.HK": 78.25,
		"1299.HK": 62.50,
		"HSI":     17680.0,
	},
}

var marketTimezones = map[domain.Market]string{
	domain.MarketUS: "America/New_York",
	domain.MarketJP: "Asia/Tokyo",
	domain.MarketHK: "Asia/Hong_Kong",
}

// MockProvider returns simulated market data. All values are deterministic:
// fixed base constants varied by a symbol-hash offset, so repeated calls and
// test runs observe identical data.
type MockProvider struct{}

// NewMockProvider creates the deterministic mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name implements domain.Provider.
func (p *MockProvider) Name() string { return "mock" }

// SupportedMarkets implements domain.Provider.
func (p *MockProvider) SupportedMarkets() []domain.Market {
	return []domain.Market{domain.MarketUS, domain.MarketJP, domain.MarketHK}
}

// SupportsMarket implements domain.Provider.
func (p *MockProvider) SupportsMarket(market domain.Market) bool {
	_, ok := mockStocks[market]
	return ok
}

// hashFrac maps the given parts to a stable fraction in [0, 1).
func hashFrac(parts ...string) float64 {
	h := fnv.New64a()
	for _, part := range parts {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return float64(h.Sum64()%10000) / 10000.0
}

func marketTime(market domain.Market) time.Time {
	if tz, ok := marketTimezones[market]; ok {
		if loc, err := time.LoadLocation(tz); err == nil {
			return time.Now().In(loc)
		}
	}
	return time.Now().UTC()
}

func basePrice(symbol string, market domain.Market) float64 {
	if stocks, ok := mockStocks[market]; ok {
		if price, ok := stocks[symbol]; ok {
			return price
		}
	}
	return 100.0
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

// GetQuote returns a deterministic quote around the symbol's base price.
func (p *MockProvider) GetQuote(_ context.Context, symbol string, market domain.Market) (*domain.Quote, error) {
	base := basePrice(symbol, market)
	price := round2(base)
	spread := price * 0.001

	// Daily change in [-2%, +2%), fixed per symbol.
	changePct := round2(hashFrac(symbol, "change")*4.0 - 2.0)
	change := round2(base * changePct / 100)
	volume := int64(100_000 + hashFrac(symbol, "volume")*4_900_000)

	return &domain.Quote{
		Symbol:        symbol,
		Market:        market,
		Price:         price,
		Change:        domain.Float64Ptr(change),
		ChangePercent: domain.Float64Ptr(changePct),
		Bid:           domain.Float64Ptr(round2(price - spread)),
		Ask:           domain.Float64Ptr(round2(price + spread)),
		Volume:        volume,
		Timestamp:     marketTime(market),
	}, nil
}

// mockExpirations returns weekly expirations for the next month and monthly
// for three months out.
func mockExpirations(today time.Time) []time.Time {
	seen := map[time.Time]bool{}
	var exps []time.Time
	add := func(t time.Time) {
		if !seen[t] {
			seen[t] = true
			exps = append(exps, t)
		}
	}
	for i := 1; i <= 4; i++ {
		add(today.AddDate(0, 0, 7*i))
	}
	for i := 1; i <= 3; i++ {
		add(today.AddDate(0, 0, 30*i))
	}
	sort.Slice(exps, func(i, j int) bool { return exps[i].Before(exps[j]) })
	return exps
}

// GetOptionChain returns a deterministic chain with 11 strikes around spot.
func (p *MockProvider) GetOptionChain(ctx context.Context, symbol string, market domain.Market, expiration *time.Time) (*domain.OptionChain, error) {
	quote, err := p.GetQuote(ctx, symbol, market)
	if err != nil {
		return nil, err
	}
	underlying := quote.Price

	today := time.Now().UTC().Truncate(24 * time.Hour)
	expirations := mockExpirations(today)
	if expiration != nil {
		want := expiration.UTC().Truncate(24 * time.Hour)
		matched := false
		for _, exp := range expirations {
			if exp.Equal(want) {
				expirations = []time.Time{exp}
				matched = true
				break
			}
		}
		if !matched {
			expirations = expirations[:1]
		}
	}

	strikeStep := underlying * 0.025
	var strikes []float64
	for i := -5; i <= 5; i++ {
		strikes = append(strikes, round2(underlying+float64(i)*strikeStep))
	}

	var calls, puts []domain.OptionContract
	for _, exp := range expirations {
		dte := exp.Sub(today).Hours() / 24
		for _, strike := range strikes {
			moneyness := (underlying - strike) / underlying
			baseIV := 0.25 + math.Abs(moneyness)*0.5

			greeksFor := func(callSide bool) *domain.Greeks {
				sign := 1.0
				delta := 0.5 + moneyness*2
				if !callSide {
					sign = -1.0
					delta = -0.5 + moneyness*2
				}
				return &domain.Greeks{
					Delta: round4(delta),
					Gamma: round4(0.05 * (1 - math.Abs(moneyness))),
					Theta: round4(-0.05 * baseIV * underlying / 365),
					Vega:  round4(0.01 * underlying * math.Sqrt(dte/365)),
					Rho:   round4(sign * 0.01 * strike * dte / 365),
				}
			}

			callPrice := math.Max(0.01, (underlying-strike)+baseIV*underlying*0.1)
			calls = append(calls, domain.OptionContract{
				Symbol:            fmt.Sprintf("%s%sC%08d", symbol, exp.Format("060102"), int(strike*1000)),
				Underlying:        symbol,
				Strike:            strike,
				Expiration:        exp,
				OptionType:        domain.OptionTypeCall,
				Bid:               domain.Float64Ptr(round2(callPrice * 0.98)),
				Ask:               domain.Float64Ptr(round2(callPrice * 1.02)),
				LastPrice:         domain.Float64Ptr(round2(callPrice)),
				Volume:            int64(10 + hashFrac(symbol, exp.Format("060102"), "cv", fmt.Sprint(strike))*990),
				OpenInterest:      int64(100 + hashFrac(symbol, exp.Format("060102"), "coi", fmt.Sprint(strike))*9900),
				ImpliedVolatility: domain.Float64Ptr(round4(baseIV)),
				Greeks:            greeksFor(true),
			})

			putPrice := math.Max(0.01, (strike-underlying)+baseIV*underlying*0.1)
			puts = append(puts, domain.OptionContract{
				Symbol:            fmt.Sprintf("%s%sP%08d", symbol, exp.Format("060102"), int(strike*1000)),
				Underlying:        symbol,
				Strike:            strike,
				Expiration:        exp,
				OptionType:        domain.OptionTypePut,
				Bid:               domain.Float64Ptr(round2(putPrice * 0.98)),
				Ask:               domain.Float64Ptr(round2(putPrice * 1.02)),
				LastPrice:         domain.Float64Ptr(round2(putPrice)),
				Volume:            int64(10 + hashFrac(symbol, exp.Format("060102"), "pv", fmt.Sprint(strike))*990),
				OpenInterest:      int64(100 + hashFrac(symbol, exp.Format("060102"), "poi", fmt.Sprint(strike))*9900),
				ImpliedVolatility: domain.Float64Ptr(round4(baseIV)),
				Greeks:            greeksFor(false),
			})
		}
	}

	return &domain.OptionChain{
		Underlying:  symbol,
		Market:      market,
		Expirations: expirations,
		Calls:       calls,
		Puts:        puts,
		Timestamp:   marketTime(market),
	}, nil
}

// GetVolatilitySurface returns a smile-and-term-structure shaped IV grid.
func (p *MockProvider) GetVolatilitySurface(ctx context.Context, symbol string, market domain.Market) (*domain.VolatilitySurface, error) {
	quote, err := p.GetQuote(ctx, symbol, market)
	if err != nil {
		return nil, err
	}
	underlying := quote.Price

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var expirations []time.Time
	for _, d := range []int{7, 14, 30, 60, 90, 180} {
		expirations = append(expirations, today.AddDate(0, 0, d))
	}

	strikeStep := underlying * 0.05
	var strikes []float64
	for i := -4; i <= 4; i++ {
		strikes = append(strikes, round2(underlying+float64(i)*strikeStep))
	}

	var callIVs, putIVs [][]float64
	for _, exp := range expirations {
		days := exp.Sub(today).Hours() / 24
		termFactor := 1 + 0.1*(30/math.Max(days, 1))

		var callRow, putRow []float64
		for _, strike := range strikes {
			moneyness := (strike - underlying) / underlying
			skew := 0.05 * moneyness
			baseIV := 0.20*termFactor + math.Abs(moneyness)*0.3
			callRow = append(callRow, round4(baseIV-skew))
			putRow = append(putRow, round4(baseIV+skew))
		}
		callIVs = append(callIVs, callRow)
		putIVs = append(putIVs, putRow)
	}

	return &domain.VolatilitySurface{
		Symbol:      symbol,
		Market:      market,
		Strikes:     strikes,
		Expirations: expirations,
		CallIVs:     callIVs,
		PutIVs:      putIVs,
		Timestamp:   marketTime(market),
	}, nil
}

// GetPriceHistory returns bars with a per-symbol drift and hash-derived
// bar-to-bar wiggle, so realized-vol math downstream sees non-trivial
// returns.
func (p *MockProvider) GetPriceHistory(_ context.Context, symbol string, market domain.Market, interval string, limit int) (*domain.PriceHistory, error) {
	if limit <= 0 {
		limit = 30
	}
	base := basePrice(symbol, market)
	now := marketTime(market)

	drift := hashFrac(symbol, "drift")*0.20 - 0.05 // total move in [-5%, +15%)
	bars := make([]domain.PriceBar, 0, limit)
	for i := limit - 1; i >= 0; i-- {
		var barTime time.Time
		switch interval {
		case "1h":
			barTime = now.Add(-time.Duration(i) * time.Hour)
		case "5m":
			barTime = now.Add(-time.Duration(i) * 5 * time.Minute)
		default: // 1d
			barTime = now.AddDate(0, 0, -i)
		}

		progress := float64(limit-i) / float64(limit)
		wiggle := hashFrac(symbol, "bar", fmt.Sprint(i))*0.04 - 0.02
		closePrice := round2(base * (1 + drift*progress + wiggle))

		intradayRange := closePrice * (0.005 + hashFrac(symbol, "range", fmt.Sprint(i))*0.015)
		openOffset := hashFrac(symbol, "open", fmt.Sprint(i))*2 - 1
		openPrice := round2(closePrice + openOffset*intradayRange)
		high := round2(math.Max(openPrice, closePrice) + hashFrac(symbol, "high", fmt.Sprint(i))*intradayRange)
		low := round2(math.Min(openPrice, closePrice) - hashFrac(symbol, "low", fmt.Sprint(i))*intradayRange)

		bars = append(bars, domain.PriceBar{
			Timestamp: barTime,
			Open:      openPrice,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    int64(500_000 + hashFrac(symbol, "bvol", fmt.Sprint(i))*4_500_000),
		})
	}

	return &domain.PriceHistory{
		Symbol:   symbol,
		Market:   market,
		Interval: interval,
		Bars:     bars,
	}, nil
}

// GetIVAnalysis implements domain.IVAnalysisProvider.
func (p *MockProvider) GetIVAnalysis(_ context.Context, symbol string, market domain.Market) (*domain.IVAnalysis, error) {
	baseIV := 0.15 + hashFrac(symbol, "iv")*0.30
	high := baseIV * 1.6
	low := baseIV * 0.55
	current := low + hashFrac(symbol, "ivcur")*(high-low)

	rank := (current - low) / (high - low) * 100
	pctile := math.Max(0, math.Min(100, rank+hashFrac(symbol, "ivpct")*20-10))

	return &domain.IVAnalysis{
		Symbol:       symbol,
		Market:       market,
		CurrentIV:    round4(current),
		IVRank:       math.Round(rank*10) / 10,
		IVPercentile: math.Round(pctile*10) / 10,
		IV52WHigh:    round4(high),
		IV52WLow:     round4(low),
		IV30DAvg:     round4((current + baseIV) / 2),
		Timestamp:    marketTime(market),
	}, nil
}

// GetMarketSentiment implements domain.SentimentProvider.
func (p *MockProvider) GetMarketSentiment(_ context.Context, symbol string, market domain.Market) (*domain.MarketSentiment, error) {
	callVolume := int64(500_000 + hashFrac(symbol, "cv")*2_500_000)
	pcr := round2(0.5 + hashFrac(symbol, "pcr"))
	putVolume := int64(float64(callVolume) * pcr)
	callOI := int64(2_000_000 + hashFrac(symbol, "coi")*8_000_000)
	putOI := int64(float64(callOI) * (0.7 + hashFrac(symbol, "poi")*0.6))

	var sentiment string
	switch {
	case pcr < 0.7:
		sentiment = "bullish"
	case pcr < 0.85:
		sentiment = "slightly_bullish"
	case pcr <= 1.15:
		sentiment = "neutral"
	case pcr <= 1.3:
		sentiment = "slightly_bearish"
	default:
		sentiment = "bearish"
	}

	return &domain.MarketSentiment{
		Symbol:           symbol,
		Market:           market,
		PutCallRatio:     pcr,
		TotalCallVolume:  callVolume,
		TotalPutVolume:   putVolume,
		CallOpenInterest: callOI,
		PutOpenInterest:  putOI,
		Sentiment:        sentiment,
		Timestamp:        marketTime(market),
	}, nil
}

// GetUnusualActivity implements domain.UnusualActivityProvider. One alert per
// tracked symbol clearing the significance floor, sorted descending.
func (p *MockProvider) GetUnusualActivity(_ context.Context, market domain.Market, minVolumeOIRatio float64) (*domain.UnusualActivityReport, error) {
	markets := []domain.Market{market}
	if market == "" {
		markets = p.SupportedMarkets()
	}

	alertTypes := []string{"volume_spike", "unusual_pc_ratio", "oi_change"}
	var alerts []domain.UnusualActivityAlert
	for _, mkt := range markets {
		symbols := make([]string, 0, len(mockStocks[mkt]))
		for symbol := range mockStocks[mkt] {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)

		for _, symbol := range symbols {
			frac := hashFrac(symbol, "ua")
			significance := math.Round((5+frac*5)*10) / 10
			if significance < 7.0 {
				continue
			}

			alertType := alertTypes[int(frac*1000)%len(alertTypes)]
			var description string
			details := map[string]any{}
			switch alertType {
			case "volume_spike":
				multiplier := math.Round((2+frac*3)*10) / 10
				description = fmt.Sprintf("Call volume %.1fx above 20-day average", multiplier)
				details["current_volume"] = int64(50_000 + frac*150_000)
				details["avg_volume"] = int64(15_000 + frac*25_000)
			case "unusual_pc_ratio":
				ratio := round2(1.6 + frac*0.9)
				description = fmt.Sprintf("Unusual P/C ratio of %.2f", ratio)
				details["put_call_ratio"] = ratio
			default:
				pctChange := math.Round((15+frac*35)*10) / 10
				description = fmt.Sprintf("Open interest increased %.1f%% day-over-day", pctChange)
				details["oi_change_pct"] = pctChange
			}
			details["volume_oi_ratio"] = round2(minVolumeOIRatio + frac)

			alerts = append(alerts, domain.UnusualActivityAlert{
				Symbol:       symbol,
				Market:       mkt,
				AlertType:    alertType,
				Description:  description,
				Significance: significance,
				Details:      details,
				Timestamp:    marketTime(mkt),
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Significance > alerts[j].Significance
	})

	return &domain.UnusualActivityReport{Alerts: alerts}, nil
}

// GetStrategySuggestions implements domain.StrategySuggestionProvider.
// Suggestions follow the IV-rank and trend buckets of the symbol's
// deterministic analytics.
func (p *MockProvider) GetStrategySuggestions(ctx context.Context, symbol string, market domain.Market) (*domain.StrategySuggestions, error) {
	iv, err := p.GetIVAnalysis(ctx, symbol, market)
	if err != nil {
		return nil, err
	}

	ivLevel := "medium"
	switch {
	case iv.IVRank > 70:
		ivLevel = "high"
	case iv.IVRank <= 30:
		ivLevel = "low"
	}

	vixLevels := []string{"low", "normal", "elevated", "high"}
	trends := []string{"bullish", "slightly_bullish", "neutral", "slightly_bearish", "bearish"}
	outlooks := []string{"increasing", "stable", "decreasing"}
	trend := trends[int(hashFrac(symbol, "trend")*1000)%len(trends)]

	conditions := domain.MarketConditions{
		VIXLevel:          vixLevels[int(hashFrac(symbol, "vix")*1000)%len(vixLevels)],
		IVRank:            ivLevel,
		Trend:             trend,
		VolatilityOutlook: outlooks[int(hashFrac(symbol, "outlook")*1000)%len(outlooks)],
	}

	suit := func(base int, salt string) int {
		return base + int(hashFrac(symbol, salt)*10) - 5
	}

	var suggestions []domain.StrategySuggestion
	switch ivLevel {
	case "high":
		suggestions = append(suggestions,
			domain.StrategySuggestion{
				Strategy:    "iron_condor",
				DisplayName: "Iron Condor",
				Suitability: suit(85, "ic"),
				Reasoning:   "High IV rank suggests selling premium; collect elevated premiums while betting on range-bound price action",
				RiskLevel:   "medium",
				MaxProfit:   "Net credit received",
				MaxLoss:     "Width of spread minus credit",
			},
			domain.StrategySuggestion{
				Strategy:    "short_strangle",
				DisplayName: "Short Strangle",
				Suitability: suit(75, "ss"),
				Reasoning:   "Elevated IV makes selling options attractive; profit from time decay if stock stays within range",
				RiskLevel:   "high",
				MaxProfit:   "Total premium collected",
				MaxLoss:     "Unlimited",
			},
			domain.StrategySuggestion{
				Strategy:    "credit_spread",
				DisplayName: "Credit Spread",
				Suitability: suit(80, "cs"),
				Reasoning:   "High IV allows for wider spreads with good risk/reward; defined risk strategy",
				RiskLevel:   "medium",
				MaxProfit:   "Net credit received",
				MaxLoss:     "Width of spread minus credit",
			})
	case "low":
		suggestions = append(suggestions,
			domain.StrategySuggestion{
				Strategy:    "long_straddle",
				DisplayName: "Long Straddle",
				Suitability: suit(80, "ls"),
				Reasoning:   "Low IV means cheaper options; profit from any large move in either direction",
				RiskLevel:   "medium",
				MaxProfit:   "Unlimited",
				MaxLoss:     "Total premium paid",
			},
			domain.StrategySuggestion{
				Strategy:    "calendar_spread",
				DisplayName: "Calendar Spread",
				Suitability: suit(75, "cal"),
				Reasoning:   "Buy cheap longer-dated options, sell expensive near-term; benefit when IV expands",
				RiskLevel:   "low",
				MaxProfit:   "Varies with IV expansion",
				MaxLoss:     "Net debit paid",
			})
	}

	switch trend {
	case "bullish", "slightly_bullish":
		suggestions = append(suggestions, domain.StrategySuggestion{
			Strategy:    "bull_call_spread",
			DisplayName: "Bull Call Spread",
			Suitability: suit(72, "bull"),
			Reasoning:   "Upward trend suggests upside potential; limited risk bullish position",
			RiskLevel:   "low",
			MaxProfit:   "Width of spread minus debit",
			MaxLoss:     "Net debit paid",
		})
	case "bearish", "slightly_bearish":
		suggestions = append(suggestions, domain.StrategySuggestion{
			Strategy:    "bear_put_spread",
			DisplayName: "Bear Put Spread",
			Suitability: suit(72, "bear"),
			Reasoning:   "Downward trend indicates downside risk; profit from decline with limited risk",
			RiskLevel:   "low",
			MaxProfit:   "Width of spread minus debit",
			MaxLoss:     "Net debit paid",
		})
	default:
		suggestions = append(suggestions, domain.StrategySuggestion{
			Strategy:    "butterfly",
			DisplayName: "Butterfly Spread",
			Suitability: suit(75, "fly"),
			Reasoning:   "Neutral outlook with low cost entry; maximum profit if stock pins at center strike",
			RiskLevel:   "low",
			MaxProfit:   "Width of spread minus debit",
			MaxLoss:     "Net debit paid",
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Suitability > suggestions[j].Suitability
	})
	if len(suggestions) > 4 {
		suggestions = suggestions[:4]
	}

	return &domain.StrategySuggestions{
		Symbol:           symbol,
		Market:           market,
		MarketConditions: conditions,
		Suggestions:      suggestions,
		Timestamp:        marketTime(market),
	}, nil
}
