package marketdata

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/voltlab/volguard/internal/domain"
)

// Fallback tool servers answer in whatever shape their upstream uses: Yahoo
// style JSON objects, Alpha Vantage numbered-key JSON, or Alpha Vantage CSV
// text. The parsers below normalize all of them into domain models. Each
// returns an error when the payload carries no usable data, so the aggregated
// provider can keep walking the fallback chain.

// parseQuote accepts Yahoo quote objects, AV "Global Quote" JSON and AV CSV.
func parseQuote(payload any, symbol string, market domain.Market) (*domain.Quote, error) {
	if payload == nil {
		return nil, fmt.Errorf("empty quote payload")
	}

	if text, ok := payload.(string); ok {
		if !strings.Contains(text, ",") {
			return nil, fmt.Errorf("unrecognized quote payload")
		}
		row, err := parseCSVRow(text)
		if err != nil {
			return nil, err
		}
		return parseAVQuote(row, symbol, market)
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unrecognized quote payload type %T", payload)
	}

	if gq, ok := obj["Global Quote"].(map[string]any); ok {
		return parseAVQuote(gq, symbol, market)
	}

	price := firstFloat(obj, "currentPrice", "regularMarketPrice", "price")
	if price == nil || *price <= 0 {
		return nil, fmt.Errorf("quote payload has no price")
	}

	volume := int64(0)
	if v := firstFloat(obj, "volume", "regularMarketVolume"); v != nil {
		volume = int64(*v)
	}

	return &domain.Quote{
		Symbol:        symbol,
		Market:        market,
		Price:         *price,
		Change:        firstFloat(obj, "regularMarketChange", "change"),
		ChangePercent: firstFloat(obj, "regularMarketChangePercent", "changePercent"),
		Bid:           safeFloat(obj["bid"]),
		Ask:           safeFloat(obj["ask"]),
		Volume:        volume,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// parseAVQuote handles both AV JSON numbered keys ("05. price") and the flat
// keys produced by CSV parsing.
func parseAVQuote(gq map[string]any, symbol string, market domain.Market) (*domain.Quote, error) {
	price := firstFloat(gq, "price", "05. price")
	if price == nil || *price <= 0 {
		return nil, fmt.Errorf("alpha vantage quote has no price")
	}

	changePct := firstFloat(gq, "changePercent", "changepercent", "10. change percent")
	volume := int64(0)
	if v := firstFloat(gq, "volume", "06. volume"); v != nil {
		volume = int64(*v)
	}

	return &domain.Quote{
		Symbol:        symbol,
		Market:        market,
		Price:         *price,
		Change:        firstFloat(gq, "change", "09. change"),
		ChangePercent: changePct,
		Volume:        volume,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// parsePriceHistory accepts Yahoo bar lists, AV "Time Series ..." JSON and AV
// multi-row CSV.
func parsePriceHistory(payload any, symbol string, market domain.Market, interval string) (*domain.PriceHistory, error) {
	if payload == nil {
		return nil, fmt.Errorf("empty history payload")
	}

	if text, ok := payload.(string); ok {
		return parseAVTimeSeriesCSV(text, symbol, market, interval)
	}

	var barsData []any
	switch v := payload.(type) {
	case []any:
		barsData = v
	case map[string]any:
		for key, value := range v {
			if strings.Contains(key, "Time Series") {
				series, ok := value.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("malformed time series payload")
				}
				return parseAVTimeSeries(series, symbol, market, interval)
			}
		}
		barsData, _ = v["prices"].([]any)
	default:
		return nil, fmt.Errorf("unrecognized history payload type %T", payload)
	}

	bars := make([]domain.PriceBar, 0, len(barsData))
	for _, raw := range barsData {
		bar, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		ts := time.Now().UTC()
		if at, ok := parseTimestamp(firstValue(bar, "date", "timestamp")); ok {
			ts = at
		}
		bars = append(bars, domain.PriceBar{
			Timestamp: ts,
			Open:      floatOrZero(bar["open"]),
			High:      floatOrZero(bar["high"]),
			Low:       floatOrZero(bar["low"]),
			Close:     floatOrZero(bar["close"]),
			Volume:    int64(floatOrZero(bar["volume"])),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("history payload has no bars")
	}

	return &domain.PriceHistory{Symbol: symbol, Market: market, Interval: interval, Bars: bars}, nil
}

func parseAVTimeSeries(series map[string]any, symbol string, market domain.Market, interval string) (*domain.PriceHistory, error) {
	dates := make([]string, 0, len(series))
	for date := range series {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	bars := make([]domain.PriceBar, 0, len(dates))
	for _, date := range dates {
		values, ok := series[date].(map[string]any)
		if !ok {
			continue
		}
		ts, ok := parseTimestamp(date)
		if !ok {
			continue
		}
		bars = append(bars, domain.PriceBar{
			Timestamp: ts,
			Open:      floatOrZero(values["1. open"]),
			High:      floatOrZero(values["2. high"]),
			Low:       floatOrZero(values["3. low"]),
			Close:     floatOrZero(values["4. close"]),
			Volume:    int64(floatOrZero(values["5. volume"])),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("time series payload has no bars")
	}

	return &domain.PriceHistory{Symbol: symbol, Market: market, Interval: interval, Bars: bars}, nil
}

func parseAVTimeSeriesCSV(text, symbol string, market domain.Market, interval string) (*domain.PriceHistory, error) {
	rows, err := parseCSVRows(text)
	if err != nil {
		return nil, err
	}

	bars := make([]domain.PriceBar, 0, len(rows))
	for _, row := range rows {
		ts, ok := parseTimestamp(firstValue(row, "timestamp", "date", "time"))
		if !ok {
			continue
		}
		bars = append(bars, domain.PriceBar{
			Timestamp: ts,
			Open:      floatOrZero(row["open"]),
			High:      floatOrZero(row["high"]),
			Low:       floatOrZero(row["low"]),
			Close:     floatOrZero(row["close"]),
			Volume:    int64(floatOrZero(row["volume"])),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("history CSV has no bars")
	}

	return &domain.PriceHistory{Symbol: symbol, Market: market, Interval: interval, Bars: bars}, nil
}

// parseSentiment accepts Yahoo analyst recommendation lists and AV
// NEWS_SENTIMENT in JSON or CSV form. Analyst grades and news scores are
// mapped onto the put/call-ratio shaped sentiment model.
func parseSentiment(payload any, symbol string, market domain.Market) (*domain.MarketSentiment, error) {
	if payload == nil {
		return nil, fmt.Errorf("empty sentiment payload")
	}

	if text, ok := payload.(string); ok {
		if !strings.Contains(text, "overall_sentiment_score") {
			return nil, fmt.Errorf("unrecognized sentiment payload")
		}
		rows, err := parseCSVRows(text)
		if err != nil {
			return nil, err
		}
		var bullish, bearish, neutral int
		for _, row := range rows {
			countNewsScore(floatOrZero(row["overall_sentiment_score"]), &bullish, &bearish, &neutral)
		}
		return newsSentiment(symbol, market, bullish, bearish, neutral)
	}

	if obj, ok := payload.(map[string]any); ok {
		if feed, ok := obj["feed"].([]any); ok {
			return parseAVSentimentFeed(feed, symbol, market)
		}
	}

	var recs []any
	switch v := payload.(type) {
	case []any:
		recs = v
	case map[string]any:
		if list, ok := v["recommendations"].([]any); ok {
			recs = list
		} else {
			recs = []any{v}
		}
	default:
		return nil, fmt.Errorf("unrecognized sentiment payload type %T", payload)
	}

	var buys, sells, holds int
	for _, raw := range recs {
		rec, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		grade := strings.ToLower(firstString(rec, "recommendationKey", "toGrade", "rating"))
		switch {
		case containsAny(grade, "buy", "overweight", "outperform", "strong_buy"):
			buys++
		case containsAny(grade, "sell", "underweight", "underperform"):
			sells++
		default:
			holds++
		}
	}

	total := buys + sells + holds
	if total == 0 {
		total = 1
	}
	callVol := int64(buys*10000 + holds*5000)
	putVol := int64(sells*10000 + holds*5000)

	bullishPct := float64(buys) / float64(total)
	sentiment := "bearish"
	switch {
	case bullishPct > 0.7:
		sentiment = "bullish"
	case bullishPct > 0.55:
		sentiment = "slightly_bullish"
	case bullishPct > 0.4:
		sentiment = "neutral"
	case bullishPct > 0.25:
		sentiment = "slightly_bearish"
	}

	return &domain.MarketSentiment{
		Symbol:           symbol,
		Market:           market,
		PutCallRatio:     putCallRatio(putVol, callVol),
		TotalCallVolume:  callVol,
		TotalPutVolume:   putVol,
		CallOpenInterest: callVol * 10,
		PutOpenInterest:  putVol * 10,
		Sentiment:        sentiment,
		Timestamp:        time.Now().UTC(),
	}, nil
}

func parseAVSentimentFeed(feed []any, symbol string, market domain.Market) (*domain.MarketSentiment, error) {
	if len(feed) == 0 {
		return nil, fmt.Errorf("sentiment feed is empty")
	}

	var bullish, bearish, neutral int
	for _, raw := range feed {
		article, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		score, found := 0.0, false
		if tickers, ok := article["ticker_sentiment"].([]any); ok {
			for _, t := range tickers {
				ts, ok := t.(map[string]any)
				if !ok {
					continue
				}
				if strings.EqualFold(firstString(ts, "ticker"), symbol) {
					score = floatOrZero(ts["ticker_sentiment_score"])
					found = true
					break
				}
			}
		}
		if !found {
			score = floatOrZero(article["overall_sentiment_score"])
		}
		countNewsScore(score, &bullish, &bearish, &neutral)
	}

	return newsSentiment(symbol, market, bullish, bearish, neutral)
}

func countNewsScore(score float64, bullish, bearish, neutral *int) {
	switch {
	case score > 0.15:
		*bullish++
	case score < -0.15:
		*bearish++
	default:
		*neutral++
	}
}

func newsSentiment(symbol string, market domain.Market, bullish, bearish, neutral int) (*domain.MarketSentiment, error) {
	total := bullish + bearish + neutral
	if total == 0 {
		total = 1
	}
	callVol := int64(bullish*10000 + neutral*5000)
	putVol := int64(bearish*10000 + neutral*5000)

	bullishPct := float64(bullish) / float64(total)
	sentiment := "bearish"
	switch {
	case bullishPct > 0.6:
		sentiment = "bullish"
	case bullishPct > 0.45:
		sentiment = "slightly_bullish"
	case bullishPct > 0.3:
		sentiment = "neutral"
	case bullishPct > 0.15:
		sentiment = "slightly_bearish"
	}

	return &domain.MarketSentiment{
		Symbol:           symbol,
		Market:           market,
		PutCallRatio:     putCallRatio(putVol, callVol),
		TotalCallVolume:  callVol,
		TotalPutVolume:   putVol,
		CallOpenInterest: callVol * 10,
		PutOpenInterest:  putVol * 10,
		Sentiment:        sentiment,
		Timestamp:        time.Now().UTC(),
	}, nil
}

func putCallRatio(putVol, callVol int64) float64 {
	if callVol < 1 {
		callVol = 1
	}
	return math.Round(float64(putVol)/float64(callVol)*1000) / 1000
}

// buildIVAnalysis derives an IV summary from a stock-info object. When no
// explicit IV field exists, the 52-week range acts as a Parkinson-style
// volatility proxy.
func buildIVAnalysis(payload any, symbol string, market domain.Market) (*domain.IVAnalysis, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unrecognized stock info payload")
	}

	high := floatOrZero(obj["fiftyTwoWeekHigh"])
	low := floatOrZero(obj["fiftyTwoWeekLow"])
	price := floatOrZero(firstValue(obj, "currentPrice", "regularMarketPrice"))

	var currentIV float64
	if iv := firstFloat(obj, "impliedVolatility", "iv"); iv != nil {
		currentIV = *iv
	} else if high > low && price > 0 {
		currentIV = math.Log(high/low) / math.Sqrt(252.0/365.0) * 0.6
		currentIV = clamp(currentIV, 0.05, 2.0)
	} else {
		return nil, fmt.Errorf("stock info has no volatility signal")
	}

	var iv52WHigh, iv52WLow float64
	if high > 0 && low > 0 && price > 0 {
		priceRange := (high - low) / price
		iv52WHigh = math.Max(currentIV, currentIV*(1+priceRange*0.5))
		iv52WLow = math.Max(0.05, currentIV*(1-priceRange*0.3))
	} else {
		iv52WHigh = currentIV * 1.5
		iv52WLow = currentIV * 0.5
	}

	return ivSummary(symbol, market, currentIV, iv52WHigh, iv52WLow), nil
}

// buildIVFromChain derives IV from option chain contracts: the median of the
// five contracts closest to the money.
func buildIVFromChain(chainPayload, stockPayload any, symbol string, market domain.Market) (*domain.IVAnalysis, error) {
	var contracts []any
	switch v := chainPayload.(type) {
	case []any:
		contracts = v
	case map[string]any:
		if list, ok := v["calls"].([]any); ok {
			contracts = list
		} else if list, ok := v["options"].([]any); ok {
			contracts = list
		}
	}
	if len(contracts) == 0 {
		return nil, fmt.Errorf("chain payload has no contracts")
	}

	price := 0.0
	if stock, ok := stockPayload.(map[string]any); ok {
		price = floatOrZero(firstValue(stock, "currentPrice", "regularMarketPrice"))
	}

	type strikeIV struct {
		distance float64
		iv       float64
	}
	var ivs []strikeIV
	for _, raw := range contracts {
		c, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		iv := safeFloat(c["impliedVolatility"])
		if iv == nil || *iv <= 0 || *iv >= 5 {
			continue
		}
		ivs = append(ivs, strikeIV{math.Abs(floatOrZero(c["strike"]) - price), *iv})
	}
	if len(ivs) == 0 {
		return nil, fmt.Errorf("chain payload has no usable implied vols")
	}

	sort.Slice(ivs, func(i, j int) bool { return ivs[i].distance < ivs[j].distance })
	n := len(ivs)
	if n > 5 {
		n = 5
	}
	closest := make([]float64, n)
	for i := 0; i < n; i++ {
		closest[i] = ivs[i].iv
	}
	sort.Float64s(closest)
	currentIV := closest[n/2]

	return ivSummary(symbol, market, currentIV, currentIV*1.5, math.Max(0.05, currentIV*0.5)), nil
}

func ivSummary(symbol string, market domain.Market, currentIV, iv52WHigh, iv52WLow float64) *domain.IVAnalysis {
	ivRank := 50.0
	if ivRange := iv52WHigh - iv52WLow; ivRange > 0 {
		ivRank = (currentIV - iv52WLow) / ivRange * 100
	}
	ivRank = clamp(ivRank, 0, 100)

	return &domain.IVAnalysis{
		Symbol:       symbol,
		Market:       market,
		CurrentIV:    round4(currentIV),
		IVRank:       round2(ivRank),
		IVPercentile: round2(clamp(ivRank*0.95, 0, 100)),
		IV52WHigh:    round4(iv52WHigh),
		IV52WLow:     round4(iv52WLow),
		IV30DAvg:     round4(currentIV * 0.95),
		Timestamp:    time.Now().UTC(),
	}
}

// parseOptionChain accepts Yahoo option chain JSON: calls/puts arrays of
// contract objects with epoch-seconds or ISO expirations.
func parseOptionChain(payload any, symbol string, market domain.Market) (*domain.OptionChain, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unrecognized option chain payload")
	}

	callsData, _ := obj["calls"].([]any)
	putsData, _ := obj["puts"].([]any)

	calls := parseContracts(callsData, symbol, domain.OptionTypeCall)
	puts := parseContracts(putsData, symbol, domain.OptionTypePut)
	if len(calls) == 0 && len(puts) == 0 {
		return nil, fmt.Errorf("option chain payload has no contracts")
	}

	seen := map[time.Time]struct{}{}
	var expirations []time.Time
	for _, c := range append(append([]domain.OptionContract{}, calls...), puts...) {
		if _, ok := seen[c.Expiration]; !ok {
			seen[c.Expiration] = struct{}{}
			expirations = append(expirations, c.Expiration)
		}
	}
	sort.Slice(expirations, func(i, j int) bool { return expirations[i].Before(expirations[j]) })

	return &domain.OptionChain{
		Underlying:  symbol,
		Market:      market,
		Expirations: expirations,
		Calls:       calls,
		Puts:        puts,
		Timestamp:   time.Now().UTC(),
	}, nil
}

func parseContracts(contracts []any, symbol string, optType domain.OptionType) []domain.OptionContract {
	out := make([]domain.OptionContract, 0, len(contracts))
	for _, raw := range contracts {
		c, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		exp, ok := parseTimestamp(firstValue(c, "expiration", "expirationDate"))
		if !ok {
			continue
		}
		exp = exp.Truncate(24 * time.Hour)

		contractSymbol := firstString(c, "contractSymbol")
		if contractSymbol == "" {
			contractSymbol = fmt.Sprintf("%s%s", symbol, exp.Format("2006-01-02"))
		}

		out = append(out, domain.OptionContract{
			Symbol:            contractSymbol,
			Underlying:        symbol,
			Strike:            floatOrZero(c["strike"]),
			Expiration:        exp,
			OptionType:        optType,
			Bid:               safeFloat(c["bid"]),
			Ask:               safeFloat(c["ask"]),
			LastPrice:         safeFloat(c["lastPrice"]),
			Volume:            int64(floatOrZero(c["volume"])),
			OpenInterest:      int64(floatOrZero(c["openInterest"])),
			ImpliedVolatility: safeFloat(c["impliedVolatility"]),
		})
	}
	return out
}

// parseCSVRow parses a 2-line CSV (header + single data row) into a map.
func parseCSVRow(text string) (map[string]any, error) {
	rows, err := parseCSVRows(text)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// parseCSVRows parses simple comma CSV text with a header line into one map
// per data row, header names lowercased.
func parseCSVRows(text string) ([]map[string]any, error) {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("CSV payload has no data rows")
	}

	headers := strings.Split(lines[0], ",")
	for i := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(headers[i]))
	}

	rows := make([]map[string]any, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := strings.Split(line, ",")
		row := make(map[string]any, len(headers))
		for i, header := range headers {
			if i < len(values) {
				row[header] = strings.TrimSpace(values[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseTimestamp accepts epoch seconds, ISO datetimes and YYYY-MM-DD dates.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if strings.Contains(s, "T") {
			if at, err := time.Parse(time.RFC3339, strings.Replace(s, "Z", "+00:00", 1)); err == nil {
				return at.UTC(), true
			}
			if at, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
				return at.UTC(), true
			}
			s = s[:10]
		}
		if len(s) >= 10 {
			if at, err := time.Parse("2006-01-02", s[:10]); err == nil {
				return at, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// safeFloat converts JSON values to *float64, filtering NaN and non-numeric
// strings.
func safeFloat(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return domain.Float64Ptr(t)
	case int:
		return domain.Float64Ptr(float64(t))
	case int64:
		return domain.Float64Ptr(float64(t))
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return nil
		}
		return domain.Float64Ptr(f)
	default:
		return nil
	}
}

func floatOrZero(v any) float64 {
	if f := safeFloat(v); f != nil {
		return *f
	}
	return 0
}

// firstFloat returns the first key in order that parses to a float.
func firstFloat(obj map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		if f := safeFloat(obj[key]); f != nil {
			return f
		}
	}
	return nil
}

func firstValue(obj map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := obj[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
