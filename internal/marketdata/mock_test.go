package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlab/volguard/internal/domain"
)

func TestMockQuoteDeterministic(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	first, err := p.GetQuote(ctx, "AAPL", domain.MarketUS)
	require.NoError(t, err)
	second, err := p.GetQuote(ctx, "AAPL", domain.MarketUS)
	require.NoError(t, err)

	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, first.Volume, second.Volume)
	require.NotNil(t, first.Bid)
	require.NotNil(t, first.Ask)
	assert.Less(t, *first.Bid, *first.Ask)
}

func TestMockQuoteDiffersPerSymbol(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	aapl, err := p.GetQuote(ctx, "AAPL", domain.MarketUS)
	require.NoError(t, err)
	msft, err := p.GetQuote(ctx, "MSFT", domain.MarketUS)
	require.NoError(t, err)

	assert.NotEqual(t, aapl.Price, msft.Price)
}

func TestMockQuoteUnknownSymbolUsesDefaultBase(t *testing.T) {
	p := NewMockProvider()

	quote, err := p.GetQuote(context.Background(), "ZZZZ", domain.MarketUS)
	require.NoError(t, err)
	assert.Greater(t, quote.Price, 0.0)
}

func TestMockOptionChain(t *testing.T) {
	p := NewMockProvider()

	chain, err := p.GetOptionChain(context.Background(), "SPY", domain.MarketUS, nil)
	require.NoError(t, err)

	assert.Equal(t, "SPY", chain.Underlying)
	require.NotEmpty(t, chain.Expirations)
	require.NotEmpty(t, chain.Calls)
	require.Equal(t, len(chain.Calls), len(chain.Puts))

	for i := 1; i < len(chain.Expirations); i++ {
		assert.True(t, chain.Expirations[i].After(chain.Expirations[i-1]))
	}
	for _, c := range chain.Calls {
		assert.Equal(t, domain.OptionTypeCall, c.OptionType)
		require.NotNil(t, c.ImpliedVolatility)
		assert.Greater(t, *c.ImpliedVolatility, 0.0)
		require.NotNil(t, c.Greeks)
	}
}

func TestMockOptionChainSingleExpiration(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	full, err := p.GetOptionChain(ctx, "SPY", domain.MarketUS, nil)
	require.NoError(t, err)
	require.NotEmpty(t, full.Expirations)

	exp := full.Expirations[1]
	filtered, err := p.GetOptionChain(ctx, "SPY", domain.MarketUS, &exp)
	require.NoError(t, err)

	require.Len(t, filtered.Expirations, 1)
	for _, c := range filtered.Calls {
		assert.Equal(t, exp.Year(), c.Expiration.Year())
		assert.Equal(t, exp.YearDay(), c.Expiration.YearDay())
	}
}

func TestMockPriceHistory(t *testing.T) {
	p := NewMockProvider()

	history, err := p.GetPriceHistory(context.Background(), "NVDA", domain.MarketUS, "1d", 30)
	require.NoError(t, err)

	require.Len(t, history.Bars, 30)
	assert.Equal(t, "1d", history.Interval)
	for _, bar := range history.Bars {
		assert.GreaterOrEqual(t, bar.High, bar.Low)
		assert.GreaterOrEqual(t, bar.High, bar.Close)
		assert.LessOrEqual(t, bar.Low, bar.Open)
		assert.Greater(t, bar.Volume, int64(0))
	}
	for i := 1; i < len(history.Bars); i++ {
		assert.True(t, history.Bars[i].Timestamp.After(history.Bars[i-1].Timestamp))
	}
}

func TestMockPriceHistoryIntervals(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	daily, err := p.GetPriceHistory(ctx, "SPY", domain.MarketUS, "1d", 5)
	require.NoError(t, err)
	hourly, err := p.GetPriceHistory(ctx, "SPY", domain.MarketUS, "1h", 5)
	require.NoError(t, err)

	dailyGap := daily.Bars[1].Timestamp.Sub(daily.Bars[0].Timestamp)
	hourlyGap := hourly.Bars[1].Timestamp.Sub(hourly.Bars[0].Timestamp)
	// Daily bars follow the exchange calendar, so a DST boundary shifts one
	// gap by an hour.
	assert.InDelta(t, 24.0, dailyGap.Hours(), 1.0)
	assert.Equal(t, time.Hour, hourlyGap)
}

func TestMockVolatilitySurface(t *testing.T) {
	p := NewMockProvider()

	surface, err := p.GetVolatilitySurface(context.Background(), "SPY", domain.MarketUS)
	require.NoError(t, err)

	require.Len(t, surface.CallIVs, len(surface.Expirations))
	require.Len(t, surface.PutIVs, len(surface.Expirations))
	for _, row := range surface.CallIVs {
		require.Len(t, row, len(surface.Strikes))
		for _, iv := range row {
			assert.Greater(t, iv, 0.0)
		}
	}
}

func TestMockIVAnalysisBounds(t *testing.T) {
	p := NewMockProvider()

	analysis, err := p.GetIVAnalysis(context.Background(), "AAPL", domain.MarketUS)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, analysis.IVRank, 0.0)
	assert.LessOrEqual(t, analysis.IVRank, 100.0)
	assert.Greater(t, analysis.IV52WHigh, analysis.IV52WLow)
	assert.GreaterOrEqual(t, analysis.CurrentIV, analysis.IV52WLow)
	assert.LessOrEqual(t, analysis.CurrentIV, analysis.IV52WHigh)
}

func TestMockSentimentBuckets(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	valid := map[string]bool{
		"bullish": true, "slightly_bullish": true, "neutral": true,
		"slightly_bearish": true, "bearish": true,
	}
	for _, symbol := range []string{"AAPL", "MSFT", "SPY", "NVDA", "QQQ"} {
		sentiment, err := p.GetMarketSentiment(ctx, symbol, domain.MarketUS)
		require.NoError(t, err)
		assert.True(t, valid[sentiment.Sentiment], "unexpected sentiment %q", sentiment.Sentiment)
		assert.Greater(t, sentiment.PutCallRatio, 0.0)
	}
}

func TestMockUnusualActivitySorted(t *testing.T) {
	p := NewMockProvider()

	report, err := p.GetUnusualActivity(context.Background(), domain.MarketUS, 7.0)
	require.NoError(t, err)

	require.NotEmpty(t, report.Alerts)
	for i := 1; i < len(report.Alerts); i++ {
		assert.GreaterOrEqual(t, report.Alerts[i-1].Significance, report.Alerts[i].Significance)
	}
	for _, alert := range report.Alerts {
		assert.GreaterOrEqual(t, alert.Significance, 7.0)
	}
}

func TestMockStrategySuggestions(t *testing.T) {
	p := NewMockProvider()

	suggestions, err := p.GetStrategySuggestions(context.Background(), "AAPL", domain.MarketUS)
	require.NoError(t, err)

	require.NotEmpty(t, suggestions.Suggestions)
	assert.LessOrEqual(t, len(suggestions.Suggestions), 4)
	for _, s := range suggestions.Suggestions {
		assert.NotEmpty(t, s.Strategy)
		assert.GreaterOrEqual(t, s.Suitability, 0)
		assert.LessOrEqual(t, s.Suitability, 100)
	}
}

func TestMockSupportedMarkets(t *testing.T) {
	p := NewMockProvider()

	assert.True(t, p.SupportsMarket(domain.MarketUS))
	assert.True(t, p.SupportsMarket(domain.MarketJP))
	assert.True(t, p.SupportsMarket(domain.MarketHK))
	assert.False(t, p.SupportsMarket(domain.Market("EU")))
}

func TestHashFracRange(t *testing.T) {
	for _, parts := range [][]string{{"a"}, {"a", "b"}, {"quote", "SPY"}, {""}} {
		f := hashFrac(parts...)
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
	assert.Equal(t, hashFrac("x", "y"), hashFrac("x", "y"))
	assert.NotEqual(t, hashFrac("x", "y"), hashFrac("x", "z"))
}
