package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlab/volguard/internal/domain"
)

// failingProvider errors on every call; it stands in for a dead upstream.
type failingProvider struct {
	err error
}

func (f *failingProvider) Name() string { return "failing" }

func (f *failingProvider) SupportedMarkets() []domain.Market { return domain.AllMarkets }

func (f *failingProvider) SupportsMarket(m domain.Market) bool { return true }

func (f *failingProvider) GetQuote(ctx context.Context, symbol string, market domain.Market) (*domain.Quote, error) {
	return nil, f.err
}
func (f *failingProvider) GetOptionChain(ctx context.Context, symbol string, market domain.Market, expiration *time.Time) (*domain.OptionChain, error) {
	return nil, f.err
}
func (f *failingProvider) GetVolatilitySurface(ctx context.Context, symbol string, market domain.Market) (*domain.VolatilitySurface, error) {
	return nil, f.err
}
func (f *failingProvider) GetPriceHistory(ctx context.Context, symbol string, market domain.Market, interval string, limit int) (*domain.PriceHistory, error) {
	return nil, f.err
}

// stubFallback returns canned payloads keyed by mapping key and records the
// calls it saw.
type stubFallback struct {
	payloads map[string]any
	calls    []string
	args     []map[string]any
}

func (s *stubFallback) CallWithFallback(ctx context.Context, capability, mappingKey string, args map[string]any) (any, string, bool) {
	s.calls = append(s.calls, mappingKey)
	s.args = append(s.args, args)
	data, ok := s.payloads[mappingKey]
	if !ok {
		return nil, "", false
	}
	return data, "stub-server", true
}

func TestAggregatedQuotePrimaryWins(t *testing.T) {
	fallback := &stubFallback{}
	p := NewAggregatedProvider(NewMockProvider(), fallback, zerolog.Nop())

	quote, err := p.GetQuote(context.Background(), "SPY", domain.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, 478.50, quote.Price)
	assert.Empty(t, fallback.calls, "fallback must not run when the primary succeeds")
}

func TestAggregatedQuoteFallback(t *testing.T) {
	fallback := &stubFallback{payloads: map[string]any{
		"get_quote": map[string]any{"currentPrice": 481.25, "volume": 900.0},
	}}
	p := NewAggregatedProvider(&failingProvider{err: errors.New("feed down")}, fallback, zerolog.Nop())

	quote, err := p.GetQuote(context.Background(), "SPY", domain.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, 481.25, quote.Price)

	require.Len(t, fallback.args, 1)
	assert.Equal(t, "SPY", fallback.args[0]["ticker"])
}

func TestAggregatedQuoteExhausted(t *testing.T) {
	primaryErr := errors.New("feed down")
	p := NewAggregatedProvider(&failingProvider{err: primaryErr}, &stubFallback{}, zerolog.Nop())

	_, err := p.GetQuote(context.Background(), "SPY", domain.MarketUS)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.ErrorIs(t, err, primaryErr)
}

func TestAggregatedHistoryFallbackMapsPeriod(t *testing.T) {
	fallback := &stubFallback{payloads: map[string]any{
		"get_price_history": []any{
			map[string]any{"date": "2026-08-20", "open": 100.0, "high": 102.0, "low": 99.0, "close": 101.0, "volume": 5000.0},
			map[string]any{"date": "2026-08-21", "open": 101.0, "high": 103.0, "low": 100.0, "close": 102.0, "volume": 6000.0},
			map[string]any{"date": "2026-08-22", "open": 102.0, "high": 104.0, "low": 101.0, "close": 103.0, "volume": 7000.0},
		},
	}}
	p := NewAggregatedProvider(&failingProvider{err: errors.New("down")}, fallback, zerolog.Nop())

	history, err := p.GetPriceHistory(context.Background(), "SPY", domain.MarketUS, "1h", 2)
	require.NoError(t, err)

	require.Len(t, fallback.args, 1)
	assert.Equal(t, "5d", fallback.args[0]["period"])
	assert.Equal(t, "1h", fallback.args[0]["interval"])
	// Trimmed to the newest `limit` bars.
	require.Len(t, history.Bars, 2)
	assert.Equal(t, 103.0, history.Bars[1].Close)
}

func TestAggregatedOptionChainFallbackMergesSides(t *testing.T) {
	fallback := &stubFallback{payloads: map[string]any{
		"get_option_expirations": []any{"2026-09-18", "2026-10-16"},
		"get_option_chain": []any{
			map[string]any{"strike": 480.0, "expiration": "2026-09-18", "impliedVolatility": 0.22},
		},
	}}
	p := NewAggregatedProvider(&failingProvider{err: errors.New("down")}, fallback, zerolog.Nop())

	chain, err := p.GetOptionChain(context.Background(), "SPY", domain.MarketUS, nil)
	require.NoError(t, err)

	// Expirations listed first, then one fetch per side.
	assert.Equal(t, []string{"get_option_expirations", "get_option_chain", "get_option_chain"}, fallback.calls)
	assert.Equal(t, "2026-09-18", fallback.args[1]["expiration_date"])
	assert.Len(t, chain.Calls, 1)
	assert.Len(t, chain.Puts, 1)
}

func TestAggregatedIVAnalysisNotSupportedAnywhere(t *testing.T) {
	p := NewAggregatedProvider(&failingProvider{err: errors.New("down")}, &stubFallback{}, zerolog.Nop())

	_, err := p.GetIVAnalysis(context.Background(), "SPY", domain.MarketUS)
	require.Error(t, err)
	// failingProvider lacks the capability, so the verdict stays
	// not-supported rather than provider-unavailable.
	assert.ErrorIs(t, err, domain.ErrNotSupported)
}

func TestAggregatedIVAnalysisFromFallbackChain(t *testing.T) {
	fallback := &stubFallback{payloads: map[string]any{
		"get_quote":              map[string]any{"currentPrice": 186.0},
		"get_option_expirations": []any{"2026-09-18"},
		"get_option_chain": []any{
			map[string]any{"strike": 185.0, "impliedVolatility": 0.30},
			map[string]any{"strike": 190.0, "impliedVolatility": 0.34},
		},
	}}
	p := NewAggregatedProvider(&failingProvider{err: errors.New("down")}, fallback, zerolog.Nop())

	analysis, err := p.GetIVAnalysis(context.Background(), "AAPL", domain.MarketUS)
	require.NoError(t, err)
	// Stock info has no 52-week range, so IV comes from the chain median.
	assert.Equal(t, 0.34, analysis.CurrentIV)
}

func TestAggregatedSentimentFallback(t *testing.T) {
	fallback := &stubFallback{payloads: map[string]any{
		"get_sentiment": []any{
			map[string]any{"toGrade": "Buy"},
			map[string]any{"toGrade": "Buy"},
			map[string]any{"toGrade": "Buy"},
		},
	}}
	p := NewAggregatedProvider(&failingProvider{err: errors.New("down")}, fallback, zerolog.Nop())

	sentiment, err := p.GetMarketSentiment(context.Background(), "AAPL", domain.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, "bullish", sentiment.Sentiment)
}

func TestAggregatedUnusualActivityPrimaryOnly(t *testing.T) {
	p := NewAggregatedProvider(&failingProvider{err: errors.New("down")}, &stubFallback{}, zerolog.Nop())

	_, err := p.GetUnusualActivity(context.Background(), domain.MarketUS, 7.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotSupported)
}

func TestAggregatedSetPrimary(t *testing.T) {
	p := NewAggregatedProvider(&failingProvider{err: errors.New("down")}, &stubFallback{}, zerolog.Nop())
	assert.Equal(t, "failing", p.Primary().Name())

	p.SetPrimary(NewMockProvider())
	assert.Equal(t, "mock", p.Primary().Name())

	quote, err := p.GetQuote(context.Background(), "SPY", domain.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, 478.50, quote.Price)
}
