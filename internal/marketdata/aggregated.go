package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/domain"
)

// historyPeriods maps bar intervals to the fetch window fallback servers
// expect for them.
var historyPeriods = map[string]string{
	"1d": "1mo",
	"1h": "5d",
	"5m": "1d",
}

// FallbackCaller routes a canonical operation to external tool servers in
// capability priority order. Implemented by toolserver.Manager.
type FallbackCaller interface {
	CallWithFallback(ctx context.Context, capability, mappingKey string, args map[string]any) (data any, serverID string, ok bool)
}

// AggregatedProvider wraps a primary provider with tool-server fallbacks.
// Every call tries the primary first; on failure the fallback chain answers
// in its own wire format, which the parsers normalize into domain models.
// When both sides fail, the returned error carries ErrProviderUnavailable and
// chains the primary's error.
type AggregatedProvider struct {
	mu       sync.RWMutex
	primary  domain.Provider
	fallback FallbackCaller
	log      zerolog.Logger
}

// NewAggregatedProvider wraps primary with the given fallback router.
func NewAggregatedProvider(primary domain.Provider, fallback FallbackCaller, log zerolog.Logger) *AggregatedProvider {
	return &AggregatedProvider{
		primary:  primary,
		fallback: fallback,
		log:      log.With().Str("component", "aggregated_provider").Logger(),
	}
}

func (p *AggregatedProvider) Name() string { return "aggregated" }

// SupportedMarkets reports the current primary's markets.
func (p *AggregatedProvider) SupportedMarkets() []domain.Market {
	return p.Primary().SupportedMarkets()
}

func (p *AggregatedProvider) SupportsMarket(market domain.Market) bool {
	return p.Primary().SupportsMarket(market)
}

// Primary returns the current primary provider.
func (p *AggregatedProvider) Primary() domain.Provider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.primary
}

// SetPrimary swaps the primary provider. The fallback chain is unaffected.
func (p *AggregatedProvider) SetPrimary(provider domain.Provider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.primary = provider
}

// GetQuote tries the primary, then the quote fallback chain.
func (p *AggregatedProvider) GetQuote(ctx context.Context, symbol string, market domain.Market) (*domain.Quote, error) {
	quote, primaryErr := p.Primary().GetQuote(ctx, symbol, market)
	if primaryErr == nil {
		return quote, nil
	}
	if ctx.Err() != nil {
		return nil, primaryErr
	}

	if data, serverID, ok := p.fallback.CallWithFallback(ctx, "quote", "get_quote", map[string]any{"ticker": symbol}); ok {
		if quote, err := parseQuote(data, symbol, market); err == nil {
			p.logFallback("quote", symbol, serverID)
			return quote, nil
		} else {
			p.log.Warn().Err(err).Str("server", serverID).Msg("Fallback quote payload unusable")
		}
	}
	return nil, p.exhausted("quote", symbol, primaryErr)
}

// GetOptionChain tries the primary, then assembles a chain from fallback
// servers. Fallback servers serve one expiration and one side per call, so a
// full chain needs an expiration lookup plus separate calls and puts fetches.
func (p *AggregatedProvider) GetOptionChain(ctx context.Context, symbol string, market domain.Market, expiration *time.Time) (*domain.OptionChain, error) {
	chain, primaryErr := p.Primary().GetOptionChain(ctx, symbol, market, expiration)
	if primaryErr == nil {
		return chain, nil
	}
	if ctx.Err() != nil {
		return nil, primaryErr
	}

	expDate := ""
	if expiration != nil {
		expDate = expiration.Format("2006-01-02")
	} else {
		expDate = p.firstFallbackExpiration(ctx, symbol)
	}
	if expDate == "" {
		return nil, p.exhausted("option chain", symbol, primaryErr)
	}

	merged := map[string]any{}
	for _, side := range []string{"calls", "puts"} {
		data, _, ok := p.fallback.CallWithFallback(ctx, "options", "get_option_chain", map[string]any{
			"ticker":          symbol,
			"expiration_date": expDate,
			"option_type":     side,
		})
		if !ok {
			continue
		}
		switch v := data.(type) {
		case []any:
			merged[side] = v
		case map[string]any:
			if list, ok := v[side].([]any); ok {
				merged[side] = list
			}
		}
	}
	if len(merged) > 0 {
		if chain, err := parseOptionChain(merged, symbol, market); err == nil {
			p.logFallback("option chain", symbol, "")
			return chain, nil
		}
	}
	return nil, p.exhausted("option chain", symbol, primaryErr)
}

// GetVolatilitySurface has no fallback shape; it is primary-only.
func (p *AggregatedProvider) GetVolatilitySurface(ctx context.Context, symbol string, market domain.Market) (*domain.VolatilitySurface, error) {
	return p.Primary().GetVolatilitySurface(ctx, symbol, market)
}

// GetPriceHistory tries the primary, then the history fallback chain.
func (p *AggregatedProvider) GetPriceHistory(ctx context.Context, symbol string, market domain.Market, interval string, limit int) (*domain.PriceHistory, error) {
	history, primaryErr := p.Primary().GetPriceHistory(ctx, symbol, market, interval, limit)
	if primaryErr == nil {
		return history, nil
	}
	if ctx.Err() != nil {
		return nil, primaryErr
	}

	period, ok := historyPeriods[interval]
	if !ok {
		period = "1mo"
	}
	if data, serverID, ok := p.fallback.CallWithFallback(ctx, "history", "get_price_history", map[string]any{
		"ticker":   symbol,
		"period":   period,
		"interval": interval,
	}); ok {
		if history, err := parsePriceHistory(data, symbol, market, interval); err == nil {
			if limit > 0 && len(history.Bars) > limit {
				history.Bars = history.Bars[len(history.Bars)-limit:]
			}
			p.logFallback("price history", symbol, serverID)
			return history, nil
		}
	}
	return nil, p.exhausted("price history", symbol, primaryErr)
}

// GetIVAnalysis tries the primary, then derives IV from fallback stock info,
// then from fallback option chain ATM vols.
func (p *AggregatedProvider) GetIVAnalysis(ctx context.Context, symbol string, market domain.Market) (*domain.IVAnalysis, error) {
	primaryErr := fmt.Errorf("%w: %s does not provide IV analysis", domain.ErrNotSupported, p.Primary().Name())
	if provider, ok := p.Primary().(domain.IVAnalysisProvider); ok {
		var analysis *domain.IVAnalysis
		if analysis, primaryErr = provider.GetIVAnalysis(ctx, symbol, market); primaryErr == nil {
			return analysis, nil
		}
		if ctx.Err() != nil {
			return nil, primaryErr
		}
	}

	stockData, serverID, ok := p.fallback.CallWithFallback(ctx, "quote", "get_quote", map[string]any{"ticker": symbol})
	if ok {
		if analysis, err := buildIVAnalysis(stockData, symbol, market); err == nil {
			p.logFallback("iv analysis", symbol, serverID)
			return analysis, nil
		}
	}

	if expDate := p.firstFallbackExpiration(ctx, symbol); expDate != "" {
		chainData, serverID, ok := p.fallback.CallWithFallback(ctx, "options", "get_option_chain", map[string]any{
			"ticker":          symbol,
			"expiration_date": expDate,
			"option_type":     "calls",
		})
		if ok {
			if analysis, err := buildIVFromChain(chainData, stockData, symbol, market); err == nil {
				p.logFallback("iv analysis", symbol, serverID)
				return analysis, nil
			}
		}
	}
	return nil, p.exhausted("iv analysis", symbol, primaryErr)
}

// GetMarketSentiment tries the primary, then maps fallback analyst
// recommendations or news sentiment onto the option-flow model.
func (p *AggregatedProvider) GetMarketSentiment(ctx context.Context, symbol string, market domain.Market) (*domain.MarketSentiment, error) {
	primaryErr := fmt.Errorf("%w: %s does not provide sentiment", domain.ErrNotSupported, p.Primary().Name())
	if provider, ok := p.Primary().(domain.SentimentProvider); ok {
		var sentiment *domain.MarketSentiment
		if sentiment, primaryErr = provider.GetMarketSentiment(ctx, symbol, market); primaryErr == nil {
			return sentiment, nil
		}
		if ctx.Err() != nil {
			return nil, primaryErr
		}
	}

	if data, serverID, ok := p.fallback.CallWithFallback(ctx, "sentiment", "get_sentiment", map[string]any{
		"ticker":              symbol,
		"recommendation_type": "upgrades_downgrades",
	}); ok {
		if sentiment, err := parseSentiment(data, symbol, market); err == nil {
			p.logFallback("sentiment", symbol, serverID)
			return sentiment, nil
		}
	}
	return nil, p.exhausted("sentiment", symbol, primaryErr)
}

// GetUnusualActivity is primary-only; no fallback server exposes flow scans.
func (p *AggregatedProvider) GetUnusualActivity(ctx context.Context, market domain.Market, minVolumeOIRatio float64) (*domain.UnusualActivityReport, error) {
	provider, ok := p.Primary().(domain.UnusualActivityProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not provide unusual activity scanning", domain.ErrNotSupported, p.Primary().Name())
	}
	return provider.GetUnusualActivity(ctx, market, minVolumeOIRatio)
}

// GetStrategySuggestions is primary-only.
func (p *AggregatedProvider) GetStrategySuggestions(ctx context.Context, symbol string, market domain.Market) (*domain.StrategySuggestions, error) {
	provider, ok := p.Primary().(domain.StrategySuggestionProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not provide strategy suggestions", domain.ErrNotSupported, p.Primary().Name())
	}
	return provider.GetStrategySuggestions(ctx, symbol, market)
}

// firstFallbackExpiration asks the options chain for the nearest listed
// expiration date.
func (p *AggregatedProvider) firstFallbackExpiration(ctx context.Context, symbol string) string {
	data, _, ok := p.fallback.CallWithFallback(ctx, "options", "get_option_expirations", map[string]any{"ticker": symbol})
	if !ok {
		return ""
	}
	list, ok := data.([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	exp, _ := list[0].(string)
	return exp
}

func (p *AggregatedProvider) logFallback(operation, symbol, serverID string) {
	p.log.Info().
		Str("operation", operation).
		Str("symbol", symbol).
		Str("server", serverID).
		Msg("Served from fallback tool server")
}

func (p *AggregatedProvider) exhausted(operation, symbol string, primaryErr error) error {
	// A primary that never supported the operation stays a not-supported
	// error; everything else becomes a provider outage.
	if errors.Is(primaryErr, domain.ErrNotSupported) {
		return primaryErr
	}
	return fmt.Errorf("%w: %s for %s failed on primary and all fallbacks (primary: %w)",
		domain.ErrProviderUnavailable, operation, symbol, primaryErr)
}
