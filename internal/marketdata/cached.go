package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/voltlab/volguard/internal/cache"
	"github.com/voltlab/volguard/internal/domain"
)

// CachedProvider wraps a provider with the shared TTL cache. Keys carry the
// market and symbol so invalidating a prefix like "quote:" clears one data
// category across markets.
type CachedProvider struct {
	inner domain.Provider
	cache *cache.Cache
}

// NewCachedProvider wraps inner with read-through caching.
func NewCachedProvider(inner domain.Provider, c *cache.Cache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: c}
}

// Inner returns the wrapped provider.
func (p *CachedProvider) Inner() domain.Provider { return p.inner }

func (p *CachedProvider) Name() string { return p.inner.Name() }

func (p *CachedProvider) SupportedMarkets() []domain.Market { return p.inner.SupportedMarkets() }
func (p *CachedProvider) SupportsMarket(m domain.Market) bool {
	return p.inner.SupportsMarket(m)
}

func (p *CachedProvider) GetQuote(ctx context.Context, symbol string, market domain.Market) (*domain.Quote, error) {
	key := fmt.Sprintf("quote:%s:%s", market, symbol)
	v, err := p.cache.GetOrFetch(ctx, key, cache.TTLQuotes, func(ctx context.Context) (any, error) {
		return p.inner.GetQuote(ctx, symbol, market)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Quote), nil
}

func (p *CachedProvider) GetOptionChain(ctx context.Context, symbol string, market domain.Market, expiration *time.Time) (*domain.OptionChain, error) {
	expKey := "all"
	if expiration != nil {
		expKey = expiration.Format("2006-01-02")
	}
	key := fmt.Sprintf("options:%s:%s:%s", market, symbol, expKey)
	v, err := p.cache.GetOrFetch(ctx, key, cache.TTLOptions, func(ctx context.Context) (any, error) {
		return p.inner.GetOptionChain(ctx, symbol, market, expiration)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.OptionChain), nil
}

func (p *CachedProvider) GetVolatilitySurface(ctx context.Context, symbol string, market domain.Market) (*domain.VolatilitySurface, error) {
	key := fmt.Sprintf("volsurface:%s:%s", market, symbol)
	v, err := p.cache.GetOrFetch(ctx, key, cache.TTLOptions, func(ctx context.Context) (any, error) {
		return p.inner.GetVolatilitySurface(ctx, symbol, market)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.VolatilitySurface), nil
}

func (p *CachedProvider) GetPriceHistory(ctx context.Context, symbol string, market domain.Market, interval string, limit int) (*domain.PriceHistory, error) {
	key := fmt.Sprintf("history:%s:%s:%s:%d", market, symbol, interval, limit)
	v, err := p.cache.GetOrFetch(ctx, key, cache.TTLQuotes, func(ctx context.Context) (any, error) {
		return p.inner.GetPriceHistory(ctx, symbol, market, interval, limit)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.PriceHistory), nil
}

func (p *CachedProvider) GetIVAnalysis(ctx context.Context, symbol string, market domain.Market) (*domain.IVAnalysis, error) {
	provider, ok := p.inner.(domain.IVAnalysisProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not provide IV analysis", domain.ErrNotSupported, p.inner.Name())
	}
	key := fmt.Sprintf("iv:%s:%s", market, symbol)
	v, err := p.cache.GetOrFetch(ctx, key, cache.TTLIVAnalysis, func(ctx context.Context) (any, error) {
		return provider.GetIVAnalysis(ctx, symbol, market)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.IVAnalysis), nil
}

func (p *CachedProvider) GetMarketSentiment(ctx context.Context, symbol string, market domain.Market) (*domain.MarketSentiment, error) {
	provider, ok := p.inner.(domain.SentimentProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not provide sentiment", domain.ErrNotSupported, p.inner.Name())
	}
	key := fmt.Sprintf("sentiment:%s:%s", market, symbol)
	v, err := p.cache.GetOrFetch(ctx, key, cache.TTLSentiment, func(ctx context.Context) (any, error) {
		return provider.GetMarketSentiment(ctx, symbol, market)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.MarketSentiment), nil
}

func (p *CachedProvider) GetUnusualActivity(ctx context.Context, market domain.Market, minVolumeOIRatio float64) (*domain.UnusualActivityReport, error) {
	provider, ok := p.inner.(domain.UnusualActivityProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not provide unusual activity scanning", domain.ErrNotSupported, p.inner.Name())
	}
	key := fmt.Sprintf("unusual:%s:%.2f", market, minVolumeOIRatio)
	v, err := p.cache.GetOrFetch(ctx, key, cache.TTLSentiment, func(ctx context.Context) (any, error) {
		return provider.GetUnusualActivity(ctx, market, minVolumeOIRatio)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.UnusualActivityReport), nil
}

func (p *CachedProvider) GetStrategySuggestions(ctx context.Context, symbol string, market domain.Market) (*domain.StrategySuggestions, error) {
	provider, ok := p.inner.(domain.StrategySuggestionProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not provide strategy suggestions", domain.ErrNotSupported, p.inner.Name())
	}
	key := fmt.Sprintf("strategies:%s:%s", market, symbol)
	v, err := p.cache.GetOrFetch(ctx, key, cache.TTLSentiment, func(ctx context.Context) (any, error) {
		return provider.GetStrategySuggestions(ctx, symbol, market)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.StrategySuggestions), nil
}
