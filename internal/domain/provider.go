package domain

import (
	"context"
	"time"
)

// Capability identifies an optional provider feature. The aggregated layer
// keys its fallback routing on these.
type Capability string

const (
	CapabilityQuote               Capability = "quote"
	CapabilityOptions             Capability = "options"
	CapabilityHistory             Capability = "history"
	CapabilityIVAnalysis          Capability = "iv_analysis"
	CapabilitySentiment           Capability = "sentiment"
	CapabilityVolatilitySurface   Capability = "volatility_surface"
	CapabilityUnusualActivity     Capability = "unusual_activity"
	CapabilityStrategySuggestions Capability = "strategy_suggestions"
)

// Provider is the surface every market-data provider implements.
type Provider interface {
	// Name returns the provider identifier used in configuration and the API.
	Name() string
	// SupportedMarkets lists the market regions the provider serves.
	SupportedMarkets() []Market
	// SupportsMarket reports whether the provider serves the given market.
	SupportsMarket(market Market) bool

	// GetQuote fetches a real-time quote.
	GetQuote(ctx context.Context, symbol string, market Market) (*Quote, error)
	// GetOptionChain fetches the option chain, optionally for one expiration.
	GetOptionChain(ctx context.Context, symbol string, market Market, expiration *time.Time) (*OptionChain, error)
	// GetVolatilitySurface fetches the implied volatility surface.
	GetVolatilitySurface(ctx context.Context, symbol string, market Market) (*VolatilitySurface, error)
	// GetPriceHistory fetches historical bars (interval "1d", "1h" or "5m").
	GetPriceHistory(ctx context.Context, symbol string, market Market, interval string, limit int) (*PriceHistory, error)
}

// Optional capabilities. A provider advertises one by implementing the
// interface; callers type-assert and surface ErrNotSupported otherwise.

// IVAnalysisProvider adds implied-volatility rank/percentile analytics.
type IVAnalysisProvider interface {
	GetIVAnalysis(ctx context.Context, symbol string, market Market) (*IVAnalysis, error)
}

// SentimentProvider adds option-flow sentiment.
type SentimentProvider interface {
	GetMarketSentiment(ctx context.Context, symbol string, market Market) (*MarketSentiment, error)
}

// UnusualActivityProvider adds anomalous option-flow scanning.
type UnusualActivityProvider interface {
	GetUnusualActivity(ctx context.Context, market Market, minVolumeOIRatio float64) (*UnusualActivityReport, error)
}

// StrategySuggestionProvider adds per-symbol strategy suggestions.
type StrategySuggestionProvider interface {
	GetStrategySuggestions(ctx context.Context, symbol string, market Market) (*StrategySuggestions, error)
}
