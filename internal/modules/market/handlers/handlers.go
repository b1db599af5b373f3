// Package handlers provides the market data HTTP surface: quotes, option
// chains, analytics, provider management, and cross-asset indicators.
package handlers

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/clients/feargreed"
	"github.com/voltlab/volguard/internal/domain"
	"github.com/voltlab/volguard/internal/marketdata"
)

// MarketData is the full provider surface the handlers read from. The
// cached aggregated provider satisfies it, as does the mock in tests.
type MarketData interface {
	domain.Provider
	domain.IVAnalysisProvider
	domain.SentimentProvider
	domain.UnusualActivityProvider
	domain.StrategySuggestionProvider
}

// FearGreedSource fetches the fear/greed index.
type FearGreedSource interface {
	GetIndex(ctx context.Context) (*feargreed.Index, error)
}

// Handler serves market data endpoints.
type Handler struct {
	provider   MarketData
	registry   *marketdata.Registry
	indicators *marketdata.IndicatorsService
	fearGreed  FearGreedSource
	log        zerolog.Logger
}

// NewHandler creates a market data handler.
func NewHandler(
	provider MarketData,
	registry *marketdata.Registry,
	indicators *marketdata.IndicatorsService,
	fearGreed FearGreedSource,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		provider:   provider,
		registry:   registry,
		indicators: indicators,
		fearGreed:  fearGreed,
		log:        log.With().Str("handler", "market").Logger(),
	}
}

// RegisterRoutes mounts the market data routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/quote/{symbol}", h.HandleQuote)
	r.Get("/options/{symbol}", h.HandleOptions)
	r.Get("/volatility/{symbol}", h.HandleVolatility)
	r.Get("/history/{symbol}", h.HandleHistory)
	r.Get("/iv-analysis/{symbol}", h.HandleIVAnalysis)
	r.Get("/market-sentiment/{symbol}", h.HandleMarketSentiment)
	r.Get("/unusual-activity", h.HandleUnusualActivity)
	r.Get("/strategy-suggestions/{symbol}", h.HandleStrategySuggestions)

	r.Post("/quotes/batch", h.HandleBatchQuotes)
	r.Post("/iv-analysis/batch", h.HandleBatchIVAnalysis)

	r.Get("/providers", h.HandleProviders)
	r.Post("/providers/switch", h.HandleProviderSwitch)

	r.Get("/market-indicators", h.HandleMarketIndicators)
	r.Get("/fear-greed", h.HandleFearGreed)
}
