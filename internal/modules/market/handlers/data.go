package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voltlab/volguard/internal/domain"
	"github.com/voltlab/volguard/internal/httpx"
)

// marketParam parses the ?market= query value (empty defaults to US).
func marketParam(r *http.Request) (domain.Market, error) {
	return domain.ParseMarket(r.URL.Query().Get("market"))
}

// HandleQuote handles GET /api/quote/{symbol}
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	market, err := marketParam(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	quote, err := h.provider.GetQuote(r.Context(), chi.URLParam(r, "symbol"), market)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, quote)
}

// HandleOptions handles GET /api/options/{symbol}?expiration=&market=
func (h *Handler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	market, err := marketParam(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	var expiration *time.Time
	if raw := r.URL.Query().Get("expiration"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.WriteError(w, h.log,
				fmt.Errorf("%w: expiration must be YYYY-MM-DD", domain.ErrInvalidInputs))
			return
		}
		expiration = &parsed
	}

	chain, err := h.provider.GetOptionChain(r.Context(), chi.URLParam(r, "symbol"), market, expiration)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, chain)
}

// HandleVolatility handles GET /api/volatility/{symbol}
func (h *Handler) HandleVolatility(w http.ResponseWriter, r *http.Request) {
	market, err := marketParam(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	surface, err := h.provider.GetVolatilitySurface(r.Context(), chi.URLParam(r, "symbol"), market)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, surface)
}

// HandleHistory handles GET /api/history/{symbol}?interval=&limit=
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	market, err := marketParam(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1d"
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.WriteError(w, h.log,
				fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidInputs))
			return
		}
		limit = parsed
	}

	history, err := h.provider.GetPriceHistory(r.Context(), chi.URLParam(r, "symbol"), market, interval, limit)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, history)
}

// HandleIVAnalysis handles GET /api/iv-analysis/{symbol}
func (h *Handler) HandleIVAnalysis(w http.ResponseWriter, r *http.Request) {
	market, err := marketParam(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	analysis, err := h.provider.GetIVAnalysis(r.Context(), chi.URLParam(r, "symbol"), market)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, analysis)
}

// HandleMarketSentiment handles GET /api/market-sentiment/{symbol}
func (h *Handler) HandleMarketSentiment(w http.ResponseWriter, r *http.Request) {
	market, err := marketParam(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	sentiment, err := h.provider.GetMarketSentiment(r.Context(), chi.URLParam(r, "symbol"), market)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, sentiment)
}

// HandleUnusualActivity handles GET /api/unusual-activity?market=&min_ratio=
func (h *Handler) HandleUnusualActivity(w http.ResponseWriter, r *http.Request) {
	market := domain.Market("")
	if raw := r.URL.Query().Get("market"); raw != "" {
		parsed, err := domain.ParseMarket(raw)
		if err != nil {
			httpx.WriteError(w, h.log, err)
			return
		}
		market = parsed
	}

	minRatio := 2.0
	if raw := r.URL.Query().Get("min_ratio"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			httpx.WriteError(w, h.log,
				fmt.Errorf("%w: min_ratio must be a non-negative number", domain.ErrInvalidInputs))
			return
		}
		minRatio = parsed
	}

	report, err := h.provider.GetUnusualActivity(r.Context(), market, minRatio)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, report)
}

// HandleStrategySuggestions handles GET /api/strategy-suggestions/{symbol}
func (h *Handler) HandleStrategySuggestions(w http.ResponseWriter, r *http.Request) {
	market, err := marketParam(r)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	suggestions, err := h.provider.GetStrategySuggestions(r.Context(), chi.URLParam(r, "symbol"), market)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, suggestions)
}
