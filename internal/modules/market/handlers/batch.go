package handlers

import (
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/voltlab/volguard/internal/domain"
	"github.com/voltlab/volguard/internal/httpx"
)

// batchConcurrency bounds the provider fan-out per batch request.
const batchConcurrency = 8

type batchSymbol struct {
	Symbol string `json:"symbol"`
	Market string `json:"market"`
}

type batchRequest struct {
	Symbols []batchSymbol `json:"symbols"`
}

// HandleBatchQuotes handles POST /api/quotes/batch.
// Failed symbols are omitted from the result rather than failing the batch.
func (h *Handler) HandleBatchQuotes(w http.ResponseWriter, r *http.Request) {
	h.handleBatch(w, r, func(entry batchSymbol, market domain.Market) (any, error) {
		return h.provider.GetQuote(r.Context(), entry.Symbol, market)
	})
}

// HandleBatchIVAnalysis handles POST /api/iv-analysis/batch.
func (h *Handler) HandleBatchIVAnalysis(w http.ResponseWriter, r *http.Request) {
	h.handleBatch(w, r, func(entry batchSymbol, market domain.Market) (any, error) {
		return h.provider.GetIVAnalysis(r.Context(), entry.Symbol, market)
	})
}

func (h *Handler) handleBatch(
	w http.ResponseWriter,
	r *http.Request,
	fetch func(entry batchSymbol, market domain.Market) (any, error),
) {
	var req batchRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	results := make(map[string]any, len(req.Symbols))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(r.Context())
	g.SetLimit(batchConcurrency)

	for _, entry := range req.Symbols {
		entry := entry
		if entry.Symbol == "" {
			continue
		}
		g.Go(func() error {
			market, err := domain.ParseMarket(entry.Market)
			if err != nil {
				h.log.Warn().Err(err).Str("symbol", entry.Symbol).Msg("Skipping batch symbol")
				return nil
			}
			data, err := fetch(entry, market)
			if err != nil {
				h.log.Warn().Err(err).Str("symbol", entry.Symbol).Msg("Batch fetch failed")
				return nil
			}
			mu.Lock()
			results[strings.ToUpper(entry.Symbol)] = data
			mu.Unlock()
			return nil
		})
	}

	g.Wait()
	httpx.WriteJSON(w, h.log, http.StatusOK, results)
}
