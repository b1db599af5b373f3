// Package handlers provides HTTP handlers for the watchlist.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/httpx"
	"github.com/voltlab/volguard/internal/store"
)

// Handler serves watchlist CRUD endpoints.
type Handler struct {
	repo *store.WatchlistRepository
	log  zerolog.Logger
}

// NewHandler creates a watchlist handler.
func NewHandler(repo *store.WatchlistRepository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "watchlist").Logger(),
	}
}

// RegisterRoutes mounts the watchlist routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/watchlist", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleAdd)
		r.Delete("/{symbol}", h.HandleRemove)
	})
}

// HandleList handles GET /api/watchlist
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.List(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"watchlist": entries,
		"count":     len(entries),
	})
}

type addRequest struct {
	Symbol string `json:"symbol"`
	Market string `json:"market"`
}

// HandleAdd handles POST /api/watchlist
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	entry, err := h.repo.Add(r.Context(), req.Symbol, req.Market)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	h.log.Info().Str("symbol", entry.Symbol).Str("market", entry.Market).Msg("Added to watchlist")
	httpx.WriteJSON(w, h.log, http.StatusCreated, entry)
}

// HandleRemove handles DELETE /api/watchlist/{symbol}
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if err := h.repo.Remove(r.Context(), symbol); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]string{"removed": symbol})
}
