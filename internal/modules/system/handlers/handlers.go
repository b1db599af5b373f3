// Package handlers provides HTTP handlers for service health and market info.
package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/voltlab/volguard/internal/httpx"
)

// ActiveProviderFunc reports the name of the active market data provider.
type ActiveProviderFunc func() string

// Handler serves health and market descriptor endpoints.
type Handler struct {
	activeProvider ActiveProviderFunc
	startedAt      time.Time
	log            zerolog.Logger
}

// NewHandler creates a system handler. startedAt anchors uptime reporting.
func NewHandler(activeProvider ActiveProviderFunc, startedAt time.Time, log zerolog.Logger) *Handler {
	return &Handler{
		activeProvider: activeProvider,
		startedAt:      startedAt,
		log:            log.With().Str("handler", "system").Logger(),
	}
}

// RegisterRoutes mounts the system routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/markets", h.HandleMarkets)
}

// HandleHealth handles GET /api/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	system := map[string]interface{}{
		"goroutines":     runtime.NumGoroutine(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		system["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		system["memory_percent"] = vm.UsedPercent
	}

	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"provider":  h.activeProvider(),
		"system":    system,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleMarkets handles GET /api/markets
func (h *Handler) HandleMarkets(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"markets": marketDescriptors(),
	})
}

func marketDescriptors() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"code":          "US",
			"name":          "United States",
			"timezone":      "America/New_York",
			"trading_hours": "09:30-16:00",
			"currency":      "USD",
			"indices":       []string{"SPX", "NDX", "RUT", "VIX"},
		},
		{
			"code":          "JP",
			"name":          "Japan",
			"timezone":      "Asia/Tokyo",
			"trading_hours": "09:00-15:00",
			"currency":      "JPY",
			"indices":       []string{"NKY", "TPX"},
		},
		{
			"code":          "HK",
			"name":          "Hong Kong",
			"timezone":      "Asia/Hong_Kong",
			"trading_hours": "09:30-16:00",
			"currency":      "HKD",
			"indices":       []string{"HSI", "HSCEI"},
		},
	}
}
