package handlers

import (
	"fmt"
	"net/http"

	"github.com/voltlab/volguard/internal/domain"
	"github.com/voltlab/volguard/internal/httpx"
)

// HandleProviders handles GET /api/providers
func (h *Handler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"active":    h.registry.Active(),
		"available": h.registry.Available(),
	})
}

// HandleProviderSwitch handles POST /api/providers/switch.
// The body carries {"provider": <name>} plus provider-specific options
// (ibkr: host/port/client_id, saxo: access_token/environment).
func (h *Handler) HandleProviderSwitch(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{}
	if err := httpx.DecodeBody(r, &body); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	name, _ := body["provider"].(string)
	if name == "" {
		httpx.WriteError(w, h.log,
			fmt.Errorf("%w: provider is required", domain.ErrInvalidInputs))
		return
	}
	delete(body, "provider")

	if err := h.registry.Switch(name, body); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"active":  h.registry.Active(),
		"message": fmt.Sprintf("Switched to provider: %s", name),
	})
}

// HandleMarketIndicators handles GET /api/market-indicators
func (h *Handler) HandleMarketIndicators(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, h.log, http.StatusOK, h.indicators.Get(r.Context()))
}

// HandleFearGreed handles GET /api/fear-greed
func (h *Handler) HandleFearGreed(w http.ResponseWriter, r *http.Request) {
	index, err := h.fearGreed.GetIndex(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, index)
}
