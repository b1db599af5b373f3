// Package handlers provides the probability calculator endpoint.
package handlers

import (
	"fmt"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/voltlab/volguard/internal/domain"
	"github.com/voltlab/volguard/internal/httpx"
)

// Handler serves lognormal probability calculations.
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a calculator handler.
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{log: log.With().Str("handler", "calculator").Logger()}
}

// RegisterRoutes mounts the calculator routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/calculator", func(r chi.Router) {
		r.Post("/probability", h.HandleProbability)
	})
}

type probabilityRequest struct {
	Spot   float64 `json:"spot"`
	Strike float64 `json:"strike"`
	Days   float64 `json:"days"`
	IV     float64 `json:"iv"`
}

// HandleProbability handles POST /api/calculator/probability.
// Lognormal model: d = (ln(S/K) + 0.5 sigma^2 t) / (sigma sqrt(t)),
// t in years; prob_below = Phi(-d).
func (h *Handler) HandleProbability(w http.ResponseWriter, r *http.Request) {
	var req probabilityRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if req.Spot <= 0 || req.Strike <= 0 || req.Days <= 0 || req.IV <= 0 {
		httpx.WriteError(w, h.log,
			fmt.Errorf("%w: spot, strike, days, and iv must all be positive", domain.ErrInvalidInputs))
		return
	}

	t := req.Days / 365.0
	sigmaSqrtT := req.IV * math.Sqrt(t)
	d := (math.Log(req.Spot/req.Strike) + 0.5*req.IV*req.IV*t) / sigmaSqrtT

	probBelow := distuv.UnitNormal.CDF(-d) * 100.0
	expectedMove := req.Spot * sigmaSqrtT

	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"spot":                  req.Spot,
		"strike":                req.Strike,
		"days":                  req.Days,
		"iv":                    req.IV,
		"prob_below":            round2(probBelow),
		"prob_above":            round2(100.0 - probBelow),
		"expected_move":         round2(expectedMove),
		"expected_move_percent": round2(expectedMove / req.Spot * 100.0),
	})
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
