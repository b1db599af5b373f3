// Package handlers provides the decision engine HTTP surface: regime
// classification, strategy recommendation, tail risk, conflicts, position
// health, playbooks, reference tables, and post-trade reviews.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/domain"
	"github.com/voltlab/volguard/internal/engine"
	"github.com/voltlab/volguard/internal/httpx"
	"github.com/voltlab/volguard/internal/store"
)

// Handler serves the /api/engine routes.
type Handler struct {
	engine  *engine.Engine
	reviews *store.ReviewRepository
	regimes *store.RegimeHistoryRepository
	log     zerolog.Logger
}

// NewHandler creates a decision engine handler.
func NewHandler(
	eng *engine.Engine,
	reviews *store.ReviewRepository,
	regimes *store.RegimeHistoryRepository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		engine:  eng,
		reviews: reviews,
		regimes: regimes,
		log:     log.With().Str("handler", "decision").Logger(),
	}
}

// RegisterRoutes mounts the engine routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/engine", func(r chi.Router) {
		r.Get("/regime", h.HandleRegime)
		r.Get("/regime/history", h.HandleRegimeHistory)
		r.Post("/recommend", h.HandleRecommend)
		r.Post("/analysis", h.HandleAnalysis)
		r.Get("/strategies", h.HandleStrategies)
		r.Get("/strategies/{family}", h.HandleStrategiesByFamily)
		r.Get("/tail-risk", h.HandleTailRisk)
		r.Get("/early-warnings", h.HandleEarlyWarnings)
		r.Get("/conflicts", h.HandleConflicts)
		r.Get("/conflicts/active", h.HandleActiveConflicts)
		r.Post("/positions/evaluate", h.HandleEvaluatePosition)
		r.Get("/playbook/0dte/info", h.HandleZeroDTEInfo)
		r.Get("/playbook/0dte/{day}", h.HandleZeroDTEDay)
		r.Get("/playbook/{event_type}", h.HandlePlaybook)
		r.Get("/reference", h.HandleReferenceList)
		r.Get("/reference/{table}", h.HandleReferenceTable)
		r.Post("/review", h.HandleCreateReview)
		r.Get("/reviews", h.HandleListReviews)
	})
}

// HandleRegime handles GET /api/engine/regime
func (h *Handler) HandleRegime(w http.ResponseWriter, r *http.Request) {
	regime, err := h.engine.GetRegime(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, regime)
}

// HandleRegimeHistory handles GET /api/engine/regime/history.
// Previous is the regime recorded before this classification; recent is
// the persisted snapshot window, newest first.
func (h *Handler) HandleRegimeHistory(w http.ResponseWriter, r *http.Request) {
	previous := h.engine.PreviousRegime()

	current, err := h.engine.GetRegime(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	recent, err := h.regimes.Recent(r.Context(), 20)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"current":  current,
		"previous": previous,
		"recent":   recent,
	})
}

type recommendRequest struct {
	NAV       float64 `json:"nav"`
	Objective string  `json:"objective"`
}

// HandleRecommend handles POST /api/engine/recommend
func (h *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	recommendation, err := h.engine.Recommend(r.Context(), req.NAV, req.Objective)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, recommendation)
}

// HandleAnalysis handles POST /api/engine/analysis
func (h *Handler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req engine.AnalysisRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	result, err := h.engine.FullAnalysis(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, result)
}

// HandleStrategies handles GET /api/engine/strategies
func (h *Handler) HandleStrategies(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"strategies": h.engine.Universe().List(),
	})
}

// HandleStrategiesByFamily handles GET /api/engine/strategies/{family}
func (h *Handler) HandleStrategiesByFamily(w http.ResponseWriter, r *http.Request) {
	family, err := parseFamily(chi.URLParam(r, "family"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"family":     family,
		"strategies": h.engine.Universe().ByFamily(family),
	})
}

// HandleTailRisk handles GET /api/engine/tail-risk
func (h *Handler) HandleTailRisk(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.engine.TailRisk(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, assessment)
}

// HandleEarlyWarnings handles GET /api/engine/early-warnings
func (h *Handler) HandleEarlyWarnings(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.engine.TailRisk(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"warnings":      assessment.EarlyWarnings,
		"active_count":  assessment.ActiveWarningsCount,
		"crisis_active": assessment.CrisisProtocolActive,
	})
}

// HandleConflicts handles GET /api/engine/conflicts (the full catalog with
// detection status).
func (h *Handler) HandleConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := h.engine.AllConflicts(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{"conflicts": conflicts})
}

// HandleActiveConflicts handles GET /api/engine/conflicts/active
func (h *Handler) HandleActiveConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := h.engine.Conflicts(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"conflicts": conflicts,
		"count":     len(conflicts),
	})
}

type evaluateRequest struct {
	Position engine.PositionView `json:"position"`
}

// HandleEvaluatePosition handles POST /api/engine/positions/evaluate
func (h *Handler) HandleEvaluatePosition(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	check, err := h.engine.EvaluatePosition(r.Context(), req.Position)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, check)
}

func parseFamily(s string) (engine.StrategyFamily, error) {
	switch f := engine.StrategyFamily(s); f {
	case engine.FamilyShortPremium, engine.FamilyLongPremium, engine.FamilyHedging,
		engine.FamilyTailTrading, engine.FamilyRelativeValue:
		return f, nil
	}
	return "", fmt.Errorf(
		"%w: strategy family %q (available: short_premium, long_premium, hedging, tail_trading, relative_value)",
		domain.ErrUnknownName, s)
}
