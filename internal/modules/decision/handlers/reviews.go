package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/voltlab/volguard/internal/domain"
	"github.com/voltlab/volguard/internal/httpx"
	"github.com/voltlab/volguard/internal/store"
)

const reviewDateLayout = "2006-01-02"

// reviewChecklist is echoed with every created review as a prompt for the
// qualitative fields.
var reviewChecklist = []string{
	"Was the entry regime-aligned, and did the regime change during the trade?",
	"Were all adjustment rules followed when triggered?",
	"Did the exit match a defined trigger, or was it discretionary?",
	"What worked, what failed, and does a rule need to be added?",
}

type reviewRequest struct {
	TradeID   string  `json:"trade_id"`
	Strategy  string  `json:"strategy"`
	Symbol    string  `json:"symbol"`
	EntryDate string  `json:"entry_date"`
	ExitDate  string  `json:"exit_date"`
	PnL       float64 `json:"pnl"`
	PnLPct    float64 `json:"pnl_pct"`
	Notes     string  `json:"notes"`

	WhatWorked  string `json:"what_worked"`
	WhatFailed  string `json:"what_failed"`
	ExitTrigger string `json:"exit_trigger"`
}

func (r reviewRequest) validate() error {
	if r.Strategy == "" {
		return fmt.Errorf("%w: strategy is required", domain.ErrInvalidInputs)
	}
	if r.EntryDate == "" {
		return fmt.Errorf("%w: entry_date is required", domain.ErrInvalidInputs)
	}
	if _, err := time.Parse(reviewDateLayout, r.EntryDate); err != nil {
		return fmt.Errorf("%w: entry_date must be YYYY-MM-DD", domain.ErrInvalidInputs)
	}
	if r.ExitDate != "" {
		if _, err := time.Parse(reviewDateLayout, r.ExitDate); err != nil {
			return fmt.Errorf("%w: exit_date must be YYYY-MM-DD", domain.ErrInvalidInputs)
		}
	}
	return nil
}

// HandleCreateReview handles POST /api/engine/review. The stored review is
// stamped with the regime classified at creation time.
func (h *Handler) HandleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	regime, err := h.engine.GetRegime(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	review, err := h.reviews.Create(r.Context(), store.Review{
		TradeID:       req.TradeID,
		Symbol:        req.Symbol,
		Strategy:      req.Strategy,
		EntryDate:     req.EntryDate,
		ExitDate:      req.ExitDate,
		RegimeAtEntry: regime,
		GrossPnL:      req.PnL,
		PnLPct:        req.PnLPct,
		WhatWorked:    req.WhatWorked,
		WhatFailed:    req.WhatFailed,
		ExitTrigger:   req.ExitTrigger,
		Notes:         req.Notes,
	})
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	h.log.Info().Str("id", review.ID).Str("strategy", review.Strategy).Msg("Stored post-trade review")
	httpx.WriteJSON(w, h.log, http.StatusCreated, map[string]interface{}{
		"review":    review,
		"checklist": reviewChecklist,
	})
}

// HandleListReviews handles GET /api/engine/reviews, newest first.
func (h *Handler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.List(r.Context(), 100)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"reviews": reviews,
		"count":   len(reviews),
	})
}
