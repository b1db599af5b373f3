package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voltlab/volguard/internal/engine"
	"github.com/voltlab/volguard/internal/httpx"
)

// HandlePlaybook handles GET /api/engine/playbook/{event_type}
func (h *Handler) HandlePlaybook(w http.ResponseWriter, r *http.Request) {
	eventType, err := engine.ParseEventType(chi.URLParam(r, "event_type"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	playbook, err := engine.PlaybookFor(eventType)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, playbook)
}

// HandleZeroDTEInfo handles GET /api/engine/playbook/0dte/info
func (h *Handler) HandleZeroDTEInfo(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, h.log, http.StatusOK, engine.ZeroDTE())
}

// HandleZeroDTEDay handles GET /api/engine/playbook/0dte/{day}
func (h *Handler) HandleZeroDTEDay(w http.ResponseWriter, r *http.Request) {
	day, err := engine.ParseDayOfWeek(chi.URLParam(r, "day"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}

	info, err := engine.ZeroDTEDay(day)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, info)
}

// HandleReferenceList handles GET /api/engine/reference
func (h *Handler) HandleReferenceList(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"tables": engine.ReferenceTableNames(),
	})
}

// HandleReferenceTable handles GET /api/engine/reference/{table}
func (h *Handler) HandleReferenceTable(w http.ResponseWriter, r *http.Request) {
	table, err := engine.ReferenceTable(chi.URLParam(r, "table"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, table)
}
