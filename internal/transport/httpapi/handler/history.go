package handler

import (
	"net/http"

	"github.com/mkuiper/bankboard/internal/platform/history"
	"github.com/mkuiper/bankboard/pkg/logger"
)

// HistoryHandler serves snapshot time-series reads and the manual snapshot
// trigger.
type HistoryHandler struct {
	service *history.Service
	logger  *logger.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(service *history.Service, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  log.WithField("handler", "history"),
	}
}

// GetBalanceSeries handles GET /api/v1/history/balances?days=
func (h *HistoryHandler) GetBalanceSeries(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		respondError(w, err)
		return
	}

	points, err := h.service.BalanceSeries(r.Context(), days)
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, points, len(points))
}

// GetBreakdown handles GET /api/v1/history/breakdown
func (h *HistoryHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.service.Breakdown(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, breakdown)
}

// TriggerSnapshot handles POST /api/v1/history/snapshot
func (h *HistoryHandler) TriggerSnapshot(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Snapshot(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, map[string]int{"accounts_captured": count})
}
