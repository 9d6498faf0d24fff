package handler

import (
	"net/http"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// StatusSource reports ledger state.
type StatusSource interface {
	Status() domain.Status
}

// StatusHandler serves the ledger summary.
type StatusHandler struct {
	source   StatusSource
	strategy string
	dryRun   bool
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(source StatusSource, strategy string, dryRun bool) *StatusHandler {
	return &StatusHandler{source: source, strategy: strategy, dryRun: dryRun}
}

// GetStatus responds with the processed count and exposures.
// GET /status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := h.source.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"strategy":            h.strategy,
		"dry_run":             h.dryRun,
		"processed_count":     st.ProcessedCount,
		"total_exposure":      st.TotalExposure,
		"per_market_exposure": st.PerMarketExposure,
	})
}
