package handler

import (
	"net/http"
	"time"
)

// IndexInfo describes the current match index.
type IndexInfo interface {
	Size() int
	BuiltAt() time.Time
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	index IndexInfo
	mode  string
	now   func() time.Time
}

// NewHealthHandler creates a HealthHandler. index may be nil.
func NewHealthHandler(index IndexInfo, mode string) *HealthHandler {
	return &HealthHandler{index: index, mode: mode, now: time.Now}
}

// HealthCheck reports liveness plus index freshness. The status is
// "starting" until the first index build.
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"mode":      h.mode,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}
	if h.index != nil {
		builtAt := h.index.BuiltAt()
		body["index_size"] = h.index.Size()
		if builtAt.IsZero() {
			body["status"] = "starting"
		} else {
			body["index_built_at"] = builtAt.UTC().Format(time.RFC3339)
			body["index_age_seconds"] = int64(h.now().Sub(builtAt).Seconds())
		}
	}
	writeJSON(w, http.StatusOK, body)
}
