package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/jobs"
)

// StatusHandler reports service health and queue depth
type StatusHandler struct {
	pool   *jobs.WorkerPool
	logger arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(pool *jobs.WorkerPool, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		pool:   pool,
		logger: logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"version":      common.GetVersion(),
		"pending_jobs": h.pool.Pending(),
		"goroutines":   common.GetGoroutineCount(),
	})
}
