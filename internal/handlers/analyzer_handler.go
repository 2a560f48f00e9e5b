package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrutor/internal/analyzers"
)

// AnalyzerHandler handles analyzer registry requests
type AnalyzerHandler struct {
	registry *analyzers.Service
	logger   arbor.ILogger
}

// NewAnalyzerHandler creates a new AnalyzerHandler
func NewAnalyzerHandler(registry *analyzers.Service, logger arbor.ILogger) *AnalyzerHandler {
	return &AnalyzerHandler{
		registry: registry,
		logger:   logger,
	}
}

// ListAnalyzersHandler handles GET /api/analyzers
func (h *AnalyzerHandler) ListAnalyzersHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	user, ok := UserFrom(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	list, err := h.registry.ListForUser(r.Context(), user.Organization)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// GetAnalyzerHandler handles GET /api/analyzers/{id}
func (h *AnalyzerHandler) GetAnalyzerHandler(w http.ResponseWriter, r *http.Request, analyzerID string) {
	user, ok := UserFrom(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	analyzer, err := h.registry.GetForUser(r.Context(), analyzerID, user.Organization)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, analyzer)
}
