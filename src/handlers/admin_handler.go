package handlers

import (
	"net/http"

	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/services"
)

// AdminHandler exposes the recurrence dashboard and the manual batch run.
type AdminHandler struct {
	recurrenceService services.RecurrenceService
}

func NewAdminHandler(recurrenceService services.RecurrenceService) *AdminHandler {
	return &AdminHandler{recurrenceService: recurrenceService}
}

func (h *AdminHandler) HandleGetRecurrenceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.recurrenceService.GetAdminStats(r.Context())
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, stats)
}

// HandleExecutePending runs the batch as of today and returns the full result,
// including per-template errors and skips that the login notice hides.
func (h *AdminHandler) HandleExecutePending(w http.ResponseWriter, r *http.Request) {
	result, err := h.recurrenceService.ExecuteAllPendingRecurrences(r.Context())
	if err != nil {
		if result == nil {
			sendServiceError(w, r, err)
			return
		}
		logger.FromContext(r.Context()).Warn("Batch interrupted", "runID", result.RunID, "error", err)
	}
	sendJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) HandleClearStatsCache(w http.ResponseWriter, r *http.Request) {
	h.recurrenceService.ClearStatsCache()
	w.WriteHeader(http.StatusNoContent)
}
